package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/types"
)

// Scratch and pseudo filesystems where world-writable files are expected.
var worldWritableSkip = []string{"/proc", "/sys", "/dev", "/tmp", "/var/tmp", "/run"}

// Writable files under these prefixes are escalated to high.
var highValuePaths = []string{
	"/etc", "/usr/bin", "/usr/sbin", "/bin", "/sbin",
	"/usr/local/bin", "/lib", "/usr/lib",
}

func worldWritableFindArgs() []string {
	args := []string{"/", "-xdev", "-type", "f", "-perm", "-0002"}
	for _, d := range worldWritableSkip {
		args = append(args, "-not", "-path", d+"/*")
	}
	return args
}

func underAny(p string, prefixes []string) bool {
	for _, pre := range prefixes {
		if p == pre || strings.HasPrefix(p, pre+"/") {
			return true
		}
	}
	return false
}

type worldWritableFiles struct{ Meta }

func init() {
	Register(func() Check {
		return &worldWritableFiles{Meta{
			CheckID:   "world_writable",
			CheckName: "World-writable files",
			Sev:       types.SevMed,
			Desc: "Finds files outside /tmp that are writable by any user on the system. " +
				"World-writable files in sensitive locations can be used for privilege " +
				"escalation, persistence, or tampering with system behaviour.",
		}}
	})
}

func (c *worldWritableFiles) Run(ctx context.Context, env Env) ([]types.Finding, error) {
	files, err := runListing(ctx, env.Host, worldTimeout, "find", worldWritableFindArgs()...)
	if errors.Is(err, host.ErrTimeout) {
		f := c.Finding(types.SevInfo, "World-writable scan timed out",
			"The filesystem scan took too long. Try running as root with a narrower scope.")
		f.Remediation = types.Str("Run manually: find /etc /usr /bin -type f -perm -0002 2>/dev/null")
		return []types.Finding{f}, nil
	}
	if err != nil {
		f := c.Finding(types.SevInfo, "World-writable scan failed", err.Error())
		f.Remediation = types.Str("Run manually: find / -xdev -type f -perm -0002 2>/dev/null")
		return []types.Finding{f}, nil
	}

	var risky, critical []string
	for _, p := range files {
		if underAny(p, worldWritableSkip) || env.Ignore.Match(p) {
			continue
		}
		risky = append(risky, p)
		if underAny(p, highValuePaths) {
			critical = append(critical, p)
		}
	}

	switch {
	case len(critical) > 0:
		f := c.Finding(types.SevHigh, fmt.Sprintf("Found %d world-writable file(s) in sensitive locations", len(critical)),
			"World-writable files found in high-value system directories.")
		f.Evidence = types.Str(capLines(critical))
		f.Remediation = types.Str("Remove world-write permission immediately: 'chmod o-w /path/to/file'. " +
			"Audit file ownership too: 'ls -la /path/to/file'.")
		f.References = []string{
			"https://attack.mitre.org/techniques/T1222/",
			"https://linux-audit.com/linux-file-permissions-security-hardening/",
		}
		return []types.Finding{f}, nil
	case len(risky) > 0:
		f := c.Finding(types.SevMed, fmt.Sprintf("Found %d world-writable file(s) outside /tmp", len(risky)), c.Desc)
		f.Evidence = types.Str(capLines(risky))
		f.Remediation = types.Str("Review each file and remove world-write permission where unnecessary: 'chmod o-w /path/to/file'.")
		f.References = []string{"https://attack.mitre.org/techniques/T1222/"}
		return []types.Finding{f}, nil
	default:
		f := c.Finding(types.SevInfo, "No world-writable files found outside /tmp",
			"No unexpected world-writable files were detected.")
		return []types.Finding{f}, nil
	}
}
