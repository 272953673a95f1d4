package checks

import (
	"context"
	"fmt"

	"github.com/upsift/upsift/internal/types"
)

// Setuid programs every mainstream distribution ships.
var suidBaseline = map[string]bool{
	"/usr/bin/passwd":  true,
	"/usr/bin/sudo":    true,
	"/bin/su":          true,
	"/usr/bin/su":      true,
	"/usr/bin/chsh":    true,
	"/usr/bin/chfn":    true,
	"/usr/bin/newgrp":  true,
	"/usr/bin/gpasswd": true,
	"/usr/bin/mount":   true,
	"/usr/bin/umount":  true,
	"/bin/mount":       true,
	"/bin/umount":      true,
}

var suidFindArgs = []string{"/", "-xdev", "-type", "f", "(", "-perm", "-4000", "-o", "-perm", "-2000", ")"}

type suidBinaries struct{ Meta }

func init() {
	Register(func() Check {
		return &suidBinaries{Meta{
			CheckID:   "suid_binaries",
			CheckName: "SUID/SGID binaries",
			Sev:       types.SevMed,
			Desc:      "Find world-accessible binaries with SUID/SGID that could allow privilege escalation.",
		}}
	})
}

func (c *suidBinaries) Run(ctx context.Context, env Env) ([]types.Finding, error) {
	bins, err := runListing(ctx, env.Host, suidTimeout, "find", suidFindArgs...)
	if err != nil {
		f := c.Finding(types.SevInfo, "SUID/SGID scan failed", err.Error())
		f.Remediation = types.Str("Run manually: find / -xdev -perm -4000 -o -perm -2000 2>/dev/null")
		return []types.Finding{f}, nil
	}

	var risky []string
	for _, b := range bins {
		if suidBaseline[b] || env.Ignore.Match(b) {
			continue
		}
		risky = append(risky, b)
	}
	if len(risky) == 0 {
		return nil, nil
	}
	f := c.Finding(types.SevMed, fmt.Sprintf("Found %d unusual SUID/SGID binaries", len(risky)), c.Desc)
	f.Evidence = types.Str(capLines(risky))
	f.Remediation = types.Str("Audit and remove SUID/SGID where unnecessary. Example: chmod a-s /path/bin")
	f.References = []string{
		"https://gtfobins.github.io/",
		"https://www.kernel.org/doc/Documentation/sysctl/fs.txt",
	}
	return []types.Finding{f}, nil
}
