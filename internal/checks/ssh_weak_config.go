package checks

import (
	"context"
	"strings"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/types"
)

// Options that weaken sshd when set to yes.
var riskySSHOptions = map[string]bool{
	"permitrootlogin":        true,
	"passwordauthentication": true,
	"permitemptypasswords":   true,
}

type sshWeakConfig struct{ Meta }

func init() {
	Register(func() Check {
		return &sshWeakConfig{Meta{
			CheckID:   "ssh_weak_config",
			CheckName: "Weak SSH daemon config",
			Sev:       types.SevMed,
			Desc:      "Detects risky SSHD options (PermitRootLogin yes, PasswordAuthentication yes, PermitEmptyPasswords yes).",
		}}
	})
}

func (c *sshWeakConfig) Run(_ context.Context, env Env) ([]types.Finding, error) {
	files := []string{"/etc/ssh/sshd_config"}
	if more, err := env.Host.Glob("/etc/ssh/sshd_config.d/*.conf"); err == nil {
		files = append(files, more...)
	}

	var risky []string
	for _, p := range files {
		b, err := env.Host.ReadFile(p)
		if err != nil {
			continue
		}
		for _, line := range host.Lines(b) {
			if strings.HasPrefix(line, "#") {
				continue
			}
			fields := strings.Fields(strings.ReplaceAll(line, "=", " "))
			if len(fields) < 2 {
				continue
			}
			if riskySSHOptions[strings.ToLower(fields[0])] && strings.EqualFold(fields[1], "yes") {
				risky = append(risky, p+": "+line)
			}
		}
	}
	if len(risky) == 0 {
		return nil, nil
	}
	f := c.Finding(types.SevMed, "Risky SSHD options found", c.Desc)
	f.Evidence = types.Str(strings.Join(risky, "\n"))
	f.Remediation = types.Str("Set PermitRootLogin no, PasswordAuthentication no (use keys), PermitEmptyPasswords no, and restart sshd.")
	f.References = []string{"https://man.openbsd.org/sshd_config"}
	return []types.Finding{f}, nil
}
