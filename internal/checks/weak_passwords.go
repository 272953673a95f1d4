package checks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/types"
)

type weakPasswords struct{ Meta }

func init() {
	Register(func() Check {
		return &weakPasswords{Meta{
			CheckID:   "weak_passwords",
			CheckName: "Accounts with no password",
			Sev:       types.SevCritical,
			Desc: "Detects local user accounts that have no password set. " +
				"These accounts can be switched to without any credentials, " +
				"making them trivial privilege escalation targets.",
		}}
	})
}

// emptyPasswordUsers lists accounts whose second colon field is empty.
func emptyPasswordUsers(b []byte) []string {
	var out []string
	for _, l := range host.Lines(b) {
		if strings.HasPrefix(l, "#") {
			continue
		}
		parts := strings.Split(l, ":")
		if len(parts) >= 2 && parts[0] != "" && parts[1] == "" {
			out = append(out, parts[0])
		}
	}
	return out
}

func (c *weakPasswords) Run(_ context.Context, env Env) ([]types.Finding, error) {
	var users []string
	shadowUnreadable := false

	if b, err := env.Host.ReadFile("/etc/shadow"); err == nil {
		users = emptyPasswordUsers(b)
	} else if errors.Is(err, fs.ErrPermission) {
		shadowUnreadable = true
	}
	if b, err := env.Host.ReadFile("/etc/passwd"); err == nil {
		for _, u := range emptyPasswordUsers(b) {
			if !slices.Contains(users, u) {
				users = append(users, u)
			}
		}
	}

	switch {
	case len(users) > 0:
		f := c.Finding(types.SevCritical, fmt.Sprintf("Found %d account(s) with no password", len(users)), c.Desc)
		f.Evidence = types.Str("Accounts with no password:\n" + strings.Join(users, "\n"))
		f.Remediation = types.Str("Set a strong password immediately: 'sudo passwd <username>'. " +
			"Or lock unused accounts: 'sudo usermod -L <username>'.")
		f.References = []string{
			"https://man7.org/linux/man-pages/man5/shadow.5.html",
			"https://attack.mitre.org/techniques/T1078/",
		}
		return []types.Finding{f}, nil
	case shadowUnreadable:
		f := c.Finding(types.SevInfo, "/etc/shadow not readable: run as root for full check",
			"Could not read /etc/shadow to check for empty passwords.")
		f.Remediation = types.Str("Re-run upsift with sudo for a complete password audit.")
		return []types.Finding{f}, nil
	default:
		f := c.Finding(types.SevInfo, "No passwordless accounts detected", "All accounts appear to have passwords set.")
		return []types.Finding{f}, nil
	}
}
