package checks

import (
	"context"
	"strings"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/types"
)

type sudoNopasswd struct{ Meta }

func init() {
	Register(func() Check {
		return &sudoNopasswd{Meta{
			CheckID:   "sudo_nopasswd",
			CheckName: "Sudo NOPASSWD or broad rules",
			Sev:       types.SevHigh,
			Desc:      "Detect unsafe sudoers rules that allow command execution without password or with wildcards.",
		}}
	})
}

// riskySudoRule reports whether a sudoers line grants user (directly, via a
// group, or via ALL) passwordless or unrestricted commands.
func riskySudoRule(line, user string) bool {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return false
	}
	who := fields[0]
	switch {
	case strings.HasPrefix(who, "#"), strings.HasPrefix(who, "@"),
		strings.HasPrefix(who, "Defaults"), strings.HasSuffix(who, "_Alias"):
		return false
	case strings.EqualFold(who, user), strings.HasPrefix(who, "%"), who == "ALL":
	default:
		return false
	}
	rule := strings.Join(fields[1:], " ")
	return strings.Contains(rule, "NOPASSWD") ||
		strings.Contains(rule, "!authenticate") ||
		strings.Contains(rule, "ALL")
}

func (c *sudoNopasswd) Run(ctx context.Context, env Env) ([]types.Finding, error) {
	user, err := env.Host.Username()
	if err != nil {
		return nil, err
	}

	paths := []string{"/etc/sudoers"}
	if more, err := env.Host.Glob("/etc/sudoers.d/*"); err == nil {
		paths = append(paths, more...)
	}

	var risky []string
	readable := false
	for _, p := range paths {
		b, err := env.Host.ReadFile(p)
		if err != nil {
			continue
		}
		readable = true
		for _, line := range host.Lines(b) {
			if riskySudoRule(line, user) {
				risky = append(risky, p+": "+line)
			}
		}
	}

	// sudo -n never prompts; it fails fast when a password would be needed.
	if out, err := env.Host.Run(ctx, sudoListTimeout, "sudo", "-n", "-l"); err == nil {
		readable = true
		for _, line := range host.Lines(out) {
			if strings.Contains(strings.ToLower(line), "may run the following commands") {
				continue
			}
			if strings.Contains(line, "ALL") && (strings.Contains(line, "(ALL") || strings.Contains(line, "NOPASSWD")) {
				risky = append(risky, "sudo -l: "+line)
			}
		}
	}

	if len(risky) > 0 {
		f := c.Finding(types.SevHigh, "Unsafe sudo rules detected", c.Desc)
		f.Evidence = types.Str(capLines(risky))
		f.Remediation = types.Str("Restrict sudo rules; avoid NOPASSWD; scope commands narrowly; use runas and exact paths.")
		f.References = []string{"https://www.sudo.ws/docs/man/sudoers.man/"}
		return []types.Finding{f}, nil
	}
	if !readable {
		f := c.Finding(types.SevInfo, "Sudo rules could not be inspected",
			"Neither the sudoers files nor 'sudo -n -l' were readable by the current user.")
		f.Remediation = types.Str("Run as root for a full check.")
		return []types.Finding{f}, nil
	}
	return nil, nil
}
