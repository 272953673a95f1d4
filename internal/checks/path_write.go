package checks

import (
	"context"
	"strings"

	"github.com/upsift/upsift/internal/types"
)

type pathWrite struct{ Meta }

func init() {
	Register(func() Check {
		return &pathWrite{Meta{
			CheckID:   "path_write",
			CheckName: "Writable PATH directories",
			Sev:       types.SevHigh,
			Desc:      "Detect user-writable directories in PATH and dangerous entries like '.' that enable PATH hijacking.",
		}}
	})
}

func lookupEnv(environ []string, key string) string {
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}

func (c *pathWrite) Run(_ context.Context, env Env) ([]types.Finding, error) {
	path := lookupEnv(env.Host.Environ(), "PATH")
	var writable, danger []string
	seen := map[string]bool{}
	for _, d := range strings.Split(path, ":") {
		switch {
		case d == "" && path != "":
			// An empty entry means the current directory.
			if !seen["<empty>"] {
				danger = append(danger, "<empty>")
				seen["<empty>"] = true
			}
			continue
		case d == "." || !strings.HasPrefix(d, "/"):
			if d != "" && !seen[d] {
				danger = append(danger, d)
				seen[d] = true
			}
			continue
		}
		if seen[d] || env.Ignore.Match(d) {
			continue
		}
		seen[d] = true
		info, err := env.Host.Stat(d)
		if err != nil || !info.IsDir() {
			continue
		}
		if env.Host.Writable(d) {
			writable = append(writable, d)
		}
	}
	if len(writable) == 0 && len(danger) == 0 {
		return nil, nil
	}

	var evidence []string
	if len(writable) > 0 {
		evidence = append(evidence, "Writable: "+strings.Join(writable, ", "))
	}
	if len(danger) > 0 {
		evidence = append(evidence, "Dangerous entries: "+strings.Join(danger, ", "))
	}
	f := c.Finding(types.SevHigh, "PATH is vulnerable to hijacking", c.Desc)
	f.Evidence = types.Str(strings.Join(evidence, "; "))
	f.Remediation = types.Str("Remove '.' and user-writable directories from PATH. Restrict perms to 755 or less.")
	f.References = []string{"https://attack.mitre.org/techniques/T1574/007/"}
	return []types.Finding{f}, nil
}
