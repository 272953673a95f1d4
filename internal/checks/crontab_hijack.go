package checks

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/types"
)

var cronSources = []string{
	"/etc/crontab",
	"/etc/cron.d",
	"/var/spool/cron",
	"/var/spool/cron/crontabs",
	"/etc/cron.hourly",
	"/etc/cron.daily",
	"/etc/cron.weekly",
	"/etc/cron.monthly",
}

var reCronScript = regexp.MustCompile(`(/[\w/.\-]+\.(?:sh|py|pl|rb|php|bash))`)

type crontabHijack struct{ Meta }

func init() {
	Register(func() Check {
		return &crontabHijack{Meta{
			CheckID:   "crontab_hijack",
			CheckName: "Crontab script hijack",
			Sev:       types.SevHigh,
			Desc: "Finds cron jobs that execute scripts which are writable by the current user. " +
				"A writable script called by a privileged cron job can be replaced with " +
				"malicious code that runs as root.",
		}}
	})
}

// cronLines returns the non-comment lines of every cron source. Directories
// are read one level deep.
func cronLines(h host.Host) []string {
	var lines []string
	add := func(p string) {
		b, err := h.ReadFile(p)
		if err != nil {
			return
		}
		for _, l := range host.Lines(b) {
			if !strings.HasPrefix(l, "#") {
				lines = append(lines, l)
			}
		}
	}
	for _, p := range cronSources {
		info, err := h.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		entries, err := h.ReadDir(p)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				add(p + "/" + e.Name())
			}
		}
	}
	return lines
}

func (c *crontabHijack) Run(ctx context.Context, env Env) ([]types.Finding, error) {
	var hijackable []string
	for _, line := range cronLines(env.Host) {
		for _, m := range reCronScript.FindAllStringSubmatch(line, -1) {
			script := m[1]
			if env.Ignore.Match(script) {
				continue
			}
			if _, err := env.Host.Stat(script); err != nil {
				continue
			}
			if env.Host.Writable(script) {
				hijackable = append(hijackable, fmt.Sprintf("%s (writable) in cron: %s", script, truncate(line, 80)))
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(hijackable) == 0 {
		f := c.Finding(types.SevInfo, "No writable cron scripts detected",
			"No cron job scripts were found to be writable by the current user.")
		return []types.Finding{f}, nil
	}
	f := c.Finding(types.SevHigh, fmt.Sprintf("Found %d writable script(s) called by cron", len(hijackable)), c.Desc)
	f.Evidence = types.Str(capLines(hijackable))
	f.Remediation = types.Str("Remove write permissions from cron scripts: 'chmod 755 /path/to/script' and ensure owner is root. " +
		"Audit all cron jobs: 'crontab -l' and 'cat /etc/crontab'.")
	f.References = []string{
		"https://attack.mitre.org/techniques/T1053/003/",
		"https://gtfobins.github.io/",
	}
	return []types.Finding{f}, nil
}

// truncate keeps at most n bytes of s without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
