package checks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/upsift/upsift/internal/types"
)

var secretPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)(password|passwd|pwd)`), "Password"},
	{regexp.MustCompile(`(?i)(api_key|apikey|api-key)`), "API Key"},
	{regexp.MustCompile(`(?i)(secret|secret_key)`), "Secret"},
	{regexp.MustCompile(`(?i)(token|auth_token|access_token)`), "Token"},
	{regexp.MustCompile(`(?i)(private_key|privkey)`), "Private Key"},
	{regexp.MustCompile(`(?i)(aws_access|aws_secret)`), "AWS Credential"},
	{regexp.MustCompile(`(?i)(database_url|db_url|db_pass)`), "Database Credential"},
	{regexp.MustCompile(`(?i)(stripe|twilio|sendgrid|slack).*key`), "Third-party Service Key"},
}

// Known variables that match a pattern by accident.
var safeVars = map[string]bool{
	"LS_COLORS":                true,
	"TERM":                     true,
	"COLORTERM":                true,
	"DBUS_SESSION_BUS_ADDRESS": true,
}

// mask keeps the first four characters and stars out at most twenty more.
func mask(v string) string {
	r := []rune(v)
	if len(r) <= 4 {
		return "****"
	}
	return string(r[:4]) + strings.Repeat("*", min(len(r)-4, 20))
}

type envVariables struct{ Meta }

func init() {
	Register(func() Check {
		return &envVariables{Meta{
			CheckID:   "env_variables",
			CheckName: "Secrets in environment variables",
			Sev:       types.SevHigh,
			Desc: "Scans environment variables for accidentally exposed API keys, passwords, " +
				"tokens, and credentials that could be harvested by an attacker.",
		}}
	})
}

func (c *envVariables) Run(_ context.Context, env Env) ([]types.Finding, error) {
	var leaked []string
	for _, kv := range env.Host.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || safeVars[key] || strings.TrimSpace(value) == "" {
			continue
		}
		for _, p := range secretPatterns {
			if p.re.MatchString(key) {
				leaked = append(leaked, fmt.Sprintf("%s: %s=%s", p.label, key, mask(value)))
				break
			}
		}
	}

	if len(leaked) == 0 {
		f := c.Finding(types.SevInfo, "No secrets detected in environment variables",
			"No environment variables matched known secret/credential patterns.")
		return []types.Finding{f}, nil
	}
	f := c.Finding(types.SevHigh, fmt.Sprintf("Found %d potential secret(s) in environment", len(leaked)), c.Desc)
	f.Evidence = types.Str(strings.Join(leaked, "\n"))
	f.Remediation = types.Str("Remove secrets from environment variables. Use a secrets manager " +
		"(e.g. HashiCorp Vault, AWS Secrets Manager) or .env files that are excluded from version control.")
	f.References = []string{
		"https://cheatsheetseries.owasp.org/cheatsheets/Secrets_Management_Cheat_Sheet.html",
		"https://attack.mitre.org/techniques/T1552/",
	}
	return []types.Finding{f}, nil
}
