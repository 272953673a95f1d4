package upsift

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/report"
	"github.com/upsift/upsift/internal/types"
)

func fakeHost() *host.Fake {
	h := host.NewFake()
	h.AddFile("/etc/passwd", "root:x:0:0:root:/root:/bin/bash\nbob::1000:1000::/home/bob:/bin/sh\n", 0o644)
	h.AddFile("/etc/ssh/sshd_config", "PermitRootLogin yes\n", 0o644)
	return h
}

func resetFlags() {
	flagDebug, flagLogFormat, flagNoColor, flagNoUpdateCheck = false, "text", false, false
	flagOnly, flagSkip, flagFormat, flagMinSeverity = "", "", "", ""
	flagWorkers, flagCheckTimeout = 0, 0
	flagSaveReport, flagBaseline, flagUploadURL, flagUploadToken = "", "", "", ""
	flagIgnoreFile, flagProgress = ".upsiftignore", false
	flagChecksJSON, flagListChecks, flagConvertIn, flagConvertOut, flagBaselineOut = false, false, "", "", ""
	cfgPreset, cfgOutput, cfgFormat, cfgMinSeverity = "full", ".upsift.yml", "table", ""
	cfgWorkers, cfgNoColor, cfgForce = 0, false, false
	flagDocsOut, flagCheckOnly = "CHECKS.md", false
}

// execute runs the CLI in-process against the fake host with no network.
// Tests that audit call inTempDir first so reports stay scratch.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("CI", "1")
	t.Setenv("NO_COLOR", "1")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetFlags()

	old := newHost
	newHost = func() host.Host { return fakeHost() }
	t.Cleanup(func() { newHost = old })

	var out, errb bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestRun_JSONOutput(t *testing.T) {
	inTempDir(t)
	out, _, err := execute(t, "run", "--only", "weak_passwords,ssh_weak_config", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, report.ValidateJSON([]byte(out)))

	var findings []types.Finding
	require.NoError(t, json.Unmarshal([]byte(out), &findings))
	ids := map[string]bool{}
	for _, f := range findings {
		ids[f.ID] = true
	}
	assert.Equal(t, map[string]bool{"weak_passwords": true, "ssh_weak_config": true}, ids)
}

func TestRoot_DefaultsToRun(t *testing.T) {
	inTempDir(t)
	out, _, err := execute(t, "--only", "weak_passwords", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "[CRITICAL] weak_passwords: Found 1 account(s) with no password")
	assert.Contains(t, out, "Checks run: 1 (failed: 0)")
}

func TestRun_TableAndMinSeverity(t *testing.T) {
	inTempDir(t)
	out, _, err := execute(t, "run", "--only", "weak_passwords,ssh_weak_config", "--min-severity", "critical")
	require.NoError(t, err)
	assert.Contains(t, out, "weak_passwords")
	assert.NotContains(t, out, "ssh_weak_config")
}

func TestRun_SARIF(t *testing.T) {
	inTempDir(t)
	out, _, err := execute(t, "run", "--only", "weak_passwords", "-f", "sarif")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "2.1.0", doc["version"])
}

func TestRun_UnknownFormatFails(t *testing.T) {
	inTempDir(t)
	_, _, err := execute(t, "run", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestRun_BadMinSeverityFails(t *testing.T) {
	inTempDir(t)
	_, _, err := execute(t, "run", "--min-severity", "urgent")
	assert.ErrorIs(t, err, types.ErrInvalidSeverity)
}

func TestRun_SaveReportAndConvert(t *testing.T) {
	dir := inTempDir(t)
	_, _, err := execute(t, "run", "--only", "weak_passwords", "--format", "json", "--save-report", "out/report.json")
	require.NoError(t, err)

	saved, err := os.ReadFile(filepath.Join(dir, "out", "report.json"))
	require.NoError(t, err)
	require.NoError(t, report.ValidateJSON(saved))

	out, _, err := execute(t, "convert", "--in", "out/report.json")
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"id", "severity", "title", "evidence", "remediation"}, records[0])
	assert.Equal(t, []string{"weak_passwords", "critical"}, records[1][:2])

	_, errOut, err := execute(t, "convert", "--in", "out/report.json", "--out", "report.csv")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Wrote 1 finding(s) to report.csv")
}

func TestConvert_RejectsInvalidReport(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"not":"an array"}`), 0o600))
	_, _, err := execute(t, "convert", "--in", "bad.json")
	assert.Error(t, err)
}

func TestBaseline_UpdateThenFilter(t *testing.T) {
	inTempDir(t)
	out, _, err := execute(t, "baseline", "update", "--only", "weak_passwords")
	require.NoError(t, err)
	assert.Contains(t, out, "Baseline updated: 1 finding(s) in upsift.baseline.json")

	out, _, err = execute(t, "run", "--only", "weak_passwords", "--baseline", report.DefaultBaselineFile, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestRun_LocalConfigApplies(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".upsift.yml"),
		[]byte("only: [ssh_weak_config]\nformat: json\n"), 0o644))

	out, _, err := execute(t)
	require.NoError(t, err)
	var findings []types.Finding
	require.NoError(t, json.Unmarshal([]byte(out), &findings))
	require.NotEmpty(t, findings)
	for _, f := range findings {
		assert.Equal(t, "ssh_weak_config", f.ID)
	}

	// CLI wins over the local file.
	out, _, err = execute(t, "--only", "weak_passwords")
	require.NoError(t, err)
	assert.Contains(t, out, "weak_passwords")
	assert.NotContains(t, out, "ssh_weak_config")
}

func TestRun_InvalidConfigFails(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".upsift.yml"), []byte("workers: -3\n"), 0o644))
	_, _, err := execute(t)
	assert.Error(t, err)
}

func TestRun_Upload(t *testing.T) {
	inTempDir(t)
	var got uploadEnvelope
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	_, errOut, err := execute(t, "run", "--only", "weak_passwords", "--format", "json",
		"--upload", srv.URL, "--upload-token", "s3cret")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "upload warning")
	assert.Equal(t, "Bearer s3cret", auth)
	assert.Equal(t, "upsift", got.Tool)
	assert.Equal(t, report.SchemaVersion, got.Schema)
	assert.NotEmpty(t, got.RunID)
	require.Len(t, got.Findings, 1)
}

func TestRun_UploadFailureIsWarning(t *testing.T) {
	inTempDir(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, errOut, err := execute(t, "run", "--only", "weak_passwords", "--upload", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, errOut, "upload warning: upload status 500")
}

func TestRun_Progress(t *testing.T) {
	inTempDir(t)
	_, errOut, err := execute(t, "run", "--only", "weak_passwords,ssh_weak_config", "--progress", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, errOut, "[2/2]")
}

func TestRun_JSONLogs(t *testing.T) {
	inTempDir(t)
	_, errOut, err := execute(t, "run", "--only", "weak_passwords,nope", "--log-format", "json", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, errOut, `"msg":"unknown check id"`)

	_, _, err = execute(t, "run", "--log-format", "xml")
	assert.ErrorContains(t, err, "unknown log format")
}

func TestChecksCommand(t *testing.T) {
	out, _, err := execute(t, "checks")
	require.NoError(t, err)
	assert.Contains(t, out, "sudo_nopasswd")
	assert.Contains(t, out, "13 checks")

	out, _, err = execute(t, "checks", "--json")
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 13)
	assert.Equal(t, "cron_writable", rows[0]["id"])
}

func TestRoot_ListChecksFlag(t *testing.T) {
	inTempDir(t)
	out, _, err := execute(t, "--list-checks")
	require.NoError(t, err)
	assert.Contains(t, out, "weak_passwords")
	assert.Contains(t, out, "13 checks")
	assert.NotContains(t, out, "Findings:")

	assert.True(t, rootCmd.Flags().Lookup("list-checks").Hidden)
}

func TestSchemaCommand(t *testing.T) {
	out, _, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Equal(t, string(report.Schema()), out)
}

func TestGendocs(t *testing.T) {
	dir := inTempDir(t)
	_, _, err := execute(t, "gendocs")
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "CHECKS.md"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "world_writable")

	out, _, err := execute(t, "gendocs", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, string(b), out)
}

func TestConfigInit(t *testing.T) {
	dir := inTempDir(t)
	_, _, err := execute(t, "config", "init", "--preset", "quick", "--workers", "4")
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, ".upsift.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "suid_binaries")
	assert.Contains(t, string(b), "workers: 4")

	_, _, err = execute(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, _, err = execute(t, "config", "init", "--force", "--preset", "everything")
	assert.ErrorContains(t, err, "unknown preset")

	out, _, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "world_writable")
}

func TestCompletion(t *testing.T) {
	out, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "upsift")

	_, _, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "upsift v"+version))
}

func TestPickHelpers(t *testing.T) {
	l, g := "local", "global"
	assert.Equal(t, "cli", pickString("cli", &l, &g))
	assert.Equal(t, "local", pickString("", &l, &g))
	assert.Equal(t, "global", pickString("", nil, &g))

	one, two := 1, 2
	assert.Equal(t, 1, pickInt(0, &one, &two))
	assert.Equal(t, 2, pickInt(0, nil, &two))

	f := false
	assert.False(t, pickBool(false, &f, nil))
	assert.True(t, pickBool(true, &f, nil))

	assert.Equal(t, []string{"a", "b"}, pickList(" a, b,,", []string{"x"}, nil))
	assert.Equal(t, []string{"x"}, pickList("", []string{"x"}, []string{"y"}))
	assert.Equal(t, []string{"y"}, pickList("", nil, []string{"y"}))
}

func TestRun_SummaryLogged(t *testing.T) {
	inTempDir(t)
	_, errOut, err := execute(t, "run", "--only", "weak_passwords", "--debug", "--log-format", "json", "--format", "json")
	require.NoError(t, err)

	var summary map[string]any
	for _, line := range strings.Split(strings.TrimSpace(errOut), "\n") {
		var rec map[string]any
		if json.Unmarshal([]byte(line), &rec) == nil && rec["msg"] == "audit complete" {
			summary, _ = rec["summary"].(map[string]any)
		}
	}
	require.NotNil(t, summary)
	assert.EqualValues(t, 1, summary["findings"])
	assert.Equal(t, "critical", summary["worst"])
}
