package checks

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/types"
)

func TestWorldWritable_CleanFilesystem(t *testing.T) {
	h := host.NewFake()
	h.Commands[cmdKey("find", worldWritableFindArgs()...)] = host.Command{Stdout: ""}

	fs := runCheck(t, "world_writable", h)
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevInfo, fs[0].Severity)
	assert.Equal(t, "No world-writable files found outside /tmp", fs[0].Title)

	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, worldTimeout, calls[0].Timeout)
}

func TestWorldWritable_Results(t *testing.T) {
	tests := []struct {
		name      string
		cmd       host.Command
		wantSev   types.Severity
		wantTitle string
		wantEv    string
	}{
		{
			name:      "sensitive location",
			cmd:       host.Command{Stdout: "/etc/cron.allow\n/srv/share/notes.txt\n/tmp/x\n/etcetera/file\n"},
			wantSev:   types.SevHigh,
			wantTitle: "Found 1 world-writable file(s) in sensitive locations",
			wantEv:    "/etc/cron.allow",
		},
		{
			name:      "outside tmp",
			cmd:       host.Command{Stdout: "/srv/share/notes.txt\n/etcetera/file\n"},
			wantSev:   types.SevMed,
			wantTitle: "Found 2 world-writable file(s) outside /tmp",
			wantEv:    "/srv/share/notes.txt\n/etcetera/file",
		},
		{
			name:      "partial output with permission errors",
			cmd:       host.Command{Stdout: "/srv/data.txt\n", Err: &host.ExitError{Name: "find", Code: 1, Stderr: "Permission denied"}},
			wantSev:   types.SevMed,
			wantTitle: "Found 1 world-writable file(s) outside /tmp",
			wantEv:    "/srv/data.txt",
		},
		{
			name:      "timeout",
			cmd:       host.Command{Err: fmt.Errorf("find: %w after 30s", host.ErrTimeout)},
			wantSev:   types.SevInfo,
			wantTitle: "World-writable scan timed out",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := host.NewFake()
			h.Commands[cmdKey("find", worldWritableFindArgs()...)] = tt.cmd
			fs := runCheck(t, "world_writable", h)
			require.Len(t, fs, 1)
			assert.Equal(t, tt.wantSev, fs[0].Severity)
			assert.Equal(t, tt.wantTitle, fs[0].Title)
			if tt.wantEv != "" {
				assert.Equal(t, tt.wantEv, fs[0].EvidenceText())
			}
		})
	}
}

func TestWorldWritable_FindMissing(t *testing.T) {
	fs := runCheck(t, "world_writable", host.NewFake())
	require.Len(t, fs, 1)
	assert.Equal(t, "World-writable scan failed", fs[0].Title)
}

func TestSudoNopasswd_DetectsUserRule(t *testing.T) {
	const line = "alice ALL=(ALL) NOPASSWD: ALL"
	h := host.NewFake()
	h.User = "alice"
	h.AddFile("/etc/sudoers", "Defaults env_reset\nroot ALL=(ALL:ALL) ALL\n# alice ALL=(ALL) ALL\n@includedir /etc/sudoers.d\n", 0o440)
	h.AddFile("/etc/sudoers.d/alice", line+"\n", 0o440)

	fs := runCheck(t, "sudo_nopasswd", h)
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevHigh, fs[0].Severity)
	assert.Contains(t, fs[0].EvidenceText(), line)
	assert.Equal(t, "/etc/sudoers.d/alice: "+line, fs[0].EvidenceText())
}

func TestSudoNopasswd_SudoList(t *testing.T) {
	h := host.NewFake()
	h.User = "bob"
	h.Denied["/etc/sudoers"] = true
	h.Commands["sudo -n -l"] = host.Command{Stdout: "User bob may run the following commands on web:\n    (ALL : ALL) NOPASSWD: ALL\n    (root) /usr/bin/systemctl restart app\n"}

	fs := runCheck(t, "sudo_nopasswd", h)
	require.Len(t, fs, 1)
	assert.Equal(t, "sudo -l: (ALL : ALL) NOPASSWD: ALL", fs[0].EvidenceText())
}

func TestSudoNopasswd_Unreadable(t *testing.T) {
	h := host.NewFake()
	h.Denied["/etc/sudoers"] = true
	fs := runCheck(t, "sudo_nopasswd", h)
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevInfo, fs[0].Severity)
}

func TestRiskySudoRule(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"alice ALL=(ALL) NOPASSWD: ALL", true},
		{"ALICE ALL=(ALL) ALL", true},
		{"%admin ALL=(ALL) ALL", true},
		{"ALL ALL=(ALL) NOPASSWD: /usr/bin/id", true},
		{"bob ALL=(ALL) NOPASSWD: ALL", false},
		{"alice host=(root) /usr/bin/systemctl", false},
		{"Defaults !authenticate", false},
		{"User_Alias ADMINS = alice, bob", false},
		{"#includedir /etc/sudoers.d", false},
		{"alice", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, riskySudoRule(tt.line, "alice"), tt.line)
	}
}

func TestEnvVariables_MasksSecrets(t *testing.T) {
	h := host.NewFake()
	h.Env["API_KEY"] = "abcdef123456"
	h.Env["TERM"] = "xterm-256color"
	h.Env["GITHUB_TOKEN"] = ""
	h.Env["HOME"] = "/home/alice"

	fs := runCheck(t, "env_variables", h)
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevHigh, fs[0].Severity)
	assert.Equal(t, "Found 1 potential secret(s) in environment", fs[0].Title)

	ev := fs[0].EvidenceText()
	assert.Regexp(t, regexp.MustCompile(`API_KEY=abcd\*+$`), ev)
	assert.NotContains(t, ev, "abcdef123456")
	assert.NotContains(t, ev, "ef12")
}

func TestEnvVariables_None(t *testing.T) {
	h := host.NewFake()
	h.Env["PATH"] = "/usr/bin"
	fs := runCheck(t, "env_variables", h)
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevInfo, fs[0].Severity)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", mask("abc"))
	assert.Equal(t, "****", mask("abcd"))
	assert.Equal(t, "abcd*", mask("abcde"))
	assert.Equal(t, "abcd"+"********************", mask("abcd"+string(make([]byte, 40))))
}

func TestKernelVersion(t *testing.T) {
	tests := []struct {
		release string
		wantSev types.Severity
		wantEv  []string
	}{
		{release: "4.4.0-21-generic", wantSev: types.SevHigh, wantEv: []string{"CVE-2016-5195"}},
		{release: "5.10.50", wantSev: types.SevHigh, wantEv: []string{"CVE-2022-0847"}},
		{release: "3.10.0-1160.el7.x86_64", wantSev: types.SevHigh, wantEv: []string{"CVE-2016-5195", "End-of-life"}},
		{release: "4.8.3", wantSev: types.SevInfo},
		{release: "6.5.0-35-generic", wantSev: types.SevInfo},
		{release: "5.16.11", wantSev: types.SevInfo},
	}
	for _, tt := range tests {
		t.Run(tt.release, func(t *testing.T) {
			h := host.NewFake()
			h.AddFile("/proc/sys/kernel/osrelease", tt.release+"\n", 0o444)
			fs := runCheck(t, "kernel_version", h)
			require.Len(t, fs, 1)
			assert.Equal(t, tt.wantSev, fs[0].Severity)
			assert.Contains(t, fs[0].Title, tt.release)
			for _, w := range tt.wantEv {
				assert.Contains(t, fs[0].EvidenceText(), w)
			}
		})
	}
}

func TestKernelVersion_UnameFallbackAndFailure(t *testing.T) {
	h := host.NewFake()
	h.Commands["uname -r"] = host.Command{Stdout: "4.7.2\n"}
	fs := runCheck(t, "kernel_version", h)
	require.Len(t, fs, 1)
	assert.Equal(t, "Kernel 4.7.2 may be vulnerable", fs[0].Title)

	fs = runCheck(t, "kernel_version", host.NewFake())
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevInfo, fs[0].Severity)
	assert.Equal(t, "Kernel version check failed", fs[0].Title)
}

const ssOutput = `State  Recv-Q Send-Q Local Address:Port  Peer Address:Port Process
LISTEN 0      128          0.0.0.0:22         0.0.0.0:*
LISTEN 0      5            0.0.0.0:4444       0.0.0.0:*     users:(("nc",pid=4242,fd=3))
LISTEN 0      128             [::]:31337         [::]:*
LISTEN 0      128          0.0.0.0:12345      0.0.0.0:*
LISTEN 0      128             [::]:22            [::]:*
`

func TestOpenPorts(t *testing.T) {
	h := host.NewFake()
	h.Commands["ss -tlnp"] = host.Command{Stdout: ssOutput}
	fs := runCheck(t, "open_ports", h)
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevHigh, fs[0].Severity)
	assert.Equal(t, "Found 3 suspicious listening port(s)", fs[0].Title)
	assert.Equal(t, "Port 4444: Metasploit default listener\n"+
		"Port 12345: NetBus trojan\n"+
		"Port 31337: Classic elite/backdoor port", fs[0].EvidenceText())
	assert.Equal(t, portsTimeout, h.Calls()[0].Timeout)
}

func TestOpenPorts_NetstatFallback(t *testing.T) {
	h := host.NewFake()
	h.Commands["netstat -tlnp"] = host.Command{Stdout: "Active Internet connections (only servers)\nProto Recv-Q Send-Q Local Address Foreign Address State\ntcp 0 0 127.0.0.1:5432 0.0.0.0:* LISTEN\n"}
	fs := runCheck(t, "open_ports", h)
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevInfo, fs[0].Severity)
	assert.Equal(t, "Scanned 1 listening port(s). None matched known suspicious ports.", fs[0].Description)
}

func TestOpenPorts_NoTool(t *testing.T) {
	fs := runCheck(t, "open_ports", host.NewFake())
	require.Len(t, fs, 1)
	assert.Equal(t, "Open ports scan failed", fs[0].Title)
}

func TestSuidBinaries(t *testing.T) {
	h := host.NewFake()
	h.Commands[cmdKey("find", suidFindArgs...)] = host.Command{
		Stdout: "/usr/bin/sudo\n/usr/bin/passwd\n/usr/bin/find\n/opt/vendor/helper\n",
		Err:    &host.ExitError{Name: "find", Code: 1},
	}
	fs := runCheck(t, "suid_binaries", h, "/opt/vendor/")
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevMed, fs[0].Severity)
	assert.Equal(t, "/usr/bin/find", fs[0].EvidenceText())
}

func TestSuidBinaries_Failure(t *testing.T) {
	fs := runCheck(t, "suid_binaries", host.NewFake())
	require.Len(t, fs, 1)
	assert.Equal(t, types.SevInfo, fs[0].Severity)
	assert.Equal(t, "SUID/SGID scan failed", fs[0].Title)
}
