package checks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	semver "github.com/blang/semver/v4"

	"github.com/upsift/upsift/internal/types"
)

type kernelAdvisory struct {
	rng  semver.Range
	note string
}

// Ranges are matched against the numeric X.Y.Z prefix of the release, so
// distro suffixes never count as semver pre-releases.
var kernelAdvisories = []kernelAdvisory{
	{
		semver.MustParseRange(">=2.6.22 <4.4.26 || >=4.5.0 <4.7.9 || >=4.8.0 <4.8.3"),
		"CVE-2016-5195 (Dirty COW): local privilege escalation via copy-on-write race",
	},
	{
		semver.MustParseRange(">=5.8.0 <5.10.102 || >=5.11.0 <5.15.25 || >=5.16.0 <5.16.11"),
		"CVE-2022-0847 (Dirty Pipe): overwrite of read-only files via pipe buffers",
	},
	{
		semver.MustParseRange("<4.0.0"),
		"End-of-life kernel: no longer receives security patches",
	},
}

var reKernelRelease = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?`)

// kernelSemver extracts the numeric X.Y.Z prefix of a kernel release.
func kernelSemver(release string) (semver.Version, error) {
	m := reKernelRelease.FindStringSubmatch(strings.TrimSpace(release))
	if m == nil {
		return semver.Version{}, fmt.Errorf("unrecognised kernel release %q", release)
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return semver.ParseTolerant(m[1] + "." + m[2] + "." + patch)
}

type kernelVersion struct{ Meta }

func init() {
	Register(func() Check {
		return &kernelVersion{Meta{
			CheckID:   "kernel_version",
			CheckName: "Kernel version & known CVEs",
			Sev:       types.SevHigh,
			Desc: "Checks the running kernel version against known vulnerable versions " +
				"including Dirty COW (CVE-2016-5195) and Dirty Pipe (CVE-2022-0847).",
		}}
	})
}

func (c *kernelVersion) release(ctx context.Context, env Env) (string, error) {
	if b, err := env.Host.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		if r := strings.TrimSpace(string(b)); r != "" {
			return r, nil
		}
	}
	out, err := env.Host.Run(ctx, unameTimeout, "uname", "-r")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *kernelVersion) Run(ctx context.Context, env Env) ([]types.Finding, error) {
	release, err := c.release(ctx, env)
	var v semver.Version
	if err == nil {
		v, err = kernelSemver(release)
	}
	if err != nil {
		f := c.Finding(types.SevInfo, "Kernel version check failed", err.Error())
		f.Remediation = types.Str("Run manually: uname -a")
		return []types.Finding{f}, nil
	}

	var notes []string
	for _, a := range kernelAdvisories {
		if a.rng(v) {
			notes = append(notes, a.note)
		}
	}
	if len(notes) == 0 {
		desc := "Running kernel: " + release
		if out, uerr := env.Host.Run(ctx, unameTimeout, "uname", "-a"); uerr == nil && len(out) > 0 {
			desc = "Running kernel: " + strings.TrimSpace(string(out))
		}
		f := c.Finding(types.SevInfo, fmt.Sprintf("Kernel %s: no known critical CVEs matched", release), desc)
		f.Remediation = types.Str("Keep your kernel updated regularly as new CVEs are discovered.")
		f.References = []string{"https://www.kernel.org/"}
		return []types.Finding{f}, nil
	}

	f := c.Finding(types.SevHigh, fmt.Sprintf("Kernel %s may be vulnerable", release), c.Desc)
	f.Evidence = types.Str(strings.Join(append([]string{"Kernel: " + release}, notes...), "\n"))
	f.Remediation = types.Str("Update your kernel immediately: 'sudo apt update && sudo apt upgrade' (Debian/Ubuntu) " +
		"or 'sudo dnf update kernel' (RHEL/Fedora). Reboot after updating.")
	f.References = []string{
		"https://nvd.nist.gov/vuln/detail/CVE-2016-5195",
		"https://nvd.nist.gov/vuln/detail/CVE-2022-0847",
		"https://www.kernel.org/",
	}
	return []types.Finding{f}, nil
}
