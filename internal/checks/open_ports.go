package checks

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/types"
)

var suspiciousPorts = map[int]string{
	1234:  "Common test/backdoor port",
	4444:  "Metasploit default listener",
	5555:  "Common backdoor port",
	6666:  "Common backdoor port",
	7777:  "Common backdoor port",
	8888:  "Common backdoor/debug port",
	9999:  "Common backdoor port",
	12345: "NetBus trojan",
	31337: "Classic elite/backdoor port",
	54321: "Back Orifice variant",
}

type openPorts struct{ Meta }

func init() {
	Register(func() Check {
		return &openPorts{Meta{
			CheckID:   "open_ports",
			CheckName: "Suspicious open ports",
			Sev:       types.SevHigh,
			Desc: "Detects unusual or suspicious ports listening on the system that may " +
				"indicate backdoors, misconfigured services, or attacker-planted listeners.",
		}}
	})
}

// listeningPorts pulls every host:port column out of ss or netstat output.
func listeningPorts(out []byte) []int {
	var ports []int
	for _, line := range host.Lines(out) {
		if strings.HasPrefix(line, "State") || strings.HasPrefix(line, "Proto") || strings.HasPrefix(line, "Active") {
			continue
		}
		for _, field := range strings.Fields(line) {
			i := strings.LastIndexByte(field, ':')
			if i < 0 {
				continue
			}
			if p, err := strconv.Atoi(field[i+1:]); err == nil {
				ports = append(ports, p)
			}
		}
	}
	return ports
}

func (c *openPorts) Run(ctx context.Context, env Env) ([]types.Finding, error) {
	out, err := env.Host.Run(ctx, portsTimeout, "ss", "-tlnp")
	if err != nil {
		var nerr error
		out, nerr = env.Host.Run(ctx, portsTimeout, "netstat", "-tlnp")
		if nerr != nil {
			f := c.Finding(types.SevInfo, "Open ports scan failed", nerr.Error())
			f.Remediation = types.Str("Ensure 'ss' or 'netstat' is available on this system.")
			return []types.Finding{f}, nil
		}
	}

	ports := listeningPorts(out)
	unique := map[int]bool{}
	var hits []int
	for _, p := range ports {
		if unique[p] {
			continue
		}
		unique[p] = true
		if _, ok := suspiciousPorts[p]; ok {
			hits = append(hits, p)
		}
	}
	sort.Ints(hits)
	flagged := make([]string, len(hits))
	for i, p := range hits {
		flagged[i] = fmt.Sprintf("Port %d: %s", p, suspiciousPorts[p])
	}

	if len(flagged) == 0 {
		f := c.Finding(types.SevInfo, "No suspicious ports detected",
			fmt.Sprintf("Scanned %d listening port(s). None matched known suspicious ports.", len(unique)))
		return []types.Finding{f}, nil
	}
	f := c.Finding(types.SevHigh, fmt.Sprintf("Found %d suspicious listening port(s)", len(flagged)), c.Desc)
	f.Evidence = types.Str(strings.Join(flagged, "\n"))
	f.Remediation = types.Str("Investigate each flagged port. Kill unknown listeners with " +
		"'kill $(lsof -t -i:<port>)' and audit running services.")
	f.References = []string{
		"https://gtfobins.github.io/",
		"https://attack.mitre.org/techniques/T1049/",
	}
	return []types.Finding{f}, nil
}
