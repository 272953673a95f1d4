package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/upsift/upsift/internal/types"
)

type PrintOptions struct {
	NoColor  bool
	Duration time.Duration
	Checks   int
	Failed   int
}

// maxCellLines keeps long evidence from flooding the table view.
const maxCellLines = 6

func PrintTable(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No findings ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("SEVERITY", "CHECK", "TITLE", "EVIDENCE")
		for _, f := range findings {
			_ = table.Append([]string{
				sevLabel(f.Severity, opts.NoColor),
				f.ID,
				f.Title,
				clipLines(f.EvidenceText(), maxCellLines),
			})
		}
		_ = table.Render()
	}
	printFooter(w, findings, opts)
}

func PrintText(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No findings ✅")
	} else {
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, f := range findings {
			fmt.Fprintf(w, "\n[%s] %s: %s\n", sevLabel(f.Severity, opts.NoColor), f.ID, f.Title)
			if f.Description != "" {
				fmt.Fprintf(w, "  %s\n", f.Description)
			}
			if f.Evidence != nil && *f.Evidence != "" {
				fmt.Fprintln(w, "  Evidence:")
				for _, l := range strings.Split(*f.Evidence, "\n") {
					fmt.Fprintf(w, "    %s\n", l)
				}
			}
			if f.Remediation != nil {
				fmt.Fprintf(w, "  Remediation: %s\n", *f.Remediation)
			}
			for _, r := range f.References {
				fmt.Fprintf(w, "  Ref: %s\n", r)
			}
		}
	}
	printFooter(w, findings, opts)
}

func printFooter(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if opts.Duration <= 0 && opts.Checks <= 0 {
		return
	}
	counts := SeverityCounts(findings)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %d (critical: %d, high: %d, medium: %d, low: %d, info: %d)\n",
		len(findings), counts[types.SevCritical], counts[types.SevHigh], counts[types.SevMed],
		counts[types.SevLow], counts[types.SevInfo])
	if opts.Checks > 0 {
		fmt.Fprintf(w, "Checks run: %d (failed: %d)\n", opts.Checks, opts.Failed)
	}
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Audit duration: %.2fs\n", opts.Duration.Seconds())
	}
}

// SeverityCounts tallies findings per severity.
func SeverityCounts(findings []types.Finding) map[types.Severity]int {
	out := make(map[types.Severity]int, 5)
	for _, f := range findings {
		out[f.Severity]++
	}
	return out
}

// FilterMinSeverity drops findings ranked below floor. An empty floor keeps all.
func FilterMinSeverity(findings []types.Finding, floor types.Severity) []types.Finding {
	if floor == "" {
		return findings
	}
	out := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.Rank() >= floor.Rank() {
			out = append(out, f)
		}
	}
	return out
}

func clipLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n(+%d more)", len(lines)-n)
}
