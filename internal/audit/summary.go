// Package audit summarises a single audit run. Nothing here is written to
// disk; a summary lives as long as the invocation that produced it.
package audit

import (
	"log/slog"
	"time"

	"github.com/upsift/upsift/internal/types"
)

// Summary is the per-run rollup attached to uploads and the completion log.
type Summary struct {
	Timestamp      time.Time      `json:"timestamp"`
	RunID          string         `json:"run_id"`
	Host           string         `json:"host,omitempty"`
	User           string         `json:"user,omitempty"`
	TotalFindings  int            `json:"total_findings"`
	NewFindings    int            `json:"new_findings"`
	BaselinedCount int            `json:"baselined_count"`
	SeverityCounts map[string]int `json:"severity_counts"`
	ChecksRun      int            `json:"checks_run"`
	ChecksFailed   int            `json:"checks_failed"`
	Duration       string         `json:"duration"`
	BaselineFile   string         `json:"baseline_file,omitempty"`
}

// New builds a Summary. all is every finding of the run; shown is what
// remained after the baseline filter.
func New(runID string, all, shown []types.Finding, checksRun, checksFailed int, duration time.Duration, baselineFile string) Summary {
	counts := make(map[string]int)
	for _, f := range all {
		counts[string(f.Severity)]++
	}
	return Summary{
		Timestamp:      time.Now().UTC(),
		RunID:          runID,
		TotalFindings:  len(all),
		NewFindings:    len(shown),
		BaselinedCount: len(all) - len(shown),
		SeverityCounts: counts,
		ChecksRun:      checksRun,
		ChecksFailed:   checksFailed,
		Duration:       duration.String(),
		BaselineFile:   baselineFile,
	}
}

// Worst returns the highest severity seen, or "" for a clean run.
func (s Summary) Worst() types.Severity {
	var worst types.Severity
	for _, sev := range types.Severities() {
		if s.SeverityCounts[string(sev)] > 0 {
			worst = sev
		}
	}
	return worst
}

// LogValue renders the summary as a slog group.
func (s Summary) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("run_id", s.RunID),
		slog.Int("findings", s.TotalFindings),
		slog.Int("new", s.NewFindings),
		slog.Int("checks", s.ChecksRun),
		slog.Int("failed", s.ChecksFailed),
		slog.String("duration", s.Duration),
	}
	if w := s.Worst(); w != "" {
		attrs = append(attrs, slog.String("worst", string(w)))
	}
	if s.Host != "" {
		attrs = append(attrs, slog.String("host", s.Host))
	}
	return slog.GroupValue(attrs...)
}
