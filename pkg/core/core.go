package core

import (
	"context"

	"github.com/upsift/upsift/internal/checks"
	"github.com/upsift/upsift/internal/engine"
	"github.com/upsift/upsift/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
type (
	Config   = engine.Config
	Result   = engine.Result
	Finding  = types.Finding
	Severity = types.Severity
	Check    = checks.Entry
)

// Severity levels, least to most severe.
const (
	SevInfo     = types.SevInfo
	SevLow      = types.SevLow
	SevMed      = types.SevMed
	SevHigh     = types.SevHigh
	SevCritical = types.SevCritical
)

// ErrNoChecks is returned when no check could be discovered.
var ErrNoChecks = engine.ErrNoChecks

// Run audits the host with the configured checks.
func Run(ctx context.Context, cfg Config) (Result, error) {
	return engine.Run(ctx, cfg)
}

// RunChecks is Run without statistics.
func RunChecks(ctx context.Context, cfg Config) ([]Finding, error) {
	return engine.RunChecks(ctx, cfg)
}

// ListChecks returns metadata for every available check, sorted by id.
func ListChecks() ([]Check, error) {
	return engine.ListChecks(Config{})
}
