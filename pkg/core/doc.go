// Package core provides a small, stable facade over upsift's internal engine
// for external integrations. It re-exports a narrow API surface so other
// tools can depend on a stable import path without importing internal
// packages.
//
// Example:
//
//	res, err := core.Run(ctx, core.Config{Skip: []string{"world_writable"}})
//	if err != nil { /* handle */ }
//	_ = core.MarshalFindings(os.Stdout, res.Findings)
package core
