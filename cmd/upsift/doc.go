// Package upsift provides the command-line interface for the upsift host
// auditor. It wires subcommands (run, checks, convert, baseline, config, tui,
// etc.), resolves flags against config files, and renders results.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/upsift/upsift/cmd/upsift"
//	func main() { upsift.Execute() }
package upsift
