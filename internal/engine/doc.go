// Package engine selects checks from the registry, runs each one behind an
// isolating boundary, and assembles their findings in discovery order. A
// failing or panicking check becomes a single informational finding and never
// stops the rest of the audit. This package is internal; external consumers
// should use the stable facade in pkg/core.
package engine
