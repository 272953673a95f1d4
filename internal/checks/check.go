// Package checks defines the Check contract, the self-registering Registry,
// and the built-in inspection routines.
//
// Each check lives in its own file and registers a factory into Default from
// init, so adding a file is enough for it to be discovered. Checks only read
// host state through Env.Host and never modify the machine.
package checks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/ignore"
	"github.com/upsift/upsift/internal/types"
)

var (
	// ErrInvalidCheck marks a check whose metadata cannot be registered.
	ErrInvalidCheck = errors.New("invalid check")
	// ErrDuplicateID marks a second check claiming an id already taken.
	ErrDuplicateID = errors.New("duplicate check id")
)

// Env is what a check may look at while running.
type Env struct {
	Host   host.Host
	Ignore ignore.Matcher
}

// Check is one inspection routine. Run may return an error or panic; the
// engine converts either into a single informational finding.
type Check interface {
	ID() string
	Name() string
	Severity() types.Severity
	Description() string
	Run(ctx context.Context, env Env) ([]types.Finding, error)
}

// Meta carries a check's static identity. Embed it to satisfy the metadata
// half of Check.
type Meta struct {
	CheckID   string
	CheckName string
	Sev       types.Severity
	Desc      string
}

func (m Meta) ID() string               { return m.CheckID }
func (m Meta) Name() string             { return m.CheckName }
func (m Meta) Severity() types.Severity { return m.Sev }
func (m Meta) Description() string      { return m.Desc }

// Finding builds a finding stamped with the check id.
func (m Meta) Finding(sev types.Severity, title, description string) types.Finding {
	return types.Finding{
		ID:          m.CheckID,
		Title:       title,
		Severity:    sev,
		Description: description,
		References:  []string{},
	}
}

// validate reports metadata problems that keep a check out of discovery.
func validate(c Check) error {
	if strings.TrimSpace(c.ID()) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidCheck)
	}
	if strings.TrimSpace(c.Name()) == "" {
		return fmt.Errorf("%w: %s: empty name", ErrInvalidCheck, c.ID())
	}
	if !c.Severity().Valid() {
		return fmt.Errorf("%w: %s: %w: %q", ErrInvalidCheck, c.ID(), types.ErrInvalidSeverity, c.Severity())
	}
	return nil
}

// Timeouts for external commands.
const (
	sudoListTimeout = 5 * time.Second
	portsTimeout    = 10 * time.Second
	unameTimeout    = 5 * time.Second
	suidTimeout     = 25 * time.Second
	worldTimeout    = 30 * time.Second
)

// maxEvidence caps how many lines a single finding lists.
const maxEvidence = 50

func capLines(lines []string) string {
	if len(lines) > maxEvidence {
		rest := len(lines) - maxEvidence
		lines = append(lines[:maxEvidence:maxEvidence], fmt.Sprintf("... and %d more", rest))
	}
	return strings.Join(lines, "\n")
}

// runListing runs a find-style command and returns one path per line. A
// non-zero exit, usually permission denied on some subtree, still yields the
// paths printed before it.
func runListing(ctx context.Context, h host.Host, timeout time.Duration, name string, args ...string) ([]string, error) {
	out, err := h.Run(ctx, timeout, name, args...)
	var ee *host.ExitError
	if err != nil && !errors.As(err, &ee) {
		return nil, err
	}
	return host.Lines(out), nil
}

// worldWritable reports the S_IWOTH bit.
func worldWritable(mode fs.FileMode) bool { return mode.Perm()&0o002 != 0 }
