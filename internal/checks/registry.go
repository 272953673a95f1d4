package checks

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/upsift/upsift/internal/types"
)

// Factory constructs a fresh Check. Discovery calls it once; the resulting
// instance is carried in Entry.Check and is the one the engine runs.
type Factory func() Check

// Entry is a discovered check: validated metadata, the instance built during
// discovery, and the factory for callers that need another one.
type Entry struct {
	ID          string
	Name        string
	Severity    types.Severity
	Description string
	Check       Check
	New         Factory
}

// Registry collects check factories. Registration happens during package
// init; after that the registry is only read.
type Registry struct {
	mu        sync.Mutex
	factories []Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Default holds the built-in checks.
var Default = NewRegistry()

// Register adds f to the Default registry.
func Register(f Factory) { Default.Register(f) }

func (r *Registry) Register(f Factory) {
	if f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = append(r.factories, f)
}

// Discover instantiates every factory once, drops the malformed ones, and
// returns the rest sorted by id. A factory or metadata method that panics, a
// nil check, invalid metadata, or an id already seen is logged and excluded;
// it never aborts discovery of the others.
func (r *Registry) Discover(logger *slog.Logger) []Entry {
	if logger == nil {
		logger = slog.Default()
	}
	r.mu.Lock()
	factories := append([]Factory(nil), r.factories...)
	r.mu.Unlock()

	seen := make(map[string]bool, len(factories))
	out := make([]Entry, 0, len(factories))
	for i, f := range factories {
		e, err := describe(f)
		if err == nil && seen[e.ID] {
			err = fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		if err != nil {
			logger.Warn("check excluded from discovery", "index", i, "error", err)
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs lists the discovered ids in discovery order.
func (r *Registry) IDs() []string {
	entries := r.Discover(slog.New(slog.DiscardHandler))
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// describe builds one check and reads its metadata. Construction, validation
// and the metadata calls share one recover, so a typed-nil check or a
// panicking accessor is rejected like any other malformed check.
func describe(f Factory) (e Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = Entry{}, fmt.Errorf("%w: check panicked during discovery: %v", ErrInvalidCheck, r)
		}
	}()
	c := f()
	if c == nil {
		return Entry{}, fmt.Errorf("%w: factory returned nil", ErrInvalidCheck)
	}
	if err := validate(c); err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:          c.ID(),
		Name:        c.Name(),
		Severity:    c.Severity(),
		Description: c.Description(),
		Check:       c,
		New:         f,
	}, nil
}
