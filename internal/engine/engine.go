package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"golang.org/x/sync/errgroup"

	"github.com/upsift/upsift/internal/checks"
	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/ignore"
	"github.com/upsift/upsift/internal/types"
)

// ErrNoChecks is returned when discovery yields nothing to run. It is the
// only engine-level failure; individual checks never surface as errors.
var ErrNoChecks = errors.New("no checks registered")

// ErrorRemediation is attached to the synthetic finding of a failed check.
const ErrorRemediation = "Run with higher privileges or file a bug with stacktrace."

// Config controls check selection and execution.
type Config struct {
	// Only, when non-empty, is the exact set of check ids to run.
	Only []string
	// Skip excludes ids. Ignored when Only is set.
	Skip []string
	// Workers > 1 runs checks concurrently. Output order is unaffected.
	Workers int
	// CheckTimeout bounds each check's run when positive.
	CheckTimeout time.Duration

	Host     host.Host
	Ignore   ignore.Matcher
	Registry *checks.Registry
	Logger   *slog.Logger

	// Progress is called after each check completes.
	Progress func(CheckStat)
}

// CheckStat summarises one executed check.
type CheckStat struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Findings int           `json:"findings"`
	Failed   bool          `json:"failed"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result contains findings and basic run statistics.
type Result struct {
	Findings []types.Finding
	Checks   []CheckStat
	Duration time.Duration
}

// Failed counts checks that ended in an error finding.
func (r Result) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if c.Failed {
			n++
		}
	}
	return n
}

func (cfg Config) withDefaults() Config {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = checks.Default
	}
	if cfg.Host == nil {
		cfg.Host = host.NewLocal()
	}
	return cfg
}

// ListChecks returns metadata for every discovered check without running any.
func ListChecks(cfg Config) ([]checks.Entry, error) {
	cfg = cfg.withDefaults()
	entries := cfg.Registry.Discover(cfg.Logger)
	if len(entries) == 0 {
		return nil, ErrNoChecks
	}
	return entries, nil
}

// RunChecks runs the selected checks and returns only their findings.
func RunChecks(ctx context.Context, cfg Config) ([]types.Finding, error) {
	res, err := Run(ctx, cfg)
	return res.Findings, err
}

// Run discovers, selects and executes checks. Findings are concatenated in
// discovery order, each check's own order preserved, regardless of Workers.
func Run(ctx context.Context, cfg Config) (Result, error) {
	start := time.Now()
	cfg = cfg.withDefaults()

	entries := cfg.Registry.Discover(cfg.Logger)
	if len(entries) == 0 {
		return Result{}, ErrNoChecks
	}
	warnUnknown(cfg.Logger, entries, cfg.Only, cfg.Skip)
	selected := Select(entries, cfg.Only, cfg.Skip)

	r := &runner{
		cfg: cfg,
		env: checks.Env{Host: cfg.Host, Ignore: cfg.Ignore},
	}
	slots := make([]slot, len(selected))
	if cfg.Workers <= 1 || len(selected) < 2 {
		for i, e := range selected {
			slots[i] = r.runOne(ctx, e)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(cfg.Workers)
		for i, e := range selected {
			g.Go(func() error {
				slots[i] = r.runOne(ctx, e)
				return nil
			})
		}
		_ = g.Wait()
	}

	res := Result{Findings: []types.Finding{}, Checks: make([]CheckStat, 0, len(slots))}
	for _, s := range slots {
		res.Findings = append(res.Findings, s.findings...)
		res.Checks = append(res.Checks, s.stat)
	}
	res.Duration = time.Since(start)
	cfg.Logger.Debug("audit finished",
		"checks", len(res.Checks), "findings", len(res.Findings),
		"failed", res.Failed(), "duration", res.Duration)
	return res, nil
}

type slot struct {
	findings []types.Finding
	stat     CheckStat
}

type runner struct {
	cfg Config
	env checks.Env
	mu  sync.Mutex
}

func (r *runner) runOne(ctx context.Context, e checks.Entry) slot {
	start := time.Now()
	log := r.cfg.Logger.With("check", e.ID)
	log.Debug("check started")

	findings, err := r.invoke(ctx, e, log)
	if err == nil {
		findings, err = normalize(e.ID, findings)
	}
	stat := CheckStat{ID: e.ID, Name: e.Name}
	if err != nil {
		log.Warn("check failed", "error", err)
		findings = []types.Finding{ErrorFinding(e, err)}
		stat.Failed = true
		stat.Error = err.Error()
	}
	stat.Findings = len(findings)
	stat.Duration = time.Since(start)
	log.Debug("check finished", "findings", stat.Findings, "duration", stat.Duration)

	if r.cfg.Progress != nil {
		r.mu.Lock()
		r.cfg.Progress(stat)
		r.mu.Unlock()
	}
	return slot{findings: findings, stat: stat}
}

// invoke runs the check, under a deadline when one is configured. With a
// deadline the check runs on its own goroutine so that checks which never
// look at ctx are still cut off; a straggler finishes into the buffered
// channel and its result is dropped.
func (r *runner) invoke(ctx context.Context, e checks.Entry, log *slog.Logger) ([]types.Finding, error) {
	d := r.cfg.CheckTimeout
	if d <= 0 {
		return supervise(ctx, e, r.env, log)
	}
	t := timeout.New[[]types.Finding](timeout.Config{DefaultTimeout: d})
	out, err := t.Execute(ctx, d, func(ctx context.Context) ([]types.Finding, error) {
		done := make(chan outcome, 1)
		go func() {
			findings, err := supervise(ctx, e, r.env, log)
			done <- outcome{findings, err}
		}()
		select {
		case o := <-done:
			return o.findings, o.err
		case <-ctx.Done():
			log.Debug("check abandoned at deadline", "deadline", d)
			return nil, ctx.Err()
		}
	})
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("check exceeded %s deadline: %w", d, err)
	}
	return out, err
}

type outcome struct {
	findings []types.Finding
	err      error
}

// supervise runs one check, turning a panic into an error. The instance built
// during discovery is used; the factory is only a fallback for entries
// assembled by hand.
func supervise(ctx context.Context, e checks.Entry, env checks.Env, log *slog.Logger) (out []types.Finding, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Debug("check panicked", "stack", string(debug.Stack()))
			out, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()
	c := e.Check
	if c == nil && e.New != nil {
		c = e.New()
	}
	if c == nil {
		return nil, fmt.Errorf("%w: no check instance", checks.ErrInvalidCheck)
	}
	return c.Run(ctx, env)
}

// normalize stamps missing ids and rejects findings that break the model. One
// bad finding fails the whole check.
func normalize(id string, in []types.Finding) ([]types.Finding, error) {
	out := make([]types.Finding, 0, len(in))
	for i, f := range in {
		if f.ID == "" {
			f.ID = id
		}
		if f.ID != id {
			return nil, fmt.Errorf("finding %d carries id %q, want %q", i, f.ID, id)
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("finding %d: %w", i, err)
		}
		f.References = append([]string{}, f.References...)
		out = append(out, f)
	}
	return out, nil
}

// ErrorFinding is the synthetic finding recorded for a failed check.
func ErrorFinding(e checks.Entry, err error) types.Finding {
	return types.Finding{
		ID:          e.ID,
		Title:       "Check error: " + e.Name,
		Severity:    types.SevInfo,
		Description: err.Error(),
		Remediation: types.Str(ErrorRemediation),
		References:  []string{},
	}
}
