package upsift

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/upsift/upsift/internal/audit"
	"github.com/upsift/upsift/internal/config"
	"github.com/upsift/upsift/internal/engine"
	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/ignore"
	"github.com/upsift/upsift/internal/report"
	"github.com/upsift/upsift/internal/types"
	"github.com/upsift/upsift/internal/update"
)

var (
	flagOnly         string
	flagSkip         string
	flagFormat       string
	flagMinSeverity  string
	flagWorkers      int
	flagCheckTimeout time.Duration
	flagSaveReport   string
	flagBaseline     string
	flagUploadURL    string
	flagUploadToken  string
	flagIgnoreFile   string
	flagProgress     bool
)

// newHost builds the host accessor for an audit. Tests swap it for a fake.
var newHost = func() host.Host { return host.NewLocal() }

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the audit (default command)",
		Args:  cobra.NoArgs,
		RunE:  runAudit,
	}
	addRunFlags(cmd)
	rootCmd.AddCommand(cmd)
}

// addRunFlags registers the audit flags on cmd. The root command and "run"
// share the same variables.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flagOnly, "only", "", "comma-separated check ids to run exclusively (overrides --skip)")
	f.StringVar(&flagSkip, "skip", "", "comma-separated check ids to skip")
	f.StringVarP(&flagFormat, "format", "f", "", "output format: table | text | json | sarif (default table)")
	f.StringVar(&flagMinSeverity, "min-severity", "", "hide findings below this severity: info | low | medium | high | critical")
	f.IntVar(&flagWorkers, "workers", 0, "run checks concurrently with this many workers (0 or 1 = sequential)")
	f.DurationVar(&flagCheckTimeout, "check-timeout", 0, "deadline for each check, e.g. 2m (0 = none)")
	f.StringVar(&flagSaveReport, "save-report", "", "also write the findings as a JSON report to this path")
	f.StringVar(&flagBaseline, "baseline", "", "hide findings recorded in this baseline file")
	f.StringVar(&flagUploadURL, "upload", "", "POST findings (JSON) to this URL after the audit")
	f.StringVar(&flagUploadToken, "upload-token", "", "bearer token for upload auth")
	f.StringVar(&flagIgnoreFile, "ignore-file", ignore.DefaultFile, "path ignore file")
	f.BoolVar(&flagProgress, "progress", false, "print per-check progress on stderr")
}

// runOptions is the audit configuration after CLI > local > global resolution.
type runOptions struct {
	only, skip   []string
	format       string
	noColor      bool
	minSeverity  types.Severity
	workers      int
	checkTimeout time.Duration
	ignorePaths  []string
	baseline     string
	uploadURL    string
}

func loadConfigs() (local, global config.FileConfig, err error) {
	local, err = config.LoadLocal(".")
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return local, global, err
	}
	global, err = config.LoadGlobal()
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return local, global, err
	}
	return local, global, nil
}

func resolveRunOptions() (runOptions, error) {
	local, global, err := loadConfigs()
	if err != nil {
		return runOptions{}, err
	}
	merged := global.Merge(local)

	opts := runOptions{
		only:        pickList(flagOnly, local.Only, global.Only),
		skip:        pickList(flagSkip, local.Skip, global.Skip),
		format:      pickString(flagFormat, local.Format, global.Format),
		noColor:     pickBool(flagNoColor, local.NoColor, global.NoColor),
		workers:     pickInt(flagWorkers, local.Workers, global.Workers),
		ignorePaths: merged.IgnorePaths,
		baseline:    pickString(flagBaseline, local.Baseline, global.Baseline),
		uploadURL:   pickString(flagUploadURL, local.UploadURL, global.UploadURL),
	}
	if opts.format == "" {
		opts.format = "table"
	}
	if !slices.Contains(config.Formats, opts.format) {
		return opts, fmt.Errorf("unknown format %q (want one of %s)", opts.format, strings.Join(config.Formats, ", "))
	}
	if opts.workers < 0 {
		return opts, fmt.Errorf("--workers must not be negative, got %d", opts.workers)
	}

	opts.minSeverity = types.SevInfo
	if s := pickString(flagMinSeverity, local.MinSeverity, global.MinSeverity); s != "" {
		sev, err := types.ParseSeverity(s)
		if err != nil {
			return opts, err
		}
		opts.minSeverity = sev
	}

	opts.checkTimeout = flagCheckTimeout
	if opts.checkTimeout < 0 {
		return opts, fmt.Errorf("--check-timeout must not be negative, got %s", opts.checkTimeout)
	}
	if opts.checkTimeout == 0 {
		d, err := merged.Timeout()
		if err != nil {
			return opts, err
		}
		opts.checkTimeout = d
	}
	return opts, nil
}

func runAudit(cmd *cobra.Command, _ []string) error {
	if flagListChecks {
		return listChecks(cmd)
	}
	if !flagNoUpdateCheck {
		if latest, newer, _ := update.Check(version, false); newer && latest != "" {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "(new version available: v%s)  run 'upsift update' to upgrade\n", latest)
		}
	}

	opts, err := resolveRunOptions()
	if err != nil {
		return err
	}
	matcher, err := ignore.Load(flagIgnoreFile)
	if err != nil {
		return err
	}
	matcher = matcher.With(opts.ignorePaths...)

	ctx := cmd.Context()
	errw := cmd.ErrOrStderr()
	cfg := engine.Config{
		Only:         opts.only,
		Skip:         opts.skip,
		Workers:      opts.workers,
		CheckTimeout: opts.checkTimeout,
		Host:         newHost(),
		Ignore:       matcher,
		Logger:       slog.Default(),
	}
	if flagProgress {
		cfg.Progress = progressPrinter(errw, cfg)
	}

	res, err := engine.Run(ctx, cfg)
	if err != nil {
		return err
	}
	if flagProgress {
		_, _ = fmt.Fprintln(errw)
	}

	findings := res.Findings
	fresh := findings
	if opts.baseline != "" {
		base, err := report.LoadBaseline(ctx, opts.baseline)
		if err != nil {
			return err
		}
		findings = report.FilterNewFindings(findings, base)
		fresh = findings
	}
	findings = report.FilterMinSeverity(findings, opts.minSeverity)

	runID := uuid.NewString()
	sum := summarize(cfg.Host, audit.New(runID, res.Findings, fresh, len(res.Checks), res.Failed(), res.Duration, opts.baseline))
	out := cmd.OutOrStdout()
	if err := render(out, opts, findings, res, runID); err != nil {
		return err
	}

	if flagSaveReport != "" {
		if err := report.SaveReport(flagSaveReport, findings); err != nil {
			return err
		}
		slog.Debug("report saved", "path", flagSaveReport, "findings", len(findings))
	}

	// Optional upload step: do not fail the audit on upload errors
	if opts.uploadURL != "" {
		if err := uploadFindings(ctx, opts.uploadURL, flagUploadToken, sum, findings); err != nil {
			_, _ = fmt.Fprintln(errw, "upload warning:", err)
		}
	}
	slog.Info("audit complete", "summary", sum)
	return nil
}

func render(w io.Writer, opts runOptions, findings []types.Finding, res engine.Result, runID string) error {
	switch opts.format {
	case "json":
		return report.WriteJSON(w, findings)
	case "sarif":
		names := make(map[string]string, len(res.Checks))
		for _, c := range res.Checks {
			names[c.ID] = c.Name
		}
		return report.WriteSARIF(w, findings, report.SARIFMeta{
			ToolVersion: version,
			RunID:       runID,
			RuleNames:   names,
			Stats: map[string]int{
				"checks_run":    len(res.Checks),
				"checks_failed": res.Failed(),
				"findings":      len(findings),
			},
		})
	}

	noColor := opts.noColor
	if f, ok := w.(*os.File); !ok || !report.ColorEnabled(f) {
		noColor = true
	}
	po := report.PrintOptions{
		NoColor:  noColor,
		Duration: res.Duration,
		Checks:   len(res.Checks),
		Failed:   res.Failed(),
	}
	if opts.format == "text" {
		report.PrintText(w, findings, po)
	} else {
		report.PrintTable(w, findings, po)
	}
	return nil
}

// summarize stamps the host identity onto s. Lookup failures leave the
// fields empty.
func summarize(h host.Host, s audit.Summary) audit.Summary {
	s.Host, _ = os.Hostname()
	s.User, _ = h.Username()
	return s
}

// progressPrinter reports "[done/total] id" on w as checks finish.
func progressPrinter(w io.Writer, cfg engine.Config) func(engine.CheckStat) {
	total := 0
	if entries, err := engine.ListChecks(cfg); err == nil {
		total = len(engine.Select(entries, cfg.Only, cfg.Skip))
	}
	done := 0
	return func(s engine.CheckStat) {
		done++
		mark := "ok"
		if s.Failed {
			mark = "failed"
		}
		_, _ = fmt.Fprintf(w, "\r\033[K[%d/%d] %s (%s, %s)", done, total, s.ID, mark, s.Duration.Round(time.Millisecond))
	}
}
