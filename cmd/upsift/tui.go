package upsift

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/upsift/upsift/internal/engine"
	"github.com/upsift/upsift/internal/ignore"
	"github.com/upsift/upsift/internal/report"
	"github.com/upsift/upsift/internal/tui"
	"github.com/upsift/upsift/internal/types"
)

var flagTUIReport string

func init() {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse findings interactively",
		Long: "Runs the audit and opens a full-screen browser. With --report a saved JSON report " +
			"is shown instead; 'r' still re-runs the audit live.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			opts, err := resolveRunOptions()
			if err != nil {
				return err
			}
			matcher, err := ignore.Load(flagIgnoreFile)
			if err != nil {
				return err
			}
			cfg := engine.Config{
				Only:         opts.only,
				Skip:         opts.skip,
				Workers:      opts.workers,
				CheckTimeout: opts.checkTimeout,
				Host:         newHost(),
				Ignore:       matcher.With(opts.ignorePaths...),
				Logger:       slog.New(slog.DiscardHandler),
			}
			audit := func() ([]types.Finding, error) {
				f, err := engine.RunChecks(context.WithoutCancel(ctx), cfg)
				return report.FilterMinSeverity(f, opts.minSeverity), err
			}

			var findings []types.Finding
			if flagTUIReport != "" {
				findings, err = report.LoadReport(ctx, flagTUIReport)
			} else {
				findings, err = audit()
			}
			if err != nil {
				return err
			}

			path := opts.baseline
			if path == "" {
				path = report.DefaultBaselineFile
			}
			base, err := report.LoadBaseline(ctx, path)
			if err != nil {
				return err
			}
			return tui.Run(findings, tui.Options{
				Rescan:       audit,
				Baseline:     base,
				BaselinePath: path,
				Prefs:        tui.LoadPrefs(),
			})
		},
	}
	cmd.Flags().StringVar(&flagTUIReport, "report", "", "open a saved JSON report instead of auditing first")
	cmd.Flags().StringVar(&flagOnly, "only", "", "comma-separated check ids to run exclusively")
	cmd.Flags().StringVar(&flagSkip, "skip", "", "comma-separated check ids to skip")
	cmd.Flags().StringVar(&flagMinSeverity, "min-severity", "", "hide findings below this severity")
	rootCmd.AddCommand(cmd)
}
