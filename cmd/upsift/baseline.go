package upsift

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/upsift/upsift/internal/engine"
	"github.com/upsift/upsift/internal/ignore"
	"github.com/upsift/upsift/internal/report"
)

var flagBaselineOut string

func init() {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage baselines",
	}

	update := &cobra.Command{
		Use:   "update",
		Short: "Record the current findings as the baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := resolveRunOptions()
			if err != nil {
				return err
			}
			matcher, err := ignore.Load(flagIgnoreFile)
			if err != nil {
				return err
			}
			res, err := engine.Run(cmd.Context(), engine.Config{
				Only:         opts.only,
				Skip:         opts.skip,
				Workers:      opts.workers,
				CheckTimeout: opts.checkTimeout,
				Host:         newHost(),
				Ignore:       matcher.With(opts.ignorePaths...),
				Logger:       slog.Default(),
			})
			if err != nil {
				return err
			}
			path := flagBaselineOut
			if path == "" {
				path = report.DefaultBaselineFile
			}
			if err := report.SaveBaseline(path, res.Findings); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Baseline updated: %d finding(s) in %s\n", len(res.Findings), path)
			return nil
		},
	}
	update.Flags().StringVarP(&flagBaselineOut, "output", "o", "", "baseline file to write (default "+report.DefaultBaselineFile+")")
	update.Flags().StringVar(&flagOnly, "only", "", "comma-separated check ids to run exclusively")
	update.Flags().StringVar(&flagSkip, "skip", "", "comma-separated check ids to skip")

	rootCmd.AddCommand(cmd)
	cmd.AddCommand(update)
}
