package upsift

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/upsift/upsift/internal/engine"
	"github.com/upsift/upsift/internal/report"
)

var flagDocsOut string

// gendocs writes the Markdown catalogue of built-in checks.
func init() {
	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Generate the Markdown catalogue of checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := engine.ListChecks(engine.Config{Logger: slog.Default()})
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := report.WriteChecksMarkdown(&buf, entries); err != nil {
				return err
			}
			if flagDocsOut == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(flagDocsOut, buf.Bytes(), 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d checks to %s\n", len(entries), flagDocsOut)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagDocsOut, "output", "o", "CHECKS.md", "file to write, or - for stdout")
	rootCmd.AddCommand(cmd)
}
