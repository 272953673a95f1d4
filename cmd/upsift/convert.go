package upsift

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/upsift/upsift/internal/report"
)

var (
	flagConvertIn  string
	flagConvertOut string
)

func init() {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a saved JSON report to CSV",
		Args:  cobra.NoArgs,
		Example: `  upsift run --save-report report.json
  upsift convert --in report.json --out report.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			findings, err := report.LoadReport(cmd.Context(), flagConvertIn)
			if err != nil {
				return err
			}
			if flagConvertOut == "" || flagConvertOut == "-" {
				return report.WriteCSV(cmd.OutOrStdout(), findings)
			}
			var buf bytes.Buffer
			if err := report.WriteCSV(&buf, findings); err != nil {
				return err
			}
			if err := os.WriteFile(flagConvertOut, buf.Bytes(), 0o600); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d finding(s) to %s\n", len(findings), flagConvertOut)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagConvertIn, "in", "", "JSON report to read")
	cmd.Flags().StringVar(&flagConvertOut, "out", "", "CSV file to write (default stdout)")
	_ = cmd.MarkFlagRequired("in")
	rootCmd.AddCommand(cmd)
}
