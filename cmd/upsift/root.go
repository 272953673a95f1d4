package upsift

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagDebug         bool
	flagLogFormat     string
	flagNoColor       bool
	flagNoUpdateCheck bool

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the upsift CLI. Invoked without a
// subcommand it runs the audit, same as "upsift run".
var rootCmd = &cobra.Command{
	Use:   "upsift",
	Short: "Audit a Linux host for privilege-escalation paths",
	Long: "upsift runs a set of read-only checks against the local host (sudo rules, SUID binaries, " +
		"writable cron and systemd files, weak SSH settings, kernel CVEs and more) and reports findings " +
		"by severity. An audit always exits 0; a non-zero exit means upsift itself failed.",
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
	RunE:              runAudit,
}

// Execute runs the upsift CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format: text | json")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVar(&flagNoUpdateCheck, "no-update-check", false, "disable update check")
	addRunFlags(rootCmd)
	rootCmd.Flags().BoolVar(&flagListChecks, "list-checks", false, "list available checks and exit")
	_ = rootCmd.Flags().MarkHidden("list-checks")
}

// setupLogging installs the process-wide slog logger. Logs always go to
// stderr so stdout carries only the report.
func setupLogging(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd.ErrOrStderr(), flagLogFormat, flagDebug)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
