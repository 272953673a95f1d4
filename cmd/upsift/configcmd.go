package upsift

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/upsift/upsift/internal/config"
	"github.com/upsift/upsift/internal/ignore"
)

var (
	cfgPreset      string
	cfgOutput      string
	cfgFormat      string
	cfgMinSeverity string
	cfgWorkers     int
	cfgNoColor     bool
	cfgForce       bool
)

// slowChecks walk the whole filesystem and are left out of the quick preset.
var slowChecks = []string{"suid_binaries", "world_writable"}

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .upsift.yml starter config",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&cfgPreset, "preset", "full", "check preset: full | quick (skips whole-filesystem scans)")
	initCmd.Flags().StringVarP(&cfgOutput, "output", "o", ".upsift.yml", "output file path")
	initCmd.Flags().StringVar(&cfgFormat, "format", "table", "default output format")
	initCmd.Flags().StringVar(&cfgMinSeverity, "min-severity", "", "default severity floor")
	initCmd.Flags().IntVar(&cfgWorkers, "workers", 0, "default worker count (0 = sequential)")
	initCmd.Flags().BoolVar(&cfgNoColor, "no-color", false, "disable color output by default")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (global merged with local)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			local, global, err := loadConfigs()
			if err != nil {
				return err
			}
			merged := global.Merge(local)
			b, err := yaml.Marshal(&merged)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cfgCmd.AddCommand(showCmd)

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the global config location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.GlobalPath()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cfgCmd.AddCommand(pathCmd)
}

func presetConfig(preset string) (config.FileConfig, error) {
	var fc config.FileConfig
	switch strings.ToLower(preset) {
	case "full", "":
	case "quick":
		fc.Skip = append([]string(nil), slowChecks...)
	default:
		return fc, fmt.Errorf("unknown preset %q (want full or quick)", preset)
	}
	fc.Format = strPtr(cfgFormat)
	fc.MinSeverity = optStrPtr(cfgMinSeverity)
	fc.Workers = intPtr(cfgWorkers)
	fc.NoColor = boolPtr(cfgNoColor)
	fc.IgnorePaths = []string{"/proc/", "/sys/"}
	return fc, fc.Validate()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	fc, err := presetConfig(cfgPreset)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgOutput); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgOutput)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	b, err := yaml.Marshal(&fc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgOutput, b, 0o644); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Add host paths to skip to %s\n", ignore.DefaultFile)
	return nil
}

func strPtr(s string) *string { return &s }
func optStrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
func boolPtr(v bool) *bool { return &v }
