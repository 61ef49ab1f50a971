package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"inatscraper/pkg/config"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd harvests photos when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "inatscraper",
	Short: "Harvest research-grade species photos from iNaturalist",
	Long: `inatscraper downloads research-grade observation photos from iNaturalist
into one folder per species.

Without --species it enumerates every species observed inside the configured
circle (see 'inatscraper config show') and harvests them concurrently. With
--species it resolves each name and harvests them one after another.

Species folders that already hold enough photos are skipped, so interrupted
runs can simply be started again.`,
	Example: `  # Harvest every species of the configured region
  inatscraper

  # Harvest two species, 20 photos each
  inatscraper --species "Ocean Triggerfish,Moorish Idol" --num_images 20

  # Write into another directory and expose Prometheus metrics
  INATSCRAPER_METRICS_ADDR=127.0.0.1:9464 inatscraper --output ./photos`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}
	},
	RunE: runHarvest,
}

// Execute runs the root command and exits 1 on any error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.inatscraper.yaml or ~/.config/inatscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`inatscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration with the global flags merged in and
// initializes the global logger from it
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
