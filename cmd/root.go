// Package cmd defines the command-line interface for anthrometer.
package cmd

import (
	"anthrometer/config"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// configFile and logLevel override CONFIG_FILE and LOG_LEVEL when set.
var (
	configFile string
	logLevel   string
)

// rootCmd is the command-line entrypoint for all other commands. Without a
// subcommand it serves the dashboard.
var rootCmd = &cobra.Command{
	Use:           "anthrometer",
	Short:         "Serve the Good Times Index dashboard.",
	Long:          `Anthrometer polls the published index resources, keeps the latest snapshot in memory and serves the dashboard with live updates.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(versionCmd)

	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	prefsCmd.AddCommand(prefsResetCmd)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
}

// loadConfig merges defaults, the config file, env and flags, then
// validates.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if res := cfg.Validate(); !res.Valid {
		return nil, fmt.Errorf("%s", res.Error())
	}
	return cfg, nil
}

// setup loads the config and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(rootCtx)
}
