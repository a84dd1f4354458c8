// Package commands implements the sockpuppet command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/config"
	"github.com/codeGROOVE-dev/sockpuppet/pkg/httpcache"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "sockpuppet",
	Short:         "sockpuppet gathers Instagram account signals for fake-account classification.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format = logFormat
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, err = config.NewLogger(os.Stderr, cfg.Logging)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		httpcache.SetMinDelay(cfg.RateLimit)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose logging (same as --log-level debug)")
}

// ExecuteContext runs the command tree and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
