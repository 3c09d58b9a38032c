// Package cmd contains the agentlab CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kvistgaard/agentlab/internal/app"
	"github.com/kvistgaard/agentlab/internal/config"
	"github.com/kvistgaard/agentlab/internal/log"
)

var (
	flagDebug   bool
	flagLogJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "agentlab",
	Short: "agentlab - LLM agent demos behind one CLI and HTTP API",
	Long: `agentlab bundles a set of LLM agent demos: a tool-calling Q&A loop,
a plan-and-execute agent, a literature-review pipeline, a file-analysis
agent, and a browser-automation agent. Each is available as a
subcommand, and 'serve' exposes all of them over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "log in JSON format")
}

// newLogger builds the process logger from the persistent flags.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: flagLogJSON})
}

// setupApp loads configuration and initializes the application
// container. The caller must Close the returned App.
func setupApp(ctx context.Context) (*app.App, log.Logger, error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, logger, nil
}
