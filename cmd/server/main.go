package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskly/taskly-api/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "taskly",
	Short: "Taskly task management API",
	Long: `Taskly serves the task management REST API. Usage:

	taskly serve
	taskly migrate
`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates configuration and installs the JSON logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
