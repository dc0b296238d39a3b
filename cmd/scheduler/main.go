// Command scheduler is the single binary that runs every role described in
// spec.md: schema bootstrap (init), the singleton dispatch loop
// (supervise), and a task-executing process with its own HTTP/websocket
// surface (work).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/churro/scheduler/internal/config"
	"github.com/churro/scheduler/internal/logger"
)

var (
	flagDatabase string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "scheduler",
		Short: "Database-backed distributed task scheduler",
	}

	root.PersistentFlags().StringVar(&flagDatabase, "database", "", "Postgres DSN (overrides config/env)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (overrides config/env)")

	root.AddCommand(newInitCmd())
	root.AddCommand(newSuperviseCmd())
	root.AddCommand(newWorkCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the layered config and applies any CLI flag overrides,
// then initializes the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagDatabase != "" {
		cfg.Database.DSN = flagDatabase
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	return cfg, nil
}
