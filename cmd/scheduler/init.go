package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/churro/scheduler/internal/logger"
	"github.com/churro/scheduler/internal/store"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Apply the database schema (workers and tasks tables)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.Get()

			s, err := store.Open(cfg.Database.DSN, cfg.Database.AcquireTimeout)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.DB().ExecContext(context.Background(), store.Schema); err != nil {
				return err
			}

			log.Info().Msg("schema applied")
			return nil
		},
	}
}
