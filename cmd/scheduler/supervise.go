package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/churro/scheduler/internal/logger"
	"github.com/churro/scheduler/internal/metrics"
	"github.com/churro/scheduler/internal/notify"
	"github.com/churro/scheduler/internal/store"
	"github.com/churro/scheduler/internal/supervisor"
)

func newSuperviseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supervise",
		Short: "Run the singleton supervisor dispatch loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.WithComponent("supervisor")

			// Subscribe before opening the general pool, per spec.md §4.5:
			// a TaskCreated notification fired between pool-open and
			// subscribe would otherwise be lost forever.
			listener, err := notify.ConnectSupervisor(cfg.Database.DSN, log)
			if err != nil {
				return err
			}
			defer listener.Close()

			db, err := store.Open(cfg.Database.DSN, cfg.Database.AcquireTimeout)
			if err != nil {
				return err
			}
			defer db.Close()

			sup := supervisor.New(db, listener, supervisor.Config{
				MaintenanceInterval: cfg.Supervisor.MaintenanceInterval,
				HeartbeatTimeout:    cfg.Supervisor.HeartbeatTimeout,
			}, log, supervisorMetrics())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			errCh := make(chan error, 1)
			go func() { errCh <- sup.Run(ctx) }()

			select {
			case <-quit:
				log.Info().Msg("shutting down")
				cancel()
				return nil
			case err := <-errCh:
				return err
			}
		},
	}
}

func supervisorMetrics() supervisor.Metrics {
	return supervisor.Metrics{
		DispatchAttempted: metrics.DispatchAttempts.Inc,
		DispatchWon:       metrics.DispatchWins.Inc,
		DispatchLost:      metrics.DispatchLosses.Inc,
		RosterSize:        func(n int) { metrics.RosterSize.Set(float64(n)) },
		IdleSetSize:       func(n int) { metrics.IdleWorkers.Set(float64(n)) },
		QueueDepth:        func(n int) { metrics.PendingQueueDepth.Set(float64(n)) },
		HeartbeatsSeen:    metrics.HeartbeatsReceived.Inc,
	}
}
