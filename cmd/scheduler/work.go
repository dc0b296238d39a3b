package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/churro/scheduler/internal/api"
	"github.com/churro/scheduler/internal/coordination"
	"github.com/churro/scheduler/internal/events"
	"github.com/churro/scheduler/internal/logger"
	"github.com/churro/scheduler/internal/metrics"
	"github.com/churro/scheduler/internal/notify"
	"github.com/churro/scheduler/internal/store"
	"github.com/churro/scheduler/internal/worker"
)

func newWorkCmd() *cobra.Command {
	var rawID string
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Run a worker process with its own HTTP/websocket surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if rawID == "" {
				rawID = cfg.Worker.ID
			}
			if rawID == "" {
				return fmt.Errorf("worker id is required (--id or config worker.id)")
			}
			id, err := coordination.ParseWorkerID(rawID)
			if err != nil {
				return fmt.Errorf("invalid worker id: %w", err)
			}
			if listenAddr == "" {
				listenAddr = cfg.Worker.ListenAddr
			}

			log := logger.WithWorker(id.String())

			// Subscribe before opening the general pool, matching the
			// supervisor's own ordering constraint in spec.md §4.6.
			workerListener, err := notify.ConnectWorker(cfg.Database.DSN, id, log)
			if err != nil {
				return err
			}
			defer workerListener.Close()

			// The live-activity feed gets its own dedicated subscription to
			// the supervisor channel: Postgres fans NOTIFY out to every
			// LISTEN session independently, so this does not steal
			// deliveries from any other listener.
			feedListener, err := notify.ConnectSupervisor(cfg.Database.DSN, log)
			if err != nil {
				return err
			}
			defer feedListener.Close()

			db, err := store.Open(cfg.Database.DSN, cfg.Database.AcquireTimeout)
			if err != nil {
				return err
			}
			defer db.Close()

			w := worker.New(id, db, workerListener, worker.Config{
				HeartbeatInterval: cfg.Worker.HeartbeatInterval,
			}, log, workerMetrics())

			pubsub := events.NewPostgresPubSub(feedListener, log)
			defer pubsub.Close()

			server := api.NewServer(cfg, db, pubsub)
			httpServer := &http.Server{
				Addr:         listenAddr,
				Handler:      server,
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout,
				IdleTimeout:  cfg.HTTP.IdleTimeout,
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			server.Start(ctx)

			go func() {
				if err := pubsub.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("event feed stopped")
				}
			}()

			errCh := make(chan error, 2)
			go func() { errCh <- w.Run(ctx) }()
			go func() {
				log.Info().Str("addr", listenAddr).Msg("HTTP server listening")
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			var runErr error
			select {
			case <-quit:
				log.Info().Msg("shutting down")
			case err := <-errCh:
				if err != nil {
					log.Error().Err(err).Msg("worker stopped")
					runErr = err
				}
			}

			cancel()
			server.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&rawID, "id", "", "worker identifier (UUID)")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address")
	return cmd
}

func workerMetrics() worker.Metrics {
	return worker.Metrics{
		TaskStarted:   metrics.TasksStarted.Inc,
		TaskSucceeded: metrics.TasksSucceeded.Inc,
		TaskFailed:    metrics.TasksFailed.Inc,
	}
}
