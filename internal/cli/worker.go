package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lifedash/internal/amqp"
	"lifedash/internal/backend"
	"lifedash/internal/config"
	"lifedash/internal/log"
	"lifedash/internal/services"
	"lifedash/internal/storage"
	"lifedash/internal/worker"
)

// NewWorkerCommand creates the worker command.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror SQLite months to the remote store",
		Long: `Copy every saved month from the local SQLite database to the mirror
backend (MIRROR_BACKEND=mongo|firestore).

Sync messages published by the server are consumed from AMQP when AMQP_URL
is set. A periodic sweep of unsynced versions covers lost messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadAndValidateConfig(rootOpts)
			if err != nil {
				return err
			}
			logger := SetupLogger(cfg, cmd.OutOrStdout())
			ctx, cancel := NotifyShutdown(cmd.Context(), logger)
			defer cancel()
			return runWorker(ctx, cfg, logger)
		},
	}
	return cmd
}

func runWorker(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if cfg.MirrorBackend == "" {
		return errors.New("worker needs MIRROR_BACKEND to be set")
	}
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting lifedash worker", "mirror", cfg.MirrorBackend)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open sqlite repository %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	mirror, err := backend.NewFactory(logger).CreateMirror(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("create mirror backend: %w", err)
	}
	defer func() {
		if err := mirror.Close(); err != nil {
			logger.Error("Failed to close mirror backend", log.FieldError, err.Error())
		}
	}()

	w := worker.NewMirrorWorker(repo, mirror.Store, cfg.SyncBatchSize, logger)

	logger.Info("Performing startup sync check...")
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err.Error())
	}

	sweeper := services.NewSyncProcessor(w, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	}, logger)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sync processor: %w", err)
	}

	consumeDone := make(chan struct{})
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, relying on periodic sync")
		close(consumeDone)
	} else {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			_ = sweeper.Stop(context.Background())
			return fmt.Errorf("connect amqp: %w", err)
		}
		defer client.Close()

		go func() {
			defer close(consumeDone)
			err := client.ConsumeDocumentSync(ctx, w.HandleSyncMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed, falling back to sweeps", log.FieldError, err.Error())
				sweeper.Kick()
			}
		}()
	}

	<-ctx.Done()
	<-consumeDone

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sweeper.Stop(stopCtx); err != nil {
		logger.Error("Failed to stop sync processor", log.FieldError, err.Error())
	}

	stats := sweeper.Stats()
	logger.Info("Worker stopped",
		"sweeps", stats.Sweeps,
		"mirrored", stats.Mirrored,
		"sweep_failures", stats.Failures)
	return nil
}
