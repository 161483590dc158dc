package main

import (
	"context"
	"errors"

	"txdash/internal/amqp"
	"txdash/internal/cli"
	"txdash/internal/config"
	"txdash/internal/log"
	"txdash/internal/storage"
	"txdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Exit(log.New(log.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, nil).WithComponent(log.ComponentWorker)

	if cfg.MirrorSource == "" {
		cli.Exit(logger, "Configuration validation failed", errors.New("MIRROR_SOURCE is required for the worker"))
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting txdash-worker", "source", cfg.MirrorSource, "interval", cfg.MirrorInterval)
	if err := run(ctx, cfg, logger); err != nil {
		stop()
		cli.Exit(logger, "Worker error", err)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	source, err := cli.OpenBackend(ctx, cfg, cfg.MirrorSource, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	var publisher worker.Publisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Mirroring still works; dashboards just will not hear about it.
			logger.Warn("AMQP unavailable, refreshes will not be announced", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	w := worker.NewMirrorWorker(source.Reader, cfg.MirrorSource, repo, repo, publisher)

	logger.Info("Performing startup mirror check...")
	if err := w.StartupMirrorCheck(ctx, cfg.MirrorInterval); err != nil {
		logger.Error("Startup mirror failed", log.FieldError, err)
	}

	return w.Run(ctx, cfg.MirrorInterval)
}
