package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"txdash/internal/amqp"
	"txdash/internal/cli"
	"txdash/internal/config"
	"txdash/internal/datastore"
	apphttp "txdash/internal/http"
	"txdash/internal/log"
	"txdash/internal/sources"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Exit(log.New(log.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, nil)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		stop()
		cli.Exit(logger, "Server error", err)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	source, err := cli.OpenBackend(ctx, cfg, cfg.DataBackend, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	store := datastore.New(logger.WithComponent(log.ComponentDatastore))

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Store:              store,
		Logger:             logger,
		AllowedOrigins:     cfg.AllowedOrigins(),
		TrustedProxies:     cfg.TrustedProxyList(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheSize:          cfg.CacheSize,
		CacheTTL:           cfg.CacheTTL,
		SortDates:          cfg.ChartSortDates,
	})
	if err != nil {
		return err
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	store.OnReplace(func(version uint64) {
		srv.PurgeCaches()
	})

	g, gctx := errgroup.WithContext(ctx)

	// One load at startup. A failure is logged by the store and the
	// dashboard keeps serving an empty dataset.
	g.Go(func() error {
		loadCtx, cancel := context.WithTimeout(gctx, loadTimeout(cfg))
		defer cancel()
		_ = store.Populate(loadCtx, cfg.DataBackend, source.Reader)
		return nil
	})

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, refresh notifications disabled", log.FieldError, err)
		} else {
			defer client.Close()
			g.Go(func() error {
				return consumeRefreshes(gctx, client, store, cfg, source.Reader, logger)
			})
		}
	}

	g.Go(func() error {
		logger.Info("Starting txdash server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// consumeRefreshes reloads the dataset each time a refresh is announced.
// A failed reload keeps the previous dataset, and a broken consumer only
// stops refreshes, never the server.
func consumeRefreshes(ctx context.Context, client *amqp.Client, store *datastore.Store, cfg *config.Config, reader sources.DatasetReader, logger *log.Logger) error {
	err := client.ConsumeDatasetRefreshed(ctx, func(ctx context.Context, msg *amqp.DatasetRefreshedMessage) error {
		logger.InfoContext(ctx, "Dataset refresh announced",
			log.FieldSource, msg.Source,
			log.FieldCustomers, msg.Customers,
			log.FieldTransactions, msg.Transactions)

		loadCtx, cancel := context.WithTimeout(ctx, loadTimeout(cfg))
		defer cancel()
		_ = store.Populate(loadCtx, cfg.DataBackend, reader)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Refresh consumer stopped", log.FieldError, err)
	}
	return nil
}

// loadTimeout bounds one population including the remote client's retries.
func loadTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.FetchAttempts)*(cfg.FetchTimeout+cfg.FetchRetryDelay) + 5*time.Second
}
