// Package cli provides the start-up steps shared by cmd/txdash,
// cmd/txdash-worker and cmd/txdash-query.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"txdash/internal/backend"
	"txdash/internal/config"
	"txdash/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads and validates the configuration.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		JSON:      strings.EqualFold(cfg.LogFormat, "json"),
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// OpenBackend creates the named dataset backend.
func OpenBackend(ctx context.Context, cfg *config.Config, backendType string, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg, backendType)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s backend: %w", backendType, err)
	}
	logger.Info("Initialized dataset backend", "backend", backendType)
	return res, nil
}

// Exit logs err and terminates the process.
func Exit(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}
