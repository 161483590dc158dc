package backend

import (
	"context"
	"fmt"
	"log/slog"

	"txdash/internal/client"
	"txdash/internal/sources/google"
	"txdash/internal/sources/memory"
	"txdash/internal/sources/postgres"
	"txdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case RemoteBackend:
		return f.createRemoteBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{Type: MemoryBackend, Reader: store, Writer: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Type: SQLiteBackend, Reader: repo, Writer: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Options{
		SpreadsheetID:     config.GoogleSpreadsheetID,
		CustomersSheet:    config.GoogleCustomersSheet,
		TransactionsSheet: config.GoogleTransactionsSheet,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"customers_sheet", config.GoogleCustomersSheet,
		"transactions_sheet", config.GoogleTransactionsSheet)
	return &BackendResult{Type: SheetsBackend, Reader: cli}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	reader, err := postgres.New(ctx, config.PostgresDSN, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL reader: %w", err)
	}
	return &BackendResult{Type: PostgresBackend, Reader: reader, Cleanup: reader.Close}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	cli := client.New(client.Options{
		URL:        config.RemoteDataURL,
		Timeout:    config.FetchTimeout,
		Attempts:   config.FetchAttempts,
		RetryDelay: config.FetchRetryDelay,
		Logger:     f.logger,
	})

	f.logger.Info("Initialized remote backend",
		"url", config.RemoteDataURL,
		"attempts", config.FetchAttempts)
	return &BackendResult{Type: RemoteBackend, Reader: cli}, nil
}
