package backend

import (
	"context"
	"time"

	"txdash/internal/sources"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult is a ready dataset source. Writer is nil for read-only
// backends.
type BackendResult struct {
	Type    BackendType
	Reader  sources.DatasetReader
	Writer  sources.DatasetWriter
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID     string
	GoogleCustomersSheet    string
	GoogleTransactionsSheet string

	// PostgreSQL
	PostgresDSN string

	// Remote /api/data
	RemoteDataURL   string
	FetchTimeout    time.Duration
	FetchAttempts   int
	FetchRetryDelay time.Duration
}

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	SheetsBackend   BackendType = "sheets"
	PostgresBackend BackendType = "postgres"
	RemoteBackend   BackendType = "remote"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SheetsBackend, PostgresBackend, RemoteBackend:
		return true
	default:
		return false
	}
}
