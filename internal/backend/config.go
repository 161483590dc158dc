package backend

import (
	"fmt"

	"txdash/internal/config"
)

// FromAppConfig builds the backend config for the named backend type.
// Callers pass cfg.DataBackend for the dashboard and cfg.MirrorSource for
// the mirror worker.
func FromAppConfig(appConfig *config.Config, backendType string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	bt := BackendType(backendType)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", backendType)
	}

	return Config{
		Type: bt,

		DataDirectory: appConfig.DataDir,
		SQLiteDBPath:  appConfig.SQLiteDBPath,

		GoogleSpreadsheetID:     appConfig.GoogleSpreadsheetID,
		GoogleCustomersSheet:    appConfig.GoogleCustomersSheet,
		GoogleTransactionsSheet: appConfig.GoogleTransactionsSheet,

		PostgresDSN: appConfig.PostgresDSN,

		RemoteDataURL:   appConfig.RemoteDataURL,
		FetchTimeout:    appConfig.FetchTimeout,
		FetchAttempts:   appConfig.FetchAttempts,
		FetchRetryDelay: appConfig.FetchRetryDelay,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return fmt.Errorf("PostgreSQL DSN is required for postgres backend")
		}
	case RemoteBackend:
		if c.RemoteDataURL == "" {
			return fmt.Errorf("remote data URL is required for remote backend")
		}
	}

	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := []BackendType{MemoryBackend, SQLiteBackend, SheetsBackend, PostgresBackend, RemoteBackend}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
