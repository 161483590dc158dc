package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Backend names accepted by DATA_BACKEND and MIRROR_SOURCE.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendSheets, BackendPostgres, BackendRemote}

type Config struct {
	// HTTP Server
	Port               string `koanf:"PORT"`
	CORSAllowedOrigins string `koanf:"CORS_ALLOWED_ORIGINS"` // comma separated
	RateLimitPerMinute int    `koanf:"RATE_LIMIT_PER_MINUTE"`
	TrustedProxies     string `koanf:"TRUSTED_PROXIES"` // comma separated

	// Backend selection
	DataBackend string `koanf:"DATA_BACKEND"`
	DataDir     string `koanf:"DATA_DIR"`

	// Database
	SQLiteDBPath string `koanf:"SQLITE_DB_PATH"`
	PostgresDSN  string `koanf:"POSTGRES_DSN"`

	// Remote /api/data source
	RemoteDataURL   string        `koanf:"REMOTE_DATA_URL"`
	FetchTimeout    time.Duration `koanf:"FETCH_TIMEOUT"`
	FetchAttempts   int           `koanf:"FETCH_ATTEMPTS"`
	FetchRetryDelay time.Duration `koanf:"FETCH_RETRY_DELAY"`

	// AMQP
	AMQPURL      string `koanf:"AMQP_URL"`
	AMQPExchange string `koanf:"AMQP_EXCHANGE"`
	AMQPQueue    string `koanf:"AMQP_QUEUE"`

	// Google Sheets
	GoogleSpreadsheetID     string `koanf:"GOOGLE_SPREADSHEET_ID"`
	GoogleCustomersSheet    string `koanf:"GOOGLE_CUSTOMERS_SHEET"`
	GoogleTransactionsSheet string `koanf:"GOOGLE_TRANSACTIONS_SHEET"`

	// Worker
	MirrorSource   string        `koanf:"MIRROR_SOURCE"`
	MirrorInterval time.Duration `koanf:"MIRROR_INTERVAL"`

	// Result caches
	CacheTTL  time.Duration `koanf:"CACHE_TTL"`
	CacheSize int           `koanf:"CACHE_SIZE"`

	// Dashboard
	ChartSortDates bool `koanf:"CHART_SORT_DATES"`

	// Logging
	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`
}

// Defaults returns the configuration used when no variable is set.
func Defaults() *Config {
	return &Config{
		Port:               "8081",
		CORSAllowedOrigins: "",
		RateLimitPerMinute: 300,
		DataBackend:        BackendMemory,
		DataDir:            "data",
		SQLiteDBPath:       "./data/txdash.db",
		FetchTimeout:       10 * time.Second,
		FetchAttempts:      1,
		FetchRetryDelay:    time.Second,
		AMQPExchange:       "txdash",
		AMQPQueue:          "dataset_refreshed",

		GoogleCustomersSheet:    "Customers",
		GoogleTransactionsSheet: "Transactions",

		MirrorInterval: 5 * time.Minute,
		CacheTTL:       5 * time.Minute,
		CacheSize:      200,
		LogLevel:       "INFO",
		LogFormat:      "text",
	}
}

// Load reads the process environment on top of Defaults. Empty variables
// are treated as unset. Values that cannot be converted to the field type
// are reported as an error.
func Load() (*Config, error) {
	cfg := Defaults()
	k := koanf.New(".")

	provider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS into its entries.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// TrustedProxyList splits TRUSTED_PROXIES into its entries.
func (c *Config) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

func splitList(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// AMQPEnabled reports whether refresh notifications are configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	} else {
		errors = append(errors, c.validateBackend(c.DataBackend)...)
	}

	if c.MirrorSource != "" {
		switch {
		case !slices.Contains(validBackends, c.MirrorSource):
			errors = append(errors, fmt.Sprintf("invalid mirror source '%s': must be one of %v", c.MirrorSource, validBackends))
		case c.MirrorSource == BackendSQLite:
			errors = append(errors, "mirror source cannot be sqlite: the mirror writes into sqlite")
		default:
			errors = append(errors, c.validateBackend(c.MirrorSource)...)
		}
		if c.MirrorInterval < time.Second {
			errors = append(errors, fmt.Sprintf("invalid mirror interval %v: must be at least 1 second", c.MirrorInterval))
		}
	}

	// Validate fetch settings
	if c.FetchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be positive", c.FetchTimeout))
	}
	if c.FetchAttempts < 1 || c.FetchAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid fetch attempts %d: must be between 1 and 10", c.FetchAttempts))
	}
	if c.FetchRetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch retry delay %v: must not be negative", c.FetchRetryDelay))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (c *Config) validateBackend(backend string) []string {
	var errors []string

	switch backend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
			break
		}
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleCustomersSheet == "" || c.GoogleTransactionsSheet == "" {
			errors = append(errors, "Google customers and transactions sheet names are required when using sheets backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	case BackendRemote:
		if c.RemoteDataURL == "" {
			errors = append(errors, "REMOTE_DATA_URL is required when using remote backend")
		} else if u, err := url.Parse(c.RemoteDataURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid remote data URL '%s': must be an absolute http(s) URL", c.RemoteDataURL))
		}
	}

	return errors
}
