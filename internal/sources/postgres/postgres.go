// Package postgres reads the dashboard dataset from a PostgreSQL database.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"txdash/internal/core"
	"txdash/internal/sources"
)

const (
	customersQuery    = `SELECT id::text, COALESCE(name, '') FROM customers`
	// Rows the JSON payload could not carry are left out, matching the
	// defensive decode of /api/data.
	transactionsQuery = `SELECT id::text, customer_id::text, date::text, amount::float8 FROM transactions
		WHERE id IS NOT NULL AND customer_id IS NOT NULL AND date IS NOT NULL
		AND amount IS NOT NULL AND amount::float8 NOT IN ('NaN', 'Infinity', '-Infinity')`
)

// Reader loads customers and transactions from two tables. Ids of any
// column type are read as text so numeric and string keys compare alike.
type Reader struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ sources.DatasetReader = (*Reader)(nil)

// New opens a connection pool for dsn and pings it.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database,
	)
	return &Reader{pool: pool, logger: logger}, nil
}

// ReadDataset runs both queries in one read-only transaction so the
// result is a consistent snapshot.
func (r *Reader) ReadDataset(ctx context.Context) (core.Dataset, error) {
	var ds core.Dataset
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, customersQuery)
		if err != nil {
			return fmt.Errorf("query customers: %w", err)
		}
		ds.Customers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Customer, error) {
			var c core.Customer
			err := row.Scan(&c.ID, &c.Name)
			return c, err
		})
		if err != nil {
			return fmt.Errorf("scan customers: %w", err)
		}

		rows, err = tx.Query(ctx, transactionsQuery)
		if err != nil {
			return fmt.Errorf("query transactions: %w", err)
		}
		ds.Transactions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Transaction, error) {
			var t core.Transaction
			err := row.Scan(&t.ID, &t.CustomerID, &t.Date, &t.Amount)
			return t, err
		})
		if err != nil {
			return fmt.Errorf("scan transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Dataset{}, err
	}

	r.logger.DebugContext(ctx, "Read dataset from PostgreSQL",
		"customers", len(ds.Customers),
		"transactions", len(ds.Transactions))
	return ds.Normalized(), nil
}

// Close releases the pool.
func (r *Reader) Close() error {
	r.pool.Close()
	return nil
}
