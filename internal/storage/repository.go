package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"txdash/internal/core"
	"txdash/internal/sources"

	_ "modernc.org/sqlite"
)

// RefreshInfo describes the last ReplaceDataset call.
type RefreshInfo struct {
	Source       string
	Customers    int
	Transactions int
	RefreshedAt  time.Time
}

// ErrNeverRefreshed is returned by LastRefresh on a fresh database.
var ErrNeverRefreshed = errors.New("dataset never refreshed")

type SQLiteRepository struct {
	db *sql.DB
}

var _ sources.DatasetStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between the worker and readers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReadDataset implements sources.DatasetReader. Rows come back in the
// order they were written.
func (r *SQLiteRepository) ReadDataset(ctx context.Context) (core.Dataset, error) {
	ds := core.Dataset{Customers: []core.Customer{}, Transactions: []core.Transaction{}}

	crows, err := r.db.QueryContext(ctx, `SELECT id, name FROM customers ORDER BY seq`)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("query customers: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var c core.Customer
		if err := crows.Scan(&c.ID, &c.Name); err != nil {
			return core.Dataset{}, fmt.Errorf("scan customer: %w", err)
		}
		ds.Customers = append(ds.Customers, c)
	}
	if err := crows.Err(); err != nil {
		return core.Dataset{}, fmt.Errorf("iterate customers: %w", err)
	}

	trows, err := r.db.QueryContext(ctx, `SELECT id, customer_id, date, amount FROM transactions ORDER BY seq`)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("query transactions: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		var t core.Transaction
		if err := trows.Scan(&t.ID, &t.CustomerID, &t.Date, &t.Amount); err != nil {
			return core.Dataset{}, fmt.Errorf("scan transaction: %w", err)
		}
		ds.Transactions = append(ds.Transactions, t)
	}
	if err := trows.Err(); err != nil {
		return core.Dataset{}, fmt.Errorf("iterate transactions: %w", err)
	}

	return ds, nil
}

// ReplaceDataset implements sources.DatasetWriter. The old rows are
// dropped and the new ones written in a single transaction.
func (r *SQLiteRepository) ReplaceDataset(ctx context.Context, source string, ds core.Dataset) error {
	for _, c := range ds.Customers {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("customer: %w", err)
		}
	}
	for _, t := range ds.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM transactions`, `DELETE FROM customers`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear dataset: %w", err)
		}
	}

	cstmt, err := tx.PrepareContext(ctx, `INSERT INTO customers (id, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare customer insert: %w", err)
	}
	defer cstmt.Close()
	for _, c := range ds.Customers {
		if _, err := cstmt.ExecContext(ctx, string(c.ID), c.Name); err != nil {
			return fmt.Errorf("insert customer %s: %w", c.ID, err)
		}
	}

	tstmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions (id, customer_id, date, amount) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer tstmt.Close()
	for _, t := range ds.Transactions {
		if _, err := tstmt.ExecContext(ctx, string(t.ID), string(t.CustomerID), t.Date, t.Amount); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_log (source, customers, transactions, refreshed_at) VALUES (?, ?, ?, ?)`,
		source, len(ds.Customers), len(ds.Transactions), time.Now().UTC()); err != nil {
		return fmt.Errorf("record refresh: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dataset: %w", err)
	}

	slog.InfoContext(ctx, "Dataset saved to SQLite",
		"source", source,
		"customers", len(ds.Customers),
		"transactions", len(ds.Transactions))
	return nil
}

// LastRefresh returns the most recent refresh_log entry.
func (r *SQLiteRepository) LastRefresh(ctx context.Context) (RefreshInfo, error) {
	var info RefreshInfo
	err := r.db.QueryRowContext(ctx,
		`SELECT source, customers, transactions, refreshed_at FROM refresh_log ORDER BY id DESC LIMIT 1`).
		Scan(&info.Source, &info.Customers, &info.Transactions, &info.RefreshedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RefreshInfo{}, ErrNeverRefreshed
	}
	if err != nil {
		return RefreshInfo{}, fmt.Errorf("query last refresh: %w", err)
	}
	return info, nil
}
