package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"txdash/internal/amqp"
	"txdash/internal/core"
	"txdash/internal/sources"
	"txdash/internal/storage"
)

// Publisher announces a dataset replacement.
type Publisher interface {
	PublishDatasetRefreshed(ctx context.Context, msg *amqp.DatasetRefreshedMessage) error
}

// RefreshLog reports when the target was last written.
type RefreshLog interface {
	LastRefresh(ctx context.Context) (storage.RefreshInfo, error)
}

// MirrorWorker copies the dataset from an upstream source into the local
// store and announces every change.
type MirrorWorker struct {
	source     sources.DatasetReader
	sourceName string
	target     sources.DatasetWriter
	refreshLog RefreshLog
	publisher  Publisher

	mu   sync.Mutex
	last *core.Dataset
}

// NewMirrorWorker wires a mirror. refreshLog and publisher may be nil.
func NewMirrorWorker(source sources.DatasetReader, sourceName string, target sources.DatasetWriter, refreshLog RefreshLog, publisher Publisher) *MirrorWorker {
	return &MirrorWorker{
		source:     source,
		sourceName: sourceName,
		target:     target,
		refreshLog: refreshLog,
		publisher:  publisher,
	}
}

// MirrorOnce reads the upstream dataset and writes it to the target when it
// differs from the last mirrored copy. It reports whether a write happened.
// A failed read leaves the target untouched.
func (w *MirrorWorker) MirrorOnce(ctx context.Context) (bool, error) {
	ds, err := w.source.ReadDataset(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", core.ErrFetchFailure, w.sourceName, err)
	}
	ds = ds.Normalized()

	w.mu.Lock()
	unchanged := w.last != nil && reflect.DeepEqual(*w.last, ds)
	w.mu.Unlock()
	if unchanged {
		slog.DebugContext(ctx, "Upstream dataset unchanged, skipping mirror", "source", w.sourceName)
		return false, nil
	}

	if err := w.target.ReplaceDataset(ctx, w.sourceName, ds); err != nil {
		return false, fmt.Errorf("replace dataset: %w", err)
	}

	w.mu.Lock()
	w.last = &ds
	w.mu.Unlock()

	slog.InfoContext(ctx, "Mirrored dataset",
		"source", w.sourceName,
		"customers", len(ds.Customers),
		"transactions", len(ds.Transactions))

	if w.publisher != nil {
		msg := amqp.NewDatasetRefreshedMessage(w.sourceName, len(ds.Customers), len(ds.Transactions))
		if err := w.publisher.PublishDatasetRefreshed(ctx, msg); err != nil {
			// the data is written; readers pick it up on their next reload
			slog.ErrorContext(ctx, "Failed to publish dataset refreshed message", "error", err)
		}
	}
	return true, nil
}

// StartupMirrorCheck mirrors right away when the target was never written
// or is older than maxAge.
func (w *MirrorWorker) StartupMirrorCheck(ctx context.Context, maxAge time.Duration) error {
	if w.refreshLog != nil {
		info, err := w.refreshLog.LastRefresh(ctx)
		switch {
		case err == nil && time.Since(info.RefreshedAt) < maxAge:
			slog.InfoContext(ctx, "Mirror is fresh",
				"source", info.Source,
				"refreshed_at", info.RefreshedAt.Format(time.RFC3339),
				"customers", info.Customers,
				"transactions", info.Transactions)
			return nil
		case err != nil && !errors.Is(err, storage.ErrNeverRefreshed):
			slog.WarnContext(ctx, "Could not determine last refresh, mirroring now", "error", err)
		}
	}
	_, err := w.MirrorOnce(ctx)
	return err
}

// Run mirrors every interval until ctx is done. Failures are logged and
// retried on the next tick.
func (w *MirrorWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Mirror worker started", "source", w.sourceName, "interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Mirror worker stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if _, err := w.MirrorOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Mirror failed", "source", w.sourceName, "error", err)
			}
		}
	}
}
