// Package datastore holds the dataset the dashboard renders from.
//
// The store is populated once at startup. A failed population is logged
// and leaves an empty dataset in place, so the dashboard stays usable with
// no rows. Later refreshes swap the whole dataset atomically.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"txdash/internal/core"
	"txdash/internal/log"
	"txdash/internal/sources"
)

type Store struct {
	logger *log.Logger
	sl     *log.StructuredLogger

	mu      sync.RWMutex
	ds      core.Dataset
	version uint64
	ready   bool
	lastErr error

	hooksMu sync.Mutex
	hooks   []func(version uint64)
}

func New(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentDatastore)
	return &Store{
		logger: logger,
		sl:     log.NewStructuredLogger(logger),
		ds:     core.Dataset{}.Normalized(),
	}
}

// OnReplace registers fn to run after every successful dataset swap.
func (s *Store) OnReplace(fn func(version uint64)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Populate performs exactly one read from r. On failure the error, wrapped
// with core.ErrFetchFailure, is logged and returned, and the store keeps
// whatever it held before (an empty dataset at startup).
func (s *Store) Populate(ctx context.Context, source string, r sources.DatasetReader) error {
	ds, err := r.ReadDataset(ctx)
	if err != nil {
		if !errors.Is(err, core.ErrFetchFailure) {
			err = fmt.Errorf("%w: %s: %w", core.ErrFetchFailure, source, err)
		}
		s.mu.Lock()
		s.ready = true
		s.lastErr = err
		s.mu.Unlock()

		fields := log.NewFields()
		fields[log.FieldSource] = source
		s.sl.LogError(ctx, "Dataset fetch failed", err, log.OpFetch, log.ErrorTypeFetch, fields)
		return err
	}

	version := s.Replace(ds)
	s.sl.LogDatasetLoaded(ctx, source, len(ds.Customers), len(ds.Transactions), version)
	return nil
}

// Replace swaps in ds and returns the new version.
func (s *Store) Replace(ds core.Dataset) uint64 {
	ds = ds.Normalized()

	s.mu.Lock()
	s.ds = ds
	s.version++
	s.ready = true
	s.lastErr = nil
	version := s.version
	s.mu.Unlock()

	s.hooksMu.Lock()
	hooks := append([]func(uint64){}, s.hooks...)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(version)
	}
	return version
}

// Snapshot returns the current dataset and its version. The returned
// slices are shared with the store and must be treated as read-only.
func (s *Store) Snapshot() (core.Dataset, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds, s.version
}

// Ready reports whether the startup population has finished, successfully
// or not.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// LastError returns the error of the last failed population, if the store
// has not been replaced since.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
