package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"txdash/internal/core"
	"txdash/internal/sources"
)

// SeedFile is the file name looked up by NewFromDir.
const SeedFile = "seed_dataset.json"

var _ sources.DatasetStore = (*Store)(nil)

type Store struct {
	mu sync.Mutex
	ds core.Dataset
}

func New(ds core.Dataset) *Store {
	return &Store{ds: ds.Normalized()}
}

// NewFromDir loads base/seed_dataset.json. A missing seed falls back to a
// small demo dataset; a seed that exists but does not decode is an error.
func NewFromDir(base string) (*Store, error) {
	f, err := os.Open(filepath.Join(base, SeedFile))
	if errors.Is(err, os.ErrNotExist) {
		return New(Demo()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	ds, _, err := core.DecodeDataset(f)
	if err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", f.Name(), err)
	}
	return New(ds), nil
}

// ReadDataset returns a copy of the stored dataset.
func (s *Store) ReadDataset(_ context.Context) (core.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds.Normalized(), nil
}

// ReplaceDataset swaps the stored dataset.
func (s *Store) ReplaceDataset(_ context.Context, _ string, ds core.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = ds.Normalized()
	return nil
}

// Demo is the dataset served when no seed file is present.
func Demo() core.Dataset {
	return core.Dataset{
		Customers: []core.Customer{
			{ID: "1", Name: "Alice"},
			{ID: "2", Name: "Bob"},
			{ID: "3", Name: "Carla"},
		},
		Transactions: []core.Transaction{
			{ID: "10", CustomerID: "1", Date: "2024-01-01", Amount: 50},
			{ID: "11", CustomerID: "1", Date: "2024-01-01", Amount: 25},
			{ID: "12", CustomerID: "1", Date: "2024-01-02", Amount: 10},
			{ID: "13", CustomerID: "2", Date: "2024-01-01", Amount: 120.5},
			{ID: "14", CustomerID: "2", Date: "2024-01-03", Amount: 42},
			{ID: "15", CustomerID: "3", Date: "2024-01-02", Amount: 7.25},
			{ID: "16", CustomerID: "3", Date: "2024-01-04", Amount: 300},
		},
	}
}
