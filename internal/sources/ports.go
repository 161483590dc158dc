package sources

import (
	"context"

	"txdash/internal/core"
)

// Ports for outbound adapters.
type (
	// DatasetReader loads the full customers/transactions dataset.
	DatasetReader interface {
		ReadDataset(ctx context.Context) (core.Dataset, error)
	}

	// DatasetWriter replaces the stored dataset in a single step. source
	// names where the data came from, for bookkeeping.
	DatasetWriter interface {
		ReplaceDataset(ctx context.Context, source string, ds core.Dataset) error
	}

	DatasetStore interface {
		DatasetReader
		DatasetWriter
	}
)
