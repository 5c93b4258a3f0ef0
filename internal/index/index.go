// Package index defines the searchable vector collection built from a profile
// corpus and the ranking rule shared by every backing.
package index

import (
	"context"
	"errors"

	"github.com/kailas-cloud/profilesearch/internal/domain/search/metric"
)

// Backend names selectable from configuration.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// ErrGenerationGone is returned by a persisted index whose rows were pruned
// by another writer. The caller should reopen the live generation.
var ErrGenerationGone = errors.New("index generation no longer stored")

// Hit is a scored corpus position.
type Hit struct {
	Position int
	Score    float64
}

// Index is an immutable vector collection. Positions are the 0-based corpus
// positions of the vectors it was built from.
type Index interface {
	// Backend returns the backing name (memory, sqlite).
	Backend() string
	// Metric returns the ranking metric.
	Metric() metric.Metric
	// Dimensions returns the vector dimension shared by every entry.
	Dimensions() int
	// Len returns the number of indexed vectors.
	Len() int
	// Search returns the min(k, Len()) best hits, best first, ties by position.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
}
