// Package memory implements an exact nearest-neighbour index held in process
// memory, ranked by squared Euclidean distance.
package memory

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/profilesearch/internal/domain/profile"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/metric"
	"github.com/kailas-cloud/profilesearch/internal/index"
)

var _ index.Index = (*Index)(nil)

// Index is a flat exact-search index. Immutable after New.
type Index struct {
	vectors [][]float32
	dim     int
}

// New copies vectors into a new index. Vector i is corpus position i.
func New(vectors [][]float32) (*Index, error) {
	dim, err := index.ValidateVectors(vectors)
	if err != nil {
		return nil, fmt.Errorf("build memory index: %w", err)
	}
	cp := make([][]float32, len(vectors))
	for i, v := range vectors {
		cp[i] = append([]float32(nil), v...)
	}
	return &Index{vectors: cp, dim: dim}, nil
}

// Backend implements index.Index.
func (i *Index) Backend() string { return index.BackendMemory }

// Metric implements index.Index.
func (i *Index) Metric() metric.Metric { return metric.SquaredL2 }

// Dimensions implements index.Index.
func (i *Index) Dimensions() int { return i.dim }

// Len implements index.Index.
func (i *Index) Len() int { return len(i.vectors) }

// Search scans every vector and returns the k nearest.
func (i *Index) Search(_ context.Context, query []float32, k int) ([]index.Hit, error) {
	if err := index.CheckDimensions(i.dim, len(query)); err != nil {
		return nil, err
	}
	hits := make([]index.Hit, len(i.vectors))
	for pos, v := range i.vectors {
		hits[pos] = index.Hit{Position: pos, Score: index.SquaredL2(query, v)}
	}
	return index.TopK(hits, metric.SquaredL2, k), nil
}

// Builder creates memory indexes for the profile service.
type Builder struct{}

// Build implements the profile service's index builder.
func (Builder) Build(_ context.Context, _ []profile.Record, vectors [][]float32) (index.Index, error) {
	idx, err := New(vectors)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Backend names the indexes this builder creates.
func (Builder) Backend() string { return index.BackendMemory }
