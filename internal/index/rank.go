package index

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/profilesearch/internal/domain"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/metric"
)

// TopK sorts hits best-first under m, breaking ties by lower position, and
// returns at most k of them. hits is reordered in place.
func TopK(hits []Hit, m metric.Metric, k int) []Hit {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return m.Better(a.Score, b.Score)
		}
		return a.Position < b.Position
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// CheckDimensions returns an error wrapping domain.ErrVectorDimMismatch when
// got differs from want.
func CheckDimensions(want, got int) error {
	if want != got {
		return fmt.Errorf("%w: index has %d dimensions, vector has %d", domain.ErrVectorDimMismatch, want, got)
	}
	return nil
}

// ValidateVectors checks that vectors is non-empty and uniformly dimensioned,
// and returns the shared dimension.
func ValidateVectors(vectors [][]float32) (int, error) {
	if len(vectors) == 0 {
		return 0, fmt.Errorf("no vectors to index")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: vector 0 is empty", domain.ErrVectorDimMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrVectorDimMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}
