package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/profilesearch/internal/domain"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/metric"
)

func TestIndex_SearchNearestFirst(t *testing.T) {
	idx, err := New([][]float32{{0, 0}, {1, 1}, {5, 5}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if idx.Metric() != metric.SquaredL2 || idx.Dimensions() != 2 || idx.Len() != 3 {
		t.Fatalf("unexpected index metadata: %s %d %d", idx.Metric(), idx.Dimensions(), idx.Len())
	}

	hits, err := idx.Search(context.Background(), []float32{1, 1}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Position != 1 || hits[0].Score != 0 {
		t.Errorf("hits[0] = %+v, want position 1 score 0", hits[0])
	}
	if hits[1].Position != 0 || hits[1].Score != 2 {
		t.Errorf("hits[1] = %+v, want position 0 score 2", hits[1])
	}
}

func TestIndex_KLargerThanCorpus(t *testing.T) {
	idx, _ := New([][]float32{{1}, {2}, {3}})

	hits, err := idx.Search(context.Background(), []float32{0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
}

func TestIndex_TiesKeepCorpusOrder(t *testing.T) {
	idx, _ := New([][]float32{{9, 9}, {1, 2}, {1, 2}, {1, 2}})

	hits, _ := idx.Search(context.Background(), []float32{1, 2}, 3)
	for i, want := range []int{1, 2, 3} {
		if hits[i].Position != want {
			t.Errorf("hits[%d].Position = %d, want %d", i, hits[i].Position, want)
		}
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	idx, _ := New([][]float32{{1, 2, 3}})

	_, err := idx.Search(context.Background(), []float32{1, 2}, 1)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	in := [][]float32{{1, 1}}
	idx, _ := New(in)
	in[0][0] = 100

	hits, _ := idx.Search(context.Background(), []float32{1, 1}, 1)
	if hits[0].Score != 0 {
		t.Errorf("index must not alias caller vectors, score = %v", hits[0].Score)
	}
}

func TestNew_RejectsRaggedVectors(t *testing.T) {
	if _, err := New([][]float32{{1, 2}, {1}}); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}
