package profile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/profilesearch/internal/corpus"
	sqlitedb "github.com/kailas-cloud/profilesearch/internal/db/sqlite"
	"github.com/kailas-cloud/profilesearch/internal/domain"
	"github.com/kailas-cloud/profilesearch/internal/index/memory"
	idxsqlite "github.com/kailas-cloud/profilesearch/internal/index/sqlite"
)

const bowDims = 32

// bagOfWords is a deterministic embedder: one dimension per distinct
// lower-cased token, assigned on first sight.
type bagOfWords struct {
	mu     sync.Mutex
	vocab  map[string]int
	failOn string
	calls  int
}

func newBagOfWords() *bagOfWords {
	return &bagOfWords{vocab: make(map[string]int)}
}

func (b *bagOfWords) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++

	if b.failOn != "" && strings.Contains(text, b.failOn) {
		return domain.EmbeddingResult{}, errors.New("provider unavailable")
	}

	vec := make([]float32, bowDims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		id, ok := b.vocab[tok]
		if !ok {
			id = len(b.vocab) % bowDims
			b.vocab[tok] = id
		}
		vec[id]++
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: len(strings.Fields(text))}, nil
}

// fixedDims returns the same unit vector of a given size for every text.
type fixedDims struct{ dims int }

func (f fixedDims) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	v := make([]float32, f.dims)
	v[0] = 1
	return domain.EmbeddingResult{Embedding: v}, nil
}

func table(columns []string, rows ...[]string) corpus.Static {
	return corpus.Static{Name: "test", Table: corpus.Table{Columns: columns, Rows: rows}}
}

func annBenCal() corpus.Static {
	return table([]string{"Name", "Expertise"},
		[]string{"Ann", "Generative AI"},
		[]string{"Ben", "Networking"},
		[]string{"Cal", "Generative AI mentoring"},
	)
}

type backing struct {
	name  string
	build func(t *testing.T) IndexBuilder
}

func backings() []backing {
	return []backing{
		{"memory", func(*testing.T) IndexBuilder { return memory.Builder{} }},
		{"sqlite", func(t *testing.T) IndexBuilder { return sqliteBuilder(t, "bow") }},
	}
}

func sqliteBuilder(t *testing.T, model string) idxsqlite.Builder {
	t.Helper()
	store, err := sqlitedb.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return idxsqlite.Builder{Store: store, Model: model}
}

func fileBuilder(t *testing.T, path string, opts ...sqlitedb.Option) idxsqlite.Builder {
	t.Helper()
	store, err := sqlitedb.Open(path, opts...)
	if err != nil {
		t.Fatalf("open sqlite %s: %v", path, err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return idxsqlite.Builder{Store: store, Model: "bow"}
}

func newService(embed Embedder, builder IndexBuilder) *Service {
	return New(embed, builder, Config{Vector: domain.VectorConfig{Model: "bow"}}, zap.NewNop())
}
