package profilesearch

import (
	"context"
	"strings"
	"sync"

	"github.com/kailas-cloud/profilesearch/internal/domain/search/result"
)

// mockEmbedder delegates to fn.
type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// keywordEmbedder counts fixed keywords, one axis each.
type keywordEmbedder struct {
	mu     sync.Mutex
	calls  int
	batchN int
}

var keywords = []string{"generative", "network", "cook", "cloud"}

func (k *keywordEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()
	return EmbeddingResult{Embedding: keywordVector(text), TotalTokens: 1}, nil
}

func keywordVector(text string) []float32 {
	t := strings.ToLower(text)
	vec := make([]float32, len(keywords))
	for i, kw := range keywords {
		vec[i] = float32(strings.Count(t, kw))
	}
	return vec
}

// batchKeywordEmbedder also implements BatchEmbedder.
type batchKeywordEmbedder struct {
	keywordEmbedder
}

func (b *batchKeywordEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	b.mu.Lock()
	b.batchN++
	b.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

// --- profileUseCase mock ---

type fakeProfileUC struct {
	profileUseCase
	searchErr error
}

func (f *fakeProfileUC) Search(context.Context, string, int) ([]result.Result, error) {
	return nil, f.searchErr
}
