package profile

import (
	"context"

	"github.com/kailas-cloud/profilesearch/internal/domain"
	domprofile "github.com/kailas-cloud/profilesearch/internal/domain/profile"
	"github.com/kailas-cloud/profilesearch/internal/index"
)

// Embedder vectorizes text into embeddings. Corpus and queries go through the same instance.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// IndexBuilder builds an immutable index; vectors[i] belongs to records[i].
type IndexBuilder interface {
	Backend() string
	Build(ctx context.Context, records []domprofile.Record, vectors [][]float32) (index.Index, error)
}

// IndexRestorer reopens a previously built index without re-embedding.
type IndexRestorer interface {
	Restore(ctx context.Context) (index.Index, []domprofile.Record, error)
}

// modelReporter is implemented by indexes that remember their embedding model.
type modelReporter interface {
	Model() string
}

// fingerprintReporter is implemented by indexes that remember the corpus they were built from.
type fingerprintReporter interface {
	Fingerprint() string
}
