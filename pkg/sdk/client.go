package profilesearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/profilesearch/internal/corpus"
	sqlitedb "github.com/kailas-cloud/profilesearch/internal/db/sqlite"
	"github.com/kailas-cloud/profilesearch/internal/domain"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/result"
	memindex "github.com/kailas-cloud/profilesearch/internal/index/memory"
	sqliteindex "github.com/kailas-cloud/profilesearch/internal/index/sqlite"
	healthuc "github.com/kailas-cloud/profilesearch/internal/usecase/health"
	profileuc "github.com/kailas-cloud/profilesearch/internal/usecase/profile"
)

// Corpus encodings accepted by LoadCSV.
const (
	UTF8   = corpus.EncodingUTF8
	Latin1 = corpus.EncodingLatin1
)

// Внутренний интерфейс для подмены в тестах.
type profileUseCase interface {
	Load(ctx context.Context, src corpus.Source) (profileuc.Stats, error)
	Restore(ctx context.Context, src corpus.Source) (profileuc.Stats, error)
	Search(ctx context.Context, query string, k int) ([]result.Result, error)
	Stats() profileuc.Stats
}

// Client is the profilesearch SDK entry point.
type Client struct {
	store     *sqlitedb.Store
	svc       profileUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. The index starts empty: call LoadCSV, LoadRows or
// Restore before searching.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{backend: "memory"}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("profilesearch: embedder required (use WithEmbedder)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	var builder profileuc.IndexBuilder
	switch cfg.backend {
	case "memory":
		builder = memindex.Builder{}
	case "sqlite":
		store, err := sqlitedb.Open(cfg.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("profilesearch: open sqlite: %w", err)
		}
		c.store = store
		builder = sqliteindex.Builder{Store: store, Model: cfg.model}
	default:
		return nil, fmt.Errorf("profilesearch: unknown backend %q", cfg.backend)
	}

	svc := profileuc.New(adaptEmbedder(cfg.embedder), builder, profileuc.Config{
		Vector:        domain.VectorConfig{Model: cfg.model, Dimensions: cfg.vectorDimensions},
		MissingMarker: cfg.missingMarker,
	}, zap.NewNop())
	c.svc = svc

	var healthOpts []healthuc.Option
	if c.store != nil {
		healthOpts = append(healthOpts, healthuc.WithDatabase(c.store))
	}
	c.healthSvc = healthuc.New(svc, healthOpts...)
	return c, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}

// LoadCSV ingests a CSV file with a header row and replaces the live index.
// On failure the previous index keeps serving.
func (c *Client) LoadCSV(ctx context.Context, path, encoding string) (stats Stats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("load", start, err) }()

	s, err := c.svc.Load(ctx, corpus.CSVFile{Path: path, Encoding: encoding})
	if err != nil {
		return Stats{}, fmt.Errorf("load csv: %w", err)
	}
	return toStats(s), nil
}

// LoadRows ingests an in-memory table. name is reported as the corpus source.
func (c *Client) LoadRows(ctx context.Context, name string, columns []string, rows [][]string) (stats Stats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("load", start, err) }()

	src := corpus.Static{Name: name, Table: corpus.Table{Columns: columns, Rows: rows}}
	s, err := c.svc.Load(ctx, src)
	if err != nil {
		return Stats{}, fmt.Errorf("load rows: %w", err)
	}
	return toStats(s), nil
}

// Restore serves the last persisted generation without re-embedding and
// without checking which corpus it came from. Only the SQLite backing supports it.
func (c *Client) Restore(ctx context.Context) (Stats, error) {
	return c.restore(ctx, nil)
}

// RestoreCSV serves the last persisted generation only if it was embedded
// from the records of the CSV file at path. Otherwise it fails with
// ErrCorpusChanged and the caller should LoadCSV.
func (c *Client) RestoreCSV(ctx context.Context, path, encoding string) (Stats, error) {
	return c.restore(ctx, corpus.CSVFile{Path: path, Encoding: encoding})
}

// RestoreRows is RestoreCSV for an in-memory table.
func (c *Client) RestoreRows(ctx context.Context, name string, columns []string, rows [][]string) (Stats, error) {
	return c.restore(ctx, corpus.Static{Name: name, Table: corpus.Table{Columns: columns, Rows: rows}})
}

func (c *Client) restore(ctx context.Context, src corpus.Source) (stats Stats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("restore", start, err) }()

	s, err := c.svc.Restore(ctx, src)
	if err != nil {
		return Stats{}, fmt.Errorf("restore: %w", err)
	}
	return toStats(s), nil
}

// Search returns the k profiles most similar to query, best first.
// k == 0 means the default of 5.
func (c *Client) Search(ctx context.Context, query string, k int) (results []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	found, err := c.svc.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	results = make([]Result, len(found))
	for i := range found {
		results[i] = toResult(&found[i])
	}
	return results, nil
}

// Stats describes the live index.
func (c *Client) Stats() Stats {
	return toStats(c.svc.Stats())
}

// adaptEmbedder wraps the public Embedder, keeping batch support visible
// to the ingestion path only when the caller provides it.
func adaptEmbedder(e Embedder) domain.Embedder {
	base := &embedderAdapter{inner: e}
	if be, ok := e.(BatchEmbedder); ok {
		return &batchEmbedderAdapter{embedderAdapter: base, batch: be}
	}
	return base
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

type batchEmbedderAdapter struct {
	*embedderAdapter
	batch BatchEmbedder
}

func (a *batchEmbedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	r, err := a.batch.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
