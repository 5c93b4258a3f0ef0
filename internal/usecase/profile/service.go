package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/profilesearch/internal/corpus"
	"github.com/kailas-cloud/profilesearch/internal/domain"
	domprofile "github.com/kailas-cloud/profilesearch/internal/domain/profile"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/metric"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/request"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/result"
	"github.com/kailas-cloud/profilesearch/internal/index"
	"github.com/kailas-cloud/profilesearch/internal/metrics"
)

// State is the lifecycle state of the service.
type State string

const (
	// Unloaded means no corpus has been ingested yet.
	Unloaded State = "unloaded"
	// Ready means a snapshot is live and searches are served.
	Ready State = "ready"
)

// Config holds service settings.
type Config struct {
	// Vector.Model is checked on Restore; Vector.Dimensions (when > 0) on every build.
	Vector        domain.VectorConfig
	MissingMarker string
}

// ErrCorpusChanged means the persisted index was embedded from a different corpus.
var ErrCorpusChanged = errors.New("corpus changed since the index was persisted")

// Stats describes the live snapshot.
type Stats struct {
	State      State
	Backend    string
	Metric     metric.Metric
	Records    int
	Dimensions int
	Source     string
	Generation uint64
	LoadedAt   time.Time
}

type snapshot struct {
	records    []domprofile.Record
	index      index.Index
	source     string
	generation uint64
	loadedAt   time.Time
}

// Service is the embedding index service: it ingests a corpus into an index
// and answers nearest-neighbour queries against the live snapshot.
type Service struct {
	embed   Embedder
	builder IndexBuilder
	cfg     Config
	logger  *zap.Logger

	// mu serializes Load and Restore. Searches never take it.
	mu         sync.Mutex
	current    atomic.Pointer[snapshot]
	generation uint64
}

// New creates a Service in the Unloaded state.
func New(embed Embedder, builder IndexBuilder, cfg Config, logger *zap.Logger) *Service {
	if cfg.MissingMarker == "" {
		cfg.MissingMarker = domprofile.DefaultMissingMarker
	}
	return &Service{embed: embed, builder: builder, cfg: cfg, logger: logger}
}

// Load reads src, embeds every record and swaps in a new index. On any failure
// the previous snapshot (or the Unloaded state) is kept and the error wraps
// domain.ErrIngestion.
func (s *Service) Load(ctx context.Context, src corpus.Source) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap, err := s.build(ctx, src)
	backend := s.builder.Backend()
	if err != nil {
		metrics.IndexBuildsTotal.WithLabelValues(backend, "error").Inc()
		s.logger.Error("Corpus ingestion failed",
			zap.String("source", src.Describe()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return Stats{}, err
	}

	s.swap(snap)
	metrics.IndexBuildsTotal.WithLabelValues(backend, "success").Inc()
	metrics.IndexBuildDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())

	s.logger.Info("Corpus ingested",
		zap.String("source", snap.source),
		zap.String("backend", snap.index.Backend()),
		zap.Int("records", len(snap.records)),
		zap.Int("dimensions", snap.index.Dimensions()),
		zap.Uint64("generation", snap.generation),
		zap.Duration("duration", time.Since(start)),
	)
	return statsOf(snap), nil
}

// readRecords reads src and turns every row into a record.
func (s *Service) readRecords(ctx context.Context, src corpus.Source) ([]domprofile.Record, error) {
	table, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read corpus: %w", domain.ErrIngestion, err)
	}

	records := make([]domprofile.Record, len(table.Rows))
	for i, row := range table.Rows {
		rec, err := domprofile.New(i, table.Columns, row, s.cfg.MissingMarker)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", domain.ErrIngestion, i, err)
		}
		records[i] = rec
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrIngestion, corpus.ErrEmpty)
	}
	return records, nil
}

func (s *Service) build(ctx context.Context, src corpus.Source) (*snapshot, error) {
	records, err := s.readRecords(ctx, src)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(records))
	for i := range records {
		texts[i] = records[i].CombinedText()
	}

	res, err := domain.EmbedAll(ctx, s.embed, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed corpus: %w", domain.ErrIngestion, asEmbeddingError(err))
	}

	dim, err := index.ValidateVectors(res.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIngestion, err)
	}
	if want := s.cfg.Vector.Dimensions; want > 0 && dim != want {
		return nil, fmt.Errorf("%w: %w", domain.ErrIngestion, index.CheckDimensions(want, dim))
	}

	idx, err := s.builder.Build(ctx, records, res.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("%w: build index: %w", domain.ErrIngestion, err)
	}

	return &snapshot{
		records:  records,
		index:    idx,
		source:   src.Describe(),
		loadedAt: time.Now(),
	}, nil
}

// Restore makes the last persisted index live without re-embedding the corpus.
// It is refused when the persisted model or dimension differ from the
// configured ones. When src is non-nil it is read and the restore is also
// refused with ErrCorpusChanged unless the persisted generation was embedded
// from exactly the same records.
func (s *Service) Restore(ctx context.Context, src corpus.Source) (Stats, error) {
	restorer, ok := s.builder.(IndexRestorer)
	if !ok {
		return Stats{}, fmt.Errorf("%w: index backend is not persistent", domain.ErrIngestion)
	}

	var want string
	if src != nil {
		records, err := s.readRecords(ctx, src)
		if err != nil {
			return Stats{}, err
		}
		want = domprofile.Fingerprint(records)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.restore(ctx, restorer, want)
	if err != nil {
		return Stats{}, err
	}
	return statsOf(snap), nil
}

// restore opens the persisted index and publishes it. A non-empty fingerprint
// must match the persisted one. Caller holds s.mu.
func (s *Service) restore(ctx context.Context, restorer IndexRestorer, fingerprint string) (*snapshot, error) {
	idx, records, err := restorer.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: restore index: %w", domain.ErrIngestion, err)
	}
	if len(records) != idx.Len() {
		return nil, fmt.Errorf("%w: restored %d records for %d vectors", domain.ErrIngestion, len(records), idx.Len())
	}
	if want := s.cfg.Vector.Dimensions; want > 0 && idx.Dimensions() != want {
		return nil, fmt.Errorf("%w: %w", domain.ErrIngestion, index.CheckDimensions(want, idx.Dimensions()))
	}
	if mr, ok := idx.(modelReporter); ok && s.cfg.Vector.Model != "" && mr.Model() != s.cfg.Vector.Model {
		return nil, fmt.Errorf("%w: persisted index was built with model %q, configured %q",
			domain.ErrIngestion, mr.Model(), s.cfg.Vector.Model)
	}
	if fingerprint != "" {
		fr, ok := idx.(fingerprintReporter)
		if !ok || fr.Fingerprint() != fingerprint {
			return nil, fmt.Errorf("%w: %w", domain.ErrIngestion, ErrCorpusChanged)
		}
	}

	snap := &snapshot{
		records:  records,
		index:    idx,
		source:   "restore:" + idx.Backend(),
		loadedAt: time.Now(),
	}
	s.swap(snap)

	s.logger.Info("Index restored",
		zap.String("backend", idx.Backend()),
		zap.Int("records", len(records)),
		zap.Int("dimensions", idx.Dimensions()),
		zap.Uint64("generation", snap.generation),
	)
	return snap, nil
}

// reopen replaces a snapshot whose persisted rows were pruned by another
// writer with the live generation. It is a no-op when stale is no longer current.
func (s *Service) reopen(ctx context.Context, stale *snapshot) error {
	restorer, ok := s.builder.(IndexRestorer)
	if !ok {
		return fmt.Errorf("index backend %s cannot reopen", s.builder.Backend())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Load() != stale {
		return nil
	}
	_, err := s.restore(ctx, restorer, "")
	return err
}

// swap publishes snap. Caller holds s.mu.
func (s *Service) swap(snap *snapshot) {
	s.generation++
	snap.generation = s.generation
	s.current.Store(snap)
	metrics.IndexRecords.WithLabelValues(snap.index.Backend()).Set(float64(len(snap.records)))
}

// Page is a ranked result list and the snapshot that produced it.
type Page struct {
	Backend    string
	Metric     metric.Metric
	Generation uint64
	Results    []result.Result
}

// Search embeds query and returns the min(k, N) best records, best first.
// k == 0 selects request.DefaultTopK.
func (s *Service) Search(ctx context.Context, query string, k int) ([]result.Result, error) {
	page, err := s.SearchPage(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// SearchPage is Search that also reports the backend, metric and generation
// of the snapshot the results came from.
func (s *Service) SearchPage(ctx context.Context, query string, k int) (Page, error) {
	req, err := request.New(query, k)
	if err != nil {
		return Page{}, err
	}
	return s.SearchRequest(ctx, &req)
}

// SearchRequest runs a validated request against the live snapshot. If the
// snapshot's persisted rows were pruned by another writer, the live
// generation is reopened and the search retried once.
func (s *Service) SearchRequest(ctx context.Context, req *request.Request) (Page, error) {
	snap := s.current.Load()
	if snap == nil {
		return Page{}, domain.ErrNotReady
	}

	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return Page{}, fmt.Errorf("embed query: %w", asEmbeddingError(err))
	}

	page, err := s.searchSnapshot(ctx, snap, emb.Embedding, req.TopK())
	if !errors.Is(err, index.ErrGenerationGone) {
		return page, err
	}

	s.logger.Warn("Snapshot pruned by another writer, reopening live generation",
		zap.Uint64("generation", snap.generation),
		zap.Error(err),
	)
	if rerr := s.reopen(ctx, snap); rerr != nil {
		return Page{}, fmt.Errorf("search index: %w", errors.Join(err, rerr))
	}
	return s.searchSnapshot(ctx, s.current.Load(), emb.Embedding, req.TopK())
}

func (s *Service) searchSnapshot(ctx context.Context, snap *snapshot, query []float32, k int) (Page, error) {
	start := time.Now()
	hits, err := snap.index.Search(ctx, query, k)
	metrics.SearchDuration.WithLabelValues(snap.index.Backend()).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			return Page{}, fmt.Errorf("%w: %w", domain.ErrQuery, err)
		}
		return Page{}, fmt.Errorf("search index: %w", err)
	}

	results := make([]result.Result, len(hits))
	for i, h := range hits {
		results[i] = result.New(snap.records[h.Position], h.Score)
	}
	return Page{
		Backend:    snap.index.Backend(),
		Metric:     snap.index.Metric(),
		Generation: snap.generation,
		Results:    results,
	}, nil
}

// State reports whether a snapshot is live.
func (s *Service) State() State {
	if s.current.Load() == nil {
		return Unloaded
	}
	return Ready
}

// Stats describes the live snapshot; State is Unloaded when there is none.
func (s *Service) Stats() Stats {
	snap := s.current.Load()
	if snap == nil {
		return Stats{State: Unloaded}
	}
	return statsOf(snap)
}

// Ping reports domain.ErrNotReady until a snapshot is live. Used by health checks.
func (s *Service) Ping(context.Context) error {
	if s.current.Load() == nil {
		return domain.ErrNotReady
	}
	return nil
}

func statsOf(snap *snapshot) Stats {
	return Stats{
		State:      Ready,
		Backend:    snap.index.Backend(),
		Metric:     snap.index.Metric(),
		Records:    len(snap.records),
		Dimensions: snap.index.Dimensions(),
		Source:     snap.source,
		Generation: snap.generation,
		LoadedAt:   snap.loadedAt,
	}
}

// asEmbeddingError makes sure err matches domain.ErrEmbedding.
func asEmbeddingError(err error) error {
	if errors.Is(err, domain.ErrEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
}
