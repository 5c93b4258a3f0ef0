package profilesearch

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const educatorsCSV = "../../testdata/educators.csv"

var (
	testColumns = []string{"Name", "Expertise"}
	testRows    = [][]string{
		{"Ann", "Generative AI"},
		{"Ben", "Networking"},
		{"Cal", "Cooking"},
	}
)

func TestNew_NoEmbedder(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error when no embedder provided")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithSQLite("profiles.db").apply(cfg)
	if cfg.backend != "sqlite" || cfg.sqlitePath != "profiles.db" {
		t.Errorf("sqlite = (%q, %q)", cfg.backend, cfg.sqlitePath)
	}

	WithMemoryIndex().apply(cfg)
	if cfg.backend != "memory" || cfg.sqlitePath != "" {
		t.Errorf("memory = (%q, %q)", cfg.backend, cfg.sqlitePath)
	}

	WithModel("all-minilm").apply(cfg)
	WithVectorDimensions(384).apply(cfg)
	WithMissingMarker("-").apply(cfg)
	if cfg.model != "all-minilm" || cfg.vectorDimensions != 384 || cfg.missingMarker != "-" {
		t.Errorf("model/dims/marker = %q/%d/%q", cfg.model, cfg.vectorDimensions, cfg.missingMarker)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	// Close на клиенте с nil store не паникует.
	c := &Client{store: nil}
	c.Close()
}

func TestClient_SearchBeforeLoad(t *testing.T) {
	c, err := New(WithEmbedder(&keywordEmbedder{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	_, err = c.Search(context.Background(), "cooking", 1)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if c.Stats().Ready {
		t.Error("stats must report not ready")
	}
}

func TestClient_LoadRowsAndSearch_Memory(t *testing.T) {
	c, err := New(WithEmbedder(&keywordEmbedder{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	stats, err := c.LoadRows(ctx, "inline", testColumns, testRows)
	if err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	if !stats.Ready || stats.Records != 3 || stats.Backend != "memory" || stats.Metric != "l2sq" {
		t.Errorf("unexpected stats: %+v", stats)
	}

	results, err := c.Search(ctx, "cooking", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if got := results[0].Value("Name"); got != "Cal" {
		t.Errorf("top result = %q, want Cal", got)
	}
	if results[0].Position != 2 {
		t.Errorf("position = %d, want 2", results[0].Position)
	}
	if results[0].Score != 0 {
		t.Errorf("identical vector must have distance 0, got %v", results[0].Score)
	}
}

func TestClient_LoadCSV(t *testing.T) {
	c, err := New(WithEmbedder(&keywordEmbedder{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	stats, err := c.LoadCSV(ctx, educatorsCSV, UTF8)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if stats.Records != 5 {
		t.Errorf("records = %d, want 5", stats.Records)
	}

	results, err := c.Search(ctx, "cloud", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("default k on 5 records: got %d results", len(results))
	}
	if got := results[0].Value("Name"); got != "Eli" {
		t.Errorf("top result = %q, want Eli", got)
	}
	if got := results[0].Value("Missing"); got != "" {
		t.Errorf("absent field = %q, want empty", got)
	}
}

func TestClient_LoadCSV_MissingFile(t *testing.T) {
	c, err := New(WithEmbedder(&keywordEmbedder{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	_, err = c.LoadCSV(context.Background(), "does-not-exist.csv", UTF8)
	if !errors.Is(err, ErrIngestion) {
		t.Fatalf("expected ErrIngestion, got %v", err)
	}
}

func TestClient_SQLiteRestore(t *testing.T) {
	emb := &keywordEmbedder{}
	c, err := New(WithEmbedder(emb), WithSQLite(":memory:"), WithModel("keywords"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, err := c.LoadRows(ctx, "inline", testColumns, testRows); err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	callsAfterLoad := emb.calls

	stats, err := c.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if stats.Backend != "sqlite" || stats.Metric != "cosine" || stats.Records != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if emb.calls != callsAfterLoad {
		t.Errorf("restore must not embed the corpus: %d calls, want %d", emb.calls, callsAfterLoad)
	}

	results, err := c.Search(ctx, "networking", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := results[0].Value("Name"); got != "Ben" {
		t.Errorf("top result = %q, want Ben", got)
	}
	if results[0].Score < 0.999 {
		t.Errorf("identical direction must score ~1, got %v", results[0].Score)
	}

	h := c.Health(ctx)
	if h.Status != "ok" || h.Checks["database"] != "ok" {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestClient_RestoreRows_CorpusChanged(t *testing.T) {
	emb := &keywordEmbedder{}
	c, err := New(WithEmbedder(emb), WithSQLite(":memory:"), WithModel("keywords"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, err := c.LoadRows(ctx, "inline", testColumns, testRows); err != nil {
		t.Fatalf("LoadRows: %v", err)
	}

	if _, err := c.RestoreRows(ctx, "inline", testColumns, testRows); err != nil {
		t.Fatalf("RestoreRows with the same corpus: %v", err)
	}

	edited := [][]string{{"Dee", "Cloud"}}
	_, err = c.RestoreRows(ctx, "inline", testColumns, edited)
	if !errors.Is(err, ErrCorpusChanged) || !errors.Is(err, ErrIngestion) {
		t.Fatalf("expected ErrCorpusChanged, got %v", err)
	}
	if c.Stats().Records != 3 {
		t.Errorf("refused restore must keep the live index, got %d records", c.Stats().Records)
	}
}

func TestClient_Restore_MemoryUnsupported(t *testing.T) {
	c, err := New(WithEmbedder(&keywordEmbedder{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.Restore(context.Background()); !errors.Is(err, ErrIngestion) {
		t.Fatalf("expected ErrIngestion, got %v", err)
	}
}

func TestClient_Health_NotLoaded(t *testing.T) {
	c, err := New(WithEmbedder(&keywordEmbedder{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	h := c.Health(context.Background())
	if h.Status != "error" || h.Checks["index"] != "error" {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestClient_BatchEmbedderUsed(t *testing.T) {
	emb := &batchKeywordEmbedder{}
	c, err := New(WithEmbedder(emb))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.LoadRows(context.Background(), "inline", testColumns, testRows); err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	if emb.batchN != 1 {
		t.Errorf("batch calls = %d, want 1", emb.batchN)
	}
	if emb.calls != 0 {
		t.Errorf("single calls during ingestion = %d, want 0", emb.calls)
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			return EmbeddingResult{}, errors.New("provider down")
		},
	}

	_, err := adaptEmbedder(mock).Embed(context.Background(), "hello")
	if !errors.Is(err, ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestAdaptEmbedder_BatchDetection(t *testing.T) {
	if _, ok := adaptEmbedder(&keywordEmbedder{}).(*batchEmbedderAdapter); ok {
		t.Error("plain embedder must not be exposed as batch")
	}
	if _, ok := adaptEmbedder(&batchKeywordEmbedder{}).(*batchEmbedderAdapter); !ok {
		t.Error("batch embedder must be exposed as batch")
	}
}

func TestClient_Prometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(WithEmbedder(&keywordEmbedder{}), WithPrometheus(reg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	_, _ = c.Search(ctx, "cooking", 1) // not ready
	if _, err := c.LoadRows(ctx, "inline", testColumns, testRows); err != nil {
		t.Fatalf("LoadRows: %v", err)
	}

	ops := c.obs.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("search", "error")); got != 1 {
		t.Errorf("search errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("load", "ok")); got != 1 {
		t.Errorf("load ok = %v, want 1", got)
	}
}

func TestClient_SearchErrorWrapped(t *testing.T) {
	c := &Client{svc: &fakeProfileUC{searchErr: ErrQuery}}

	_, err := c.Search(context.Background(), "q", 1)
	if !errors.Is(err, ErrQuery) {
		t.Fatalf("expected ErrQuery, got %v", err)
	}
}
