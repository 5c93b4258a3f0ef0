package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	sqlitedb "github.com/kailas-cloud/profilesearch/internal/db/sqlite"
	"github.com/kailas-cloud/profilesearch/internal/domain"
	"github.com/kailas-cloud/profilesearch/internal/domain/profile"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/metric"
	"github.com/kailas-cloud/profilesearch/internal/index"
)

func newStore(t *testing.T) *sqlitedb.Store {
	t.Helper()
	s, err := sqlitedb.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func records(t *testing.T, names ...string) []profile.Record {
	t.Helper()
	out := make([]profile.Record, len(names))
	for i, n := range names {
		r, err := profile.New(i, []string{"Name", "Expertise"}, []string{n}, profile.DefaultMissingMarker)
		if err != nil {
			t.Fatalf("profile.New: %v", err)
		}
		out[i] = r
	}
	return out
}

func TestIndex_SearchCosine(t *testing.T) {
	ctx := context.Background()
	idx, err := Build(ctx, newStore(t), "m", records(t, "a", "b", "c"),
		[][]float32{{1, 0}, {0, 1}, {1, 1}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Metric() != metric.Cosine || idx.Len() != 3 || idx.Dimensions() != 2 {
		t.Fatalf("unexpected metadata: %s %d %d", idx.Metric(), idx.Len(), idx.Dimensions())
	}

	hits, err := idx.Search(ctx, []float32{2, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Position != 0 || hits[0].Score != 1 {
		t.Errorf("hits[0] = %+v, want position 0 score 1", hits[0])
	}
	if hits[1].Position != 2 {
		t.Errorf("hits[1] = %+v, want position 2", hits[1])
	}
}

func TestIndex_TiesKeepCorpusOrder(t *testing.T) {
	ctx := context.Background()
	idx, _ := Build(ctx, newStore(t), "m", records(t, "a", "b", "c"),
		[][]float32{{0, 1}, {1, 0}, {1, 0}})

	hits, _ := idx.Search(ctx, []float32{1, 0}, 3)
	for i, want := range []int{1, 2, 0} {
		if hits[i].Position != want {
			t.Errorf("hits[%d].Position = %d, want %d", i, hits[i].Position, want)
		}
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx, _ := Build(ctx, newStore(t), "m", records(t, "a"), [][]float32{{1, 2, 3}})

	_, err := idx.Search(ctx, []float32{1, 2}, 1)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestIndex_BuildRejectsCountMismatch(t *testing.T) {
	_, err := Build(context.Background(), newStore(t), "m", records(t, "a", "b"), [][]float32{{1}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestIndex_OldGenerationStaysSearchable(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	old, _ := Build(ctx, store, "m", records(t, "a", "b"), [][]float32{{1, 0}, {0, 1}})
	if _, err := Build(ctx, store, "m", records(t, "c"), [][]float32{{1, 1}}); err != nil {
		t.Fatalf("second Build: %v", err)
	}

	hits, err := old.Search(ctx, []float32{0, 1}, 5)
	if err != nil {
		t.Fatalf("Search on previous generation: %v", err)
	}
	if len(hits) != 2 || hits[0].Position != 1 {
		t.Errorf("unexpected hits: %+v", hits)
	}
}

func TestOpen_RestoresRecords(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	built, _ := Build(ctx, store, "all-minilm", records(t, "Ann", "Ben"), [][]float32{{1, 0}, {0, 1}})

	idx, recs, err := Open(ctx, store)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if idx.Generation().ID != built.Generation().ID || idx.Generation().Model != "all-minilm" {
		t.Errorf("unexpected generation: %+v", idx.Generation())
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if v, _ := recs[1].Value("Name"); v != "Ben" {
		t.Errorf("record 1 Name = %q", v)
	}
	if v, _ := recs[1].Value("Expertise"); v != profile.DefaultMissingMarker {
		t.Errorf("record 1 Expertise = %q, want missing marker", v)
	}
}

func TestOpen_EmptyStore(t *testing.T) {
	_, _, err := Open(context.Background(), newStore(t))
	if !errors.Is(err, ErrNothingToRestore) {
		t.Fatalf("expected ErrNothingToRestore, got %v", err)
	}
}

func TestOpen_KeepsCorpusFingerprint(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	recs := records(t, "Ann", "Ben")
	if _, err := Build(ctx, store, "m", recs, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	idx, restored, err := Open(ctx, store)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if idx.Fingerprint() != profile.Fingerprint(recs) {
		t.Errorf("fingerprint = %q, want %q", idx.Fingerprint(), profile.Fingerprint(recs))
	}
	if profile.Fingerprint(restored) != idx.Fingerprint() {
		t.Error("restored records must hash to the stored fingerprint")
	}
}

func TestIndex_PrunedByAnotherWriter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profiles.db")

	serving, err := sqlitedb.Open(path)
	if err != nil {
		t.Fatalf("open serving store: %v", err)
	}
	t.Cleanup(func() { _ = serving.Close() })
	stale, err := Build(ctx, serving, "m", records(t, "a"), [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	writer, err := sqlitedb.Open(path, sqlitedb.WithRetention(2, 0))
	if err != nil {
		t.Fatalf("open writer store: %v", err)
	}
	t.Cleanup(func() { _ = writer.Close() })
	for range 2 {
		if _, err := Build(ctx, writer, "m", records(t, "b"), [][]float32{{0, 1}}); err != nil {
			t.Fatalf("Build through writer: %v", err)
		}
	}

	_, err = stale.Search(ctx, []float32{1, 0}, 1)
	if !errors.Is(err, index.ErrGenerationGone) {
		t.Fatalf("expected ErrGenerationGone, got %v", err)
	}
}
