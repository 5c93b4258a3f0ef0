// Package sqlite implements a flat index persisted in SQLite. Vectors stay on
// disk and every search scans the generation the index was built on, ranked
// by cosine similarity.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/profilesearch/internal/db"
	sqlitedb "github.com/kailas-cloud/profilesearch/internal/db/sqlite"
	"github.com/kailas-cloud/profilesearch/internal/domain/profile"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/metric"
	"github.com/kailas-cloud/profilesearch/internal/index"
)

var _ index.Index = (*Index)(nil)

// Store is the persistence surface the index needs.
type Store interface {
	WriteGeneration(ctx context.Context, g sqlitedb.NewGeneration, rows []sqlitedb.Row) (sqlitedb.Generation, error)
	ActiveGeneration(ctx context.Context) (sqlitedb.Generation, error)
	LoadRows(ctx context.Context, generation int64) ([]sqlitedb.Row, error)
	ScanVectors(ctx context.Context, generation int64, fn func(position int, vec []float32) error) error
}

// Index is bound to one immutable generation of the store.
type Index struct {
	store      Store
	generation sqlitedb.Generation
}

// Build writes records and their vectors as a new active generation, tagged
// with the corpus fingerprint. vectors[i] belongs to records[i].
func Build(
	ctx context.Context, store Store, model string, records []profile.Record, vectors [][]float32,
) (*Index, error) {
	if len(records) != len(vectors) {
		return nil, fmt.Errorf("build sqlite index: %d records, %d vectors", len(records), len(vectors))
	}
	dim, err := index.ValidateVectors(vectors)
	if err != nil {
		return nil, fmt.Errorf("build sqlite index: %w", err)
	}

	rows := make([]sqlitedb.Row, len(records))
	for i := range records {
		fieldsJSON, err := json.Marshal(records[i].Fields())
		if err != nil {
			return nil, fmt.Errorf("marshal fields of record %d: %w", i, err)
		}
		rows[i] = sqlitedb.Row{
			Position:   records[i].Position(),
			Vector:     vectors[i],
			Text:       records[i].CombinedText(),
			FieldsJSON: string(fieldsJSON),
		}
	}

	gen, err := store.WriteGeneration(ctx, sqlitedb.NewGeneration{
		Model:       model,
		Dimensions:  dim,
		Fingerprint: profile.Fingerprint(records),
	}, rows)
	if err != nil {
		return nil, fmt.Errorf("build sqlite index: %w", err)
	}
	return &Index{store: store, generation: gen}, nil
}

// ErrNothingToRestore is returned by Open when the store holds no live generation.
var ErrNothingToRestore = errors.New("no persisted generation")

// Open binds an index to the live generation and hydrates its records.
func Open(ctx context.Context, store Store) (*Index, []profile.Record, error) {
	gen, err := store.ActiveGeneration(ctx)
	if err != nil {
		if errors.Is(err, db.ErrNoActiveGeneration) {
			return nil, nil, ErrNothingToRestore
		}
		return nil, nil, fmt.Errorf("open sqlite index: %w", err)
	}

	rows, err := store.LoadRows(ctx, gen.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite index: %w", err)
	}
	if len(rows) != gen.Records {
		return nil, nil, fmt.Errorf("generation %d has %d rows, expected %d", gen.ID, len(rows), gen.Records)
	}

	records := make([]profile.Record, len(rows))
	for i, r := range rows {
		if r.Position != i {
			return nil, nil, fmt.Errorf("generation %d: row %d has position %d", gen.ID, i, r.Position)
		}
		var fields []profile.Field
		if err := json.Unmarshal([]byte(r.FieldsJSON), &fields); err != nil {
			return nil, nil, fmt.Errorf("decode fields of row %d: %w", i, err)
		}
		records[i] = profile.Reconstruct(r.Position, fields)
	}
	return &Index{store: store, generation: gen}, records, nil
}

// Generation returns the generation this index reads.
func (i *Index) Generation() sqlitedb.Generation { return i.generation }

// Backend implements index.Index.
func (i *Index) Backend() string { return index.BackendSQLite }

// Metric implements index.Index.
func (i *Index) Metric() metric.Metric { return metric.Cosine }

// Dimensions implements index.Index.
func (i *Index) Dimensions() int { return i.generation.Dimensions }

// Len implements index.Index.
func (i *Index) Len() int { return i.generation.Records }

// Search scores every stored vector of the generation against query.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]index.Hit, error) {
	if err := index.CheckDimensions(i.generation.Dimensions, len(query)); err != nil {
		return nil, err
	}

	qn2 := index.Dot(query, query)
	hits := make([]index.Hit, 0, i.generation.Records)
	err := i.store.ScanVectors(ctx, i.generation.ID, func(pos int, vec []float32) error {
		if err := index.CheckDimensions(i.generation.Dimensions, len(vec)); err != nil {
			return fmt.Errorf("stored vector %d: %w", pos, err)
		}
		hits = append(hits, index.Hit{
			Position: pos,
			Score:    index.CosineWithNorms(query, vec, qn2, index.Dot(vec, vec)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan generation %d: %w", i.generation.ID, err)
	}
	if len(hits) == 0 && i.generation.Records > 0 {
		return nil, fmt.Errorf("%w: generation %d", index.ErrGenerationGone, i.generation.ID)
	}
	if len(hits) != i.generation.Records {
		return nil, fmt.Errorf("generation %d returned %d vectors, expected %d",
			i.generation.ID, len(hits), i.generation.Records)
	}
	return index.TopK(hits, metric.Cosine, k), nil
}

// Model returns the embedding model the generation was built with.
func (i *Index) Model() string { return i.generation.Model }

// Fingerprint identifies the corpus the generation was embedded from.
// Generations written before fingerprints were recorded return "".
func (i *Index) Fingerprint() string { return i.generation.Fingerprint }

// Builder creates persisted indexes and restores the live one.
type Builder struct {
	Store Store
	Model string
}

// Build implements the profile service's index builder.
func (b Builder) Build(ctx context.Context, records []profile.Record, vectors [][]float32) (index.Index, error) {
	idx, err := Build(ctx, b.Store, b.Model, records, vectors)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Restore implements the profile service's index restorer.
func (b Builder) Restore(ctx context.Context) (index.Index, []profile.Record, error) {
	idx, records, err := Open(ctx, b.Store)
	if err != nil {
		return nil, nil, err
	}
	return idx, records, nil
}

// Backend names the indexes this builder creates.
func (Builder) Backend() string { return index.BackendSQLite }
