package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/kailas-cloud/profilesearch/internal/db"
	"github.com/kailas-cloud/profilesearch/internal/domain/vector"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_generations (
	generation INTEGER PRIMARY KEY AUTOINCREMENT,
	model TEXT NOT NULL,
	dimensions INTEGER NOT NULL,
	records INTEGER NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	active INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS profile_vectors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	generation INTEGER NOT NULL,
	position INTEGER NOT NULL,
	vector BLOB NOT NULL,
	text TEXT NOT NULL,
	fields_json TEXT NOT NULL,
	UNIQUE (generation, position)
);
`

// Row is one persisted corpus entry.
type Row struct {
	Position   int
	Vector     []float32
	Text       string
	FieldsJSON string
}

// Retention defaults for superseded generations.
const (
	DefaultKeepGenerations = 3
	DefaultRetentionGrace  = 10 * time.Minute
)

// Generation describes one fully written corpus snapshot.
type Generation struct {
	ID         int64
	Model      string
	Dimensions int
	Records    int
	// Fingerprint identifies the corpus the generation was embedded from.
	Fingerprint string
	CreatedAt   time.Time
	Active      bool
}

// NewGeneration describes a generation about to be written.
type NewGeneration struct {
	Model       string
	Dimensions  int
	Fingerprint string
}

// Store persists profile vectors in SQLite. Every ingestion writes a new
// generation; readers address rows by generation so a snapshot being served
// never observes a half-written one.
type Store struct {
	db    *sql.DB
	keep  int
	grace time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithRetention keeps the newest keep generations plus any generation younger
// than grace. Other processes sharing the file may still be serving those.
// keep is raised to 2 so the previously active generation always survives.
func WithRetention(keep int, grace time.Duration) Option {
	return func(s *Store) {
		if keep < 2 {
			keep = 2
		}
		if grace < 0 {
			grace = 0
		}
		s.keep = keep
		s.grace = grace
	}
}

// Open opens or creates a SQLite database at path (":memory:" for tests).
func Open(path string, opts ...Option) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes; one connection also keeps
	// an in-memory database alive for the lifetime of the pool.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, &db.Error{Op: db.OpSchema, Err: err}
	}
	if err := migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, &db.Error{Op: db.OpSchema, Err: err}
	}

	s := &Store{db: sqlDB, keep: DefaultKeepGenerations, grace: DefaultRetentionGrace}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// migrate adds columns missing from databases created by older releases.
func migrate(sqlDB *sql.DB) error {
	var n int
	err := sqlDB.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('index_generations') WHERE name = 'fingerprint'`,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect index_generations: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := sqlDB.Exec(`ALTER TABLE index_generations ADD COLUMN fingerprint TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("add fingerprint column: %w", err)
	}
	return nil
}

func dsn(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close() //nolint:wrapcheck // close error is reported as-is
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// WriteGeneration stores rows as a new active generation in one transaction.
// Superseded generations are pruned only once they fall outside the retention
// window, so searches still bound to them (in this or another process) keep
// their rows.
func (s *Store) WriteGeneration(ctx context.Context, g NewGeneration, rows []Row) (Generation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Generation{}, &db.Error{Op: db.OpWrite, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO index_generations (model, dimensions, records, fingerprint, created_at, active)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		g.Model, g.Dimensions, len(rows), g.Fingerprint, now.UnixMilli(),
	)
	if err != nil {
		return Generation{}, &db.Error{Op: db.OpWrite, Err: err}
	}
	gen, err := res.LastInsertId()
	if err != nil {
		return Generation{}, &db.Error{Op: db.OpWrite, Err: err}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO profile_vectors (generation, position, vector, text, fields_json) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return Generation{}, &db.Error{Op: db.OpWrite, Err: err}
	}
	defer stmt.Close()

	for _, r := range rows {
		if len(r.Vector) != g.Dimensions {
			return Generation{}, &db.Error{
				Op:  db.OpWrite,
				Err: fmt.Errorf("row %d has %d dimensions, expected %d", r.Position, len(r.Vector), g.Dimensions),
			}
		}
		if _, err := stmt.ExecContext(ctx, gen, r.Position, vector.Encode(r.Vector), r.Text, r.FieldsJSON); err != nil {
			return Generation{}, &db.Error{Op: db.OpWrite, Err: fmt.Errorf("insert row %d: %w", r.Position, err)}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE index_generations SET active = CASE WHEN generation = ? THEN 1 ELSE 0 END`, gen,
	); err != nil {
		return Generation{}, &db.Error{Op: db.OpActivate, Err: err}
	}

	if err := s.prune(ctx, tx, now); err != nil {
		return Generation{}, err
	}

	if err := tx.Commit(); err != nil {
		return Generation{}, &db.Error{Op: db.OpWrite, Err: err}
	}

	return Generation{
		ID:          gen,
		Model:       g.Model,
		Dimensions:  g.Dimensions,
		Records:     len(rows),
		Fingerprint: g.Fingerprint,
		CreatedAt:   time.UnixMilli(now.UnixMilli()),
		Active:      true,
	}, nil
}

// prune deletes generations that are neither among the newest s.keep nor
// younger than s.grace.
func (s *Store) prune(ctx context.Context, tx *sql.Tx, now time.Time) error {
	const expired = `SELECT generation FROM index_generations
		WHERE created_at <= ?
		  AND generation NOT IN (SELECT generation FROM index_generations ORDER BY generation DESC LIMIT ?)`
	cutoff := now.Add(-s.grace).UnixMilli()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM profile_vectors WHERE generation IN (`+expired+`)`, cutoff, s.keep,
	); err != nil {
		return &db.Error{Op: db.OpPrune, Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM index_generations WHERE generation IN (`+expired+`)`, cutoff, s.keep,
	); err != nil {
		return &db.Error{Op: db.OpPrune, Err: err}
	}
	return nil
}

// Generations lists the stored generations, newest first.
func (s *Store) Generations(ctx context.Context) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT generation, model, dimensions, records, fingerprint, created_at, active
		 FROM index_generations ORDER BY generation DESC`,
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: err}
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var (
			g         Generation
			createdAt int64
		)
		if err := rows.Scan(&g.ID, &g.Model, &g.Dimensions, &g.Records, &g.Fingerprint, &createdAt, &g.Active); err != nil {
			return nil, &db.Error{Op: db.OpLoad, Err: err}
		}
		g.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: err}
	}
	return out, nil
}

// ActiveGeneration returns the live generation or db.ErrNoActiveGeneration.
func (s *Store) ActiveGeneration(ctx context.Context) (Generation, error) {
	var (
		g         Generation
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT generation, model, dimensions, records, fingerprint, created_at FROM index_generations
		 WHERE active = 1 ORDER BY generation DESC LIMIT 1`,
	).Scan(&g.ID, &g.Model, &g.Dimensions, &g.Records, &g.Fingerprint, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Generation{}, db.ErrNoActiveGeneration
		}
		return Generation{}, &db.Error{Op: db.OpLoad, Err: err}
	}
	g.CreatedAt = time.UnixMilli(createdAt)
	g.Active = true
	return g, nil
}

// LoadRows returns the rows of a generation ordered by position, without vectors.
func (s *Store) LoadRows(ctx context.Context, generation int64) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, text, fields_json FROM profile_vectors WHERE generation = ? ORDER BY position`,
		generation,
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: err}
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Position, &r.Text, &r.FieldsJSON); err != nil {
			return nil, &db.Error{Op: db.OpLoad, Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpLoad, Err: err}
	}
	return out, nil
}

// ScanVectors streams every vector of a generation in position order.
// fn must not call back into the Store.
func (s *Store) ScanVectors(
	ctx context.Context, generation int64, fn func(position int, vec []float32) error,
) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, vector FROM profile_vectors WHERE generation = ? ORDER BY position`,
		generation,
	)
	if err != nil {
		return &db.Error{Op: db.OpScan, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos  int
			blob []byte
		)
		if err := rows.Scan(&pos, &blob); err != nil {
			return &db.Error{Op: db.OpScan, Err: err}
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			return &db.Error{Op: db.OpScan, Err: fmt.Errorf("position %d: %w", pos, err)}
		}
		if err := fn(pos, vec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return &db.Error{Op: db.OpScan, Err: err}
	}
	return nil
}
