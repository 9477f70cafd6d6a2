// Package postgres provides a vectors.Model backed by a PostgreSQL table with
// a pgvector column.
//
// Keeping the word vectors in PostgreSQL lets several homophoner processes
// share one model without each of them holding the full table in memory. The
// pgvector extension must be available in the target database; [Migrate]
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 50, postgres.WithModelID("glove-wiki-gigaword-50"))
//	if err != nil { … }
//	defer store.Close()
//
//	// One-off bulk import from a local GloVe file.
//	m, _ := glove.Open(path)
//	n, _ := store.Import(ctx, m)
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/homophoner/pkg/provider/vectors"
)

var _ vectors.Model = (*Store)(nil)

// importBatchSize is the number of rows sent per COPY round.
const importBatchSize = 5000

// Store is a word-vector table in PostgreSQL. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
	dims int
	id   string
}

type config struct {
	modelID string
}

// Option is a functional option for NewStore.
type Option func(*config)

// WithModelID sets the identifier returned by ModelID. Default: "postgres".
func WithModelID(id string) Option {
	return func(c *config) {
		c.modelID = id
	}
}

// NewStore connects to the PostgreSQL database at dsn, registers pgvector
// types on every connection, and runs [Migrate].
//
// dimensions must match the vectors stored in the table. Changing it after the
// first migration requires a manual schema change.
func NewStore(ctx context.Context, dsn string, dimensions int, opts ...Option) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("postgres vectors: dimensions must be positive, got %d", dimensions)
	}
	c := &config{modelID: "postgres"}
	for _, o := range opts {
		o(c)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres vectors: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres vectors: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres vectors: ping: %w", err)
	}
	if err := Migrate(ctx, pool, dimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres vectors: %w", err)
	}

	return &Store{pool: pool, dims: dimensions, id: c.modelID}, nil
}

// Lookup implements vectors.Model.
func (s *Store) Lookup(ctx context.Context, word string) ([]float32, bool, error) {
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx, `SELECT embedding FROM word_vectors WHERE word = $1`, word).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres vectors: lookup %q: %w", word, err)
	}
	return vec.Slice(), true, nil
}

// Dimensions implements vectors.Model.
func (s *Store) Dimensions() int { return s.dims }

// ModelID implements vectors.Model.
func (s *Store) ModelID() string { return s.id }

// Count returns the number of stored words.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM word_vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres vectors: count: %w", err)
	}
	return n, nil
}

// Upsert inserts or replaces the vector for a single word.
func (s *Store) Upsert(ctx context.Context, word string, vec []float32) error {
	if len(vec) != s.dims {
		return fmt.Errorf("postgres vectors: upsert %q: got %d dimensions, want %d", word, len(vec), s.dims)
	}
	const q = `
		INSERT INTO word_vectors (word, embedding)
		VALUES ($1, $2)
		ON CONFLICT (word) DO UPDATE SET embedding = EXCLUDED.embedding`
	if _, err := s.pool.Exec(ctx, q, word, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("postgres vectors: upsert %q: %w", word, err)
	}
	return nil
}

// Import bulk-copies every word of src into the table, skipping words that
// are already present. Returns the number of rows written.
//
// Rows are staged in a temporary table with COPY and merged in batches so a
// full GloVe vocabulary imports in a few round trips.
func (s *Store) Import(ctx context.Context, src vectors.Vocabulary) (int64, error) {
	var (
		total int64
		batch [][]any
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.copyBatch(ctx, batch)
		if err != nil {
			return err
		}
		total += n
		batch = batch[:0]
		return nil
	}

	err := src.Words(func(word string, vec []float32) error {
		if len(vec) != s.dims {
			return fmt.Errorf("word %q has %d dimensions, want %d", word, len(vec), s.dims)
		}
		batch = append(batch, []any{word, pgvector.NewVector(vec)})
		if len(batch) >= importBatchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return total, fmt.Errorf("postgres vectors: import: %w", err)
	}
	return total, nil
}

// copyBatch stages rows in a temporary table and merges them into
// word_vectors inside a single transaction.
func (s *Store) copyBatch(ctx context.Context, rows [][]any) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `CREATE TEMP TABLE word_vectors_stage (LIKE word_vectors) ON COMMIT DROP`); err != nil {
		return 0, fmt.Errorf("create stage: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"word_vectors_stage"}, []string{"word", "embedding"}, pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("copy: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO word_vectors (word, embedding)
		SELECT word, embedding FROM word_vectors_stage
		ON CONFLICT (word) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}
