package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlWordVectors returns the DDL with the vector dimension substituted. The
// dimension is baked into the column type at schema creation time.
func ddlWordVectors(dimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS word_vectors (
    word       TEXT         PRIMARY KEY,
    embedding  vector(%d)   NOT NULL
);
`, dimensions)
}

// Migrate creates the word_vectors table and the pgvector extension. It is
// idempotent and safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dimensions int) error {
	if _, err := pool.Exec(ctx, ddlWordVectors(dimensions)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
