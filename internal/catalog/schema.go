package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the catalog tables and the chunk HNSW index when
// they do not exist yet. dimensions sizes the vector columns and must
// match the embedding model in use.
func EnsureSchema(ctx context.Context, db *sql.DB, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE SCHEMA IF NOT EXISTS tutor`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tutor.course_catalog (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL UNIQUE,
			instructor TEXT NOT NULL DEFAULT '',
			course_link TEXT,
			lessons JSONB NOT NULL DEFAULT '[]',
			embedding vector(%d)
		)`, dimensions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tutor.course_chunks (
			id BIGSERIAL PRIMARY KEY,
			course_title TEXT NOT NULL REFERENCES tutor.course_catalog(title) ON DELETE CASCADE,
			lesson_number INT,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS course_chunks_embedding_idx
			ON tutor.course_chunks USING hnsw (embedding vector_cosine_ops)
			WITH (m = 24, ef_construction = 256)`,
		`CREATE INDEX IF NOT EXISTS course_chunks_course_idx
			ON tutor.course_chunks (course_title, lesson_number)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// EnsureEmbeddingDimensions checks whether the embedding vector columns
// match the target dimension count. When they differ it truncates stale
// data, alters the column types, and rebuilds the HNSW index.
// Returns true when a migration was performed.
func EnsureEmbeddingDimensions(ctx context.Context, db *sql.DB, target int) (bool, error) {
	if target <= 0 {
		return false, fmt.Errorf("invalid embedding dimensions: %d", target)
	}

	// pgvector stores the dimension count in atttypmod for vector(N) columns.
	var current int
	err := db.QueryRowContext(ctx, `
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = 'tutor.course_chunks'::regclass
		  AND attname = 'embedding'
	`).Scan(&current)
	if err != nil {
		return false, fmt.Errorf("query current embedding dimensions: %w", err)
	}

	if current == target {
		return false, nil
	}

	// Old embeddings came from a different model and cannot be
	// meaningfully searched, so truncate before altering.
	stmts := []string{
		`DROP INDEX IF EXISTS tutor.course_chunks_embedding_idx`,
		`TRUNCATE tutor.course_chunks`,
		`TRUNCATE tutor.course_catalog CASCADE`,
		fmt.Sprintf(`ALTER TABLE tutor.course_chunks ALTER COLUMN embedding TYPE vector(%d)`, target),
		fmt.Sprintf(`ALTER TABLE tutor.course_catalog ALTER COLUMN embedding TYPE vector(%d)`, target),
		`CREATE INDEX course_chunks_embedding_idx ON tutor.course_chunks USING hnsw (embedding vector_cosine_ops) WITH (m = 24, ef_construction = 256)`,
	}
	for _, stmt := range stmts {
		if _, execErr := db.ExecContext(ctx, stmt); execErr != nil {
			return false, fmt.Errorf("migrate embedding dimensions (%d -> %d): %w", current, target, execErr)
		}
	}

	return true, nil
}
