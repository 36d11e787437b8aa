package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/physai/textbook-rag/internal/core/domain"
)

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/indexer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS modules (
	id VARCHAR(100) PRIMARY KEY,
	title VARCHAR(255) NOT NULL,
	position INTEGER NOT NULL,
	description TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sections (
	id VARCHAR(100) PRIMARY KEY,
	module_id VARCHAR(100) NOT NULL,
	title VARCHAR(255) NOT NULL,
	file_path VARCHAR(500) NOT NULL,
	position INTEGER NOT NULL,
	word_count INTEGER NOT NULL,
	flesch_kincaid_grade DECIMAL(3,1),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT fk_module FOREIGN KEY (module_id) REFERENCES modules(id) ON DELETE CASCADE,
	CONSTRAINT word_count_range CHECK (word_count BETWEEN 0 AND 10000),
	CONSTRAINT readability_range CHECK (flesch_kincaid_grade IS NULL OR flesch_kincaid_grade BETWEEN 0.0 AND 20.0)
);

CREATE INDEX IF NOT EXISTS idx_sections_module ON sections(module_id);

CREATE TABLE IF NOT EXISTS embedding_chunks (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	section_id VARCHAR(100) NOT NULL,
	chunk_index INTEGER NOT NULL,
	text TEXT NOT NULL,
	word_count INTEGER NOT NULL,
	start_char_offset INTEGER NOT NULL,
	end_char_offset INTEGER NOT NULL,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT fk_section FOREIGN KEY (section_id) REFERENCES sections(id) ON DELETE CASCADE,
	CONSTRAINT unique_chunk UNIQUE (section_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_section ON embedding_chunks(section_id);

CREATE TABLE IF NOT EXISTS chat_queries (
	id UUID PRIMARY KEY,
	query_text TEXT NOT NULL,
	selected_text TEXT,
	context_section_id VARCHAR(100),
	top_k INTEGER NOT NULL DEFAULT 3,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT query_length CHECK (LENGTH(query_text) >= 10),
	CONSTRAINT topk_range CHECK (top_k BETWEEN 1 AND 10)
);

CREATE INDEX IF NOT EXISTS idx_queries_created_at ON chat_queries(created_at DESC);

CREATE TABLE IF NOT EXISTS chat_responses (
	id UUID PRIMARY KEY,
	query_id UUID NOT NULL,
	response_text TEXT NOT NULL,
	retrieved_chunks JSONB NOT NULL,
	citations JSONB NOT NULL,
	confidence_score DECIMAL(3,2),
	generation_time_ms INTEGER,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT fk_query FOREIGN KEY (query_id) REFERENCES chat_queries(id) ON DELETE CASCADE,
	CONSTRAINT response_time CHECK (generation_time_ms >= 0),
	CONSTRAINT confidence_range CHECK (confidence_score BETWEEN 0.0 AND 1.0)
);

CREATE INDEX IF NOT EXISTS idx_responses_query ON chat_responses(query_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetSectionRef(ctx context.Context, sectionID string) (*domain.SectionRef, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT s.id, s.title, m.id, m.title
FROM sections s
JOIN modules m ON m.id = s.module_id
WHERE s.id = $1
`, sectionID)

	var ref domain.SectionRef
	if err := row.Scan(&ref.SectionID, &ref.SectionTitle, &ref.ModuleID, &ref.ModuleTitle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCatalogInconsistency, "get section ref", fmt.Errorf("section %q not found", sectionID))
		}
		return nil, domain.WrapError(domain.ErrCatalogUnavailable, "get section ref", err)
	}
	return &ref, nil
}

func (r *CatalogRepository) ListSections(ctx context.Context) ([]domain.SectionMetadata, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT s.id, s.module_id, s.title, s.word_count, s.flesch_kincaid_grade, s.created_at, s.updated_at
FROM sections s
JOIN modules m ON m.id = s.module_id
ORDER BY m.position, s.position
`)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCatalogUnavailable, "list sections", err)
	}
	defer rows.Close()

	out := make([]domain.SectionMetadata, 0, 32)
	for rows.Next() {
		var meta domain.SectionMetadata
		if err := rows.Scan(
			&meta.SectionID,
			&meta.ModuleID,
			&meta.Title,
			&meta.WordCount,
			&meta.ReadabilityGrade,
			&meta.CreatedAt,
			&meta.UpdatedAt,
		); err != nil {
			return nil, domain.WrapError(domain.ErrCatalogUnavailable, "scan section", err)
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrCatalogUnavailable, "list sections rows", err)
	}
	return out, nil
}

func (r *CatalogRepository) ListSectionChunks(ctx context.Context, sectionID string) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, section_id, chunk_index, text, word_count, start_char_offset, end_char_offset, COALESCE(metadata, '{}'::jsonb)
FROM embedding_chunks
WHERE section_id = $1
ORDER BY chunk_index
`, sectionID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCatalogUnavailable, "list section chunks", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0, 16)
	for rows.Next() {
		var chunk domain.Chunk
		var metadataRaw []byte
		if err := rows.Scan(
			&chunk.ID,
			&chunk.SectionID,
			&chunk.ChunkIndex,
			&chunk.Text,
			&chunk.WordCount,
			&chunk.StartOffset,
			&chunk.EndOffset,
			&metadataRaw,
		); err != nil {
			return nil, domain.WrapError(domain.ErrCatalogUnavailable, "scan chunk", err)
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("decode chunk metadata for %s: %w", chunk.ID, err)
			}
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrCatalogUnavailable, "list section chunks rows", err)
	}
	return out, nil
}

func (r *CatalogRepository) LogQuery(ctx context.Context, entry *domain.QueryLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_queries (id, query_text, selected_text, context_section_id, top_k, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, entry.ID, entry.QueryText, nullableString(entry.SelectedText), nullableString(entry.ContextSectionID), entry.TopK, entry.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrCatalogUnavailable, "log query", err)
	}
	return nil
}

func (r *CatalogRepository) LogResponse(ctx context.Context, entry *domain.ResponseLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	chunksJSON, err := json.Marshal(entry.RetrievedChunks)
	if err != nil {
		return fmt.Errorf("marshal retrieved chunks: %w", err)
	}
	citationsJSON, err := json.Marshal(entry.Citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO chat_responses (id, query_id, response_text, retrieved_chunks, citations, confidence_score, generation_time_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, entry.ID, entry.QueryID, entry.ResponseText, chunksJSON, citationsJSON, entry.Confidence, entry.GenerationMS, entry.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrCatalogUnavailable, "log response", err)
	}
	return nil
}

func (r *CatalogRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.WrapError(domain.ErrCatalogUnavailable, "catalog ping", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
