package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"pathway-backend/models"
)

// PgVectorStore persists entries in Postgres with the pgvector extension.
// Cosine distance is computed with the `<=>` operator; upserts overwrite in
// place via the primary key.
type PgVectorStore struct {
	db     *pgxpool.Pool
	dims   int
	logger zerolog.Logger
}

// NewPgVectorStore creates the store and ensures its schema exists.
func NewPgVectorStore(ctx context.Context, db *pgxpool.Pool, dims int, logger zerolog.Logger) (*PgVectorStore, error) {
	s := &PgVectorStore{db: db, dims: dims, logger: logger}

	if _, err := db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		// Creating the extension needs superuser rights; it is usually
		// pre-installed in managed Postgres.
		logger.Warn().Err(err).Msg("could not create pgvector extension")
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS document_chunks (
			id            TEXT PRIMARY KEY,
			property_id   TEXT NOT NULL,
			document_id   TEXT NOT NULL,
			document_type TEXT NOT NULL,
			section       TEXT NOT NULL DEFAULT '',
			page_start    INT  NOT NULL DEFAULT 1,
			page_end      INT  NOT NULL DEFAULT 1,
			chunk_type    TEXT NOT NULL DEFAULT '',
			chunk_text    TEXT NOT NULL,
			embedding     vector(%d) NOT NULL
		)`, dims)
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create document_chunks table: %w", err)
	}

	if _, err := db.Exec(ctx,
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_scope ON document_chunks (property_id, document_id)"); err != nil {
		return nil, fmt.Errorf("failed to create scope index: %w", err)
	}

	return s, nil
}

// formatVector formats an embedding as a pgvector literal.
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s *PgVectorStore) Upsert(ctx context.Context, ids []string, embeddings [][]float64, metadatas []ChunkMetadata, texts []string) error {
	if len(ids) != len(embeddings) || len(ids) != len(metadatas) || len(ids) != len(texts) {
		return ErrLengthMismatch
	}
	if len(ids) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, id := range ids {
		m := metadatas[i]
		batch.Queue(`
			INSERT INTO document_chunks
				(id, property_id, document_id, document_type, section, page_start, page_end, chunk_type, chunk_text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::vector)
			ON CONFLICT (id) DO UPDATE SET
				property_id   = EXCLUDED.property_id,
				document_id   = EXCLUDED.document_id,
				document_type = EXCLUDED.document_type,
				section       = EXCLUDED.section,
				page_start    = EXCLUDED.page_start,
				page_end      = EXCLUDED.page_end,
				chunk_type    = EXCLUDED.chunk_type,
				chunk_text    = EXCLUDED.chunk_text,
				embedding     = EXCLUDED.embedding`,
			id, m.PropertyID, m.DocumentID, string(m.DocumentType), m.Section,
			m.PageStart, m.PageEnd, string(m.ChunkType), texts[i], formatVector(embeddings[i]))
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for range ids {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunks: %w", err)
		}
	}
	return nil
}

func (s *PgVectorStore) Query(ctx context.Context, queryEmbedding []float64, nResults int, filter Filter) ([]SearchResult, error) {
	if filter.PropertyID == "" {
		return nil, ErrUnscopedQuery
	}
	if nResults <= 0 {
		nResults = 5
	}

	conds, args := filterClauses(filter, []any{formatVector(queryEmbedding)})
	args = append(args, nResults)

	query := fmt.Sprintf(`
		SELECT id, chunk_text, property_id, document_id, document_type,
			section, page_start, page_end, chunk_type,
			embedding <=> $1::vector AS distance
		FROM document_chunks
		WHERE %s
		ORDER BY embedding <=> $1::vector
		LIMIT $%d`, strings.Join(conds, " AND "), len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	return scanResults(rows, true)
}

func (s *PgVectorStore) List(ctx context.Context, filter Filter, limit int) ([]SearchResult, bool, error) {
	if filter.PropertyID == "" {
		return nil, false, ErrUnscopedQuery
	}
	if limit <= 0 {
		limit = 100
	}

	conds, args := filterClauses(filter, nil)
	args = append(args, limit+1)

	query := fmt.Sprintf(`
		SELECT id, chunk_text, property_id, document_id, document_type,
			section, page_start, page_end, chunk_type
		FROM document_chunks
		WHERE %s
		ORDER BY document_id, id
		LIMIT $%d`, strings.Join(conds, " AND "), len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	results, err := scanResults(rows, false)
	if err != nil {
		return nil, false, err
	}

	truncated := len(results) > limit
	if truncated {
		results = results[:limit]
	}
	return results, truncated, nil
}

func (s *PgVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, "DELETE FROM document_chunks WHERE id = ANY($1)", ids); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// filterClauses builds WHERE conditions for the set filter predicates,
// continuing placeholder numbering after any leading args.
func filterClauses(filter Filter, args []any) ([]string, []any) {
	args = append(args, filter.PropertyID)
	conds := []string{fmt.Sprintf("property_id = $%d", len(args))}
	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		conds = append(conds, fmt.Sprintf("document_id = $%d", len(args)))
	}
	if filter.DocumentType != "" {
		args = append(args, string(filter.DocumentType))
		conds = append(conds, fmt.Sprintf("document_type = $%d", len(args)))
	}
	return conds, args
}

func scanResults(rows pgx.Rows, withDistance bool) ([]SearchResult, error) {
	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var docType, chunkType string
		dest := []any{
			&r.ID, &r.Text, &r.Metadata.PropertyID, &r.Metadata.DocumentID, &docType,
			&r.Metadata.Section, &r.Metadata.PageStart, &r.Metadata.PageEnd, &chunkType,
		}
		if withDistance {
			dest = append(dest, &r.Distance)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		r.Metadata.DocumentType = models.DocumentType(docType)
		r.Metadata.ChunkType = models.ChunkType(chunkType)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk rows: %w", err)
	}
	return results, nil
}
