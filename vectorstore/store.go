// Package vectorstore persists embedded document chunks and answers
// nearest-neighbour queries filtered by exact-match metadata predicates.
//
// Every query must be scoped to a property: properties are mutually
// untrusted tenants of the same index, so an unscoped query is a contract
// violation, not a tuning concern. Entry IDs are assigned by the caller as
// "{document_id}_{ordinal}", which makes re-ingestion an in-place overwrite.
package vectorstore

import (
	"context"
	"errors"

	"pathway-backend/models"
)

var (
	// ErrLengthMismatch reports unequal parallel arrays passed to Upsert.
	// This is a programming error and fails loudly.
	ErrLengthMismatch = errors.New("ids, embeddings, metadatas and texts must be equal length")

	// ErrUnscopedQuery reports a query or listing without a property scope.
	ErrUnscopedQuery = errors.New("filter must scope by property id")
)

// ChunkMetadata is the metadata persisted alongside each entry.
type ChunkMetadata struct {
	DocumentID   string              `json:"document_id"`
	PropertyID   string              `json:"property_id"`
	DocumentType models.DocumentType `json:"document_type"`
	Section      string              `json:"section"`
	PageStart    int                 `json:"page_start"`
	PageEnd      int                 `json:"page_end"`
	ChunkType    models.ChunkType    `json:"chunk_type"`
}

// Filter is a conjunction of equality predicates over entry metadata.
// PropertyID is mandatory; the other fields narrow the scope when set.
type Filter struct {
	PropertyID   string
	DocumentID   string
	DocumentType models.DocumentType
}

// Matches reports whether the metadata satisfies every set predicate.
func (f Filter) Matches(m ChunkMetadata) bool {
	if m.PropertyID != f.PropertyID {
		return false
	}
	if f.DocumentID != "" && m.DocumentID != f.DocumentID {
		return false
	}
	if f.DocumentType != "" && m.DocumentType != f.DocumentType {
		return false
	}
	return true
}

// SearchResult is one retrieved entry, ordered by ascending cosine distance
// in query results.
type SearchResult struct {
	ID       string
	Text     string
	Metadata ChunkMetadata
	Distance float64
}

// VectorStore stores (vector, text, metadata) tuples and retrieves them by
// similarity or by metadata listing.
//
// Concurrent queries are always safe. Upsert/Delete on disjoint documents
// are safe to run concurrently; callers must serialise writes to the same
// document.
type VectorStore interface {
	// Upsert inserts or overwrites entries keyed by id. The four slices are
	// parallel arrays and must be equal length.
	Upsert(ctx context.Context, ids []string, embeddings [][]float64, metadatas []ChunkMetadata, texts []string) error

	// Query returns up to nResults entries matching the filter, ordered by
	// ascending cosine distance from the query embedding. Fewer (or zero)
	// results is a valid outcome.
	Query(ctx context.Context, queryEmbedding []float64, nResults int, filter Filter) ([]SearchResult, error)

	// List returns up to limit entries matching the filter without any
	// similarity ranking, in a stable order. truncated reports that more
	// matching entries exist beyond the limit.
	List(ctx context.Context, filter Filter, limit int) (results []SearchResult, truncated bool, err error)

	// Delete removes entries by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error
}
