// Package service wires the document pipeline together: chunking OCR
// output, embedding the chunks, and keeping the vector index in sync.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pathway-backend/chunker"
	"pathway-backend/embedding"
	"pathway-backend/models"
	"pathway-backend/storage"
	"pathway-backend/vectorstore"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrMissingPropertyID = errors.New("property id is required")

// supersedeBatch bounds each listing pass while removing a document's
// previous chunks.
const supersedeBatch = 500

// DocumentIndexService ingests OCR'd documents into the vector index and
// serves retrieval over them.
type DocumentIndexService struct {
	embedder  embedding.Embedder
	store     vectorstore.VectorStore
	artifacts storage.Store
	chunkOpts chunker.Options
	logger    zerolog.Logger
}

// DocumentIndexServiceOption is a functional option for DocumentIndexService
type DocumentIndexServiceOption func(*DocumentIndexService)

// IndexWithEmbedder sets the embedding provider
func IndexWithEmbedder(e embedding.Embedder) DocumentIndexServiceOption {
	return func(s *DocumentIndexService) {
		s.embedder = e
	}
}

// IndexWithVectorStore sets the vector store
func IndexWithVectorStore(store vectorstore.VectorStore) DocumentIndexServiceOption {
	return func(s *DocumentIndexService) {
		s.store = store
	}
}

// IndexWithArtifactStore enables archiving of raw OCR payloads
func IndexWithArtifactStore(store storage.Store) DocumentIndexServiceOption {
	return func(s *DocumentIndexService) {
		s.artifacts = store
	}
}

// IndexWithChunkerOptions overrides the default chunking parameters
func IndexWithChunkerOptions(opts chunker.Options) DocumentIndexServiceOption {
	return func(s *DocumentIndexService) {
		s.chunkOpts = opts
	}
}

// IndexWithLogger sets the logger
func IndexWithLogger(logger zerolog.Logger) DocumentIndexServiceOption {
	return func(s *DocumentIndexService) {
		s.logger = logger
	}
}

// NewDocumentIndexService creates a new document index service
func NewDocumentIndexService(opts ...DocumentIndexServiceOption) *DocumentIndexService {
	s := &DocumentIndexService{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexRequest describes one document to ingest.
type IndexRequest struct {
	// PropertyID scopes the document; required.
	PropertyID string

	// DocumentID identifies the document. Generated when empty.
	DocumentID string

	DocumentType models.DocumentType

	OCR models.OCRResult

	// RawOCR, when set together with an artifact store, is archived
	// verbatim. Otherwise the OCR result is archived as JSON.
	RawOCR []byte
}

// IndexResult reports the outcome of an ingestion.
type IndexResult struct {
	DocumentID    string
	ChunksIndexed int

	// Degraded is true when mock embeddings were indexed.
	Degraded bool

	// Artifact is set when the raw OCR payload was archived.
	Artifact *storage.Artifact
}

// IndexDocument chunks, embeds and indexes a document. Re-ingesting a
// document id replaces all of its previous chunks.
func (s *DocumentIndexService) IndexDocument(ctx context.Context, req IndexRequest) (IndexResult, error) {
	if req.PropertyID == "" {
		return IndexResult{}, ErrMissingPropertyID
	}

	documentID := req.DocumentID
	if documentID == "" {
		documentID = uuid.NewString()
	}

	chunks := chunker.Chunk(req.OCR, req.DocumentType, s.chunkOpts)

	// Remove any chunks from a previous ingestion of this document before
	// writing the new set. This runs even when the new OCR yields nothing:
	// a re-ingested empty document must not leave stale chunks behind.
	if err := s.supersede(ctx, req.PropertyID, documentID); err != nil {
		return IndexResult{DocumentID: documentID}, err
	}

	if len(chunks) == 0 {
		s.logger.Info().
			Str("property_id", req.PropertyID).
			Str("document_id", documentID).
			Msg("document produced no chunks")
		return IndexResult{DocumentID: documentID}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, degraded := s.embedder.EmbedTexts(ctx, texts)

	ids := make([]string, len(chunks))
	metadatas := make([]vectorstore.ChunkMetadata, len(chunks))
	for i, c := range chunks {
		ids[i] = fmt.Sprintf("%s_%d", documentID, i)
		metadatas[i] = vectorstore.ChunkMetadata{
			DocumentID:   documentID,
			PropertyID:   req.PropertyID,
			DocumentType: req.DocumentType,
			Section:      c.Section,
			PageStart:    c.PageStart,
			PageEnd:      c.PageEnd,
			ChunkType:    c.ChunkType,
		}
	}

	if err := s.store.Upsert(ctx, ids, embeddings, metadatas, texts); err != nil {
		return IndexResult{DocumentID: documentID}, fmt.Errorf("failed to index chunks: %w", err)
	}

	result := IndexResult{
		DocumentID:    documentID,
		ChunksIndexed: len(chunks),
		Degraded:      degraded,
	}

	if s.artifacts != nil {
		artifact, err := s.archive(ctx, req, documentID)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("document_id", documentID).
				Msg("failed to archive OCR payload")
		} else {
			result.Artifact = &artifact
		}
	}

	s.logger.Info().
		Str("property_id", req.PropertyID).
		Str("document_id", documentID).
		Str("document_type", string(req.DocumentType)).
		Int("chunks", len(chunks)).
		Bool("degraded", degraded).
		Msg("document indexed")

	return result, nil
}

// supersede deletes every indexed chunk belonging to the document.
func (s *DocumentIndexService) supersede(ctx context.Context, propertyID, documentID string) error {
	filter := vectorstore.Filter{
		PropertyID: propertyID,
		DocumentID: documentID,
	}

	for {
		results, truncated, err := s.store.List(ctx, filter, supersedeBatch)
		if err != nil {
			return fmt.Errorf("failed to list existing chunks: %w", err)
		}
		if len(results) == 0 {
			return nil
		}

		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		if err := s.store.Delete(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete existing chunks: %w", err)
		}

		if !truncated {
			return nil
		}
	}
}

// archive stores the raw OCR payload alongside the index.
func (s *DocumentIndexService) archive(ctx context.Context, req IndexRequest, documentID string) (storage.Artifact, error) {
	payload := req.RawOCR
	if payload == nil {
		var err error
		payload, err = json.Marshal(req.OCR)
		if err != nil {
			return storage.Artifact{}, fmt.Errorf("failed to encode OCR result: %w", err)
		}
	}

	key := storage.OCRArtifactKey(req.PropertyID, documentID)
	return s.artifacts.Put(ctx, key, payload)
}

// SearchDocuments embeds the query and returns the closest chunks within
// the property, optionally narrowed to a single document.
func (s *DocumentIndexService) SearchDocuments(ctx context.Context, query, propertyID, documentID string, nResults int) ([]vectorstore.SearchResult, bool, error) {
	if propertyID == "" {
		return nil, false, ErrMissingPropertyID
	}

	queryEmbedding, degraded := s.embedder.EmbedQuery(ctx, query)

	results, err := s.store.Query(ctx, queryEmbedding, nResults, vectorstore.Filter{
		PropertyID: propertyID,
		DocumentID: documentID,
	})
	if err != nil {
		return nil, degraded, fmt.Errorf("search failed: %w", err)
	}

	return results, degraded, nil
}

// DocumentChunks lists indexed chunks matching the filter without any
// similarity ranking. The boolean reports whether the listing was cut
// off at max.
func (s *DocumentIndexService) DocumentChunks(ctx context.Context, propertyID, documentID string, docType models.DocumentType, max int) ([]vectorstore.SearchResult, bool, error) {
	if propertyID == "" {
		return nil, false, ErrMissingPropertyID
	}

	return s.store.List(ctx, vectorstore.Filter{
		PropertyID:   propertyID,
		DocumentID:   documentID,
		DocumentType: docType,
	}, max)
}

// DeleteDocument removes every indexed chunk for the document and its
// archived OCR payload, if any.
func (s *DocumentIndexService) DeleteDocument(ctx context.Context, propertyID, documentID string) error {
	if propertyID == "" {
		return ErrMissingPropertyID
	}

	if err := s.supersede(ctx, propertyID, documentID); err != nil {
		return err
	}

	if s.artifacts != nil {
		key := storage.OCRArtifactKey(propertyID, documentID)
		if err := s.artifacts.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).
				Str("document_id", documentID).
				Msg("failed to delete OCR artifact")
		}
	}

	return nil
}
