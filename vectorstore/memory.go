package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

type memoryEntry struct {
	id       string
	vector   []float64
	text     string
	metadata ChunkMetadata
}

// MemoryStore is a brute-force cosine-distance store used when no database
// is configured and in tests. Entries live in process memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Upsert(_ context.Context, ids []string, embeddings [][]float64, metadatas []ChunkMetadata, texts []string) error {
	if len(ids) != len(embeddings) || len(ids) != len(metadatas) || len(ids) != len(texts) {
		return ErrLengthMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		s.entries[id] = memoryEntry{
			id:       id,
			vector:   embeddings[i],
			text:     texts[i],
			metadata: metadatas[i],
		}
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, queryEmbedding []float64, nResults int, filter Filter) ([]SearchResult, error) {
	if filter.PropertyID == "" {
		return nil, ErrUnscopedQuery
	}
	if nResults <= 0 {
		nResults = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for _, e := range s.entries {
		if !filter.Matches(e.metadata) {
			continue
		}
		results = append(results, SearchResult{
			ID:       e.id,
			Text:     e.text,
			Metadata: e.metadata,
			Distance: cosineDistance(queryEmbedding, e.vector),
		})
	}

	// Ties broken by id so results are deterministic, which matters when
	// every stored vector is the degraded constant.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > nResults {
		results = results[:nResults]
	}
	return results, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter, limit int) ([]SearchResult, bool, error) {
	if filter.PropertyID == "" {
		return nil, false, ErrUnscopedQuery
	}
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for _, e := range s.entries {
		if !filter.Matches(e.metadata) {
			continue
		}
		results = append(results, SearchResult{
			ID:       e.id,
			Text:     e.text,
			Metadata: e.metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Metadata.DocumentID != results[j].Metadata.DocumentID {
			return results[i].Metadata.DocumentID < results[j].Metadata.DocumentID
		}
		return results[i].ID < results[j].ID
	})

	truncated := len(results) > limit
	if truncated {
		results = results[:limit]
	}
	return results, truncated, nil
}

func (s *MemoryStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

// Len reports how many entries the store holds.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cosineDistance is 1 - cosine similarity. Vectors with zero norm are
// maximally distant from everything.
func cosineDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, x := range a {
		normA += x * x
	}
	for _, x := range b {
		normB += x * x
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
