// Package embedding maps text to dense vectors for similarity retrieval.
//
// Providers never fail outward: when no credential is configured, or the
// first live call fails, they switch to a constant fallback vector for the
// remainder of the process and report the degraded mode to the caller.
package embedding

import (
	"context"
	"math"
)

// DefaultDimensions matches the gemini-embedding-001 configuration.
const DefaultDimensions = 768

// mockValue fills every component of the fallback vector. Retrieval over
// fallback vectors carries no semantic signal; callers must tolerate
// arbitrary-order results in this mode.
const mockValue = 0.1

// Embedder converts texts and queries into fixed-length dense vectors.
// The degraded result reports whether the fallback vector was used.
type Embedder interface {
	// EmbedTexts embeds a batch of document texts, preserving input order.
	EmbedTexts(ctx context.Context, texts []string) (vectors [][]float64, degraded bool)

	// EmbedQuery embeds a single retrieval query.
	EmbedQuery(ctx context.Context, text string) (vector []float64, degraded bool)

	// Dimensions is the fixed length of produced vectors.
	Dimensions() int
}

// MockEmbedder is the credential-free embedder: every input maps to the same
// constant vector. Used directly in tests and as the fallback inside the
// live provider.
type MockEmbedder struct {
	dims int
}

// NewMockEmbedder returns a mock embedder of the given dimensionality.
// Non-positive dims select DefaultDimensions.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &MockEmbedder{dims: dims}
}

func (m *MockEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float64, bool) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = mockVector(m.dims)
	}
	return vectors, true
}

func (m *MockEmbedder) EmbedQuery(_ context.Context, _ string) ([]float64, bool) {
	return mockVector(m.dims), true
}

func (m *MockEmbedder) Dimensions() int { return m.dims }

func mockVector(dims int) []float64 {
	v := make([]float64, dims)
	for i := range v {
		v[i] = mockValue
	}
	return v
}

// normalize scales a vector to unit length in place. Zero vectors are left
// untouched.
func normalize(v []float64) {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}
