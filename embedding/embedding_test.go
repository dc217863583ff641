package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedderShape(t *testing.T) {
	mock := NewMockEmbedder(0)
	assert.Equal(t, DefaultDimensions, mock.Dimensions())

	vectors, degraded := mock.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.True(t, degraded)
	require.Len(t, vectors, 2)
	for _, v := range vectors {
		require.Len(t, v, DefaultDimensions)
		for _, x := range v {
			assert.Equal(t, 0.1, x)
		}
	}

	query, degraded := mock.EmbedQuery(context.Background(), "question")
	assert.True(t, degraded)
	assert.Len(t, query, DefaultDimensions)
}

func TestNormalize(t *testing.T) {
	v := []float64{3, 4}
	normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)

	zero := []float64{0, 0}
	normalize(zero)
	assert.Equal(t, []float64{0, 0}, zero)
}

func TestGeminiEmbedderNoKeyFallsBack(t *testing.T) {
	e := NewGeminiEmbedder("", "gemini-embedding-001", 4, zerolog.Nop())

	vectors, degraded := e.EmbedTexts(context.Background(), []string{"clause text"})
	assert.True(t, degraded)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float64{0.1, 0.1, 0.1, 0.1}, vectors[0])
}

func TestGeminiEmbedderLiveBatch(t *testing.T) {
	var gotTaskType string
	var gotCount int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req batchEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotCount = len(req.Requests)
		gotTaskType = req.Requests[0].TaskType

		resp := batchEmbedResponse{}
		for range req.Requests {
			resp.Embeddings = append(resp.Embeddings, struct {
				Values []float64 `json:"values"`
			}{Values: []float64{3, 4}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := NewGeminiEmbedder("test-key", "gemini-embedding-001", 2, zerolog.Nop(),
		GeminiWithBaseURL(server.URL))

	vectors, degraded := e.EmbedTexts(context.Background(), []string{"first", "second"})
	assert.False(t, degraded)
	assert.Equal(t, 2, gotCount)
	assert.Equal(t, "RETRIEVAL_DOCUMENT", gotTaskType)

	require.Len(t, vectors, 2)
	for _, v := range vectors {
		var norm float64
		for _, x := range v {
			norm += x * x
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	}

	_, degraded = e.EmbedQuery(context.Background(), "what easements exist")
	assert.False(t, degraded)
	assert.Equal(t, "RETRIEVAL_QUERY", gotTaskType)
}

func TestGeminiEmbedderDegradesAndStaysDegraded(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := NewGeminiEmbedder("bad-key", "gemini-embedding-001", 3, zerolog.Nop(),
		GeminiWithBaseURL(server.URL))

	// A single failed attempt degrades the embedder; no retries.
	vectors, degraded := e.EmbedTexts(context.Background(), []string{"text"})
	assert.True(t, degraded)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float64{0.1, 0.1, 0.1}, vectors[0])
	assert.Equal(t, 1, calls)

	// Subsequent calls skip the API entirely.
	_, degraded = e.EmbedQuery(context.Background(), "query")
	assert.True(t, degraded)
	assert.Equal(t, 1, calls)
}

func TestGeminiEmbedderEmptyInput(t *testing.T) {
	e := NewGeminiEmbedder("key", "gemini-embedding-001", 4, zerolog.Nop())

	vectors, degraded := e.EmbedTexts(context.Background(), nil)
	assert.Nil(t, vectors)
	assert.False(t, degraded)
}
