package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// batchLimit is the maximum number of texts per batchEmbedContents call.
	batchLimit = 100
)

// GeminiEmbedder calls the Gemini embedding API. A missing API key, or any
// call failure, switches the embedder into fallback mode for the remainder
// of the process; the failure is logged once to avoid log storms.
type GeminiEmbedder struct {
	apiKey  string
	model   string
	baseURL string
	dims    int
	client  *http.Client
	logger  zerolog.Logger

	fallback   atomic.Bool
	logFailure sync.Once
	mock       *MockEmbedder
}

// GeminiOption configures a GeminiEmbedder.
type GeminiOption func(*GeminiEmbedder)

// GeminiWithBaseURL overrides the API endpoint, mainly for tests.
func GeminiWithBaseURL(url string) GeminiOption {
	return func(e *GeminiEmbedder) { e.baseURL = url }
}

// GeminiWithHTTPClient overrides the HTTP client.
func GeminiWithHTTPClient(c *http.Client) GeminiOption {
	return func(e *GeminiEmbedder) { e.client = c }
}

// NewGeminiEmbedder creates an embedder for the given model and
// dimensionality. An empty apiKey puts the embedder in fallback mode
// immediately.
func NewGeminiEmbedder(apiKey, model string, dims int, logger zerolog.Logger, opts ...GeminiOption) *GeminiEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	e := &GeminiEmbedder{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		dims:    dims,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		mock:    NewMockEmbedder(dims),
	}
	for _, opt := range opts {
		opt(e)
	}
	if apiKey == "" {
		e.fallback.Store(true)
	}
	return e
}

func (e *GeminiEmbedder) Dimensions() int { return e.dims }

// EmbedTexts embeds texts in batches of at most batchLimit, concatenating
// results in input order. Any failure degrades the whole call (and all
// subsequent calls) to the constant fallback vector.
func (e *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, bool) {
	if len(texts) == 0 {
		return nil, e.fallback.Load()
	}
	if e.fallback.Load() {
		return e.mock.EmbedTexts(ctx, texts)
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batchLimit {
		end := start + batchLimit
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[start:end], "RETRIEVAL_DOCUMENT")
		if err != nil {
			e.degrade(err)
			return e.mock.EmbedTexts(ctx, texts)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, false
}

// EmbedQuery embeds a single retrieval query.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, bool) {
	if e.fallback.Load() {
		return e.mock.EmbedQuery(ctx, text)
	}
	batch, err := e.embedBatch(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		e.degrade(err)
		return e.mock.EmbedQuery(ctx, text)
	}
	return batch[0], false
}

func (e *GeminiEmbedder) degrade(err error) {
	e.fallback.Store(true)
	e.logFailure.Do(func() {
		e.logger.Warn().Err(err).
			Str("model", e.model).
			Msg("embedding API unavailable, using fallback vectors for the remainder of the process")
	})
}

type embedContentRequest struct {
	Model                string       `json:"model"`
	Content              contentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

type contentInput struct {
	Parts []partInput `json:"parts"`
}

type partInput struct {
	Text string `json:"text"`
}

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// embedBatch performs one batchEmbedContents call. A single failed attempt
// is enough to degrade the embedder; the caller switches to the fallback
// vectors rather than retrying. Returned vectors are L2-normalised.
func (e *GeminiEmbedder) embedBatch(ctx context.Context, texts []string, taskType string) ([][]float64, error) {
	reqBody := batchEmbedRequest{Requests: make([]embedContentRequest, len(texts))}
	for i, t := range texts {
		reqBody.Requests[i] = embedContentRequest{
			Model:                "models/" + e.model,
			Content:              contentInput{Parts: []partInput{{Text: t}}},
			TaskType:             taskType,
			OutputDimensionality: e.dims,
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error: %d", resp.StatusCode)
	}

	var apiResp batchEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(apiResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Embeddings))
	}

	vectors := make([][]float64, len(texts))
	for i, emb := range apiResp.Embeddings {
		normalize(emb.Values)
		vectors[i] = emb.Values
	}
	return vectors, nil
}
