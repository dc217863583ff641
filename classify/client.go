package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"pathway-backend/models"
)

const (
	// matchThreshold: a score above this is a positive match.
	matchThreshold = 0.5

	// lexicalScoreCap bounds the fallback heuristic so the mock path can
	// never claim as much confidence as a real classification.
	lexicalScoreCap = 0.8

	snippetLen = 200
)

// Client evaluates single-statement IQL queries against text via the
// Isaacus universal classification API.
//
// The client never fails outward: with no API key, or after the first call
// failure, it switches to a lexical keyword heuristic for the remainder of
// the process. The failure is logged once.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger

	fallback   atomic.Bool
	logFailure sync.Once
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates a classification client. An empty apiKey starts the
// client in lexical fallback mode.
func NewClient(apiKey, baseURL, model string, logger zerolog.Logger, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = "https://api.isaacus.com"
	}
	if model == "" {
		model = "kanon-universal-classifier"
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if apiKey == "" {
		c.fallback.Store(true)
	}
	return c
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool { return c.apiKey != "" }

type universalRequest struct {
	Model string   `json:"model"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type universalResponse struct {
	Classifications []struct {
		Score float64 `json:"score"`
	} `json:"classifications"`
}

// Classify evaluates one IQL query against one text. Always returns a
// structurally valid result; live failures degrade to the lexical
// heuristic.
func (c *Client) Classify(ctx context.Context, text, query string) models.ClassificationResult {
	if c.fallback.Load() {
		return c.lexicalClassify(text, query)
	}

	score, raw, err := c.classifyLive(ctx, text, query)
	if err != nil {
		c.fallback.Store(true)
		c.logFailure.Do(func() {
			c.logger.Warn().Err(err).
				Msg("classification API unavailable, using lexical fallback for the remainder of the process")
		})
		return c.lexicalClassify(text, query)
	}

	return models.ClassificationResult{
		Score:       score,
		Query:       query,
		TextSnippet: snippet(text),
		IsMatch:     score > matchThreshold,
		RawResponse: raw,
	}
}

func (c *Client) classifyLive(ctx context.Context, text, query string) (float64, map[string]any, error) {
	body, err := json.Marshal(universalRequest{
		Model: c.model,
		Query: query,
		Texts: []string{text},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/v1/classifications/universal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("classification API error: %d", resp.StatusCode)
	}

	var apiResp universalResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return 0, nil, fmt.Errorf("failed to decode response: %w", err)
	}

	score := 0.0
	if len(apiResp.Classifications) > 0 {
		score = apiResp.Classifications[0].Score
	}
	return score, map[string]any{"score": score}, nil
}

// BatchClassify evaluates one query against many texts and aggregates the
// results.
func (c *Client) BatchClassify(ctx context.Context, texts []string, query string) models.BatchClassificationResult {
	results := make([]models.ClassificationResult, 0, len(texts))
	var matched []string
	matchCount := 0
	highest := 0.0

	for _, text := range texts {
		r := c.Classify(ctx, text, query)
		results = append(results, r)
		if r.IsMatch {
			matchCount++
			matched = append(matched, r.TextSnippet)
		}
		if r.Score > highest {
			highest = r.Score
		}
	}

	return models.BatchClassificationResult{
		Results:      results,
		Query:        query,
		MatchCount:   matchCount,
		HighestScore: highest,
		MatchedTexts: matched,
	}
}

// MultiQueryClassify evaluates several labelled queries against one text.
func (c *Client) MultiQueryClassify(ctx context.Context, text string, queries map[string]string) map[string]models.ClassificationResult {
	results := make(map[string]models.ClassificationResult, len(queries))
	for label, query := range queries {
		results[label] = c.Classify(ctx, text, query)
	}
	return results
}

// lexicalClassify scores a text by the fraction of the query's content
// words it contains. Deliberately capped below the live classifier's
// ceiling so degraded matches carry less downstream weight.
func (c *Client) lexicalClassify(text, query string) models.ClassificationResult {
	keywords := extractKeywords(query)

	score := 0.0
	if len(keywords) > 0 {
		textLower := strings.ToLower(text)
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(textLower, strings.ToLower(kw)) {
				matches++
			}
		}
		frac := float64(matches) / float64(len(keywords))
		if frac > 1.0 {
			frac = 1.0
		}
		score = frac * lexicalScoreCap
	}

	return models.ClassificationResult{
		Score:       score,
		Query:       query,
		TextSnippet: snippet(text),
		IsMatch:     score > matchThreshold,
		Degraded:    true,
		RawResponse: map[string]any{"_mock": true, "keywords_matched": keywords},
	}
}

var (
	iqlTemplatePrefix = regexp.MustCompile(`\{IS\s+`)
	iqlBraces         = regexp.MustCompile(`[{}]`)
	iqlClauseThat     = regexp.MustCompile(`clause that\s+`)
	iqlQuotes         = regexp.MustCompile(`["']`)
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "that": true,
	"which": true, "or": true, "and": true, "of": true, "to": true,
	"in": true,
}

// extractKeywords strips IQL syntax and stopwords from a query, leaving
// the content words the lexical heuristic matches on.
func extractKeywords(query string) []string {
	cleaned := iqlTemplatePrefix.ReplaceAllString(query, "")
	cleaned = iqlBraces.ReplaceAllString(cleaned, "")
	cleaned = iqlClauseThat.ReplaceAllString(cleaned, "")
	cleaned = iqlQuotes.ReplaceAllString(cleaned, "")

	var keywords []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 2 && !stopwords[strings.ToLower(w)] {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

func snippet(text string) string {
	if len(text) <= snippetLen {
		return text
	}
	n := snippetLen
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n] + "..."
}
