package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coolingOffQuery = `{IS clause that "waives the purchaser cooling off period or statutory cooling off rights"}`

func fallbackClient() *Client {
	return NewClient("", "", "", zerolog.Nop())
}

func TestExtractKeywords(t *testing.T) {
	keywords := extractKeywords(`{IS clause that "requires vacant possession"}`)
	assert.Equal(t, []string{"requires", "vacant", "possession"}, keywords)

	keywords = extractKeywords(`{IS clause that "waives the cooling off period"}`)
	assert.NotContains(t, keywords, "the")
	assert.Contains(t, keywords, "waives")
	assert.Contains(t, keywords, "cooling")
}

func TestLexicalClassifyMatch(t *testing.T) {
	c := fallbackClient()

	result := c.Classify(context.Background(),
		"The purchaser waives the statutory cooling off period and all cooling off rights.",
		coolingOffQuery)

	assert.True(t, result.IsMatch)
	assert.True(t, result.Degraded)
	assert.Greater(t, result.Score, 0.5)
	assert.LessOrEqual(t, result.Score, 0.8)
	assert.Equal(t, true, result.RawResponse["_mock"])
}

func TestLexicalClassifyNoMatch(t *testing.T) {
	c := fallbackClient()

	result := c.Classify(context.Background(),
		"The garden shed at the rear of the property is painted green.",
		coolingOffQuery)

	assert.False(t, result.IsMatch)
	assert.True(t, result.Degraded)
	assert.Equal(t, 0.0, result.Score)
}

func TestSnippetMultibyteBoundary(t *testing.T) {
	c := fallbackClient()

	text := strings.Repeat("é", 300)
	result := c.Classify(context.Background(), text, coolingOffQuery)

	assert.True(t, utf8.ValidString(result.TextSnippet))
	assert.True(t, strings.HasSuffix(result.TextSnippet, "..."))
	assert.LessOrEqual(t, len(result.TextSnippet), 203)
}

func TestLexicalScoreCapped(t *testing.T) {
	c := fallbackClient()

	// A text containing every content word of the query hits the cap
	// exactly, never more.
	keywords := extractKeywords(coolingOffQuery)
	result := c.Classify(context.Background(), strings.Join(keywords, " "), coolingOffQuery)

	assert.InDelta(t, 0.8, result.Score, 1e-9)
}

func TestLexicalMonotonicity(t *testing.T) {
	c := fallbackClient()
	ctx := context.Background()

	none := c.Classify(ctx, "completely unrelated text", coolingOffQuery)
	some := c.Classify(ctx, "the cooling off period", coolingOffQuery)
	most := c.Classify(ctx, "waives the purchaser cooling off period and statutory rights", coolingOffQuery)

	assert.Less(t, none.Score, some.Score)
	assert.Less(t, some.Score, most.Score)
}

func TestClassifyLive(t *testing.T) {
	scores := []float64{0.92, 0.5}
	var call int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req universalRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "kanon-universal-classifier", req.Model)
		require.Len(t, req.Texts, 1)

		resp := universalResponse{}
		resp.Classifications = append(resp.Classifications, struct {
			Score float64 `json:"score"`
		}{Score: scores[call]})
		call++
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewClient("test-key", server.URL, "", zerolog.Nop())

	result := c.Classify(context.Background(), "clause text", "query")
	assert.True(t, result.IsMatch)
	assert.False(t, result.Degraded)
	assert.Equal(t, 0.92, result.Score)

	// A score exactly at the threshold is not a match.
	result = c.Classify(context.Background(), "clause text", "query")
	assert.False(t, result.IsMatch)
	assert.Equal(t, 0.5, result.Score)
}

func TestClassifyLiveFailureSwitchesToFallback(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient("test-key", server.URL, "", zerolog.Nop())

	result := c.Classify(context.Background(), "the cooling off period", coolingOffQuery)
	assert.True(t, result.Degraded)
	assert.Equal(t, 1, calls)

	// The fallback is sticky for the process lifetime.
	result = c.Classify(context.Background(), "another clause", coolingOffQuery)
	assert.True(t, result.Degraded)
	assert.Equal(t, 1, calls)
}

func TestBatchClassify(t *testing.T) {
	c := fallbackClient()

	batch := c.BatchClassify(context.Background(), []string{
		"The purchaser waives the statutory cooling off period and all cooling off rights.",
		"Settlement shall occur sixty days after the day of sale.",
	}, coolingOffQuery)

	assert.Equal(t, 1, batch.MatchCount)
	assert.Len(t, batch.Results, 2)
	assert.Len(t, batch.MatchedTexts, 1)
	assert.Greater(t, batch.HighestScore, 0.5)
}

func TestMultiQueryClassify(t *testing.T) {
	c := fallbackClient()

	results := c.MultiQueryClassify(context.Background(),
		"The purchaser waives the statutory cooling off period and all cooling off rights.",
		map[string]string{
			"cooling_off": coolingOffQuery,
			"finance":     `{IS clause that "makes the sale subject to finance approval"}`,
		})

	require.Len(t, results, 2)
	assert.True(t, results["cooling_off"].IsMatch)
	assert.False(t, results["finance"].IsMatch)
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, fallbackClient().IsConfigured())
	assert.True(t, NewClient("key", "", "", zerolog.Nop()).IsConfigured())
}
