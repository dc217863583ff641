// Package rag answers natural-language questions about a property's
// documents, grounded strictly in retrieved chunk text, with source
// citations and a confidence estimate.
package rag

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"pathway-backend/embedding"
	"pathway-backend/llm"
	"pathway-backend/models"
	"pathway-backend/vectorstore"
)

const (
	// topKDocument is the retrieval depth for single-document questions.
	topKDocument = 5
	// topKProperty is the retrieval depth for property-wide questions.
	topKProperty = 10

	previewLen = 200

	confidenceHigh    = 0.9
	confidenceDefault = 0.7
	confidenceLow     = 0.4
	confidenceMock    = 0.5
)

var sourceRef = regexp.MustCompile(`\[Source (\d+)\]`)

// Engine retrieves relevant chunks and asks the completion provider to
// answer from them. Each call is stateless; no conversation history is
// kept.
type Engine struct {
	embedder embedding.Embedder
	store    vectorstore.VectorStore
	provider llm.CompletionProvider
	logger   zerolog.Logger

	logStoreFailure sync.Once
	logLLMFailure   sync.Once
}

// NewEngine creates a RAG engine. provider may be nil, in which case every
// answer uses the deterministic mock path.
func NewEngine(embedder embedding.Embedder, store vectorstore.VectorStore, provider llm.CompletionProvider, logger zerolog.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// Request identifies the question and its retrieval scope. PropertyID is
// mandatory; DocumentID narrows retrieval to one document; DocumentTypes
// post-filters retrieved chunks.
type Request struct {
	Question      string
	PropertyID    string
	DocumentID    string
	DocumentTypes []models.DocumentType
}

// Answer runs the full retrieve-and-generate pipeline. It only returns an
// error on contract violations (missing property scope); provider outages
// surface as a degraded answer, never as an error.
func (e *Engine) Answer(ctx context.Context, req Request) (*models.Answer, error) {
	if req.PropertyID == "" {
		return nil, vectorstore.ErrUnscopedQuery
	}

	queryEmbedding, embDegraded := e.embedder.EmbedQuery(ctx, req.Question)

	n := topKProperty
	if req.DocumentID != "" {
		n = topKDocument
	}

	chunks, err := e.store.Query(ctx, queryEmbedding, n, vectorstore.Filter{
		PropertyID: req.PropertyID,
		DocumentID: req.DocumentID,
	})
	if err != nil {
		e.logStoreFailure.Do(func() {
			e.logger.Warn().Err(err).Msg("vector store unavailable, answering from empty context")
		})
		chunks = nil
	}

	if len(req.DocumentTypes) > 0 {
		chunks = filterByType(chunks, req.DocumentTypes)
	}

	if len(chunks) == 0 {
		return &models.Answer{
			Answer:     notFoundAnswer(req.DocumentID != ""),
			Sources:    []models.Source{},
			Confidence: 0.0,
			Degraded:   embDegraded,
		}, nil
	}

	prompt := buildPrompt(req.Question, formatContext(chunks))

	if e.provider == nil {
		return mockAnswer(chunks), nil
	}

	response, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		e.logLLMFailure.Do(func() {
			e.logger.Warn().Err(err).Msg("completion provider failed, returning mock answer")
		})
		return mockAnswer(chunks), nil
	}

	answer, confidence := parseResponse(response)
	return &models.Answer{
		Answer:     answer,
		Sources:    extractCitedSources(answer, chunks),
		Confidence: confidence,
		// Fallback query vectors retrieve by fixed similarity, not meaning,
		// so a live completion over them is still a degraded answer.
		Degraded: embDegraded,
	}, nil
}

func notFoundAnswer(singleDocument bool) string {
	if singleDocument {
		return "No relevant information found in the document."
	}
	return "No relevant information found in the documents."
}

func filterByType(chunks []vectorstore.SearchResult, types []models.DocumentType) []vectorstore.SearchResult {
	var kept []vectorstore.SearchResult
	for _, c := range chunks {
		for _, t := range types {
			if c.Metadata.DocumentType == t {
				kept = append(kept, c)
				break
			}
		}
	}
	return kept
}

// formatContext renders retrieved chunks as a numbered, cited context
// block. Source numbers are 1-indexed and match the citation format the
// prompt demands.
func formatContext(chunks []vectorstore.SearchResult) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		m := chunk.Metadata

		section := m.Section
		if section == "" {
			section = "Unknown Section"
		}
		docType := string(m.DocumentType)
		if docType == "" {
			docType = "Document"
		}

		pageRef := fmt.Sprintf("Page %d", m.PageStart)
		if m.PageEnd != m.PageStart {
			pageRef = fmt.Sprintf("Pages %d-%d", m.PageStart, m.PageEnd)
		}

		parts[i] = fmt.Sprintf("[Source %d] %s - %s (%s):\n%s", i+1, docType, section, pageRef, chunk.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func buildPrompt(question, context string) string {
	return fmt.Sprintf(`You are a senior Australian property conveyancer analyzing legal documents.

Based ONLY on the provided context, answer the following question.
If the information is not in the context, say "NOT FOUND in the provided documents."
Always cite the source number [Source X] for every claim you make.

CONTEXT:
%s

QUESTION:
%s

Provide a clear, concise answer with citations. Format:
ANSWER: [Your answer with [Source X] citations]
CONFIDENCE: [HIGH/MEDIUM/LOW based on how clearly the context answers the question]`, context, question)
}

// parseResponse extracts the ANSWER and CONFIDENCE sections. Responses
// without structured markers are returned whole at default confidence.
func parseResponse(response string) (string, float64) {
	answer := response
	confidence := confidenceDefault

	if _, after, found := strings.Cut(response, "ANSWER:"); found {
		answer = strings.TrimSpace(after)

		if body, conf, found := strings.Cut(answer, "CONFIDENCE:"); found {
			answer = strings.TrimSpace(body)
			conf = strings.ToUpper(strings.TrimSpace(conf))
			switch {
			case strings.Contains(conf, "HIGH"):
				confidence = confidenceHigh
			case strings.Contains(conf, "LOW"):
				confidence = confidenceLow
			default:
				confidence = confidenceDefault
			}
		}
	}

	return answer, confidence
}

// extractCitedSources returns the retrieved chunks the answer actually
// cites, reference-counted against the 1-indexed retrieval list.
func extractCitedSources(answer string, chunks []vectorstore.SearchResult) []models.Source {
	cited := make(map[int]bool)
	for _, match := range sourceRef.FindAllStringSubmatch(answer, -1) {
		if num, err := strconv.Atoi(match[1]); err == nil && num >= 1 && num <= len(chunks) {
			cited[num] = true
		}
	}

	nums := make([]int, 0, len(cited))
	for num := range cited {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	sources := make([]models.Source, 0, len(nums))
	for _, num := range nums {
		chunk := chunks[num-1]
		sources = append(sources, models.Source{
			SourceNum:   num,
			Page:        chunk.Metadata.PageStart,
			Section:     chunk.Metadata.Section,
			TextPreview: preview(chunk.Text, previewLen),
		})
	}
	return sources
}

// mockAnswer builds a deterministic answer from the top-ranked chunk when
// no completion provider is available.
func mockAnswer(chunks []vectorstore.SearchResult) *models.Answer {
	top := chunks[0]
	return &models.Answer{
		Answer: fmt.Sprintf("[MOCK] Based on the document [Source 1], the relevant information is: '%s...'",
			truncate(top.Text, 100)),
		Sources: []models.Source{{
			SourceNum:   1,
			Page:        top.Metadata.PageStart,
			Section:     top.Metadata.Section,
			TextPreview: preview(top.Text, previewLen),
		}},
		Confidence: confidenceMock,
		Degraded:   true,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return truncate(s, n) + "..."
}
