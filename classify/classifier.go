package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"pathway-backend/models"
)

// ClauseClassifier runs a template battery over a document's chunks and
// aggregates the matches into a DocumentClassification.
type ClauseClassifier struct {
	client *Client
	logger zerolog.Logger
}

// NewClauseClassifier creates a classifier over the given client.
func NewClauseClassifier(client *Client, logger zerolog.Logger) *ClauseClassifier {
	return &ClauseClassifier{client: client, logger: logger}
}

// Options control a classification run.
type Options struct {
	// IncludeInfoLevel keeps INFO-level templates in the battery; they are
	// excluded by default to cut classification volume.
	IncludeInfoLevel bool
}

// Classify evaluates every template against every chunk, in document
// reading order, and aggregates matches by risk level. A chunk/template
// pair is a match iff its score exceeds 0.5. Boolean flags are OR'd across
// all chunks: a later chunk can set a flag but never clear one.
func (c *ClauseClassifier) Classify(ctx context.Context, docType models.DocumentType, chunks []models.Chunk, templates []Template, opts Options) *models.DocumentClassification {
	if !opts.IncludeInfoLevel {
		templates = withoutInfoLevel(templates)
	}

	result := &models.DocumentClassification{
		DocumentType:        docType,
		TotalChunksAnalyzed: len(chunks),
	}

	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}

		pageRef := fmt.Sprintf("Page %d", chunk.PageStart)
		if chunk.Section != "" {
			pageRef = fmt.Sprintf("%s (%s)", chunk.Section, pageRef)
		}

		for _, match := range c.classifyChunk(ctx, chunk.Text, templates, pageRef, result) {
			c.record(result, match)
		}
	}

	return result
}

// ClassifySection32 classifies a Victorian Section 32 vendor statement.
func (c *ClauseClassifier) ClassifySection32(ctx context.Context, chunks []models.Chunk, opts Options) *models.DocumentClassification {
	return c.Classify(ctx, models.DocTypeSection32, chunks, Section32Templates(), opts)
}

// ClassifyContractNSW classifies a NSW contract for sale.
func (c *ClauseClassifier) ClassifyContractNSW(ctx context.Context, chunks []models.Chunk, opts Options) *models.DocumentClassification {
	return c.Classify(ctx, models.DocTypeContractNSW, chunks, ContractNSWTemplates(), opts)
}

// ClassifyStrata classifies a strata report or OC minutes.
func (c *ClauseClassifier) ClassifyStrata(ctx context.Context, chunks []models.Chunk, opts Options) *models.DocumentClassification {
	return c.Classify(ctx, models.DocTypeStrataReport, chunks, StrataTemplates(), opts)
}

// QuickRiskScan checks a single text against every HIGH-risk template and
// returns a template-name to matched map.
func (c *ClauseClassifier) QuickRiskScan(ctx context.Context, text string) map[string]bool {
	flags := make(map[string]bool)
	for _, t := range HighRiskTemplates() {
		flags[t.Name] = c.client.Classify(ctx, text, t.Query).IsMatch
	}
	return flags
}

func (c *ClauseClassifier) classifyChunk(ctx context.Context, text string, templates []Template, pageRef string, agg *models.DocumentClassification) []models.ClauseMatch {
	var matches []models.ClauseMatch
	for _, t := range templates {
		r := c.client.Classify(ctx, text, t.Query)
		if r.Degraded {
			agg.Degraded = true
		}
		if !r.IsMatch {
			continue
		}
		matches = append(matches, models.ClauseMatch{
			TemplateName:        t.Name,
			TemplateDescription: t.Description,
			RiskLevel:           t.RiskLevel,
			Score:               r.Score,
			TextSnippet:         r.TextSnippet,
			Category:            t.Category,
			PageReference:       pageRef,
		})
	}
	return matches
}

// record partitions a match by risk level and sets the named boolean flags.
func (c *ClauseClassifier) record(result *models.DocumentClassification, match models.ClauseMatch) {
	result.AllMatches = append(result.AllMatches, match)

	switch match.RiskLevel {
	case models.RiskHigh:
		result.HighRiskMatches = append(result.HighRiskMatches, match)
		result.HasHighRiskClauses = true
	case models.RiskMedium:
		result.MediumRiskMatches = append(result.MediumRiskMatches, match)
	case models.RiskLow:
		result.LowRiskMatches = append(result.LowRiskMatches, match)
	default:
		result.InfoMatches = append(result.InfoMatches, match)
	}

	switch match.TemplateName {
	case TemplateCoolingOffWaiver, TemplateSection66WWaiver:
		result.CoolingOffWaived = true
	case TemplateAsIsCondition:
		result.AsIsCondition = true
	case TemplateEarlyReleaseDeposit:
		result.EarlyDepositRelease = true
	case TemplateNoFinalInspection:
		result.MissingFinalInspection = true
	case TemplateOwnerBuilder:
		result.OwnerBuilderWorks = true
	}
}

func withoutInfoLevel(templates []Template) []Template {
	var out []Template
	for _, t := range templates {
		if t.RiskLevel != models.RiskInfo {
			out = append(out, t)
		}
	}
	return out
}
