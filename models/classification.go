package models

// RiskLevel grades how significant a detected clause is for a purchaser.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
	RiskInfo   RiskLevel = "INFO"
)

// ClassificationResult is the outcome of evaluating one semantic query
// against one text. Results are derived per call, never persisted.
type ClassificationResult struct {
	Score       float64        `json:"score"`
	Query       string         `json:"query"`
	TextSnippet string         `json:"text_snippet"`
	IsMatch     bool           `json:"is_match"`
	Degraded    bool           `json:"degraded"`
	RawResponse map[string]any `json:"raw_response,omitempty"`
}

// BatchClassificationResult aggregates one query evaluated over many texts.
type BatchClassificationResult struct {
	Results      []ClassificationResult `json:"results"`
	Query        string                 `json:"query"`
	MatchCount   int                    `json:"match_count"`
	HighestScore float64                `json:"highest_score"`
	MatchedTexts []string               `json:"matched_texts"`
}

// ClauseMatch is a positive classification enriched with the template's
// human-readable metadata and the source chunk's page reference.
type ClauseMatch struct {
	TemplateName        string    `json:"clause_type"`
	TemplateDescription string    `json:"description"`
	RiskLevel           RiskLevel `json:"risk_level"`
	Score               float64   `json:"confidence"`
	TextSnippet         string    `json:"text_preview"`
	Category            string    `json:"category"`
	PageReference       string    `json:"page_reference,omitempty"`
}

// DocumentClassification aggregates clause matches across all chunks of one
// document. Built fresh on every classification run.
type DocumentClassification struct {
	DocumentType        DocumentType  `json:"document_type"`
	TotalChunksAnalyzed int           `json:"total_chunks_analyzed"`
	HighRiskMatches     []ClauseMatch `json:"high_risk_matches"`
	MediumRiskMatches   []ClauseMatch `json:"medium_risk_matches"`
	LowRiskMatches      []ClauseMatch `json:"low_risk_matches"`
	InfoMatches         []ClauseMatch `json:"info_matches"`
	AllMatches          []ClauseMatch `json:"all_matches"`

	CoolingOffWaived       bool `json:"cooling_off_waived"`
	HasHighRiskClauses     bool `json:"has_high_risk_clauses"`
	AsIsCondition          bool `json:"as_is_condition"`
	EarlyDepositRelease    bool `json:"early_deposit_release"`
	OwnerBuilderWorks      bool `json:"owner_builder_works"`
	MissingFinalInspection bool `json:"missing_final_inspection"`

	// Degraded reports that at least one classification call used the
	// lexical fallback instead of the live classifier.
	Degraded bool `json:"degraded"`
}

// RiskSummary returns the match count per risk level.
func (c *DocumentClassification) RiskSummary() map[RiskLevel]int {
	return map[RiskLevel]int{
		RiskHigh:   len(c.HighRiskMatches),
		RiskMedium: len(c.MediumRiskMatches),
		RiskLow:    len(c.LowRiskMatches),
		RiskInfo:   len(c.InfoMatches),
	}
}
