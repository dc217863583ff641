package models

// Source cites one retrieved chunk that the answer relied on.
type Source struct {
	SourceNum   int    `json:"source_num"`
	Page        int    `json:"page"`
	Section     string `json:"section"`
	TextPreview string `json:"text"`
}

// Answer is the result of a retrieval-augmented question over a property's
// documents. Confidence is 0.0 when nothing relevant was retrieved, 0.5 for
// mock answers, and 0.4/0.7/0.9 for LLM answers depending on the model's
// self-reported confidence.
type Answer struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`

	// Degraded reports that the answer came from the mock path rather than
	// a live model completion.
	Degraded bool `json:"degraded"`
}
