package models

// ChunkType identifies which chunking strategy produced a chunk.
type ChunkType string

const (
	ChunkTypeLegalSection      ChunkType = "legal_section"
	ChunkTypeLegalSectionPart  ChunkType = "legal_section_part"
	ChunkTypeStrataSection     ChunkType = "strata_section"
	ChunkTypeStrataSectionPart ChunkType = "strata_section_part"
	ChunkTypePage              ChunkType = "page"
	ChunkTypePagePart          ChunkType = "page_part"
)

// DocumentType is the controlled vocabulary supplied by the document
// ingestion pipeline. Unknown values fall through to the generic
// page-based chunking strategy.
type DocumentType string

const (
	DocTypeSection32          DocumentType = "Section 32 Vendor Statement (VIC)"
	DocTypeContractNSW        DocumentType = "Contract for Sale (NSW)"
	DocTypeStrataReport       DocumentType = "Strata Report / OC Certificate"
	DocTypeStrataAGMMinutes   DocumentType = "Strata AGM Minutes"
	DocTypeBuildingInspection DocumentType = "Building Inspection Report"
	DocTypePestInspection     DocumentType = "Pest & Termite Inspection Report"
)

// Chunk is a contiguous span of document text produced during ingestion.
// Chunks are immutable; re-ingesting a document replaces its chunks rather
// than mutating them.
type Chunk struct {
	Text      string    `json:"text"`
	Section   string    `json:"section"`
	PageStart int       `json:"page_start"`
	PageEnd   int       `json:"page_end"`
	ChunkType ChunkType `json:"chunk_type"`
}

// OCRPage is one page of OCR output.
type OCRPage struct {
	PageNumber int      `json:"page_number"`
	Text       string   `json:"text"`
	Paragraphs []string `json:"paragraphs,omitempty"`
}

// OCRResult is the page-segmented output of the upstream OCR pipeline.
type OCRResult struct {
	PageCount int       `json:"page_count"`
	Pages     []OCRPage `json:"pages"`
	FullText  string    `json:"full_text,omitempty"`
}
