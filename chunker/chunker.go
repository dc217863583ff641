// Package chunker splits OCR page output into logically bounded text
// segments. Legal documents are segmented at section headings, strata
// documents at meeting/agenda markers, and everything else per page.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"pathway-backend/models"
)

const (
	// DefaultMaxChunkSize bounds chunk length in characters. A chunk may
	// overshoot by up to one paragraph when no boundary exists in range.
	DefaultMaxChunkSize = 1500

	// DefaultOverlap is how many trailing characters of a size-split chunk
	// are re-included at the start of the next one.
	DefaultOverlap = 200

	// maxSectionLabel caps detected heading length when used as a label.
	maxSectionLabel = 100
)

// Options control chunk sizing. Zero values select the defaults.
type Options struct {
	MaxChunkSize int
	Overlap      int
}

func (o Options) withDefaults() Options {
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = DefaultMaxChunkSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	} else if o.Overlap == 0 {
		o.Overlap = DefaultOverlap
	}
	return o
}

// Heading patterns for legal documents: numbered headings ("1. Title",
// "1.1 Easements"), parts, schedules, special conditions and annexures.
var legalSectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\d+\.?\d*\s+[A-Z][^.]+`),
	regexp.MustCompile(`(?i)^PART\s+[A-Z]`),
	regexp.MustCompile(`(?i)^SCHEDULE\s+\d+`),
	regexp.MustCompile(`(?i)^Special Condition\s+\d+`),
	regexp.MustCompile(`(?i)^ANNEXURE\s+[A-Z]`),
}

// Heading patterns for strata/OC documents: meeting markers, agenda items,
// motions and resolutions, and the recurring fund/insurance/by-law sections.
var strataSectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^ANNUAL GENERAL MEETING`),
	regexp.MustCompile(`(?i)^EXTRAORDINARY GENERAL MEETING`),
	regexp.MustCompile(`(?i)^COMMITTEE MEETING`),
	regexp.MustCompile(`(?i)^AGENDA`),
	regexp.MustCompile(`(?i)^MINUTES`),
	regexp.MustCompile(`(?i)^FINANCIAL STATEMENTS?`),
	regexp.MustCompile(`(?i)^(SINKING FUND|CAPITAL WORKS FUND)`),
	regexp.MustCompile(`(?i)^INSURANCE`),
	regexp.MustCompile(`(?i)^(BY-?LAWS?|RULES)`),
	regexp.MustCompile(`(?i)^ITEM\s+\d+`),
	regexp.MustCompile(`(?i)^MOTION\s+\d+`),
	regexp.MustCompile(`(?i)^RESOLUTION\s+\d+`),
}

// Chunk splits an OCR result into ordered chunks using the strategy for the
// given document type. Unknown document types use the generic page strategy.
// Output order is document reading order; identical input always yields
// identical output. An empty result is a valid outcome, not an error.
func Chunk(ocr models.OCRResult, docType models.DocumentType, opts Options) []models.Chunk {
	opts = opts.withDefaults()

	switch docType {
	case models.DocTypeSection32, models.DocTypeContractNSW:
		return chunkBySections(ocr.Pages, opts, sectionConfig{
			patterns:        legalSectionPatterns,
			initialSection:  "Document Start",
			sectionType:     models.ChunkTypeLegalSection,
			sectionPartType: models.ChunkTypeLegalSectionPart,
		})
	case models.DocTypeStrataReport, models.DocTypeStrataAGMMinutes:
		return chunkBySections(ocr.Pages, opts, sectionConfig{
			patterns:        strataSectionPatterns,
			initialSection:  "Strata Document",
			sectionType:     models.ChunkTypeStrataSection,
			sectionPartType: models.ChunkTypeStrataSectionPart,
		})
	default:
		return chunkGeneric(ocr.Pages, opts)
	}
}

type sectionConfig struct {
	patterns        []*regexp.Regexp
	initialSection  string
	sectionType     models.ChunkType
	sectionPartType models.ChunkType
}

// chunkBySections scans line-by-line for heading patterns. A heading flushes
// the accumulated text under its detected section label; oversized sections
// are split at the nearest preceding paragraph boundary with overlap carried
// into the next chunk.
func chunkBySections(pages []models.OCRPage, opts Options, cfg sectionConfig) []models.Chunk {
	var chunks []models.Chunk

	currentSection := cfg.initialSection
	var current strings.Builder
	currentPage := 1
	lastPage := 1

	for _, page := range pages {
		pageNum := page.PageNumber
		if pageNum < 1 {
			pageNum = 1
		}
		lastPage = pageNum

		for _, line := range strings.Split(page.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if heading, ok := matchHeading(cfg.patterns, line); ok {
				// A heading with nothing accumulated yet still names the
				// section; it just has no prior chunk to flush.
				if current.Len() > 0 {
					chunks = append(chunks, models.Chunk{
						Text:      strings.TrimSpace(current.String()),
						Section:   currentSection,
						PageStart: currentPage,
						PageEnd:   pageNum,
						ChunkType: cfg.sectionType,
					})
					current.Reset()
				}

				currentSection = heading
				current.WriteString(line)
				current.WriteString("\n")
				currentPage = pageNum
				continue
			}

			current.WriteString(line)
			current.WriteString("\n")

			if current.Len() > opts.MaxChunkSize {
				text := current.String()
				split := splitPoint(text, opts.MaxChunkSize)

				chunks = append(chunks, models.Chunk{
					Text:      strings.TrimSpace(text[:split]),
					Section:   currentSection,
					PageStart: currentPage,
					PageEnd:   pageNum,
					ChunkType: cfg.sectionPartType,
				})

				carry := runeSafeCut(text, split-opts.Overlap)
				current.Reset()
				current.WriteString(text[carry:])
			}
		}
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		chunks = append(chunks, models.Chunk{
			Text:      rest,
			Section:   currentSection,
			PageStart: currentPage,
			PageEnd:   lastPage,
			ChunkType: cfg.sectionType,
		})
	}

	return chunks
}

// chunkGeneric produces one chunk per page, splitting oversized pages at
// paragraph boundaries with overlap.
func chunkGeneric(pages []models.OCRPage, opts Options) []models.Chunk {
	var chunks []models.Chunk

	for _, page := range pages {
		pageNum := page.PageNumber
		if pageNum < 1 {
			pageNum = 1
		}
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}

		if len(text) <= opts.MaxChunkSize {
			chunks = append(chunks, models.Chunk{
				Text:      text,
				Section:   fmt.Sprintf("Page %d", pageNum),
				PageStart: pageNum,
				PageEnd:   pageNum,
				ChunkType: models.ChunkTypePage,
			})
			continue
		}

		start := 0
		part := 1
		for start < len(text) {
			end := start + opts.MaxChunkSize
			if end >= len(text) {
				end = len(text)
			} else if boundary := strings.LastIndex(text[start:end], "\n\n"); boundary > 0 {
				end = start + boundary
			} else if safe := runeSafeCut(text, end); safe > start {
				end = safe
			}

			chunks = append(chunks, models.Chunk{
				Text:      strings.TrimSpace(text[start:end]),
				Section:   fmt.Sprintf("Page %d (Part %d)", pageNum, part),
				PageStart: pageNum,
				PageEnd:   pageNum,
				ChunkType: models.ChunkTypePagePart,
			})

			if end == len(text) {
				break
			}
			next := runeSafeCut(text, end-opts.Overlap)
			if next <= start {
				// Overlap would re-cover the whole window; advance without
				// it so the loop always makes progress.
				next = end
			}
			start = next
			part++
		}
	}

	return chunks
}

func matchHeading(patterns []*regexp.Regexp, line string) (string, bool) {
	for _, p := range patterns {
		if p.MatchString(line) {
			if len(line) > maxSectionLabel {
				return line[:runeSafeCut(line, maxSectionLabel)], true
			}
			return line, true
		}
	}
	return "", false
}

// splitPoint finds where to cut an oversized accumulation: the nearest
// preceding paragraph break, then any line break, then a hard cut.
func splitPoint(text string, max int) int {
	if p := strings.LastIndex(text[:max], "\n\n"); p > 0 {
		return p
	}
	if p := strings.LastIndex(text[:max], "\n"); p > 0 {
		return p
	}
	if c := runeSafeCut(text, max); c > 0 {
		return c
	}
	return max
}

// runeSafeCut returns the largest index <= n that falls on a rune
// boundary of s, so slicing at it never splits a multi-byte rune.
func runeSafeCut(s string, n int) int {
	if n <= 0 {
		return 0
	}
	if n >= len(s) {
		return len(s)
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
