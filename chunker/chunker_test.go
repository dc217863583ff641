package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway-backend/models"
)

func legalOCR() models.OCRResult {
	return models.OCRResult{
		PageCount: 2,
		Pages: []models.OCRPage{
			{
				PageNumber: 1,
				Text: "CONTRACT OF SALE OF REAL ESTATE\n" +
					"Particulars of sale for the property at 12 Example Street.\n" +
					"1. Definitions\n" +
					"In this contract the vendor means the party selling the land.\n",
			},
			{
				PageNumber: 2,
				Text: "SCHEDULE 1\n" +
					"Register search statement and list of encumbrances affecting the land.\n",
			},
		},
	}
}

func TestChunkLegalSections(t *testing.T) {
	chunks := Chunk(legalOCR(), models.DocTypeSection32, Options{})

	require.Len(t, chunks, 3)

	assert.Equal(t, "Document Start", chunks[0].Section)
	assert.Equal(t, models.ChunkTypeLegalSection, chunks[0].ChunkType)
	assert.Contains(t, chunks[0].Text, "CONTRACT OF SALE")
	assert.Equal(t, 1, chunks[0].PageStart)

	assert.Equal(t, "1. Definitions", chunks[1].Section)
	assert.Contains(t, chunks[1].Text, "vendor means")
	assert.Equal(t, 1, chunks[1].PageStart)
	assert.Equal(t, 2, chunks[1].PageEnd)

	assert.Equal(t, "SCHEDULE 1", chunks[2].Section)
	assert.Equal(t, 2, chunks[2].PageStart)
	assert.Equal(t, 2, chunks[2].PageEnd)
}

func TestChunkHeadingOnFirstLine(t *testing.T) {
	ocr := models.OCRResult{
		PageCount: 1,
		Pages: []models.OCRPage{
			{
				PageNumber: 1,
				Text: "1. Title\n" +
					"The vendor sells the land described in the register search statement.\n" +
					"2. Easements\n" +
					"A sewerage easement two metres wide burdens the lot.\n",
			},
		},
	}

	chunks := Chunk(ocr, models.DocTypeSection32, Options{})

	require.Len(t, chunks, 2)
	assert.Equal(t, "1. Title", chunks[0].Section)
	assert.Contains(t, chunks[0].Text, "register search statement")
	assert.Equal(t, "2. Easements", chunks[1].Section)
	assert.Contains(t, chunks[1].Text, "sewerage easement")
}

func TestChunkLegalSectionOrder(t *testing.T) {
	chunks := Chunk(legalOCR(), models.DocTypeContractNSW, Options{})

	require.NotEmpty(t, chunks)
	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, chunks[i].PageStart, chunks[i-1].PageStart)
	}
}

func TestChunkLegalSizeSplit(t *testing.T) {
	line := "The vendor discloses the matters required under the applicable legislation."
	text := "1. Disclosures\n"
	for i := 0; i < 10; i++ {
		text += line + "\n"
	}

	ocr := models.OCRResult{
		PageCount: 1,
		Pages:     []models.OCRPage{{PageNumber: 1, Text: text}},
	}

	opts := Options{MaxChunkSize: 200, Overlap: 40}
	chunks := Chunk(ocr, models.DocTypeSection32, opts)

	require.Greater(t, len(chunks), 1)

	var parts int
	for _, c := range chunks {
		if c.ChunkType == models.ChunkTypeLegalSectionPart {
			parts++
			assert.LessOrEqual(t, len(c.Text), opts.MaxChunkSize)
		}
	}
	assert.Greater(t, parts, 0)
}

func TestChunkMultibyteTextStaysValid(t *testing.T) {
	heading := "1. Propriétaire " + strings.Repeat("é", 60)
	body := strings.Repeat("département précédé réglementé ", 40)

	ocr := models.OCRResult{
		PageCount: 1,
		Pages: []models.OCRPage{
			{PageNumber: 1, Text: heading + "\n" + body},
		},
	}

	chunks := Chunk(ocr, models.DocTypeSection32, Options{MaxChunkSize: 200, Overlap: 40})
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text), "chunk text split a rune: %q", c.Text)
		assert.True(t, utf8.ValidString(c.Section))
		assert.LessOrEqual(t, len(c.Section), 100)
	}
}

func TestChunkGenericMultibyteSplit(t *testing.T) {
	ocr := models.OCRResult{
		PageCount: 1,
		Pages: []models.OCRPage{
			{PageNumber: 1, Text: strings.Repeat("é", 300)},
		},
	}

	chunks := Chunk(ocr, models.DocumentType("Other"), Options{MaxChunkSize: 101, Overlap: 21})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text), "chunk text split a rune: %q", c.Text)
	}
}

func TestChunkContentCoverage(t *testing.T) {
	var page1, page2 strings.Builder
	page1.WriteString("1. Vendor Obligations\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&page1, "The vendor must provide disclosure item %02d before the settlement day.\n", i)
	}
	page2.WriteString("2. Purchaser Obligations\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&page2, "The purchaser must complete contract step %02d before the settlement day.\n", i)
	}

	ocr := models.OCRResult{
		PageCount: 2,
		Pages: []models.OCRPage{
			{PageNumber: 1, Text: page1.String()},
			{PageNumber: 2, Text: page2.String()},
		},
	}

	chunks := Chunk(ocr, models.DocTypeSection32, Options{MaxChunkSize: 180, Overlap: 40})
	require.Greater(t, len(chunks), 3)

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Text)
		joined.WriteString("\n")
	}
	all := joined.String()

	// Every input line survives into at least one chunk; splitting may
	// duplicate text across overlaps but never drops it.
	for _, pageText := range []string{page1.String(), page2.String()} {
		for _, line := range strings.Split(pageText, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			assert.Contains(t, all, line)
		}
	}
}

func TestChunkStrataSections(t *testing.T) {
	ocr := models.OCRResult{
		PageCount: 1,
		Pages: []models.OCRPage{
			{
				PageNumber: 1,
				Text: "Owners Corporation Certificate for Lot 7.\n" +
					"ANNUAL GENERAL MEETING\n" +
					"Held on 14 March at the community hall.\n" +
					"MOTION 1\n" +
					"That the capital works levy be increased by 12 percent. Carried.\n" +
					"INSURANCE\n" +
					"Building sum insured of two million dollars with ABC Insurance.\n",
			},
		},
	}

	chunks := Chunk(ocr, models.DocTypeStrataReport, Options{})

	require.Len(t, chunks, 4)
	assert.Equal(t, "Strata Document", chunks[0].Section)
	assert.Equal(t, "ANNUAL GENERAL MEETING", chunks[1].Section)
	assert.Equal(t, "MOTION 1", chunks[2].Section)
	assert.Equal(t, "INSURANCE", chunks[3].Section)

	for _, c := range chunks {
		assert.Equal(t, models.ChunkTypeStrataSection, c.ChunkType)
	}
}

func TestChunkGenericPerPage(t *testing.T) {
	ocr := models.OCRResult{
		PageCount: 2,
		Pages: []models.OCRPage{
			{PageNumber: 1, Text: "Roof cavity inspected, no visible defects."},
			{PageNumber: 2, Text: "Subfloor showed minor moisture staining."},
		},
	}

	chunks := Chunk(ocr, models.DocTypeBuildingInspection, Options{})

	require.Len(t, chunks, 2)
	assert.Equal(t, "Page 1", chunks[0].Section)
	assert.Equal(t, "Page 2", chunks[1].Section)
	for i, c := range chunks {
		assert.Equal(t, models.ChunkTypePage, c.ChunkType)
		assert.Equal(t, i+1, c.PageStart)
		assert.Equal(t, i+1, c.PageEnd)
	}
}

func TestChunkGenericSkipsBlankPages(t *testing.T) {
	ocr := models.OCRResult{
		PageCount: 3,
		Pages: []models.OCRPage{
			{PageNumber: 1, Text: "Termite barrier installed."},
			{PageNumber: 2, Text: "   \n  "},
			{PageNumber: 3, Text: "No active infestation found."},
		},
	}

	chunks := Chunk(ocr, models.DocTypePestInspection, Options{})

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 3, chunks[1].PageStart)
}

func TestChunkGenericOversizedPage(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString("Observation: the east wall cladding shows hairline cracking near the window frame.\n\n")
	}

	ocr := models.OCRResult{
		PageCount: 1,
		Pages:     []models.OCRPage{{PageNumber: 1, Text: sb.String()}},
	}

	opts := Options{MaxChunkSize: 250, Overlap: 50}
	chunks := Chunk(ocr, models.DocTypeBuildingInspection, opts)

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "Page 1 (Part 1)", chunks[0].Section)
	for _, c := range chunks {
		assert.Equal(t, models.ChunkTypePagePart, c.ChunkType)
		assert.LessOrEqual(t, len(c.Text), opts.MaxChunkSize)
		assert.Equal(t, 1, c.PageStart)
		assert.Equal(t, 1, c.PageEnd)
	}
}

func TestChunkGenericProgressWithLargeOverlap(t *testing.T) {
	text := strings.Repeat("x", 35)
	ocr := models.OCRResult{
		PageCount: 1,
		Pages:     []models.OCRPage{{PageNumber: 1, Text: text}},
	}

	// Overlap wider than the window must not stall the splitter.
	chunks := Chunk(ocr, models.DocTypeBuildingInspection, Options{MaxChunkSize: 10, Overlap: 50})

	require.Len(t, chunks, 4)
	assert.Equal(t, strings.Repeat("x", 5), chunks[3].Text)
}

func TestChunkEmptyInput(t *testing.T) {
	for _, docType := range []models.DocumentType{
		models.DocTypeSection32,
		models.DocTypeStrataReport,
		models.DocTypeBuildingInspection,
	} {
		chunks := Chunk(models.OCRResult{}, docType, Options{})
		assert.Empty(t, chunks)
	}
}

func TestChunkDeterministic(t *testing.T) {
	first := Chunk(legalOCR(), models.DocTypeSection32, Options{})
	second := Chunk(legalOCR(), models.DocTypeSection32, Options{})
	assert.Equal(t, first, second)
}

func TestChunkLongHeadingTruncated(t *testing.T) {
	heading := "1. " + strings.Repeat("Very long heading without any full stops ", 5)
	ocr := models.OCRResult{
		PageCount: 1,
		Pages: []models.OCRPage{
			{PageNumber: 1, Text: "Preamble text before the heading.\n" + heading + "\nBody text.\n"},
		},
	}

	chunks := Chunk(ocr, models.DocTypeSection32, Options{})

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[1].Section, 100)
}
