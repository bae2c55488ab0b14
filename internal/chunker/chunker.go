package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"document-qa/internal/helper"
	"document-qa/internal/models"
)

// Chunker slides a fixed window of Size characters over each document,
// advancing by Size-Overlap characters per step.
type Chunker struct {
	Size    int
	Overlap int
}

func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{Size: size, Overlap: overlap}, nil
}

// pageSpan locates one page inside the joined document text
type pageSpan struct {
	number     int
	start, end int
}

type document struct {
	source string
	text   []rune
	pages  []pageSpan
}

// Split chunks all pages. Consecutive pages of the same source form one
// document whose page texts are joined with a newline.
func (c *Chunker) Split(pages []models.Page) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range groupDocuments(pages) {
		chunks = append(chunks, c.splitDocument(doc)...)
	}
	return chunks
}

func groupDocuments(pages []models.Page) []document {
	var docs []document
	for _, p := range pages {
		if len(docs) == 0 || docs[len(docs)-1].source != p.SourceFilename {
			docs = append(docs, document{source: p.SourceFilename})
		}
		d := &docs[len(docs)-1]
		if len(d.pages) > 0 {
			d.text = append(d.text, '\n')
		}
		start := len(d.text)
		d.text = append(d.text, []rune(p.Content)...)
		d.pages = append(d.pages, pageSpan{number: p.PageNumber, start: start, end: len(d.text)})
	}
	return docs
}

func (c *Chunker) splitDocument(doc document) []models.Chunk {
	n := len(doc.text)
	if strings.TrimSpace(string(doc.text)) == "" {
		return nil
	}
	step := c.Size - c.Overlap

	var chunks []models.Chunk
	for start := 0; ; start += step {
		end := min(start+c.Size, n)
		content := string(doc.text[start:end])
		ordinal := len(chunks) + 1
		first, last := doc.pageRange(start, end)
		chunks = append(chunks, models.Chunk{
			ID:             helper.StableID(doc.source, strconv.Itoa(ordinal), strconv.Itoa(start), content),
			Content:        content,
			SourceFilename: doc.source,
			PageNumber:     first,
			EndPageNumber:  last,
			ChunkID:        ordinal,
			Start:          start,
			End:            end,
		})
		if end == n {
			break
		}
	}
	return chunks
}

// pageRange returns the first and last page numbers touched by [start, end)
func (d document) pageRange(start, end int) (int, int) {
	first, last := 0, 0
	for _, p := range d.pages {
		// the joining newline belongs to no page, empty pages are skipped
		if p.end <= start || p.start >= end || p.start == p.end {
			continue
		}
		if first == 0 {
			first = p.number
		}
		last = p.number
	}
	if first == 0 {
		// window made only of separators, attribute it to the page before it
		for _, p := range d.pages {
			if p.start <= start {
				first = p.number
			}
		}
		last = first
	}
	return first, last
}

// Reconstruct rebuilds the text of one document from its chunks: the first
// chunk is taken whole, every following chunk contributes what comes after
// its leading overlap.
func Reconstruct(chunks []models.Chunk, overlap int) string {
	var content strings.Builder
	for i, chunk := range chunks {
		r := []rune(chunk.Content)
		if i > 0 {
			r = r[min(overlap, len(r)):]
		}
		content.WriteString(string(r))
	}
	return content.String()
}

// BySource groups chunks per document, keeping their order
func BySource(chunks []models.Chunk) map[string][]models.Chunk {
	out := make(map[string][]models.Chunk)
	for _, ch := range chunks {
		out[ch.SourceFilename] = append(out[ch.SourceFilename], ch)
	}
	return out
}
