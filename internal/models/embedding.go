package models

import (
	"strings"
	"time"
)

// Page is one page of extracted text
type Page struct {
	Content        string
	PageNumber     int
	SourceFilename string
}

// Chunk represents a window of document text with metadata
type Chunk struct {
	ID             string
	Content        string
	SourceFilename string
	PageNumber     int
	EndPageNumber  int
	ChunkID        int
	Start          int
	End            int
}

// ChunkEmbedding pairs a chunk with its embedding vector
type ChunkEmbedding struct {
	Chunk
	Embedding []float32
}

// SearchResult is a chunk returned by a similarity search
type SearchResult struct {
	Chunk
	Similarity float32
}

type PromptResponse struct {
	Query   string
	Prompt  string
	Sources []SearchResult
	Content string
}

// Source lists the distinct "file p.N" references of the retrieved chunks
func (r *PromptResponse) Source() string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range r.Sources {
		ref := s.Reference()
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return strings.Join(out, "\n")
}

type HistoryEntry struct {
	User   string    `json:"user"`
	Bot    string    `json:"bot"`
	Failed bool      `json:"failed"`
	At     time.Time `json:"at"`
}
