package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReference(t *testing.T) {
	require.Equal(t, "notes.pdf p.3", Chunk{SourceFilename: "/docs/notes.pdf", PageNumber: 3, EndPageNumber: 3}.Reference())
	require.Equal(t, "notes.pdf p.3-4", Chunk{SourceFilename: "notes.pdf", PageNumber: 3, EndPageNumber: 4}.Reference())
}

func TestSourceListsDistinctReferencesInOrder(t *testing.T) {
	res := &PromptResponse{Sources: []SearchResult{
		{Chunk: Chunk{SourceFilename: "b.pdf", PageNumber: 2, EndPageNumber: 2}},
		{Chunk: Chunk{SourceFilename: "a.pdf", PageNumber: 1, EndPageNumber: 2}},
		{Chunk: Chunk{SourceFilename: "b.pdf", PageNumber: 2, EndPageNumber: 2}},
	}}
	require.Equal(t, "b.pdf p.2\na.pdf p.1-2", res.Source())
	require.Empty(t, (&PromptResponse{}).Source())
}
