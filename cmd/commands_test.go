package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/chunker"
	"document-qa/internal/models"
	"document-qa/internal/session"
)

type echoAsker struct{}

func (echoAsker) Ask(_ context.Context, q string) (*models.PromptResponse, error) {
	return &models.PromptResponse{Query: q, Content: "answer to " + q}, nil
}

func TestREPLAnswersUntilExit(t *testing.T) {
	sess := session.New(echoAsker{}, nil)
	in := strings.NewReader("first\n\nsecond\nexit\nnever\n")
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), sess, in, &out))
	assert.Contains(t, out.String(), "answer to first")
	assert.Contains(t, out.String(), models.PromptForInput)
	assert.Contains(t, out.String(), "answer to second")
	assert.NotContains(t, out.String(), "never")
	assert.Equal(t, 2, sess.History().Len())
}

func TestREPLStopsAtEOF(t *testing.T) {
	sess := session.New(echoAsker{}, nil)
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), sess, strings.NewReader("only"), &out))
	assert.Equal(t, 1, sess.History().Len())
}

func TestCheckChunks(t *testing.T) {
	c, err := chunker.New(20, 5)
	require.NoError(t, err)
	chunks := c.Split([]models.Page{
		{SourceFilename: "a.txt", PageNumber: 1, Content: "The sky is blue. Grass is green."},
		{SourceFilename: "b.txt", PageNumber: 1, Content: "Short."},
	})
	require.NoError(t, checkChunks(chunks, 5))

	chunks[0].Content = "cut"
	require.Error(t, checkChunks(chunks, 5))
}
