package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedErrorsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("startup: %w", NewLoadError("notes.pdf", fs.ErrNotExist))
	require.True(t, IsLoadError(err))
	require.False(t, IsIndexError(err))
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Contains(t, err.Error(), "notes.pdf")

	var le *LoadError
	require.True(t, errors.As(err, &le))
	require.Equal(t, "notes.pdf", le.Path)
}

func TestIndexAndGenerationErrors(t *testing.T) {
	ie := NewIndexError("search", ErrEmptyIndex)
	require.True(t, IsIndexError(ie))
	require.ErrorIs(t, ie, ErrEmptyIndex)

	ge := NewGenerationError("llama3.1", errors.New("connection refused"))
	require.True(t, IsGenerationError(ge))
	require.False(t, IsIndexError(ge))
	require.Contains(t, ge.Error(), "llama3.1")
}
