package errors

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery   = errors.New("empty query")
	ErrEmptyIndex   = errors.New("index is empty")
	ErrNoCollection = errors.New("collection is not initialized")
	ErrUnsupported  = errors.New("unsupported file format")
)

// LoadError reports a source document that could not be read.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IndexError reports a failure of the embedding index (embedding the query included).
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// GenerationError reports a failed call to the language model backend.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate with %s: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewLoadError(path string, err error) error {
	return &LoadError{Path: path, Err: err}
}

func NewIndexError(op string, err error) error {
	return &IndexError{Op: op, Err: err}
}

func NewGenerationError(model string, err error) error {
	return &GenerationError{Model: model, Err: err}
}

func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

func IsIndexError(err error) bool {
	var ie *IndexError
	return errors.As(err, &ie)
}

func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

func IsEmptyQuery(err error) bool {
	return errors.Is(err, ErrEmptyQuery)
}
