// Package testutil holds deterministic stand-ins for the model services.
package testutil

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

// BagOfWordsEmbedder gives every distinct lower-cased word its own
// dimension, so similarity follows shared vocabulary.
type BagOfWordsEmbedder struct {
	Dim int
	Err error

	mu         sync.Mutex
	vocab      map[string]int
	QueryCalls int
	DocCalls   int
}

func NewBagOfWordsEmbedder() *BagOfWordsEmbedder {
	return &BagOfWordsEmbedder{Dim: 512, vocab: make(map[string]int)}
}

func (e *BagOfWordsEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.QueryCalls++
	if e.Err != nil {
		return nil, e.Err
	}
	return e.vector(text), nil
}

func (e *BagOfWordsEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.DocCalls++
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *BagOfWordsEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.QueryCalls + e.DocCalls
}

func (e *BagOfWordsEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.Dim)
	// dimension 0 keeps the vector non-zero for texts without words
	vec[0] = 0.001
	for _, w := range Words(text) {
		idx, ok := e.vocab[w]
		if !ok {
			idx = 1 + len(e.vocab)%(e.Dim-1)
			e.vocab[w] = idx
		}
		vec[idx]++
	}
	return vec
}

func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FakeGenerator records prompts and answers with a fixed reply.
type FakeGenerator struct {
	Reply string
	Err   error

	mu      sync.Mutex
	Calls   int
	Prompts []string
}

func (g *FakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Reply, nil
}

func (g *FakeGenerator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Prompts) == 0 {
		return ""
	}
	return g.Prompts[len(g.Prompts)-1]
}
