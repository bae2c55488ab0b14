package rag

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"document-qa/internal/llmservice"
	"document-qa/internal/models"
	apperrors "document-qa/internal/pkg/errors"
)

// Searcher is the part of the embedding index the retriever needs
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

type Retriever struct {
	index Searcher
	k     int
}

func NewRetriever(index Searcher, k int) *Retriever {
	if k <= 0 {
		k = models.DefaultTopK
	}
	return &Retriever{index: index, k: k}
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.SearchResult, error) {
	return r.index.Search(ctx, query, r.k)
}

type State int

const (
	Idle State = iota
	Processing
)

func (s State) String() string {
	if s == Processing {
		return "processing"
	}
	return "idle"
}

// Handler runs one query at a time through retrieve, compose and generate
type Handler struct {
	retriever *Retriever
	composer  *Composer
	generator llmservice.Generator

	mu    sync.Mutex
	state State
	// stateMu guards state so State() does not wait on a running query
	stateMu sync.RWMutex
}

func NewHandler(retriever *Retriever, composer *Composer, generator llmservice.Generator) *Handler {
	return &Handler{retriever: retriever, composer: composer, generator: generator}
}

func (h *Handler) State() State {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.state
}

func (h *Handler) setState(s State) {
	h.stateMu.Lock()
	h.state = s
	h.stateMu.Unlock()
}

// HandleUserQuery answers the query, or returns the prompt-for-input message
// for an empty one without touching any stage.
func (h *Handler) HandleUserQuery(ctx context.Context, query string) (string, error) {
	res, err := h.Ask(ctx, query)
	if apperrors.IsEmptyQuery(err) {
		return models.PromptForInput, nil
	}
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// Ask is HandleUserQuery returning the retrieved sources and prompt as well.
// An empty query yields ErrEmptyQuery.
func (h *Handler) Ask(ctx context.Context, query string) (*models.PromptResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.ErrEmptyQuery
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.setState(Processing)
	defer h.setState(Idle)

	started := time.Now()
	docs, err := h.retriever.Retrieve(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("Retrieval failed")
		return nil, err
	}

	prompt, err := h.composer.Compose(query, docs)
	if err != nil {
		return nil, err
	}

	answer, err := h.generator.Generate(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("Generation failed")
		return nil, err
	}

	log.Info().Int("sources", len(docs)).Dur("took", time.Since(started)).Msg("Answered query")
	return &models.PromptResponse{
		Query:   query,
		Prompt:  prompt,
		Sources: docs,
		Content: answer,
	}, nil
}
