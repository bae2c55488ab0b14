// Package session keeps the conversation of one interactive user.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
	apperrors "document-qa/internal/pkg/errors"
)

const (
	indexFailure      = "Sorry, I could not search the documents. Please try again."
	generationFailure = "Sorry, the language model did not answer. Please try again."
	genericFailure    = "Sorry, something went wrong while answering. Please try again."
	cancelledFailure  = "The question was cancelled."
)

// Asker is the query handler as seen by the interaction surfaces
type Asker interface {
	Ask(ctx context.Context, query string) (*models.PromptResponse, error)
}

// History is the in-memory record of a conversation, lost on restart
type History struct {
	mu      sync.RWMutex
	entries []models.HistoryEntry
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(e models.HistoryEntry) {
	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()
}

// Entries returns a copy, oldest first
func (h *History) Entries() []models.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

type Session struct {
	asker   Asker
	history *History
	now     func() time.Time
}

func New(asker Asker, history *History) *Session {
	if history == nil {
		history = NewHistory()
	}
	return &Session{asker: asker, history: history, now: time.Now}
}

func (s *Session) History() *History {
	return s.history
}

// Reply is what a surface shows for one turn
type Reply struct {
	Text    string
	Sources string
	Failed  bool
}

// Ask answers one turn. Failures become a user-visible message and are
// recorded like answers; empty questions get the prompt-for-input text and
// leave the history untouched.
func (s *Session) Ask(ctx context.Context, query string) Reply {
	if strings.TrimSpace(query) == "" {
		return Reply{Text: models.PromptForInput}
	}

	reply := s.answer(ctx, query)
	s.history.Append(models.HistoryEntry{
		User:   query,
		Bot:    reply.Text,
		Failed: reply.Failed,
		At:     s.now(),
	})
	return reply
}

func (s *Session) answer(ctx context.Context, query string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Query pipeline panicked")
			reply = Reply{Text: genericFailure, Failed: true}
		}
	}()

	res, err := s.asker.Ask(ctx, query)
	if errors.Is(err, apperrors.ErrEmptyQuery) {
		return Reply{Text: models.PromptForInput}
	}
	if err != nil {
		log.Warn().Err(err).Msg("Query failed")
		return Reply{Text: FailureMessage(err), Failed: true}
	}
	return Reply{Text: res.Content, Sources: res.Source()}
}

// FailureMessage maps a pipeline error to the text shown to the user
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return cancelledFailure
	case apperrors.IsIndexError(err):
		return indexFailure
	case apperrors.IsGenerationError(err):
		return generationFailure
	default:
		return genericFailure
	}
}
