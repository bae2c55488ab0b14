package embedding

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

// WrapLruCache caches query embeddings; document embeddings pass through.
func WrapLruCache(e embeddings.Embedder, size int, ttl time.Duration) embeddings.Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  embeddings.Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := l.cache.Get(text); ok {
		log.Debug().Int("chars", len(text)).Msg("Query embedding cache hit")
		return cloneEmbedding(cached), nil
	}
	res, err := l.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(text, cloneEmbedding(res))
	return res, nil
}

func (l *lruEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return l.next.EmbedDocuments(ctx, texts)
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
