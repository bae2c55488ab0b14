package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/helper"
)

type policyClient struct {
	next   embeddings.EmbedderClient
	model  string
	policy helper.CallPolicy
}

// WithPolicy bounds every backend request of the client by the timeout and
// retry policy. The embedder batches above it, so each batch is one request.
func WithPolicy(client embeddings.EmbedderClient, model string, p helper.CallPolicy) embeddings.EmbedderClient {
	return &policyClient{next: client, model: model, policy: p}
}

func (p *policyClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := helper.Do(ctx, p.policy, "embed", func(ctx context.Context) ([][]float32, error) {
		return p.next.CreateEmbedding(ctx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts with %s: %w", len(texts), p.model, err)
	}
	return vecs, nil
}
