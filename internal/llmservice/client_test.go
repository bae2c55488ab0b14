package llmservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"document-qa/internal/config"
	apperrors "document-qa/internal/pkg/errors"
)

type fakeModel struct {
	reply    string
	err      error
	block    bool
	calls    int
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == "" {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func testConfig() *config.LLMConfig {
	cfg := config.Default().InferenceLLM
	cfg.Timeout = 50 * time.Millisecond
	return &cfg
}

func TestGenerateSendsPromptWithTemperature(t *testing.T) {
	model := &fakeModel{reply: "The sky is blue."}
	g := NewGeneratorWithModel(model, testConfig())

	answer, err := g.Generate(context.Background(), "Question: what color is the sky?")
	require.NoError(t, err)
	require.Equal(t, "The sky is blue.", answer)
	require.Equal(t, 1, model.calls)
	require.Len(t, model.messages, 1)
	require.Equal(t, llms.ChatMessageTypeHuman, model.messages[0].Role)
	require.Equal(t, llms.TextContent{Text: "Question: what color is the sky?"}, model.messages[0].Parts[0])
	require.InDelta(t, 0.7, model.opts.Temperature, 1e-9)
}

func TestGenerateBackendErrorIsGenerationError(t *testing.T) {
	model := &fakeModel{err: errors.New("500 internal server error")}
	_, err := NewGeneratorWithModel(model, testConfig()).Generate(context.Background(), "p")
	require.True(t, apperrors.IsGenerationError(err))
	require.Equal(t, 1, model.calls)
}

func TestGenerateEmptyChoices(t *testing.T) {
	_, err := NewGeneratorWithModel(&fakeModel{}, testConfig()).Generate(context.Background(), "p")
	require.True(t, apperrors.IsGenerationError(err))
}

func TestGenerateTimesOutAndRetriesOnce(t *testing.T) {
	model := &fakeModel{block: true}
	_, err := NewGeneratorWithModel(model, testConfig()).Generate(context.Background(), "p")
	require.True(t, apperrors.IsGenerationError(err))
	require.Equal(t, 2, model.calls)
}

func TestNewLLMProviders(t *testing.T) {
	cfg := testConfig()
	_, err := NewGenerator(cfg)
	require.NoError(t, err)

	cfg.Provider = "cohere"
	_, err = NewGenerator(cfg)
	require.Error(t, err)
}
