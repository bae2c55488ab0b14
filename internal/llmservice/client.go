package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
	"document-qa/internal/helper"
	apperrors "document-qa/internal/pkg/errors"
)

// Generator turns a prompt into the model's answer
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type LLMGenerator struct {
	llm         llms.Model
	model       string
	temperature float64
	policy      helper.CallPolicy
}

// NewLLM creates the chat model client for the configured provider
func NewLLM(llmConfig *config.LLMConfig) (llms.Model, error) {
	switch llmConfig.Provider {
	case config.ProviderOllama:
		return ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", llmConfig.Provider)
	}
}

func NewGenerator(llmConfig *config.LLMConfig) (*LLMGenerator, error) {
	llm, err := NewLLM(llmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return NewGeneratorWithModel(llm, llmConfig), nil
}

func NewGeneratorWithModel(llm llms.Model, llmConfig *config.LLMConfig) *LLMGenerator {
	return &LLMGenerator{
		llm:         llm,
		model:       llmConfig.Model,
		temperature: llmConfig.Temperature,
		policy:      helper.CallPolicy{Timeout: llmConfig.Timeout, Retries: llmConfig.Retries},
	}
}

// Generate sends the prompt as a single human message and returns the first choice
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	msgContent := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	res, err := helper.Do(ctx, g.policy, "generate", func(ctx context.Context) (*llms.ContentResponse, error) {
		return GenerateContent(ctx, g.llm, msgContent, llms.WithTemperature(g.temperature))
	})
	if err != nil {
		return "", apperrors.NewGenerationError(g.model, err)
	}
	if res == nil || len(res.Choices) == 0 {
		return "", apperrors.NewGenerationError(g.model, errors.New("empty response from model"))
	}
	return res.Choices[0].Content, nil
}

// call llm
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	log.Debug().Int("messages", len(messages)).Msg("Generating content")
	return llm.GenerateContent(ctx, messages, options...)
}
