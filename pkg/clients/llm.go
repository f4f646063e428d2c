package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrMissingAPIKey   = errors.New("missing api key")
)

// ModelType names a model of one of the supported providers.
type ModelType string

const (
	// DefaultModel is the default model to use if none is specified
	DefaultModel ModelType = "gemini-3-flash-preview"

	GPT41Mini ModelType = "gpt-4.1-mini"

	Claude4Sonnet ModelType = "claude-sonnet-4-20250514"
	Claude35Haiku ModelType = "claude-3-5-haiku-20241022"
)

const (
	ProviderGoogle    = "googleai"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultModelFor returns the model used when none is configured.
func DefaultModelFor(provider string) ModelType {
	switch provider {
	case ProviderOpenAI:
		return GPT41Mini
	case ProviderAnthropic:
		return Claude4Sonnet
	default:
		return DefaultModel
	}
}

// FastModelFor returns the model used for evidence summaries when no fast
// model is configured.
func FastModelFor(provider string) ModelType {
	if provider == ProviderAnthropic {
		return Claude35Haiku
	}
	return DefaultModelFor(provider)
}

// New creates a chat model for provider. An empty model selects the
// provider's default.
func New(ctx context.Context, provider, model, apiKey string) (llms.Model, error) {
	if provider == "" {
		provider = ProviderGoogle
	}
	if provider != ProviderGoogle && provider != ProviderOpenAI && provider != ProviderAnthropic {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, provider)
	}
	if model == "" {
		model = string(DefaultModelFor(provider))
	}

	var (
		llm llms.Model
		err error
	)
	switch provider {
	case ProviderOpenAI:
		llm, err = openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	case ProviderAnthropic:
		llm, err = anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(model))
	default:
		// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
		llm, err = googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	return llm, nil
}
