package research

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

var errNoChoices = errors.New("llm returned no choices")

// generate sends a system + user prompt pair and returns the first choice.
func generate(ctx context.Context, llm llms.Model, system, user string, options ...llms.CallOption) (string, error) {
	if llm == nil {
		return "", errors.New("no language model configured")
	}
	resp, err := llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}, options...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Content, nil
}
