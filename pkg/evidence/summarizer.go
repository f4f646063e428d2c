package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const summarySystemPrompt = "You are an expert Q&A system that is trusted around the world. Always answer the query using the provided context information, and not prior knowledge."

// Summarizer condenses retrieved chunks into an answer for a query.
type Summarizer struct {
	LLM       llms.Model
	MaxTokens int
}

func NewSummarizer(llm llms.Model) *Summarizer {
	return &Summarizer{LLM: llm, MaxTokens: 512}
}

// Summarize answers query from the given hits. With no hits it returns an
// empty string without calling the model.
func (s *Summarizer) Summarize(ctx context.Context, query string, hits []Hit) (string, error) {
	if len(hits) == 0 {
		return "", nil
	}
	if s == nil || s.LLM == nil {
		return formatHits(hits), nil
	}

	prompt := fmt.Sprintf(`Context information is below.
---------------------
%s
---------------------
Given the context information and not prior knowledge, answer the query.
Query: %s
Answer:`, formatHits(hits), query)

	var options []llms.CallOption
	if s.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(s.MaxTokens))
	}

	resp, err := s.LLM.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, summarySystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", fmt.Errorf("failed to summarize evidence: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("summary returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func formatHits(hits []Hit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		source := h.Source
		if source == "" {
			source = "unknown"
		}
		parts = append(parts, fmt.Sprintf("[Source]: %s\n[Content]: %s", source, h.Content))
	}
	return strings.Join(parts, "\n\n")
}
