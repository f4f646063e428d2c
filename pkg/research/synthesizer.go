package research

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
)

const synthesisSystemPrompt = "You are a helpful assistant."

// tokensPerWord budgets the completion for the requested length. It is a
// ceiling, not an exact word count.
const tokensPerWord = 1.5

// Synthesizer writes the final context passage.
type Synthesizer struct {
	LLM    llms.Model
	Logger *slog.Logger
}

func NewSynthesizer(llm llms.Model) *Synthesizer {
	return &Synthesizer{LLM: llm, Logger: slog.Default()}
}

// MaxTokens returns the completion budget for a passage of words words.
func MaxTokens(words int) int {
	return int(float64(words) * tokensPerWord)
}

// Synthesize returns an empty string when the model call fails.
func (s *Synthesizer) Synthesize(ctx context.Context, summary string, words int) string {
	prompt := fmt.Sprintf("Using the following information, generate a context of around %d words:\n\n%s", words, summary)

	out, err := generate(ctx, s.LLM, synthesisSystemPrompt, prompt, llms.WithMaxTokens(MaxTokens(words)))
	if err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("Error during context generation", "error", err)
		return ""
	}
	return out
}
