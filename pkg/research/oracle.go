package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const (
	terminateMarker = "generate the final context"
	nextQueryMarker = "Next query:"

	reasoningMaxTokens = 300
)

const reasoningSystemPrompt = `You are a helpful assistant. Think step by step and explain your reasoning. Decide whether to act (perform a new search) or reason with the given information.
If more searching is needed, state the new search after "Next query:".
If the information is sufficient, say that we should generate the final context now.`

// DecisionSchema is appended to the reasoning system prompt so that providers
// in JSON mode return a structured decision.
func DecisionSchema() string {
	return `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "reasoning": {
      "type": "string",
      "description": "Step by step reasoning about the gathered information"
    },
    "action": {
      "type": "string",
      "enum": ["search", "synthesize"],
      "description": "search to perform a new search, synthesize to generate the final context now"
    },
    "next_query": {
      "type": "string",
      "description": "The next search query when action is search"
    }
  },
  "required": ["reasoning", "action"]
}`
}

type structuredDecision struct {
	Reasoning string `json:"reasoning"`
	Action    string `json:"action"`
	NextQuery string `json:"next_query"`
}

// Oracle asks a language model whether to keep searching or to synthesize.
type Oracle struct {
	LLM        llms.Model
	Logger     *slog.Logger
	Structured bool
}

func NewOracle(llm llms.Model) *Oracle {
	return &Oracle{LLM: llm, Logger: slog.Default(), Structured: true}
}

func reasoningPrompt(summary string) string {
	return fmt.Sprintf("Given the following information:\n\n%s\n\n"+
		"What should the next query be to find more detailed and relevant information? "+
		"Or should we generate the final context now?", summary)
}

// Decide never fails: an unavailable model results in ActionTerminate.
func (o *Oracle) Decide(ctx context.Context, summary string) Decision {
	system := reasoningSystemPrompt
	options := []llms.CallOption{llms.WithMaxTokens(reasoningMaxTokens)}
	if o.Structured {
		system += "\n\n# Response Format:\n\n" + DecisionSchema()
		options = append(options, llms.WithJSONMode())
	}

	output, err := generate(ctx, o.LLM, system, reasoningPrompt(summary), options...)
	if err != nil {
		o.logger().Error("Error during reasoning", "error", err)
		return Decision{Action: ActionTerminate}
	}

	d := ParseDecision(output)
	if d.Action == ActionTerminate && !isTerminateOutput(output) {
		o.logger().Warn("Reasoning output has no next query, terminating", "output", output)
	}
	return d
}

func (o *Oracle) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// ParseDecision interprets reasoning output. A JSON decision is used when
// present; otherwise the text is scanned for the terminate phrase and the
// "Next query:" marker. Output with neither terminates.
func ParseDecision(output string) Decision {
	if d, ok := parseStructured(output); ok {
		return d
	}
	if isTerminateOutput(output) {
		return Decision{Action: ActionTerminate, Raw: output}
	}
	i := strings.LastIndex(output, nextQueryMarker)
	if i < 0 {
		return Decision{Action: ActionTerminate, Raw: output}
	}
	next := strings.TrimSpace(output[i+len(nextQueryMarker):])
	if next == "" {
		return Decision{Action: ActionTerminate, Raw: output}
	}
	return Decision{Action: ActionContinue, NextQuery: next, Raw: output}
}

func isTerminateOutput(output string) bool {
	if sd, ok := decodeStructured(output); ok {
		return sd.Action == "synthesize"
	}
	return strings.Contains(strings.ToLower(output), terminateMarker)
}

func parseStructured(output string) (Decision, bool) {
	sd, ok := decodeStructured(output)
	if !ok {
		return Decision{}, false
	}
	if sd.Action == "synthesize" {
		return Decision{Action: ActionTerminate, Raw: output}, true
	}
	next := strings.TrimSpace(sd.NextQuery)
	if next == "" {
		return Decision{Action: ActionTerminate, Raw: output}, true
	}
	return Decision{Action: ActionContinue, NextQuery: next, Raw: output}, true
}

// decodeStructured reports ok only for a JSON object carrying a known action.
func decodeStructured(output string) (structuredDecision, bool) {
	trimmed := strings.TrimSpace(output)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if !strings.HasPrefix(trimmed, "{") {
		return structuredDecision{}, false
	}

	var sd structuredDecision
	if err := json.Unmarshal([]byte(trimmed), &sd); err != nil {
		return structuredDecision{}, false
	}
	sd.Action = strings.ToLower(strings.TrimSpace(sd.Action))
	if sd.Action != "search" && sd.Action != "synthesize" {
		return structuredDecision{}, false
	}
	return sd, true
}
