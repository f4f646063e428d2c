package server

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/react-research/pkg/research"
)

// Researcher runs a research session to completion.
type Researcher interface {
	Run(ctx context.Context, req research.Request) *research.Session
}

type ResearchContextArgs struct {
	Topic        string `json:"topic" jsonschema:"The topic to research."`
	UserInsights string `json:"user_insights,omitempty" jsonschema:"Additional focus or insights to steer the research."`
	DesiredWords int    `json:"desired_words,omitempty" jsonschema:"Approximate length of the generated context in words."`
	IterationCap int    `json:"iteration_cap,omitempty" jsonschema:"Maximum number of search rounds."`
}

type ResearchContextResp struct {
	Context  string `json:"context"`
	Rounds   int    `json:"rounds"`
	Evidence int    `json:"evidence"`
}

// NewMCPServer exposes the research loop as the research_context tool.
func NewMCPServer(r Researcher, defaults research.Request) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "react-research-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "research_context",
		Description: "Research a topic on the web and return a synthesized context passage of roughly the requested length.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args ResearchContextArgs) (*mcp.CallToolResult, ResearchContextResp, error) {
		if strings.TrimSpace(args.Topic) == "" {
			return nil, ResearchContextResp{}, ErrEmptyTopic
		}

		req := research.Request{
			Topic:        args.Topic,
			UserInsights: args.UserInsights,
			DesiredWords: args.DesiredWords,
			IterationCap: args.IterationCap,
			ResultCount:  defaults.ResultCount,
		}
		if req.DesiredWords <= 0 {
			req.DesiredWords = defaults.DesiredWords
		}
		if req.IterationCap <= 0 {
			req.IterationCap = defaults.IterationCap
		}

		s := r.Run(ctx, req)
		resp := ResearchContextResp{Context: s.Context, Rounds: len(s.Rounds), Evidence: len(s.Evidence)}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: s.Context}},
		}, resp, nil
	})

	return server
}
