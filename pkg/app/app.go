// Package app wires configuration into a ready research engine.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikeboe/react-research/pkg/clients"
	"github.com/mikeboe/react-research/pkg/config"
	"github.com/mikeboe/react-research/pkg/database"
	"github.com/mikeboe/react-research/pkg/embeddings"
	"github.com/mikeboe/react-research/pkg/evidence"
	"github.com/mikeboe/react-research/pkg/research"
	"github.com/mikeboe/react-research/pkg/research/tools"
)

// NewEngine builds the searcher, evidence store and models named by cfg. db
// may be nil unless the pgvector backend is selected.
func NewEngine(ctx context.Context, cfg *config.Config, db *database.PostgresDB, logger *slog.Logger) (*research.ResearchEngine, error) {
	llm, err := clients.New(ctx, cfg.LLMProvider, cfg.ReasoningModel, cfg.APIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to init reasoning model: %w", err)
	}

	fastModel := cfg.FastModel
	if fastModel == "" {
		fastModel = string(clients.FastModelFor(cfg.LLMProvider))
	}
	fast, err := clients.New(ctx, cfg.LLMProvider, fastModel, cfg.APIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to init summary model: %w", err)
	}

	// Embeddings always come from Gemini, whatever the chat provider.
	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.Rag.EmbeddingModel, cfg.GoogleApiKey, cfg.Rag.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to init embedder: %w", err)
	}

	store, err := evidence.New(ctx, cfg.Rag, db, embedder, fast)
	if err != nil {
		return nil, fmt.Errorf("failed to init evidence store: %w", err)
	}

	searcher, err := tools.NewSearcher(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init searcher: %w", err)
	}

	engine := research.NewEngine(searcher, store, llm).WithLogger(logger)
	engine.Oracle.Structured = cfg.StructuredReasoning
	return engine, nil
}

// Defaults returns the loop settings configured for requests that leave them
// unset.
func Defaults(cfg *config.Config) research.Request {
	return research.Request{
		DesiredWords: cfg.DesiredWords,
		IterationCap: cfg.IterationCap,
		ResultCount:  cfg.ResultCount,
	}.WithDefaults()
}
