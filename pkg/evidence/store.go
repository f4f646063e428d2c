// Package evidence indexes evidence records and answers queries over them
// with a summary of the most relevant chunks.
package evidence

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/react-research/pkg/config"
	"github.com/mikeboe/react-research/pkg/database"
	"github.com/mikeboe/react-research/pkg/embeddings"
	"github.com/mikeboe/react-research/pkg/research"
	"github.com/mikeboe/react-research/pkg/splitter"
)

var ErrUnknownBackend = errors.New("unknown evidence backend")

// New returns the store selected by cfg.Backend. The pgvector backend needs
// db and is made ready with Ensure before it is returned.
func New(ctx context.Context, cfg *config.RagConfig, db *database.PostgresDB, embedder embeddings.Embedder, llm llms.Model) (research.EvidenceStore, error) {
	textSplitter := splitter.NewRecursiveCharacterTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	summarizer := NewSummarizer(llm)

	switch cfg.Backend {
	case "memory", "":
		return &MemoryStore{
			Embedder:   embedder,
			Summarizer: summarizer,
			Splitter:   textSplitter,
			TopK:       cfg.TopK,
		}, nil
	case "pgvector":
		if db == nil {
			return nil, errors.New("pgvector backend requires a database connection")
		}
		store, err := NewPGStore(db, cfg.CollectionName, cfg.EmbeddingDimension)
		if err != nil {
			return nil, err
		}
		store.Embedder = embedder
		store.Summarizer = summarizer
		store.Splitter = textSplitter
		store.TopK = cfg.TopK
		if err := store.Ensure(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
