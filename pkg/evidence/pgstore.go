package evidence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mikeboe/react-research/pkg/database"
	"github.com/mikeboe/react-research/pkg/embeddings"
	"github.com/mikeboe/react-research/pkg/research"
	"github.com/mikeboe/react-research/pkg/vectorstore"
)

const indexIDKey = "index_id"

// PGStore keeps evidence in a pgvector table. Each Build is tagged with its
// own index id so that concurrent sessions never see each other's rows.
type PGStore struct {
	DB         *database.PostgresDB
	Vectors    *vectorstore.PGVectorStore
	Embedder   embeddings.Embedder
	Summarizer *Summarizer
	Splitter   Splitter
	TopK       int
	Table      string
	Dimension  int
}

func NewPGStore(db *database.PostgresDB, table string, dimension int) (*PGStore, error) {
	vectors, err := vectorstore.NewPGVectorStore(db.Pool, table)
	if err != nil {
		return nil, err
	}
	return &PGStore{DB: db, Vectors: vectors, Table: table, Dimension: dimension}, nil
}

// Ensure creates the extension, table and indexes if they are missing. It is
// safe to call on every start.
func (s *PGStore) Ensure(ctx context.Context) error {
	if err := s.DB.EnsureVectorExtension(ctx); err != nil {
		return fmt.Errorf("failed to ensure vector extension: %w", err)
	}
	if err := s.DB.CreateEmbeddingsTable(ctx, s.Table, s.Dimension); err != nil {
		return err
	}
	return nil
}

func (s *PGStore) Build(ctx context.Context, records []research.EvidenceRecord) (research.EvidenceIndex, error) {
	chunks, err := chunkRecords(s.Splitter, records)
	if err != nil {
		return nil, err
	}
	idx := &pgIndex{store: s, id: uuid.NewString(), empty: len(chunks) == 0}
	if idx.empty {
		return idx, nil
	}

	vectors, err := s.Embedder.EmbedTexts(ctx, chunkContents(chunks))
	if err != nil {
		return nil, fmt.Errorf("failed to embed evidence: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(vectors))
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vectorstore.Document{
			Content: c.content,
			Metadata: map[string]interface{}{
				indexIDKey: idx.id,
				"source":   c.source,
				"title":    c.title,
			},
			Embedding: vectors[i],
		}
	}
	if err := s.Vectors.AddDocuments(ctx, docs); err != nil {
		return nil, err
	}
	return idx, nil
}

type pgIndex struct {
	store *PGStore
	id    string
	empty bool
}

func (i *pgIndex) Query(ctx context.Context, query string) (string, error) {
	if i.empty {
		return "", nil
	}

	qv, err := i.store.Embedder.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := i.store.Vectors.SimilaritySearch(ctx, qv, topK(i.store.TopK), i.filter())
	if err != nil {
		return "", err
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		h := Hit{Content: r.Document.Content, Score: r.Score}
		h.Source, _ = r.Document.Metadata["source"].(string)
		h.Title, _ = r.Document.Metadata["title"].(string)
		hits = append(hits, h)
	}
	return i.store.Summarizer.Summarize(ctx, query, hits)
}

func (i *pgIndex) Release(ctx context.Context) error {
	if i.empty {
		return nil
	}
	_, err := i.store.Vectors.DeleteByMetadata(ctx, i.filter())
	return err
}

func (i *pgIndex) filter() map[string]interface{} {
	return map[string]interface{}{indexIDKey: i.id}
}
