package evidence

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/mikeboe/react-research/pkg/embeddings"
	"github.com/mikeboe/react-research/pkg/research"
)

// MemoryStore keeps each index in process memory. Indexes are independent
// and disappear once released.
type MemoryStore struct {
	Embedder   embeddings.Embedder
	Summarizer *Summarizer
	Splitter   Splitter
	TopK       int
}

func (s *MemoryStore) Build(ctx context.Context, records []research.EvidenceRecord) (research.EvidenceIndex, error) {
	chunks, err := chunkRecords(s.Splitter, records)
	if err != nil {
		return nil, err
	}
	idx := &memoryIndex{store: s, chunks: chunks}
	if len(chunks) == 0 {
		return idx, nil
	}

	vectors, err := s.Embedder.EmbedTexts(ctx, chunkContents(chunks))
	if err != nil {
		return nil, fmt.Errorf("failed to embed evidence: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(vectors))
	}
	idx.vectors = vectors
	return idx, nil
}

type memoryIndex struct {
	store   *MemoryStore
	chunks  []chunk
	vectors [][]float32
}

func (i *memoryIndex) Query(ctx context.Context, query string) (string, error) {
	if len(i.chunks) == 0 {
		return "", nil
	}

	qv, err := i.store.Embedder.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	hits := make([]Hit, len(i.chunks))
	for n, c := range i.chunks {
		hits[n] = Hit{Content: c.content, Title: c.title, Source: c.source, Score: cosine(qv, i.vectors[n])}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int { return cmp.Compare(b.Score, a.Score) })
	if k := topK(i.store.TopK); len(hits) > k {
		hits = hits[:k]
	}

	return i.store.Summarizer.Summarize(ctx, query, hits)
}

func (i *memoryIndex) Release(context.Context) error {
	i.chunks = nil
	i.vectors = nil
	return nil
}

func topK(k int) int {
	if k <= 0 {
		return 5
	}
	return k
}

// cosine returns 0 for mismatched or zero-length vectors.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
