package evidence

import (
	"fmt"
	"strings"

	"github.com/mikeboe/react-research/pkg/research"
)

// Splitter breaks long text into chunks.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// Hit is one retrieved chunk and the record it came from.
type Hit struct {
	Content string
	Title   string
	Source  string
	Score   float64
}

type chunk struct {
	content string
	title   string
	source  string
}

// chunkRecords splits every record's Text. Records whose text is blank still
// yield one chunk so that each record stays represented in the index.
func chunkRecords(splitter Splitter, records []research.EvidenceRecord) ([]chunk, error) {
	var chunks []chunk
	for i, r := range records {
		parts := []string{r.Text}
		if splitter != nil && strings.TrimSpace(r.Text) != "" {
			split, err := splitter.SplitText(r.Text)
			if err != nil {
				return nil, fmt.Errorf("failed to split record %d: %w", i, err)
			}
			if len(split) > 0 {
				parts = split
			}
		}
		for _, p := range parts {
			chunks = append(chunks, chunk{content: p, title: r.Title, source: r.SourceURL})
		}
	}
	return chunks, nil
}

func chunkContents(chunks []chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.content
	}
	return out
}
