package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/mikeboe/react-research/pkg/research"
)

// Custom Search returns at most 10 items per request.
const googleMaxResults = 10

// GoogleSearch queries a Programmable Search Engine through the Custom Search
// JSON API.
type GoogleSearch struct {
	service *customsearch.Service
	cx      string
}

// NewGoogleSearch builds a searcher for the engine cx. Extra client options
// are applied after the API key.
func NewGoogleSearch(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleSearch, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("google search: API key is missing")
	}
	if strings.TrimSpace(cx) == "" {
		return nil, errors.New("google search: search engine id is missing")
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}
	return &GoogleSearch{service: service, cx: cx}, nil
}

func (g *GoogleSearch) Search(ctx context.Context, query string, count int) ([]research.RawHit, error) {
	if count <= 0 {
		count = research.DefaultResultCount
	}
	if count > googleMaxResults {
		count = googleMaxResults
	}

	res, err := g.service.Cse.List().Q(query).Cx(g.cx).Num(int64(count)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("custom search failed: %w", err)
	}

	hits := make([]research.RawHit, 0, len(res.Items))
	for _, item := range res.Items {
		if item == nil {
			continue
		}
		hits = append(hits, research.RawHit{Title: item.Title, Snippet: item.Snippet, Link: item.Link})
	}
	return hits, nil
}
