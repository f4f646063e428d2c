package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikeboe/react-research/pkg/config"
	"github.com/mikeboe/react-research/pkg/research"
)

var ErrUnknownProvider = errors.New("unknown search provider")

// NewSearcher returns the search backend named by cfg.SearchProvider.
func NewSearcher(ctx context.Context, cfg *config.Config) (research.Searcher, error) {
	switch cfg.SearchProvider {
	case "google", "":
		return NewGoogleSearch(ctx, cfg.GoogleApiKey, cfg.GoogleCSEID)
	case "arxiv":
		return NewArxiv(), nil
	case "tavily":
		return NewTavily(cfg.TavilyApiKey, cfg.TavilyDepth), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.SearchProvider)
	}
}
