package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mikeboe/react-research/pkg/research"
)

const (
	tavilyBaseURL = "https://api.tavily.com/search"
	// tavilyMaxRetries bounds the 429 backoff so a round always finishes.
	tavilyMaxRetries = 4
)

// Tavily calls the Tavily search API.
type Tavily struct {
	APIKey  string
	BaseURL string
	// Depth is Tavily's search_depth parameter (basic or advanced).
	Depth string
	// RetryDelay is the first backoff after a 429; it doubles per attempt.
	RetryDelay time.Duration
	client     *http.Client
}

func NewTavily(apiKey, depth string) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{
		APIKey:     apiKey,
		BaseURL:    tavilyBaseURL,
		Depth:      depth,
		RetryDelay: time.Second,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Search posts a query to Tavily, backing off on 429 responses.
func (t *Tavily) Search(ctx context.Context, query string, count int) ([]research.RawHit, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}
	if count <= 0 {
		count = research.DefaultResultCount
	}

	payload, err := json.Marshal(map[string]any{
		"query":        query,
		"api_key":      t.APIKey,
		"search_depth": t.Depth,
		"max_results":  count,
	})
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	delay := t.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()
		if attempt >= tavilyMaxRetries {
			return nil, fmt.Errorf("tavily http %d after %d retries", http.StatusTooManyRequests, attempt)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	hits := make([]research.RawHit, 0, len(response.Results))
	for _, r := range response.Results {
		hits = append(hits, research.RawHit{Title: r.Title, Snippet: r.Content, Link: r.URL})
		if len(hits) >= count {
			break
		}
	}
	return hits, nil
}
