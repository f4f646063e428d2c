package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mikeboe/react-research/pkg/research"
)

const arxivBaseURL = "https://export.arxiv.org/api/query"

// ArxivEntry struct to hold arXiv entry data
type ArxivEntry struct {
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	ID        string      `xml:"id"`
	Link      []ArxivLink `xml:"link"`
}

// ArxivLink struct to hold arXiv link data
type ArxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
	Rel  string `xml:"rel,attr"`
}

// ArxivFeed struct to hold the entire arXiv feed
type ArxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []ArxivEntry `xml:"entry"`
}

// Arxiv searches the arXiv export API.
type Arxiv struct {
	BaseURL string
	client  *http.Client
}

func NewArxiv() *Arxiv {
	return &Arxiv{BaseURL: arxivBaseURL, client: &http.Client{Timeout: 15 * time.Second}}
}

// Search queries the Arxiv API and returns one hit per entry.
func (a *Arxiv) Search(ctx context.Context, query string, count int) ([]research.RawHit, error) {
	if count <= 0 {
		count = research.DefaultResultCount
	}

	params := url.Values{}
	params.Add("search_query", "all:"+query)
	params.Add("max_results", strconv.Itoa(count))
	params.Add("start", "0")
	apiURL := a.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	slog.Debug("API request made", "url", apiURL, "status", resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned non-200 status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var feed ArxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal XML: %w", err)
	}

	hits := make([]research.RawHit, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		hits = append(hits, research.RawHit{
			Title:   collapseSpace(entry.Title),
			Snippet: collapseSpace(entry.Summary),
			Link:    entry.pageLink(),
		})
	}
	return hits, nil
}

// pageLink prefers the abstract page, then the PDF, then the entry id.
func (e ArxivEntry) pageLink() string {
	var pdf string
	for _, link := range e.Link {
		if link.Rel == "alternate" {
			return link.Href
		}
		if link.Type == "application/pdf" && pdf == "" {
			pdf = link.Href
		}
	}
	if pdf != "" {
		return pdf
	}
	return strings.TrimSpace(e.ID)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
