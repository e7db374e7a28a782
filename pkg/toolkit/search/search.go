// Package search provides the duckduckgo_search tool, which queries the
// DuckDuckGo HTML endpoint and returns the top results as plain text.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/germanamz/agentic/pkg/tools/toolbox"
	"golang.org/x/net/html"
)

// Name is the tool name exposed to the model.
const Name = "duckduckgo_search"

// DefaultBaseURL is the DuckDuckGo HTML endpoint.
const DefaultBaseURL = "https://html.duckduckgo.com/html/"

const (
	defaultMaxResults = 5
	userAgent         = "Mozilla/5.0 (compatible; agentic/0.1; +https://github.com/germanamz/agentic)"
	noResults         = "No good DuckDuckGo Search Result was found"
)

// Options configures a Search.
type Options struct {
	BaseURL    string       // Endpoint to query (default DefaultBaseURL).
	MaxResults int          // Results returned per query (default 5).
	Client     *http.Client // HTTP client (default: 20s timeout).
}

// Search provides the duckduckgo_search tool.
type Search struct {
	baseURL    string
	maxResults int
	client     *http.Client
}

// Result is one search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// New creates a Search with the given options.
func New(opts Options) *Search {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 20 * time.Second}
	}

	return &Search{
		baseURL:    opts.BaseURL,
		maxResults: opts.MaxResults,
		client:     opts.Client,
	}
}

// Tools returns a ToolBox containing the search tool.
func (s *Search) Tools() *toolbox.ToolBox {
	tb := toolbox.New()
	tb.Register(s.searchTool())

	return tb
}

type searchInput struct {
	Query string `json:"query" jsonschema_description:"Search query"`
}

func (s *Search) searchTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        Name,
		Description: "A wrapper around DuckDuckGo Search. Useful for when you need to answer questions about current events. Input should be a search query.",
		InputSchema: toolbox.SchemaFor[searchInput](),
		Handler:     s.handleSearch,
	}
}

func (s *Search) handleSearch(ctx context.Context, input json.RawMessage) (string, error) {
	var in searchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("%s: invalid input: %w", Name, err)
	}

	if strings.TrimSpace(in.Query) == "" {
		return "", fmt.Errorf("%s: query is required", Name)
	}

	results, err := s.Query(ctx, in.Query)
	if err != nil {
		return "", err
	}

	return Format(results), nil
}

// Query runs a search and returns at most MaxResults hits.
func (s *Search) Query(ctx context.Context, query string) ([]Result, error) {
	u := s.baseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", Name, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: unexpected status %d: %s", Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: parse response: %w", Name, err)
	}

	return parseResults(doc, s.maxResults), nil
}

// Format renders results as blank-line separated blocks of title, snippet
// and URL.
func Format(results []Result) string {
	if len(results) == 0 {
		return noResults
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		b.WriteString(r.Title)
		if r.Snippet != "" {
			b.WriteString("\n")
			b.WriteString(r.Snippet)
		}
		if r.URL != "" {
			b.WriteString("\n")
			b.WriteString(r.URL)
		}
		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n\n")
}
