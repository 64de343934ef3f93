package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leadgenlite/voicebridge/domain/entities"
	"github.com/leadgenlite/voicebridge/domain/repositories"
)

const (
	defaultAPIBaseURL  = "https://api.tavily.com"
	defaultSearchDepth = "basic"
	defaultMaxResults  = 5
	defaultTimeout     = 15 * time.Second

	// Number of supporting sources returned to the caller.
	maxSources = 2

	// Snippets are trimmed so tool outputs stay small enough to narrate.
	snippetLength = 150
)

// Config holds configuration for the Tavily search adapter.
// Required fields:
// - APIKey: Your Tavily API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Tavily API (default: "https://api.tavily.com")
// - SearchDepth: Search depth, "basic" or "advanced" (default: "basic")
// - MaxResults: Maximum results requested from the provider (default: 5)
// - Timeout: HTTP timeout for one search (default: 15s)
type Config struct {
	APIKey      string
	APIBaseURL  string
	SearchDepth string
	MaxResults  int
	Timeout     time.Duration
}

// NewConfigFromEnv builds a Config from environment variables.
func NewConfigFromEnv() Config {
	return Config{
		APIKey:     os.Getenv("TAVILY_API_KEY"),
		APIBaseURL: os.Getenv("TAVILY_API_BASE_URL"),
	}
}

// Searcher implements the WebSearcher interface using the Tavily API.
type Searcher struct {
	apiKey      string
	apiBaseURL  string
	searchDepth string
	maxResults  int
	httpClient  *http.Client
	logger      *zap.Logger
}

// Ensure Searcher implements the WebSearcher interface
var _ repositories.WebSearcher = (*Searcher)(nil)

type searchRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains"`
	ExcludeDomains    []string `json:"exclude_domains"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewSearcher creates a new Tavily search adapter.
func NewSearcher(config Config, logger *zap.Logger) (*Searcher, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("tavily API key is required")
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	searchDepth := config.SearchDepth
	if searchDepth == "" {
		searchDepth = defaultSearchDepth
	}

	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Searcher{
		apiKey:      config.APIKey,
		apiBaseURL:  apiBaseURL,
		searchDepth: searchDepth,
		maxResults:  maxResults,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

// Search runs a query against the Tavily API. It prefers the provider's
// synthesized answer and falls back to the content of the top result.
func (s *Searcher) Search(ctx context.Context, query string) (entities.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return entities.SearchResult{}, fmt.Errorf("query cannot be empty")
	}

	requestBody, err := json.Marshal(searchRequest{
		APIKey:            s.apiKey,
		Query:             query,
		SearchDepth:       s.searchDepth,
		IncludeAnswer:     true,
		IncludeRawContent: false,
		MaxResults:        s.maxResults,
		IncludeDomains:    []string{},
		ExcludeDomains:    []string{},
	})
	if err != nil {
		return entities.SearchResult{}, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBaseURL+"/search", bytes.NewReader(requestBody))
	if err != nil {
		return entities.SearchResult{}, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return entities.SearchResult{}, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return entities.SearchResult{}, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return entities.SearchResult{}, fmt.Errorf("failed to decode search response: %w", err)
	}

	sources := make([]entities.SearchSource, 0, maxSources)
	for i, r := range payload.Results {
		if i >= maxSources {
			break
		}
		sources = append(sources, entities.SearchSource{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: trimSnippet(r.Content),
		})
	}

	if payload.Answer != "" {
		return entities.SearchResult{
			Success: true,
			Answer:  payload.Answer,
			Sources: sources,
		}, nil
	}

	if len(payload.Results) > 0 {
		answer := payload.Results[0].Content
		if answer == "" {
			answer = "Information found but no details available"
		}
		return entities.SearchResult{
			Success: true,
			Answer:  answer,
			Sources: sources,
		}, nil
	}

	s.logger.Warn("Search returned no results", zap.String("query", query))
	return entities.SearchResult{
		Success: false,
		Error:   "No search results found",
	}, nil
}

func trimSnippet(content string) string {
	if len(content) <= snippetLength {
		return content
	}
	return content[:snippetLength] + "..."
}
