package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNewSearcher(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewSearcher(Config{}, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	s, err := NewSearcher(Config{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create searcher: %v", err)
	}

	if s.apiBaseURL != defaultAPIBaseURL {
		t.Errorf("Expected default base URL %q, got %q", defaultAPIBaseURL, s.apiBaseURL)
	}
	if s.searchDepth != defaultSearchDepth {
		t.Errorf("Expected default search depth %q, got %q", defaultSearchDepth, s.searchDepth)
	}
}

func newTestSearcher(t *testing.T, handler http.HandlerFunc) (*Searcher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewSearcher(Config{APIKey: "test-api-key", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create searcher: %v", err)
	}
	return s, server
}

func TestSearcher_Search_WithAnswer(t *testing.T) {
	s, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("Expected path /search, got %s", r.URL.Path)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req["query"] != "current gold price" {
			t.Errorf("Unexpected query %v", req["query"])
		}
		if req["include_answer"] != true {
			t.Error("Expected include_answer to be true")
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"answer": "Gold is trading around $2,400/oz.",
			"results": []map[string]string{
				{"title": "Gold price today", "url": "https://example.com/a", "content": strings.Repeat("x", 200)},
				{"title": "Market watch", "url": "https://example.com/b", "content": "short"},
				{"title": "Third result", "url": "https://example.com/c", "content": "dropped"},
			},
		})
	})

	result, err := s.Search(context.Background(), "current gold price")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if !result.Success {
		t.Error("Expected success result")
	}
	if result.Answer != "Gold is trading around $2,400/oz." {
		t.Errorf("Unexpected answer %q", result.Answer)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(result.Sources))
	}
	if len(result.Sources[0].Snippet) != snippetLength+3 {
		t.Errorf("Expected snippet trimmed to %d+ellipsis, got %d chars", snippetLength, len(result.Sources[0].Snippet))
	}
	if result.Sources[1].Snippet != "short" {
		t.Errorf("Expected short snippet untouched, got %q", result.Sources[1].Snippet)
	}
}

func TestSearcher_Search_FallbackToTopResult(t *testing.T) {
	s, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]string{
				{"title": "Only result", "url": "https://example.com", "content": "the details"},
			},
		})
	})

	result, err := s.Search(context.Background(), "obscure topic")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !result.Success {
		t.Error("Expected success result")
	}
	if result.Answer != "the details" {
		t.Errorf("Expected top result content as answer, got %q", result.Answer)
	}
}

func TestSearcher_Search_NoResults(t *testing.T) {
	s, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]string{}})
	})

	result, err := s.Search(context.Background(), "nothing to find")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Success {
		t.Error("Expected success=false for empty results")
	}
	if result.Error == "" {
		t.Error("Expected error message for empty results")
	}
}

func TestSearcher_Search_ProviderError(t *testing.T) {
	s, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	})

	_, err := s.Search(context.Background(), "anything")
	if err == nil {
		t.Error("Expected error for provider failure")
	}
}

func TestSearcher_Search_EmptyQuery(t *testing.T) {
	s, err := NewSearcher(Config{APIKey: "test-api-key"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create searcher: %v", err)
	}

	if _, err := s.Search(context.Background(), "   "); err == nil {
		t.Error("Expected error for empty query")
	}
}
