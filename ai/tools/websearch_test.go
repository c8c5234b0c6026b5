package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSearxngServer serves a canned SearXNG JSON response and records the last
// query it received.
func newSearxngServer(t *testing.T, results []map[string]string, lastQuery *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		if lastQuery != nil {
			*lastQuery = r.URL.Query().Get("q")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
}

func TestWebSearchExecute(t *testing.T) {
	var gotQuery string
	srv := newSearxngServer(t, []map[string]string{
		{"title": "Go docs", "url": "https://go.dev/doc", "content": "Official documentation.", "engine": "duckduckgo"},
		{"title": "Go blog", "url": "https://go.dev/blog", "content": "News and articles.", "engine": "google"},
	}, &gotQuery)
	defer srv.Close()

	tool := NewWebSearchTool(srv.URL)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "golang documentation"})
	require.NoError(t, err)
	require.True(t, res.Success, "error: %s", res.Error)

	assert.Equal(t, "golang documentation", gotQuery)
	assert.Contains(t, res.Result, "Search results for 'golang documentation':")
	assert.Contains(t, res.Result, "1. Go docs")
	assert.Contains(t, res.Result, "URL: https://go.dev/doc")
	assert.Contains(t, res.Result, "Source: duckduckgo")

	assert.Equal(t, "SearXNG", res.Metadata["search_engine"])
	assert.Equal(t, 2, res.Metadata["num_results"])
	hits, ok := res.Metadata["results"].([]SearchResult)
	require.True(t, ok)
	require.Len(t, hits, 2)
	assert.Equal(t, "Go docs", hits[0].Title)
}

func TestWebSearchSnippetTruncationKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("语", 250)
	srv := newSearxngServer(t, []map[string]string{
		{"title": "CJK page", "url": "https://go.dev/cjk", "content": long, "engine": "google"},
	}, nil)
	defer srv.Close()

	tool := NewWebSearchTool(srv.URL)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "golang docs"})
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.True(t, utf8.ValidString(res.Result))
	assert.Contains(t, res.Result, strings.Repeat("语", 200)+"...")
	assert.NotContains(t, res.Result, strings.Repeat("语", 201))
}

func TestWebSearchDomainFiltering(t *testing.T) {
	srv := newSearxngServer(t, []map[string]string{
		{"title": "Zapagi home", "url": "https://zapagi.com/about", "content": "About the product.", "engine": "google"},
		{"title": "Review site", "url": "https://other.com/review", "content": "Third party review.", "engine": "bing"},
	}, nil)
	defer srv.Close()

	tool := NewWebSearchTool(srv.URL)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "zapagi.com"})
	require.NoError(t, err)
	require.True(t, res.Success)

	hits, ok := res.Metadata["results"].([]SearchResult)
	require.True(t, ok)
	require.Len(t, hits, 1, "only hits from the target domain survive")
	assert.Equal(t, "https://zapagi.com/about", hits[0].URL)
	assert.Equal(t, "zapagi.com", res.Metadata["filtered_by_domain"])
	assert.NotContains(t, res.Result, "other.com")
}

func TestWebSearchAllResultsFiltered(t *testing.T) {
	srv := newSearxngServer(t, []map[string]string{
		{"title": "Unrelated", "url": "https://other.com/a", "content": "x", "engine": "bing"},
		{"title": "Also unrelated", "url": "https://another.net/b", "content": "y", "engine": "google"},
	}, nil)
	defer srv.Close()

	tool := NewWebSearchTool(srv.URL)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "what is zapagi.com"})
	require.NoError(t, err)

	// Filtering everything out is an answer, not an error: the model needs a
	// truthful "nothing reliable" to relay instead of fabricating details.
	assert.True(t, res.Success)
	assert.Contains(t, res.Result, "No reliable information found for zapagi.com")
	assert.Contains(t, res.Result, "2 results")
	assert.Equal(t, 0, res.Metadata["num_results"])
}

func TestWebSearchNoResults(t *testing.T) {
	srv := newSearxngServer(t, []map[string]string{}, nil)
	defer srv.Close()

	tool := NewWebSearchTool(srv.URL)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "gibberish qwxzy"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Result, "No results found")
}

func TestWebSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tool := NewWebSearchTool(srv.URL)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "502")
}

func TestWebSearchMissingQuery(t *testing.T) {
	tool := NewWebSearchTool("http://localhost:1")
	res, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestWebSearchNumResultsCap(t *testing.T) {
	results := make([]map[string]string, 20)
	for i := range results {
		results[i] = map[string]string{"title": "t", "url": "https://example.org/p", "content": "c", "engine": "e"}
	}
	srv := newSearxngServer(t, results, nil)
	defer srv.Close()

	tool := NewWebSearchTool(srv.URL)
	res, err := tool.Execute(context.Background(), map[string]any{"query": "lots of hits", "num_results": float64(50)})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, maxSearchResults, res.Metadata["num_results"])
}

func TestFilterByDomain(t *testing.T) {
	results := []SearchResult{
		{URL: "https://zapagi.com/pricing"},
		{URL: "https://docs.zapagi.com/start"},
		{URL: "https://zapagi.com.phishing.example/login"},
		{URL: "https://other.com/zapagi.com"},
		{URL: "not a url"},
	}

	got := FilterByDomain(results, "zapagi.com")
	require.Len(t, got, 2)
	assert.Equal(t, "https://zapagi.com/pricing", got[0].URL)
	assert.Equal(t, "https://docs.zapagi.com/start", got[1].URL, "subdomains of the target match")
}
