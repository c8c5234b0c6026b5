package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/Study-Buddy-University/study-buddy-backend/internal/strutil"
)

const (
	defaultSearchResults = 5
	maxSearchResults     = 15
	snippetDisplayLen    = 200
)

// SearchResult is one web search hit. Exposed so callers can consume the
// structured hits from the invocation metadata.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Engine  string `json:"engine"`
}

// WebSearchTool searches the web through a SearXNG metasearch instance and
// aggregates results from multiple engines.
type WebSearchTool struct {
	baseURL string
	client  *http.Client
}

// NewWebSearchTool creates a web search tool against a SearXNG instance.
func NewWebSearchTool(baseURL string) *WebSearchTool {
	return &WebSearchTool{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// queryDomainRegex extracts a domain or URL token embedded in a search query.
var queryDomainRegex = regexp.MustCompile(`(?:https?://)?(?:www\.)?([a-zA-Z0-9-]+\.[a-zA-Z]{2,}(?:\.[a-zA-Z]{2,})?)`)

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Searches the web for information using multiple search engines. " +
		"Returns relevant results with titles, snippets, and URLs. " +
		"Use this when you need current information, facts, research, " +
		"or want to find resources online."
}

func (t *WebSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query to look up on the web",
			},
			"num_results": map[string]any{
				"type":        "integer",
				"description": "Number of results to return (default: 5, max: 15)",
				"default":     defaultSearchResults,
			},
		},
		"required": []string{"query"},
	}
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
		Engine  string `json:"engine"`
	} `json:"results"`
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (*Result, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return Failure("missing required argument: query"), nil
	}
	numResults := coerceInt(args["num_results"], defaultSearchResults)
	if numResults > maxSearchResults {
		numResults = maxSearchResults
	}

	hasDomain, targetDomain := extractDomainFromQuery(query)

	endpoint, err := url.Parse(t.baseURL + "/search")
	if err != nil {
		return Failure(fmt.Sprintf("invalid search service URL: %v", err)), nil
	}
	q := endpoint.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("language", "en")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Failure(fmt.Sprintf("create search request: %v", err)), nil
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return Failure(fmt.Sprintf("Network error during search: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Failure(fmt.Sprintf("Search service returned status %d", resp.StatusCode)), nil
	}

	var decoded searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Failure(fmt.Sprintf("decode search response: %v", err)), nil
	}

	if len(decoded.Results) == 0 {
		return &Result{
			Success:  true,
			Result:   "No results found for this query. Try rephrasing your search.",
			Metadata: map[string]any{"query": query, "num_results": 0},
		}, nil
	}

	results := make([]SearchResult, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		r := SearchResult{
			Title:   item.Title,
			Snippet: strings.TrimSpace(item.Content),
			URL:     item.URL,
			Engine:  item.Engine,
		}
		if r.Title == "" {
			r.Title = "No title"
		}
		if r.Snippet == "" {
			r.Snippet = "No description available"
		}
		if r.Engine == "" {
			r.Engine = "unknown"
		}
		results = append(results, r)
	}

	// Domain scoping: when the query embeds a specific site, unrelated hits
	// are noise, not answers.
	if hasDomain && targetDomain != "" {
		originalCount := len(results)
		results = FilterByDomain(results, targetDomain)
		if len(results) == 0 {
			return &Result{
				Success: true,
				Result: fmt.Sprintf(
					"No reliable information found for %s. The search returned %d results but none were from the target domain.",
					targetDomain, originalCount),
				Metadata: map[string]any{
					"query":          query,
					"target_domain":  targetDomain,
					"num_results":    0,
					"filtered":       true,
					"original_count": originalCount,
				},
			}, nil
		}
	}

	if len(results) > numResults {
		results = results[:numResults]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for '%s':\n\n", query)
	for i, r := range results {
		snippet := strutil.Truncate(r.Snippet, snippetDisplayLen)
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   URL: %s\n   Source: %s\n\n", i+1, r.Title, snippet, r.URL, r.Engine)
	}

	metadata := map[string]any{
		"query":         query,
		"num_results":   len(results),
		"results":       results,
		"search_engine": "SearXNG",
	}
	if hasDomain && targetDomain != "" {
		metadata["filtered_by_domain"] = targetDomain
	}

	return &Result{
		Success:  true,
		Result:   strings.TrimSpace(sb.String()),
		Metadata: metadata,
	}, nil
}

// FilterByDomain keeps only results whose registered domain matches target, so
// a subdomain like docs.zapagi.com still matches zapagi.com.
func FilterByDomain(results []SearchResult, target string) []SearchResult {
	filtered := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if registeredDomain(r.URL) == target {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// extractDomainFromQuery reports whether the query embeds a domain/URL and
// returns its registered domain.
func extractDomainFromQuery(query string) (bool, string) {
	m := queryDomainRegex.FindString(query)
	if m == "" {
		return false, ""
	}
	host := m
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(host))
	if err != nil {
		return false, ""
	}
	return true, domain
}

// registeredDomain returns the public-suffix-aware registered domain of a
// result URL, or "" when it cannot be determined.
func registeredDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(u.Hostname()))
	if err != nil {
		return ""
	}
	return domain
}

// coerceInt converts an argument that may arrive as a number or a string.
// Models occasionally pass integer parameters as quoted strings.
func coerceInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed
		}
	}
	return fallback
}
