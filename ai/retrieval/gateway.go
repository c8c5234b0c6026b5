// Package retrieval translates chat requests into vector store queries and
// formats the hits into a context block for the prompt.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Study-Buddy-University/study-buddy-backend/internal/strutil"
)

const (
	// topK is the number of chunks requested from the vector store.
	topK = 5
	// maxExcerpts is the number of excerpts emitted into the context block.
	maxExcerpts = 3
	// excerptBudget is the per-excerpt character budget.
	excerptBudget = 500
)

// ScoredChunk is one ranked chunk returned by the vector store. It is used
// only to build a context block and never persisted.
type ScoredChunk struct {
	DocumentID int32
	Filename   string
	Text       string
	Score      float32
}

// Filter restricts a similarity search to a project and a set of documents.
type Filter struct {
	ProjectID   int32
	DocumentIDs []int32
}

// Searcher is the vector store boundary: ranked chunks for a query string.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, filter *Filter) ([]ScoredChunk, error)
}

// Gateway builds document context blocks from vector search results.
type Gateway struct {
	searcher Searcher
}

// NewGateway creates a retrieval gateway.
func NewGateway(searcher Searcher) *Gateway {
	return &Gateway{searcher: searcher}
}

// DocumentContext returns a formatted context block for the query, or "" when
// no documents are selected, nothing matches, or the search fails. Context is
// opt-in per request: an empty document selection never falls back to
// searching the whole project. Retrieval is best-effort; a backend error
// degrades to model-only answering rather than failing the request.
func (g *Gateway) DocumentContext(ctx context.Context, projectID int32, query string, documentIDs []int32) string {
	if g == nil || g.searcher == nil {
		return ""
	}
	if len(documentIDs) == 0 {
		slog.Debug("retrieval: no documents selected, skipping context retrieval")
		return ""
	}

	filter := &Filter{ProjectID: projectID, DocumentIDs: documentIDs}
	results, err := g.searcher.Search(ctx, query, topK, filter)
	if err != nil {
		slog.Warn("retrieval: search failed, continuing without context",
			"project_id", projectID,
			"error", err,
		)
		return ""
	}
	if len(results) == 0 {
		slog.Debug("retrieval: no results from vector search", "project_id", projectID)
		return ""
	}

	if len(results) > maxExcerpts {
		results = results[:maxExcerpts]
	}

	// Distinct filenames of the excerpts, first-seen order, for the header.
	seen := map[string]bool{}
	filenames := []string{}
	for _, r := range results {
		name := r.Filename
		if name == "" {
			name = "Unknown"
		}
		if !seen[name] {
			seen[name] = true
			filenames = append(filenames, name)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the following document: %s\n", strings.Join(filenames, ", "))
	sb.WriteString("\nRelevant excerpts:")
	for i, r := range results {
		text := strutil.Prefix(r.Text, excerptBudget)
		fmt.Fprintf(&sb, "\n\n[Excerpt %d (relevance: %.2f)]\n%s", i+1, r.Score, text)
	}

	context := sb.String()
	slog.Info("retrieval: built document context",
		"project_id", projectID,
		"excerpts", len(results),
		"context_chars", len(context),
	)
	return context
}
