package retrieval

import (
	"context"
	"fmt"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/core/embedding"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

// StoreSearcher implements Searcher over the document chunk index: it embeds
// the query and runs a vector similarity search through the store driver.
type StoreSearcher struct {
	store    *store.Store
	embedder embedding.Service
}

// NewStoreSearcher creates a store-backed searcher.
func NewStoreSearcher(s *store.Store, embedder embedding.Service) *StoreSearcher {
	return &StoreSearcher{store: s, embedder: embedder}
}

func (s *StoreSearcher) Search(ctx context.Context, query string, topK int, filter *Filter) ([]ScoredChunk, error) {
	if filter == nil {
		return nil, fmt.Errorf("filter required")
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.store.SearchDocumentChunks(ctx, &store.SearchDocumentChunks{
		ProjectID:   filter.ProjectID,
		DocumentIDs: filter.DocumentIDs,
		Vector:      vector,
		Limit:       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("search document chunks: %w", err)
	}

	chunks := make([]ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, ScoredChunk{
			DocumentID: hit.DocumentID,
			Filename:   hit.Filename,
			Text:       hit.Text,
			Score:      hit.Score,
		})
	}
	return chunks, nil
}
