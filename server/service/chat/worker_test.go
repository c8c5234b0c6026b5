package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/tools"
	"github.com/Study-Buddy-University/study-buddy-backend/internal/profile"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

// mockEmbedder implements embedding.Service with canned vectors.
type mockEmbedder struct {
	batchFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.batchFunc(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return m.batchFunc(ctx, texts)
}

func (m *mockEmbedder) Dimensions() int { return 3 }

func TestDocumentSaverSavesResults(t *testing.T) {
	driver := newFakeDriver()
	st := store.New(driver, &profile.Profile{})
	embedder := &mockEmbedder{
		batchFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			vectors := make([][]float32, len(texts))
			for i := range vectors {
				vectors[i] = []float32{0.1, 0.2, 0.3}
			}
			return vectors, nil
		},
	}

	saver := NewDocumentSaver(st, embedder)
	saver.Enqueue(7, "golang generics", []tools.SearchResult{
		{Title: "Go Generics", URL: "https://go.dev/blog/intro-generics", Snippet: "An introduction.", Engine: "google"},
	})
	saver.Close()

	require.Len(t, driver.documents, 1)
	doc := driver.documents[0]
	assert.Equal(t, int32(7), doc.ProjectID)
	assert.Equal(t, "text/markdown", doc.FileType)
	assert.True(t, strings.HasPrefix(doc.Filename, "websearch_golang generics_"))
	assert.True(t, strings.HasSuffix(doc.Filename, ".md"))
	assert.Contains(t, doc.Content, "# Web Search: golang generics")

	require.NotEmpty(t, driver.chunks)
	assert.Equal(t, doc.ID, driver.chunks[0].DocumentID)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, driver.chunks[0].Embedding)
}

func TestDocumentSaverEmbeddingFailureIndexesWithoutVectors(t *testing.T) {
	driver := newFakeDriver()
	st := store.New(driver, &profile.Profile{})
	embedder := &mockEmbedder{
		batchFunc: func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("embedding service down")
		},
	}

	saver := NewDocumentSaver(st, embedder)
	saver.Enqueue(1, "anything", []tools.SearchResult{
		{Title: "t", URL: "https://example.com", Snippet: "s", Engine: "e"},
	})
	saver.Close()

	require.Len(t, driver.documents, 1)
	require.NotEmpty(t, driver.chunks)
	assert.Nil(t, driver.chunks[0].Embedding)
}

func TestDocumentSaverSkipsEmptyResults(t *testing.T) {
	driver := newFakeDriver()
	st := store.New(driver, &profile.Profile{})

	saver := NewDocumentSaver(st, nil)
	saver.Enqueue(1, "empty", nil)
	saver.Close()

	assert.Empty(t, driver.documents)
}

func TestBuildSearchMarkdown(t *testing.T) {
	now := time.Date(2026, time.March, 14, 12, 30, 0, 0, time.UTC)
	got := buildSearchMarkdown("golang generics", []tools.SearchResult{
		{Title: "Go Generics", URL: "https://go.dev/blog/intro-generics", Snippet: "An introduction.", Engine: "google"},
		{Title: "Tutorial", URL: "https://example.com/t", Snippet: "A tutorial.", Engine: "bing"},
	}, now)

	assert.Contains(t, got, "# Web Search: golang generics")
	assert.Contains(t, got, "**Search Date:** 2026-03-14 12:30:00")
	assert.Contains(t, got, "**Number of Results:** 2")
	assert.Contains(t, got, "## 1. [Go Generics](https://go.dev/blog/intro-generics)")
	assert.Contains(t, got, "**Source:** google")
	assert.Contains(t, got, "## 2. [Tutorial](https://example.com/t)")
	assert.Contains(t, got, "*This document was automatically created by the web_search tool.*")
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"golang generics", "golang generics"},
		{"what is zapagi.com?", "what is zapagi_com_"},
		{"a/b\\c:d", "a_b_c_d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeQuery(tt.query))
	}

	long := strings.Repeat("x", 80)
	assert.Len(t, sanitizeQuery(long), 50)
}

func TestChunkText(t *testing.T) {
	short := "short text"
	assert.Equal(t, []string{short}, chunkText(short, 1000, 200))

	text := strings.Repeat("a", 2500)
	chunks := chunkText(text, 1000, 200)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	// Third chunk starts at 1600 and runs to the end.
	assert.Len(t, chunks[2], 900)

	// Consecutive chunks share the overlap region.
	assert.Equal(t, chunks[0][800:], chunks[1][:200])
}
