package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/core/embedding"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/tools"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

const (
	saveQueueSize    = 16
	chunkSize        = 1000
	chunkOverlap     = 200
	saveTimeout      = 60 * time.Second
	safeQueryMaxLen  = 50
	documentFileType = "text/markdown"
)

type saveJob struct {
	projectID int32
	query     string
	results   []tools.SearchResult
}

// DocumentSaver persists web search results as project documents on a
// background worker. The side effect is fire-and-forget: it never blocks or
// fails the turn that produced the results, and it runs on its own store
// handle rather than the turn's.
type DocumentSaver struct {
	store    *store.Store
	embedder embedding.Service
	jobs     chan saveJob
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewDocumentSaver creates and starts a document saver. Call Close to drain
// the queue on shutdown.
func NewDocumentSaver(s *store.Store, embedder embedding.Service) *DocumentSaver {
	ds := &DocumentSaver{
		store:    s,
		embedder: embedder,
		jobs:     make(chan saveJob, saveQueueSize),
		now:      time.Now,
	}
	ds.wg.Add(1)
	go ds.run()
	return ds
}

// Enqueue submits search results for saving. Non-blocking: when the queue is
// full the job is dropped with a warning, keeping the chat path unaffected.
func (ds *DocumentSaver) Enqueue(projectID int32, query string, results []tools.SearchResult) {
	if len(results) == 0 {
		return
	}
	select {
	case ds.jobs <- saveJob{projectID: projectID, query: query, results: results}:
	default:
		slog.Warn("document saver: queue full, dropping job", "query", query)
	}
}

// Close stops accepting jobs and waits for queued jobs to finish.
func (ds *DocumentSaver) Close() {
	close(ds.jobs)
	ds.wg.Wait()
}

func (ds *DocumentSaver) run() {
	defer ds.wg.Done()
	for job := range ds.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := ds.save(ctx, job); err != nil {
			slog.Error("document saver: failed to save search results", "query", job.query, "error", err)
		}
		cancel()
	}
}

func (ds *DocumentSaver) save(ctx context.Context, job saveJob) error {
	content := buildSearchMarkdown(job.query, job.results, ds.now())
	filename := fmt.Sprintf("websearch_%s_%s.md", sanitizeQuery(job.query), ds.now().Format("20060102_150405"))

	doc, err := ds.store.CreateDocument(ctx, &store.Document{
		ProjectID: job.projectID,
		Filename:  filename,
		FileType:  documentFileType,
		Content:   content,
		CreatedTs: ds.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	texts := chunkText(content, chunkSize, chunkOverlap)
	chunks := make([]*store.DocumentChunk, 0, len(texts))

	if ds.embedder != nil {
		vectors, err := ds.embedder.EmbedBatch(ctx, texts)
		if err != nil || len(vectors) != len(texts) {
			slog.Warn("document saver: embedding failed, indexing without vectors", "error", err)
			vectors = make([][]float32, len(texts))
		}
		for i, text := range texts {
			chunks = append(chunks, &store.DocumentChunk{
				DocumentID: doc.ID,
				ProjectID:  job.projectID,
				ChunkIndex: int32(i),
				Text:       text,
				Embedding:  vectors[i],
			})
		}
	} else {
		for i, text := range texts {
			chunks = append(chunks, &store.DocumentChunk{
				DocumentID: doc.ID,
				ProjectID:  job.projectID,
				ChunkIndex: int32(i),
				Text:       text,
			})
		}
	}

	if err := ds.store.CreateDocumentChunks(ctx, chunks); err != nil {
		return fmt.Errorf("create document chunks: %w", err)
	}

	slog.Info("document saver: saved search results",
		"filename", filename,
		"results", len(job.results),
		"chunks", len(chunks),
	)
	return nil
}

// buildSearchMarkdown renders search hits as a markdown document with
// clickable source links, preserving URLs for future reference.
func buildSearchMarkdown(query string, results []tools.SearchResult, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Web Search: %s\n\n", query)
	fmt.Fprintf(&sb, "**Search Date:** %s  \n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "**Number of Results:** %d\n\n---\n\n", len(results))

	for i, r := range results {
		fmt.Fprintf(&sb, "## %d. [%s](%s)\n\n", i+1, r.Title, r.URL)
		fmt.Fprintf(&sb, "**Source:** %s\n\n", r.Engine)
		fmt.Fprintf(&sb, "%s\n\n---\n\n", r.Snippet)
	}

	sb.WriteString("\n*This document was automatically created by the web_search tool.*\n")
	return sb.String()
}

// sanitizeQuery makes a search query safe for use in a filename.
func sanitizeQuery(query string) string {
	var sb strings.Builder
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	safe := sb.String()
	if len(safe) > safeQueryMaxLen {
		safe = safe[:safeQueryMaxLen]
	}
	return safe
}

// chunkText splits text into overlapping chunks for embedding.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 || text == "" {
		return []string{text}
	}
	if overlap >= size {
		overlap = size / 2
	}

	runes := []rune(text)
	chunks := []string{}
	for start := 0; start < len(runes); start += size - overlap {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
