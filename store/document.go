package store

// Document is an uploaded or generated project document.
type Document struct {
	ID        int32
	ProjectID int32
	Filename  string
	FileType  string
	Content   string
	CreatedTs int64
}

// DocumentChunk is one embedded slice of a document, indexed for similarity
// search.
type DocumentChunk struct {
	ID         int32
	DocumentID int32
	ProjectID  int32
	ChunkIndex int32
	Text       string
	Embedding  []float32
}

type FindDocument struct {
	ID        *int32
	ProjectID *int32
}

// SearchDocumentChunks is a similarity search over chunk embeddings, scoped
// to a project and an explicit document selection.
type SearchDocumentChunks struct {
	ProjectID   int32
	DocumentIDs []int32
	Vector      []float32
	Limit       int
}

// DocumentChunkHit is one ranked search result.
type DocumentChunkHit struct {
	DocumentID int32
	Filename   string
	Text       string
	Score      float32
}
