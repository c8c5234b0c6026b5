package store

import (
	"context"
	"database/sql"
)

// Driver is the database adapter interface implemented per backend.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	CreateProject(ctx context.Context, create *Project) (*Project, error)
	ListProjects(ctx context.Context, find *FindProject) ([]*Project, error)

	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)

	CreateDocument(ctx context.Context, create *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	CreateDocumentChunks(ctx context.Context, chunks []*DocumentChunk) error

	// SearchDocumentChunks runs a vector similarity search. Backends without
	// vector support return an error; retrieval degrades gracefully upstream.
	SearchDocumentChunks(ctx context.Context, search *SearchDocumentChunks) ([]*DocumentChunkHit, error)
}
