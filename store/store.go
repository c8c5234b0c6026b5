package store

import (
	"context"

	"github.com/Study-Buddy-University/study-buddy-backend/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateProject(ctx context.Context, create *Project) (*Project, error) {
	return s.driver.CreateProject(ctx, create)
}

func (s *Store) ListProjects(ctx context.Context, find *FindProject) ([]*Project, error) {
	return s.driver.ListProjects(ctx, find)
}

// GetProject returns the project with the given id, or nil when not found.
func (s *Store) GetProject(ctx context.Context, id int32) (*Project, error) {
	list, err := s.driver.ListProjects(ctx, &FindProject{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns the conversation with the given id, or nil when not
// found.
func (s *Store) GetConversation(ctx context.Context, id int32) (*Conversation, error) {
	list, err := s.driver.ListConversations(ctx, &FindConversation{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

func (s *Store) CreateDocument(ctx context.Context, create *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, create)
}

func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

func (s *Store) CreateDocumentChunks(ctx context.Context, chunks []*DocumentChunk) error {
	return s.driver.CreateDocumentChunks(ctx, chunks)
}

func (s *Store) SearchDocumentChunks(ctx context.Context, search *SearchDocumentChunks) ([]*DocumentChunkHit, error) {
	return s.driver.SearchDocumentChunks(ctx, search)
}
