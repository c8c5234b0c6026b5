package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	stmt := `INSERT INTO document (project_id, filename, file_type, content, created_ts)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.ProjectID,
		create.Filename,
		create.FileType,
		create.Content,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	return create, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.ProjectID != nil {
		where, args = append(where, "project_id = ?"), append(args, *find.ProjectID)
	}

	query := `SELECT id, project_id, filename, file_type, content, created_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := make([]*store.Document, 0)
	for rows.Next() {
		doc := &store.Document{}
		if err := rows.Scan(&doc.ID, &doc.ProjectID, &doc.Filename, &doc.FileType, &doc.Content, &doc.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		list = append(list, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate documents")
	}

	return list, nil
}

// CreateDocumentChunks stores chunk text without embeddings; SQLite has no
// vector column.
func (d *DB) CreateDocumentChunks(ctx context.Context, chunks []*store.DocumentChunk) error {
	stmt := `INSERT INTO document_chunk (document_id, project_id, chunk_index, text)
		VALUES (?, ?, ?, ?)`
	for _, chunk := range chunks {
		if _, err := d.db.ExecContext(ctx, stmt,
			chunk.DocumentID,
			chunk.ProjectID,
			chunk.ChunkIndex,
			chunk.Text,
		); err != nil {
			return errors.Wrap(err, "failed to create document chunk")
		}
	}
	return nil
}

// SearchDocumentChunks is not supported on SQLite. Retrieval treats the error
// as "no context" and the turn proceeds model-only.
func (d *DB) SearchDocumentChunks(ctx context.Context, search *store.SearchDocumentChunks) ([]*store.DocumentChunkHit, error) {
	return nil, errors.New("vector search is not supported on sqlite")
}
