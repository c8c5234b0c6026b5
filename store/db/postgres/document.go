package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	stmt := `INSERT INTO document (project_id, filename, file_type, content, created_ts)
		VALUES (` + placeholders(5) + `)
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
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.ProjectID != nil {
		where, args = append(where, "project_id = "+placeholder(len(args)+1)), append(args, *find.ProjectID)
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

func (d *DB) CreateDocumentChunks(ctx context.Context, chunks []*store.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	stmt := `INSERT INTO document_chunk (document_id, project_id, chunk_index, text, embedding)
		VALUES (` + placeholders(5) + `)`
	for _, chunk := range chunks {
		if _, err := d.db.ExecContext(ctx, stmt,
			chunk.DocumentID,
			chunk.ProjectID,
			chunk.ChunkIndex,
			chunk.Text,
			embeddingValue(chunk.Embedding),
		); err != nil {
			return errors.Wrap(err, "failed to create document chunk")
		}
	}
	return nil
}

// embeddingValue maps an embedding to its SQL bind value. Chunks saved
// without vectors store NULL so that a typed vector column does not reject
// them; SearchDocumentChunks filters those rows out.
func embeddingValue(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// SearchDocumentChunks ranks chunks of the selected documents by cosine
// similarity. The <=> operator computes cosine distance, so ordering by it
// ascending returns the most similar chunks first.
func (d *DB) SearchDocumentChunks(ctx context.Context, search *store.SearchDocumentChunks) ([]*store.DocumentChunkHit, error) {
	if len(search.DocumentIDs) == 0 {
		return []*store.DocumentChunkHit{}, nil
	}
	limit := search.Limit
	if limit <= 0 {
		limit = 5
	}

	vector := pgvector.NewVector(search.Vector)
	query := `
		SELECT
			c.document_id, d.filename, c.text,
			1 - (c.embedding <=> $1) AS score
		FROM document_chunk c
		INNER JOIN document d ON d.id = c.document_id
		WHERE c.project_id = $2
			AND c.document_id = ANY($3)
			AND c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $4
		LIMIT $5`

	rows, err := d.db.QueryContext(ctx, query, vector, search.ProjectID, pq.Array(search.DocumentIDs), vector, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search document chunks")
	}
	defer rows.Close()

	hits := []*store.DocumentChunkHit{}
	for rows.Next() {
		hit := &store.DocumentChunkHit{}
		if err := rows.Scan(&hit.DocumentID, &hit.Filename, &hit.Text, &hit.Score); err != nil {
			return nil, errors.Wrap(err, "failed to scan document chunk hit")
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate document chunk hits")
	}

	return hits, nil
}
