// Package postgres implements the store driver on PostgreSQL with pgvector
// for chunk similarity search.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/Study-Buddy-University/study-buddy-backend/internal/profile"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database with the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := DB{db: pgDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema. The embedding column dimension comes from the
// configured embedding model, so changing models requires a reindex.
func (d *DB) Migrate(ctx context.Context) error {
	dimensions := d.profile.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = 1024
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS project (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			system_prompt TEXT,
			tools TEXT[] NOT NULL DEFAULT '{}',
			created_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversation (
			id SERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			project_id INTEGER NOT NULL REFERENCES project(id) ON DELETE CASCADE,
			title TEXT,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS message (
			id SERIAL PRIMARY KEY,
			conversation_id INTEGER NOT NULL REFERENCES conversation(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS document (
			id SERIAL PRIMARY KEY,
			project_id INTEGER NOT NULL REFERENCES project(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			file_type TEXT NOT NULL,
			content TEXT NOT NULL,
			created_ts BIGINT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunk (
			id SERIAL PRIMARY KEY,
			document_id INTEGER NOT NULL REFERENCES document(id) ON DELETE CASCADE,
			project_id INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding vector(%d)
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_message_conversation_id ON message (conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_project_id ON conversation (project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunk_document_id ON document_chunk (document_id)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate schema")
		}
	}
	return nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		list = append(list, placeholder(i))
	}
	return strings.Join(list, ", ")
}
