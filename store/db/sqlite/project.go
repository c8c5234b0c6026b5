package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

// Tools are stored as a comma-joined TEXT column; SQLite has no array type.
func joinTools(tools []string) string {
	return strings.Join(tools, ",")
}

func splitTools(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, ",")
}

func (d *DB) CreateProject(ctx context.Context, create *store.Project) (*store.Project, error) {
	stmt := `INSERT INTO project (name, system_prompt, tools, created_ts)
		VALUES (?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Name,
		create.SystemPrompt,
		joinTools(create.Tools),
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create project")
	}
	return create, nil
}

func (d *DB) ListProjects(ctx context.Context, find *store.FindProject) ([]*store.Project, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}

	query := `SELECT id, name, system_prompt, tools, created_ts
		FROM project
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list projects")
	}
	defer rows.Close()

	list := make([]*store.Project, 0)
	for rows.Next() {
		p := &store.Project{}
		var tools string
		if err := rows.Scan(&p.ID, &p.Name, &p.SystemPrompt, &tools, &p.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan project")
		}
		p.Tools = splitTools(tools)
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate projects")
	}

	return list, nil
}
