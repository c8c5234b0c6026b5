package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Study-Buddy-University/study-buddy-backend/store"
)

func (d *DB) CreateProject(ctx context.Context, create *store.Project) (*store.Project, error) {
	stmt := `INSERT INTO project (name, system_prompt, tools, created_ts)
		VALUES (` + placeholders(4) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Name,
		create.SystemPrompt,
		pq.Array(create.Tools),
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create project")
	}
	return create, nil
}

func (d *DB) ListProjects(ctx context.Context, find *store.FindProject) ([]*store.Project, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
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
		if err := rows.Scan(&p.ID, &p.Name, &p.SystemPrompt, pq.Array(&p.Tools), &p.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan project")
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate projects")
	}

	return list, nil
}
