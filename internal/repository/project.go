// Package repository implements CRUD and ordering for the four entity
// levels of the hierarchy: Project, SubProject, Task, SubTask.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
	"github.com/hirosof/ProjectManagementTool/internal/validation"
)

// ProjectRepo provides CRUD for the top level of the hierarchy. Projects
// have no parent scope: name uniqueness and order_index are both global.
type ProjectRepo struct {
	store *store.Store
}

func NewProjectRepo(s *store.Store) *ProjectRepo {
	return &ProjectRepo{store: s}
}

func (r *ProjectRepo) Create(ctx context.Context, p *types.Project) error {
	name, err := validation.Name("name", p.Name)
	if err != nil {
		return err
	}
	description, err := validation.Description("description", p.Description)
	if err != nil {
		return err
	}
	p.Name, p.Description = name, description

	return r.store.Transact(ctx, func(tx *store.Tx) error {
		taken, err := scopedNameTaken(ctx, tx, "projects", "1=1", nil, p.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return nameConflict("project", 0)
		}

		orderIndex, err := nextOrderIndex(ctx, tx, "projects", "1=1", nil)
		if err != nil {
			return err
		}
		p.OrderIndex = orderIndex

		res, err := tx.Exec(ctx,
			`INSERT INTO projects (name, description, order_index) VALUES (?, ?, ?)`,
			p.Name, p.Description, p.OrderIndex)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.ID = id
		return recordEvent(ctx, tx, "project", id, "created", "")
	})
}

func (r *ProjectRepo) Get(ctx context.Context, id int64) (*types.Project, error) {
	row := r.store.DB().QueryRowContext(ctx,
		`SELECT id, name, description, order_index, created_at, updated_at FROM projects WHERE id = ?`, id)

	var p types.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OrderIndex, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &types.EntityNotFound{Entity: "project", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*types.Project, error) {
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT id, name, description, order_index, created_at, updated_at FROM projects ORDER BY order_index, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Project
	for rows.Next() {
		var p types.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OrderIndex, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Update renames/redescribes/reorders a Project. orderIndex must not
// collide with another Project's order_index; callers that want a
// reshuffle must update the colliding sibling first (no auto-shuffle).
func (r *ProjectRepo) Update(ctx context.Context, id int64, name, description string, orderIndex int) error {
	name, err := validation.Name("name", name)
	if err != nil {
		return err
	}
	description, err = validation.Description("description", description)
	if err != nil {
		return err
	}
	if err := validation.OrderIndex("order_index", orderIndex); err != nil {
		return err
	}

	return r.store.Transact(ctx, func(tx *store.Tx) error {
		taken, err := scopedNameTaken(ctx, tx, "projects", "1=1", nil, name, id)
		if err != nil {
			return err
		}
		if taken {
			return nameConflict("project", id)
		}

		collides, err := orderIndexTaken(ctx, tx, "projects", "1=1", nil, orderIndex, id)
		if err != nil {
			return err
		}
		if collides {
			return orderIndexConflict("project", id)
		}

		res, err := tx.Exec(ctx,
			`UPDATE projects SET name = ?, description = ?, order_index = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			name, description, orderIndex, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &types.EntityNotFound{Entity: "project", ID: id}
		}
		return recordEvent(ctx, tx, "project", id, "updated", "")
	})
}

// Delete removes a project unconditionally (cascade to every descendant
// via the FK ON DELETE CASCADE chain). Deletion-mode semantics live in
// internal/deletion; this is the raw repository primitive it builds on.
func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	return r.store.Transact(ctx, func(tx *store.Tx) error {
		res, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &types.EntityNotFound{Entity: "project", ID: id}
		}
		return recordEvent(ctx, tx, "project", id, "deleted", "")
	})
}
