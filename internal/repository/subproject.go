package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
	"github.com/hirosof/ProjectManagementTool/internal/validation"
)

// SubProjectRepo provides CRUD and ordering for SubProjects. Nesting is
// rejected at the create path (SPEC_FULL.md Open Question resolutions):
// a non-nil ParentID is always refused here. Name uniqueness and
// order_index are both scoped to the owning Project.
type SubProjectRepo struct {
	store *store.Store
}

func NewSubProjectRepo(s *store.Store) *SubProjectRepo {
	return &SubProjectRepo{store: s}
}

func (r *SubProjectRepo) Create(ctx context.Context, sp *types.SubProject) error {
	name, err := validation.Name("name", sp.Name)
	if err != nil {
		return err
	}
	description, err := validation.Description("description", sp.Description)
	if err != nil {
		return err
	}
	sp.Name, sp.Description = name, description
	if sp.ParentID != nil {
		return &types.ConstraintViolation{Reason: types.NestingUnsupported, Entity: "subproject", ID: sp.ProjectID}
	}

	return r.store.Transact(ctx, func(tx *store.Tx) error {
		var exists int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM projects WHERE id = ?`, sp.ProjectID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &types.ConstraintViolation{Reason: types.InvalidParent, Entity: "project", ID: sp.ProjectID}
		}

		scopeClause := "project_id = ? AND parent_id IS NULL"
		scopeArgs := []any{sp.ProjectID}

		taken, err := scopedNameTaken(ctx, tx, "subprojects", scopeClause, scopeArgs, sp.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return nameConflict("subproject", sp.ProjectID)
		}

		orderIndex, err := nextOrderIndex(ctx, tx, "subprojects", scopeClause, scopeArgs)
		if err != nil {
			return err
		}
		sp.OrderIndex = orderIndex

		res, err := tx.Exec(ctx,
			`INSERT INTO subprojects (project_id, parent_id, name, description, order_index) VALUES (?, NULL, ?, ?, ?)`,
			sp.ProjectID, sp.Name, sp.Description, sp.OrderIndex)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		sp.ID = id

		if err := touchProject(ctx, tx, sp.ProjectID); err != nil {
			return err
		}
		return recordEvent(ctx, tx, "subproject", id, "created", "")
	})
}

func (r *SubProjectRepo) Get(ctx context.Context, id int64) (*types.SubProject, error) {
	row := r.store.DB().QueryRowContext(ctx,
		`SELECT id, project_id, parent_id, name, description, order_index, created_at, updated_at
		 FROM subprojects WHERE id = ?`, id)

	var sp types.SubProject
	var parentID sql.NullInt64
	err := row.Scan(&sp.ID, &sp.ProjectID, &parentID, &sp.Name, &sp.Description, &sp.OrderIndex, &sp.CreatedAt, &sp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &types.EntityNotFound{Entity: "subproject", ID: id}
	}
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		sp.ParentID = &parentID.Int64
	}
	return &sp, nil
}

func (r *SubProjectRepo) ListByProject(ctx context.Context, projectID int64) ([]*types.SubProject, error) {
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT id, project_id, parent_id, name, description, order_index, created_at, updated_at
		 FROM subprojects WHERE project_id = ? ORDER BY order_index, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*types.SubProject
	for rows.Next() {
		var sp types.SubProject
		var parentID sql.NullInt64
		if err := rows.Scan(&sp.ID, &sp.ProjectID, &parentID, &sp.Name, &sp.Description, &sp.OrderIndex, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, err
		}
		if parentID.Valid {
			sp.ParentID = &parentID.Int64
		}
		out = append(out, &sp)
	}
	return out, rows.Err()
}

func (r *SubProjectRepo) Update(ctx context.Context, id int64, name, description string, orderIndex int) error {
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
		var projectID int64
		if err := tx.QueryRow(ctx, `SELECT project_id FROM subprojects WHERE id = ?`, id).Scan(&projectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &types.EntityNotFound{Entity: "subproject", ID: id}
			}
			return err
		}

		scopeClause := "project_id = ? AND parent_id IS NULL"
		scopeArgs := []any{projectID}

		taken, err := scopedNameTaken(ctx, tx, "subprojects", scopeClause, scopeArgs, name, id)
		if err != nil {
			return err
		}
		if taken {
			return nameConflict("subproject", id)
		}

		collides, err := orderIndexTaken(ctx, tx, "subprojects", scopeClause, scopeArgs, orderIndex, id)
		if err != nil {
			return err
		}
		if collides {
			return orderIndexConflict("subproject", id)
		}

		res, err := tx.Exec(ctx,
			`UPDATE subprojects SET name = ?, description = ?, order_index = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			name, description, orderIndex, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &types.EntityNotFound{Entity: "subproject", ID: id}
		}

		if err := touchProject(ctx, tx, projectID); err != nil {
			return err
		}
		return recordEvent(ctx, tx, "subproject", id, "updated", "")
	})
}

func (r *SubProjectRepo) Delete(ctx context.Context, id int64) error {
	return r.store.Transact(ctx, func(tx *store.Tx) error {
		res, err := tx.Exec(ctx, `DELETE FROM subprojects WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &types.EntityNotFound{Entity: "subproject", ID: id}
		}
		return recordEvent(ctx, tx, "subproject", id, "deleted", "")
	})
}
