package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
	"github.com/hirosof/ProjectManagementTool/internal/validation"
)

// TaskRepo provides CRUD and ordering for Tasks. A Task always belongs to
// a Project; SubProjectID is optional and, when nil, the Task sits
// directly under the Project. Name uniqueness and order_index are scoped
// to whichever of the two is the Task's direct parent.
type TaskRepo struct {
	store *store.Store
}

func NewTaskRepo(s *store.Store) *TaskRepo {
	return &TaskRepo{store: s}
}

func (r *TaskRepo) Create(ctx context.Context, t *types.Task) error {
	name, err := validation.Name("name", t.Name)
	if err != nil {
		return err
	}
	description, err := validation.Description("description", t.Description)
	if err != nil {
		return err
	}
	t.Name, t.Description = name, description
	if err := validation.OrderIndex("order_index", t.OrderIndex); err != nil {
		return err
	}
	if t.Status == "" {
		t.Status = types.StatusUnset
	}
	if err := validation.StatusValue("status", t.Status); err != nil {
		return err
	}

	return r.store.Transact(ctx, func(tx *store.Tx) error {
		var exists int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM projects WHERE id = ?`, t.ProjectID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &types.ConstraintViolation{Reason: types.InvalidParent, Entity: "project", ID: t.ProjectID}
		}

		if t.SubProjectID != nil {
			var subProjectID int64
			if err := tx.QueryRow(ctx, `SELECT project_id FROM subprojects WHERE id = ?`, *t.SubProjectID).Scan(&subProjectID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return &types.ConstraintViolation{Reason: types.InvalidParent, Entity: "subproject", ID: *t.SubProjectID}
				}
				return err
			}
			if subProjectID != t.ProjectID {
				return &types.ConstraintViolation{Reason: types.InvalidParent, Entity: "subproject", ID: *t.SubProjectID}
			}
		}

		scopeClause, scopeArgs := taskScope(t.ProjectID, t.SubProjectID)

		taken, err := scopedNameTaken(ctx, tx, "tasks", scopeClause, scopeArgs, t.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return nameConflict("task", t.ProjectID)
		}

		orderIndex, err := nextOrderIndex(ctx, tx, "tasks", scopeClause, scopeArgs)
		if err != nil {
			return err
		}
		t.OrderIndex = orderIndex

		res, err := tx.Exec(ctx,
			`INSERT INTO tasks (project_id, subproject_id, name, description, status, order_index) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ProjectID, nullableID(t.SubProjectID), t.Name, t.Description, string(t.Status), t.OrderIndex)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = id

		if err := touchTaskParents(ctx, tx, t.ProjectID, t.SubProjectID); err != nil {
			return err
		}
		return recordEvent(ctx, tx, "task", id, "created", "")
	})
}

// taskScope returns the WHERE fragment and args identifying a Task's
// sibling scope: tasks directly under a Project when subProjectID is
// nil, or tasks under a specific SubProject otherwise.
func taskScope(projectID int64, subProjectID *int64) (string, []any) {
	if subProjectID == nil {
		return "project_id = ? AND subproject_id IS NULL", []any{projectID}
	}
	return "subproject_id = ?", []any{*subProjectID}
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (*types.Task, error) {
	row := r.store.DB().QueryRowContext(ctx,
		`SELECT id, project_id, subproject_id, name, description, status, order_index, created_at, updated_at
		 FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func scanTask(row *sql.Row) (*types.Task, error) {
	var t types.Task
	var status string
	var subProjectID sql.NullInt64
	err := row.Scan(&t.ID, &t.ProjectID, &subProjectID, &t.Name, &t.Description, &status, &t.OrderIndex, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &types.EntityNotFound{Entity: "task", ID: t.ID}
	}
	if err != nil {
		return nil, err
	}
	if subProjectID.Valid {
		t.SubProjectID = &subProjectID.Int64
	}
	t.Status = types.Status(status)
	return &t, nil
}

func (r *TaskRepo) ListBySubProject(ctx context.Context, subProjectID int64) ([]*types.Task, error) {
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT id, project_id, subproject_id, name, description, status, order_index, created_at, updated_at
		 FROM tasks WHERE subproject_id = ? ORDER BY order_index, id`, subProjectID)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

// ListDirectByProject returns Tasks that sit directly under projectID,
// with no owning SubProject.
func (r *TaskRepo) ListDirectByProject(ctx context.Context, projectID int64) ([]*types.Task, error) {
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT id, project_id, subproject_id, name, description, status, order_index, created_at, updated_at
		 FROM tasks WHERE project_id = ? AND subproject_id IS NULL ORDER BY order_index, id`, projectID)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]*types.Task, error) {
	defer func() { _ = rows.Close() }()

	var out []*types.Task
	for rows.Next() {
		var t types.Task
		var status string
		var subProjectID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.ProjectID, &subProjectID, &t.Name, &t.Description, &status, &t.OrderIndex, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if subProjectID.Valid {
			t.SubProjectID = &subProjectID.Int64
		}
		t.Status = types.Status(status)
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, id int64, name, description string, orderIndex int) error {
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
		var subProjectID sql.NullInt64
		if err := tx.QueryRow(ctx, `SELECT project_id, subproject_id FROM tasks WHERE id = ?`, id).Scan(&projectID, &subProjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &types.EntityNotFound{Entity: "task", ID: id}
			}
			return err
		}
		var spID *int64
		if subProjectID.Valid {
			spID = &subProjectID.Int64
		}
		scopeClause, scopeArgs := taskScope(projectID, spID)

		taken, err := scopedNameTaken(ctx, tx, "tasks", scopeClause, scopeArgs, name, id)
		if err != nil {
			return err
		}
		if taken {
			return nameConflict("task", id)
		}

		collides, err := orderIndexTaken(ctx, tx, "tasks", scopeClause, scopeArgs, orderIndex, id)
		if err != nil {
			return err
		}
		if collides {
			return orderIndexConflict("task", id)
		}

		res, err := tx.Exec(ctx,
			`UPDATE tasks SET name = ?, description = ?, order_index = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			name, description, orderIndex, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &types.EntityNotFound{Entity: "task", ID: id}
		}

		if err := touchTaskParents(ctx, tx, projectID, spID); err != nil {
			return err
		}
		return recordEvent(ctx, tx, "task", id, "updated", "")
	})
}

// SetStatus writes a new status directly. Preflight checks (dependency
// and child-completion gating) live in internal/status; this is the raw
// write primitive it builds on.
func (r *TaskRepo) SetStatus(ctx context.Context, tx *store.Tx, id int64, status types.Status) error {
	res, err := tx.Exec(ctx,
		`UPDATE tasks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &types.EntityNotFound{Entity: "task", ID: id}
	}
	return recordEvent(ctx, tx, "task", id, "status_changed", "")
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	return r.store.Transact(ctx, func(tx *store.Tx) error {
		res, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &types.EntityNotFound{Entity: "task", ID: id}
		}
		return recordEvent(ctx, tx, "task", id, "deleted", "")
	})
}
