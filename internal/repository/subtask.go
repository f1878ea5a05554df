package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
	"github.com/hirosof/ProjectManagementTool/internal/validation"
)

// SubTaskRepo provides CRUD and ordering for SubTasks. Name uniqueness
// and order_index are scoped to the owning Task.
type SubTaskRepo struct {
	store *store.Store
}

func NewSubTaskRepo(s *store.Store) *SubTaskRepo {
	return &SubTaskRepo{store: s}
}

func (r *SubTaskRepo) Create(ctx context.Context, st *types.SubTask) error {
	name, err := validation.Name("name", st.Name)
	if err != nil {
		return err
	}
	description, err := validation.Description("description", st.Description)
	if err != nil {
		return err
	}
	st.Name, st.Description = name, description
	if err := validation.OrderIndex("order_index", st.OrderIndex); err != nil {
		return err
	}
	if st.Status == "" {
		st.Status = types.StatusUnset
	}
	if err := validation.StatusValue("status", st.Status); err != nil {
		return err
	}

	return r.store.Transact(ctx, func(tx *store.Tx) error {
		var exists int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE id = ?`, st.TaskID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &types.ConstraintViolation{Reason: types.InvalidParent, Entity: "task", ID: st.TaskID}
		}

		scopeClause := "task_id = ?"
		scopeArgs := []any{st.TaskID}

		taken, err := scopedNameTaken(ctx, tx, "subtasks", scopeClause, scopeArgs, st.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return nameConflict("subtask", st.TaskID)
		}

		orderIndex, err := nextOrderIndex(ctx, tx, "subtasks", scopeClause, scopeArgs)
		if err != nil {
			return err
		}
		st.OrderIndex = orderIndex

		res, err := tx.Exec(ctx,
			`INSERT INTO subtasks (task_id, name, description, status, assignee, order_index) VALUES (?, ?, ?, ?, ?, ?)`,
			st.TaskID, st.Name, st.Description, string(st.Status), st.Assignee, st.OrderIndex)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		st.ID = id

		if err := touchTaskAndAncestors(ctx, tx, st.TaskID); err != nil {
			return err
		}
		return recordEvent(ctx, tx, "subtask", id, "created", "")
	})
}

func (r *SubTaskRepo) Get(ctx context.Context, id int64) (*types.SubTask, error) {
	row := r.store.DB().QueryRowContext(ctx,
		`SELECT id, task_id, name, description, status, assignee, order_index, created_at, updated_at
		 FROM subtasks WHERE id = ?`, id)

	var st types.SubTask
	var status string
	err := row.Scan(&st.ID, &st.TaskID, &st.Name, &st.Description, &status, &st.Assignee, &st.OrderIndex, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &types.EntityNotFound{Entity: "subtask", ID: id}
	}
	if err != nil {
		return nil, err
	}
	st.Status = types.Status(status)
	return &st, nil
}

func (r *SubTaskRepo) ListByTask(ctx context.Context, taskID int64) ([]*types.SubTask, error) {
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT id, task_id, name, description, status, assignee, order_index, created_at, updated_at
		 FROM subtasks WHERE task_id = ? ORDER BY order_index, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*types.SubTask
	for rows.Next() {
		var st types.SubTask
		var status string
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Name, &st.Description, &status, &st.Assignee, &st.OrderIndex, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		st.Status = types.Status(status)
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (r *SubTaskRepo) Update(ctx context.Context, id int64, name, description, assignee string, orderIndex int) error {
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
		var taskID int64
		if err := tx.QueryRow(ctx, `SELECT task_id FROM subtasks WHERE id = ?`, id).Scan(&taskID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &types.EntityNotFound{Entity: "subtask", ID: id}
			}
			return err
		}

		scopeClause := "task_id = ?"
		scopeArgs := []any{taskID}

		taken, err := scopedNameTaken(ctx, tx, "subtasks", scopeClause, scopeArgs, name, id)
		if err != nil {
			return err
		}
		if taken {
			return nameConflict("subtask", id)
		}

		collides, err := orderIndexTaken(ctx, tx, "subtasks", scopeClause, scopeArgs, orderIndex, id)
		if err != nil {
			return err
		}
		if collides {
			return orderIndexConflict("subtask", id)
		}

		res, err := tx.Exec(ctx,
			`UPDATE subtasks SET name = ?, description = ?, assignee = ?, order_index = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			name, description, assignee, orderIndex, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &types.EntityNotFound{Entity: "subtask", ID: id}
		}

		if err := touchTaskAndAncestors(ctx, tx, taskID); err != nil {
			return err
		}
		return recordEvent(ctx, tx, "subtask", id, "updated", "")
	})
}

// SetStatus writes a new status directly within the caller's transaction.
// Preflight checks live in internal/status.
func (r *SubTaskRepo) SetStatus(ctx context.Context, tx *store.Tx, id int64, status types.Status) error {
	res, err := tx.Exec(ctx,
		`UPDATE subtasks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &types.EntityNotFound{Entity: "subtask", ID: id}
	}
	return recordEvent(ctx, tx, "subtask", id, "status_changed", "")
}

func (r *SubTaskRepo) Delete(ctx context.Context, id int64) error {
	return r.store.Transact(ctx, func(tx *store.Tx) error {
		res, err := tx.Exec(ctx, `DELETE FROM subtasks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &types.EntityNotFound{Entity: "subtask", ID: id}
		}
		return recordEvent(ctx, tx, "subtask", id, "deleted", "")
	})
}
