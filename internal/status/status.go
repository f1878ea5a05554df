// Package status implements the DONE-transition preflight checks and a
// dry-run oracle, generalized from the teacher's validator-chain idiom
// (internal/validation/issue.go's ForClose) to this engine's two-layer
// status model.
package status

import (
	"context"

	"github.com/hirosof/ProjectManagementTool/internal/dependency"
	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
	"github.com/hirosof/ProjectManagementTool/internal/validation"
)

// Engine applies status transitions for one layer (Task or SubTask),
// gating moves into DONE on open predecessor dependencies and, for
// Tasks, on every child SubTask already being DONE.
type Engine struct {
	store *store.Store
	deps  *dependency.Engine
	layer types.DependencyLayer
}

// NewTaskStatusEngine builds the status engine for Tasks.
func NewTaskStatusEngine(s *store.Store, deps *dependency.Engine) *Engine {
	return &Engine{store: s, deps: deps, layer: types.LayerTask}
}

// NewSubTaskStatusEngine builds the status engine for SubTasks.
func NewSubTaskStatusEngine(s *store.Store, deps *dependency.Engine) *Engine {
	return &Engine{store: s, deps: deps, layer: types.LayerSubTask}
}

// Preflight is the read-only result of evaluating whether a transition to
// DONE would currently be allowed.
type Preflight struct {
	Allowed         bool
	OpenPredecessors []int64
	IncompleteChildren []int64
}

// DryRun evaluates whether id could transition to DONE without making
// any change.
func (e *Engine) DryRun(ctx context.Context, id int64) (*Preflight, error) {
	exists, err := e.nodeExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &types.StatusTransitionError{Reason: types.ReasonNodeNotFound, Details: id}
	}

	pf := &Preflight{Allowed: true}

	preds, err := e.deps.Predecessors(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range preds {
		done, err := e.nodeIsDone(ctx, p)
		if err != nil {
			return nil, err
		}
		if !done {
			pf.OpenPredecessors = append(pf.OpenPredecessors, p)
		}
	}

	if e.layer == types.LayerTask {
		incomplete, err := e.incompleteChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		pf.IncompleteChildren = incomplete
	}

	pf.Allowed = len(pf.OpenPredecessors) == 0 && len(pf.IncompleteChildren) == 0
	return pf, nil
}

// UpdateStatus validates the target status and, if it is DONE, runs the
// same preflight DryRun performs before writing.
func (e *Engine) UpdateStatus(ctx context.Context, id int64, newStatus types.Status, setter func(context.Context, *store.Tx, int64, types.Status) error) error {
	if err := validation.StatusValue("status", newStatus); err != nil {
		return err
	}

	if newStatus == types.StatusDone {
		pf, err := e.DryRun(ctx, id)
		if err != nil {
			return err
		}
		if !pf.Allowed {
			if len(pf.OpenPredecessors) > 0 {
				return &types.StatusTransitionError{Reason: types.ReasonPrerequisiteNotDone, Details: pf.OpenPredecessors}
			}
			return &types.StatusTransitionError{Reason: types.ReasonChildNotDone, Details: pf.IncompleteChildren}
		}
	}

	return e.store.Transact(ctx, func(tx *store.Tx) error {
		return setter(ctx, tx, id, newStatus)
	})
}

func (e *Engine) nodeTable() string {
	if e.layer == types.LayerTask {
		return "tasks"
	}
	return "subtasks"
}

func (e *Engine) nodeExists(ctx context.Context, id int64) (bool, error) {
	var exists int
	row := e.store.DB().QueryRowContext(ctx, "SELECT count(*) FROM "+e.nodeTable()+" WHERE id = ?", id)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (e *Engine) nodeIsDone(ctx context.Context, id int64) (bool, error) {
	var status string
	row := e.store.DB().QueryRowContext(ctx, "SELECT status FROM "+e.nodeTable()+" WHERE id = ?", id)
	if err := row.Scan(&status); err != nil {
		return false, err
	}
	return types.Status(status) == types.StatusDone, nil
}

// incompleteChildren returns the IDs of SubTasks under Task id that are
// not DONE. Only meaningful for the Task-level engine.
func (e *Engine) incompleteChildren(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := e.store.DB().QueryContext(ctx,
		`SELECT id FROM subtasks WHERE task_id = ? AND status != ?`, taskID, string(types.StatusDone))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Dispatch routes a caller-supplied node type string to the matching
// layer engine, so callers working against a mixed Task/SubTask
// reference don't need to branch themselves.
type Dispatch struct {
	Tasks    *Engine
	SubTasks *Engine
}

// NewDispatch builds a Dispatch over the given Task and SubTask engines.
func NewDispatch(tasks, subtasks *Engine) *Dispatch {
	return &Dispatch{Tasks: tasks, SubTasks: subtasks}
}

// For resolves nodeType ("task" or "subtask") to its Engine, returning a
// StatusTransitionError with ReasonInvalidNodeType for anything else.
func (d *Dispatch) For(nodeType string) (*Engine, error) {
	switch nodeType {
	case "task":
		return d.Tasks, nil
	case "subtask":
		return d.SubTasks, nil
	default:
		return nil, &types.StatusTransitionError{Reason: types.ReasonInvalidNodeType, Details: nodeType}
	}
}
