// Package deletion implements the three deletion modes (restrict, bridge,
// cascade) with dry-run impact summaries, built on the repository
// primitives and the dependency engine's Bridge operation.
package deletion

import (
	"context"

	"github.com/hirosof/ProjectManagementTool/internal/dependency"
	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

// Mode is the closed set of deletion strategies.
type Mode string

const (
	ModeRestrict Mode = "restrict"
	ModeBridge   Mode = "bridge"
	ModeCascade  Mode = "cascade"
)

// Impact summarizes what a deletion would affect, used both for dry runs
// and reported back after a real deletion.
type Impact struct {
	Entity          string
	ID              int64
	ChildCount      int
	DependentCount  int
	DependencyCount int
}

// Engine performs deletions for one node table, consulting the
// dependency engine over the matching edge table when the node
// participates in a DAG (Task, SubTask).
type Engine struct {
	store    *store.Store
	entity   string
	nodeTable string
	childTable string
	childFK   string
	deps     *dependency.Engine // nil if this entity has no dependency layer
}

// NewProjectEngine deletes Projects; Projects have no dependency layer.
func NewProjectEngine(s *store.Store) *Engine {
	return &Engine{store: s, entity: "project", nodeTable: "projects", childTable: "subprojects", childFK: "project_id"}
}

// NewSubProjectEngine deletes SubProjects; SubProjects have no
// dependency layer.
func NewSubProjectEngine(s *store.Store) *Engine {
	return &Engine{store: s, entity: "subproject", nodeTable: "subprojects", childTable: "tasks", childFK: "subproject_id"}
}

// NewTaskEngine deletes Tasks, consulting the Task dependency DAG.
func NewTaskEngine(s *store.Store, deps *dependency.Engine) *Engine {
	return &Engine{store: s, entity: "task", nodeTable: "tasks", childTable: "subtasks", childFK: "task_id", deps: deps}
}

// NewSubTaskEngine deletes SubTasks, consulting the SubTask dependency
// DAG. SubTasks are leaves, so childTable is empty.
func NewSubTaskEngine(s *store.Store, deps *dependency.Engine) *Engine {
	return &Engine{store: s, entity: "subtask", nodeTable: "subtasks", deps: deps}
}

// DryRun computes the Impact of deleting id without making any change.
func (e *Engine) DryRun(ctx context.Context, id int64) (*Impact, error) {
	impact := &Impact{Entity: e.entity, ID: id}

	if e.childTable != "" {
		var count int
		row := e.store.DB().QueryRowContext(ctx,
			"SELECT count(*) FROM "+e.childTable+" WHERE "+e.childFK+" = ?", id)
		if err := row.Scan(&count); err != nil {
			return nil, err
		}
		impact.ChildCount = count
	}

	if e.deps != nil {
		preds, err := e.deps.Predecessors(ctx, id)
		if err != nil {
			return nil, err
		}
		impact.DependencyCount = len(preds)

		succs, err := e.deps.Successors(ctx, id)
		if err != nil {
			return nil, err
		}
		impact.DependentCount = len(succs)
	}

	return impact, nil
}

// Delete removes id under the given mode. deleteRow performs the raw
// repository delete once any DAG bookkeeping for the chosen mode is
// done.
func (e *Engine) Delete(ctx context.Context, id int64, mode Mode, deleteRow func(context.Context) error) (*Impact, error) {
	impact, err := e.DryRun(ctx, id)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeRestrict:
		// Restrict only refuses on children; incident dependency edges
		// cascade away silently along with the row (FK ON DELETE CASCADE
		// on the edge tables).
		if impact.ChildCount > 0 {
			return nil, &types.DeletionError{Reason: types.ReasonChildExists, Details: impact}
		}

	case ModeBridge:
		if impact.ChildCount > 0 {
			return nil, &types.DeletionError{Reason: types.ReasonChildExists, Details: impact}
		}
		if e.deps != nil {
			if err := e.store.Transact(ctx, func(tx *store.Tx) error {
				return e.deps.Bridge(ctx, tx, id)
			}); err != nil {
				return nil, err
			}
		}

	case ModeCascade:
		// FK ON DELETE CASCADE on both the child table and the edge
		// tables does the rest; nothing to precompute here.

	default:
		return nil, &types.ValidationError{Field: "mode", Reason: "not a recognized deletion mode"}
	}

	if err := deleteRow(ctx); err != nil {
		return nil, err
	}
	return impact, nil
}
