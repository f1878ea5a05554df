// Package dependency implements a single graph engine, parameterized by
// edge-table identifier, instantiated once per independent DAG (Task
// level and SubTask level). Cycle detection is BFS over the edge table
// in Go, not a recursive SQL CTE: adding predecessor -> successor would
// create a cycle exactly when successor already has a forward path to
// predecessor, so the check walks forward from successor looking for
// predecessor.
package dependency

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

// Engine operates over one edge table, identified by name, whose rows
// are (predecessor_id, successor_id) pairs referencing a single node
// table.
type Engine struct {
	store       *store.Store
	edgeTable   string
	nodeTable   string
	layer       types.DependencyLayer
	scopeColumn string
}

// NewTaskEngine returns the engine over the Task-level DAG. Edges are
// scoped to share a Project (project_id), per the co-scope rule.
func NewTaskEngine(s *store.Store) *Engine {
	return &Engine{store: s, edgeTable: "task_dependencies", nodeTable: "tasks", layer: types.LayerTask, scopeColumn: "project_id"}
}

// NewSubTaskEngine returns the engine over the SubTask-level DAG. Edges
// are scoped to share a parent Task (task_id), per the co-scope rule.
func NewSubTaskEngine(s *store.Store) *Engine {
	return &Engine{store: s, edgeTable: "subtask_dependencies", nodeTable: "subtasks", layer: types.LayerSubTask, scopeColumn: "task_id"}
}

// AddEdge inserts predecessor -> successor after checking that both
// nodes exist, share the required co-scope, the edge is not a self-edge
// or duplicate, and the edge would not create a cycle.
func (e *Engine) AddEdge(ctx context.Context, predecessorID, successorID int64) error {
	if predecessorID == successorID {
		return &types.ConstraintViolation{Reason: types.SelfEdge, Entity: e.nodeTable, ID: predecessorID}
	}

	return e.store.Transact(ctx, func(tx *store.Tx) error {
		scopes := make(map[int64]int64, 2)
		for _, id := range []int64{predecessorID, successorID} {
			var scope int64
			err := tx.QueryRow(ctx, "SELECT "+e.scopeColumn+" FROM "+e.nodeTable+" WHERE id = ?", id).Scan(&scope)
			if errors.Is(err, sql.ErrNoRows) {
				return &types.EntityNotFound{Entity: e.nodeTable, ID: id}
			}
			if err != nil {
				return err
			}
			scopes[id] = scope
		}
		if scopes[predecessorID] != scopes[successorID] {
			return &types.ConstraintViolation{Reason: types.CrossScopeEdge, Entity: e.nodeTable, ID: predecessorID}
		}

		var dup int
		if err := tx.QueryRow(ctx,
			"SELECT count(*) FROM "+e.edgeTable+" WHERE predecessor_id = ? AND successor_id = ?",
			predecessorID, successorID).Scan(&dup); err != nil {
			return err
		}
		if dup > 0 {
			return &types.ConstraintViolation{Reason: types.DuplicateEdge, Entity: e.edgeTable, ID: predecessorID}
		}

		reachable, err := e.reachableFrom(ctx, tx, successorID)
		if err != nil {
			return err
		}
		if reachable[predecessorID] {
			return &types.CyclicDependency{Predecessor: predecessorID, Successor: successorID, Layer: e.layer}
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO "+e.edgeTable+" (predecessor_id, successor_id) VALUES (?, ?)",
			predecessorID, successorID)
		return err
	})
}

// RemoveEdge deletes predecessor -> successor if present; it is not an
// error to remove an edge that does not exist.
func (e *Engine) RemoveEdge(ctx context.Context, predecessorID, successorID int64) error {
	return e.store.Transact(ctx, func(tx *store.Tx) error {
		_, err := tx.Exec(ctx,
			"DELETE FROM "+e.edgeTable+" WHERE predecessor_id = ? AND successor_id = ?",
			predecessorID, successorID)
		return err
	})
}

// WouldCycle reports whether adding predecessor -> successor would
// create a cycle, without mutating the graph.
func (e *Engine) WouldCycle(ctx context.Context, predecessorID, successorID int64) (bool, error) {
	if predecessorID == successorID {
		return true, nil
	}
	var result bool
	err := e.store.Transact(ctx, func(tx *store.Tx) error {
		reachable, err := e.reachableFrom(ctx, tx, successorID)
		if err != nil {
			return err
		}
		result = reachable[predecessorID]
		return nil
	})
	return result, err
}

// Predecessors returns the direct predecessors of id.
func (e *Engine) Predecessors(ctx context.Context, id int64) ([]int64, error) {
	rows, err := e.store.DB().QueryContext(ctx,
		"SELECT predecessor_id FROM "+e.edgeTable+" WHERE successor_id = ?", id)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// Successors returns the direct successors of id.
func (e *Engine) Successors(ctx context.Context, id int64) ([]int64, error) {
	rows, err := e.store.DB().QueryContext(ctx,
		"SELECT successor_id FROM "+e.edgeTable+" WHERE predecessor_id = ?", id)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// Bridge rewires every edge through id (each predecessor of id is
// connected directly to each successor of id) then removes every edge
// touching id. Used by the deletion engine's bridge mode.
func (e *Engine) Bridge(ctx context.Context, tx *store.Tx, id int64) error {
	predRows, err := tx.Query(ctx, "SELECT predecessor_id FROM "+e.edgeTable+" WHERE successor_id = ?", id)
	if err != nil {
		return err
	}
	preds, err := scanIDs(predRows)
	if err != nil {
		return err
	}

	succRows, err := tx.Query(ctx, "SELECT successor_id FROM "+e.edgeTable+" WHERE predecessor_id = ?", id)
	if err != nil {
		return err
	}
	succs, err := scanIDs(succRows)
	if err != nil {
		return err
	}

	for _, p := range preds {
		for _, s := range succs {
			if p == s {
				continue
			}
			if _, err := tx.Exec(ctx,
				"INSERT OR IGNORE INTO "+e.edgeTable+" (predecessor_id, successor_id) VALUES (?, ?)", p, s); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM "+e.edgeTable+" WHERE predecessor_id = ? OR successor_id = ?", id, id); err != nil {
		return err
	}
	return nil
}

// reachableFrom walks forward from start and returns the set of node IDs
// reachable via one or more edges, using a BFS queue and visited set.
func (e *Engine) reachableFrom(ctx context.Context, tx *store.Tx, start int64) (map[int64]bool, error) {
	visited := map[int64]bool{}
	queue := []int64{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		rows, err := tx.Query(ctx, "SELECT successor_id FROM "+e.edgeTable+" WHERE predecessor_id = ?", current)
		if err != nil {
			return nil, err
		}
		next, err := scanIDs(rows)
		if err != nil {
			return nil, err
		}

		for _, n := range next {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}

	return visited, nil
}

func scanIDs(rows interface{ Next() bool; Scan(...any) error; Close() error; Err() error }) ([]int64, error) {
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
