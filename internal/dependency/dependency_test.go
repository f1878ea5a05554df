package dependency

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Init(ctx, false); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
	})
	return s
}

func seedTasks(t *testing.T, s *store.Store, n int) []int64 {
	t.Helper()
	ctx := context.Background()

	if err := s.Transact(ctx, func(tx *store.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO projects (id, name) VALUES (1, 'p')`)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO subprojects (id, project_id, name) VALUES (1, 1, 'sp')`)
		return err
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	var ids []int64
	for i := 0; i < n; i++ {
		var id int64
		err := s.Transact(ctx, func(tx *store.Tx) error {
			res, err := tx.Exec(ctx, `INSERT INTO tasks (project_id, subproject_id, name) VALUES (1, 1, ?)`, fmt.Sprintf("task-%d", i))
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			return err
		})
		if err != nil {
			t.Fatalf("seed task failed: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestAddEdgeAndQuery(t *testing.T) {
	s := newTestStore(t)
	ids := seedTasks(t, s, 2)
	engine := NewTaskEngine(s)
	ctx := context.Background()

	if err := engine.AddEdge(ctx, ids[0], ids[1]); err != nil {
		t.Fatalf("AddEdge() failed: %v", err)
	}

	succs, err := engine.Successors(ctx, ids[0])
	if err != nil {
		t.Fatalf("Successors() failed: %v", err)
	}
	if len(succs) != 1 || succs[0] != ids[1] {
		t.Errorf("expected [%d], got %v", ids[1], succs)
	}
}

func TestAddEdgeRejectsDirectCycle(t *testing.T) {
	s := newTestStore(t)
	ids := seedTasks(t, s, 1)
	engine := NewTaskEngine(s)
	ctx := context.Background()

	err := engine.AddEdge(ctx, ids[0], ids[0])
	var violation *types.ConstraintViolation
	if !errors.As(err, &violation) || violation.Reason != types.SelfEdge {
		t.Fatalf("expected ConstraintViolation{SelfEdge}, got %v", err)
	}
}

func TestAddEdgeRejectsDuplicateEdge(t *testing.T) {
	s := newTestStore(t)
	ids := seedTasks(t, s, 2)
	engine := NewTaskEngine(s)
	ctx := context.Background()

	if err := engine.AddEdge(ctx, ids[0], ids[1]); err != nil {
		t.Fatalf("AddEdge() failed: %v", err)
	}

	err := engine.AddEdge(ctx, ids[0], ids[1])
	var violation *types.ConstraintViolation
	if !errors.As(err, &violation) || violation.Reason != types.DuplicateEdge {
		t.Fatalf("expected ConstraintViolation{DuplicateEdge}, got %v", err)
	}
}

func TestAddEdgeRejectsCrossScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Transact(ctx, func(tx *store.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO projects (id, name) VALUES (1, 'p1')`); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO projects (id, name) VALUES (2, 'p2')`); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO tasks (project_id, name) VALUES (1, 'a')`); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO tasks (project_id, name) VALUES (2, 'b')`)
		return err
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	engine := NewTaskEngine(s)
	err := engine.AddEdge(ctx, 1, 2)
	var violation *types.ConstraintViolation
	if !errors.As(err, &violation) || violation.Reason != types.CrossScopeEdge {
		t.Fatalf("expected ConstraintViolation{CrossScopeEdge}, got %v", err)
	}
}

func TestAddEdgeRejectsTransitiveCycle(t *testing.T) {
	s := newTestStore(t)
	ids := seedTasks(t, s, 3)
	engine := NewTaskEngine(s)
	ctx := context.Background()

	if err := engine.AddEdge(ctx, ids[0], ids[1]); err != nil {
		t.Fatalf("AddEdge(0,1) failed: %v", err)
	}
	if err := engine.AddEdge(ctx, ids[1], ids[2]); err != nil {
		t.Fatalf("AddEdge(1,2) failed: %v", err)
	}

	err := engine.AddEdge(ctx, ids[2], ids[0])
	var cyc *types.CyclicDependency
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CyclicDependency closing 2->0, got %v", err)
	}
}

func TestWouldCycleDoesNotMutate(t *testing.T) {
	s := newTestStore(t)
	ids := seedTasks(t, s, 2)
	engine := NewTaskEngine(s)
	ctx := context.Background()

	would, err := engine.WouldCycle(ctx, ids[0], ids[0])
	if err != nil {
		t.Fatalf("WouldCycle() failed: %v", err)
	}
	if !would {
		t.Error("expected self-edge to be flagged as a cycle")
	}

	succs, err := engine.Successors(ctx, ids[0])
	if err != nil {
		t.Fatalf("Successors() failed: %v", err)
	}
	if len(succs) != 0 {
		t.Errorf("WouldCycle must not mutate the graph, found edges %v", succs)
	}
}

func TestBridgeRewiresAroundRemovedNode(t *testing.T) {
	s := newTestStore(t)
	ids := seedTasks(t, s, 3)
	engine := NewTaskEngine(s)
	ctx := context.Background()

	if err := engine.AddEdge(ctx, ids[0], ids[1]); err != nil {
		t.Fatalf("AddEdge(0,1) failed: %v", err)
	}
	if err := engine.AddEdge(ctx, ids[1], ids[2]); err != nil {
		t.Fatalf("AddEdge(1,2) failed: %v", err)
	}

	if err := s.Transact(ctx, func(tx *store.Tx) error {
		return engine.Bridge(ctx, tx, ids[1])
	}); err != nil {
		t.Fatalf("Bridge() failed: %v", err)
	}

	succs, err := engine.Successors(ctx, ids[0])
	if err != nil {
		t.Fatalf("Successors() failed: %v", err)
	}
	if len(succs) != 1 || succs[0] != ids[2] {
		t.Errorf("expected bridge to connect %d directly to %d, got %v", ids[0], ids[2], succs)
	}

	remaining, err := engine.Successors(ctx, ids[1])
	if err != nil {
		t.Fatalf("Successors() failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected all edges touching bridged node to be removed, got %v", remaining)
	}
}

func TestRemoveEdgeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ids := seedTasks(t, s, 2)
	engine := NewTaskEngine(s)
	ctx := context.Background()

	if err := engine.RemoveEdge(ctx, ids[0], ids[1]); err != nil {
		t.Fatalf("RemoveEdge() on nonexistent edge should not error, got %v", err)
	}
}
