package deletion

import (
	"context"
	"errors"
	"testing"

	"github.com/hirosof/ProjectManagementTool/internal/dependency"
	"github.com/hirosof/ProjectManagementTool/internal/repository"
	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

type fixture struct {
	store       *store.Store
	projects    *repository.ProjectRepo
	subprojects *repository.SubProjectRepo
	tasks       *repository.TaskRepo
	subtasks    *repository.SubTaskRepo
	taskDeps    *dependency.Engine
	taskDel     *Engine
	subDel      *Engine
}

func newFixture(t *testing.T) *fixture {
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

	taskDeps := dependency.NewTaskEngine(s)

	return &fixture{
		store:       s,
		projects:    repository.NewProjectRepo(s),
		subprojects: repository.NewSubProjectRepo(s),
		tasks:       repository.NewTaskRepo(s),
		subtasks:    repository.NewSubTaskRepo(s),
		taskDeps:    taskDeps,
		taskDel:     NewTaskEngine(s, taskDeps),
		subDel:      NewSubProjectEngine(s),
	}
}

func (f *fixture) seedSubProject(t *testing.T) *types.SubProject {
	t.Helper()
	ctx := context.Background()
	p := &types.Project{Name: "Launch"}
	if err := f.projects.Create(ctx, p); err != nil {
		t.Fatalf("project Create() failed: %v", err)
	}
	sp := &types.SubProject{ProjectID: p.ID, Name: "Phase"}
	if err := f.subprojects.Create(ctx, sp); err != nil {
		t.Fatalf("subproject Create() failed: %v", err)
	}
	return sp
}

func TestDryRunReportsChildrenAndEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sp := f.seedSubProject(t)

	a := &types.Task{ProjectID: sp.ProjectID, SubProjectID: &sp.ID, Name: "A"}
	b := &types.Task{ProjectID: sp.ProjectID, SubProjectID: &sp.ID, Name: "B"}
	if err := f.tasks.Create(ctx, a); err != nil {
		t.Fatalf("task Create(A) failed: %v", err)
	}
	if err := f.tasks.Create(ctx, b); err != nil {
		t.Fatalf("task Create(B) failed: %v", err)
	}
	if err := f.taskDeps.AddEdge(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("AddEdge() failed: %v", err)
	}

	impact, err := f.taskDel.DryRun(ctx, a.ID)
	if err != nil {
		t.Fatalf("DryRun() failed: %v", err)
	}
	if impact.DependentCount != 1 {
		t.Errorf("expected 1 dependent, got %d", impact.DependentCount)
	}
}

// Restrict mode only blocks on children; a node with incident
// dependency edges but no children deletes successfully, with the edges
// cascading away via the dependency table's FK ON DELETE CASCADE.
func TestRestrictModeCascadesDependentsWithoutChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sp := f.seedSubProject(t)

	a := &types.Task{ProjectID: sp.ProjectID, SubProjectID: &sp.ID, Name: "A"}
	b := &types.Task{ProjectID: sp.ProjectID, SubProjectID: &sp.ID, Name: "B"}
	if err := f.tasks.Create(ctx, a); err != nil {
		t.Fatalf("task Create(A) failed: %v", err)
	}
	if err := f.tasks.Create(ctx, b); err != nil {
		t.Fatalf("task Create(B) failed: %v", err)
	}
	if err := f.taskDeps.AddEdge(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("AddEdge() failed: %v", err)
	}

	_, err := f.taskDel.Delete(ctx, a.ID, ModeRestrict, func(ctx context.Context) error {
		return f.tasks.Delete(ctx, a.ID)
	})
	if err != nil {
		t.Fatalf("restrict Delete() of a dependency-only node should succeed, got %v", err)
	}

	_, err = f.tasks.Get(ctx, a.ID)
	var notFound *types.EntityNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected a to be deleted, got %v", err)
	}

	succs, err := f.taskDeps.Predecessors(ctx, b.ID)
	if err != nil {
		t.Fatalf("Predecessors() failed: %v", err)
	}
	if len(succs) != 0 {
		t.Errorf("expected the incident edge to cascade away, got predecessors %v", succs)
	}
}

func TestRestrictModeRefusesWithChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sp := f.seedSubProject(t)

	task := &types.Task{ProjectID: sp.ProjectID, SubProjectID: &sp.ID, Name: "Parent"}
	if err := f.tasks.Create(ctx, task); err != nil {
		t.Fatalf("task Create() failed: %v", err)
	}
	sub := &types.SubTask{TaskID: task.ID, Name: "Child"}
	if err := f.subtasks.Create(ctx, sub); err != nil {
		t.Fatalf("subtask Create() failed: %v", err)
	}

	_, err := f.taskDel.Delete(ctx, task.ID, ModeRestrict, func(ctx context.Context) error {
		return f.tasks.Delete(ctx, task.ID)
	})
	var delErr *types.DeletionError
	if !errors.As(err, &delErr) || delErr.Reason != types.ReasonChildExists {
		t.Fatalf("expected ReasonChildExists, got %v", err)
	}
}

func TestBridgeModeRewiresThenDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sp := f.seedSubProject(t)

	a := &types.Task{ProjectID: sp.ProjectID, SubProjectID: &sp.ID, Name: "A"}
	b := &types.Task{ProjectID: sp.ProjectID, SubProjectID: &sp.ID, Name: "B"}
	c := &types.Task{ProjectID: sp.ProjectID, SubProjectID: &sp.ID, Name: "C"}
	for _, task := range []*types.Task{a, b, c} {
		if err := f.tasks.Create(ctx, task); err != nil {
			t.Fatalf("task Create() failed: %v", err)
		}
	}
	if err := f.taskDeps.AddEdge(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("AddEdge(a,b) failed: %v", err)
	}
	if err := f.taskDeps.AddEdge(ctx, b.ID, c.ID); err != nil {
		t.Fatalf("AddEdge(b,c) failed: %v", err)
	}

	_, err := f.taskDel.Delete(ctx, b.ID, ModeBridge, func(ctx context.Context) error {
		return f.tasks.Delete(ctx, b.ID)
	})
	if err != nil {
		t.Fatalf("bridge Delete() failed: %v", err)
	}

	succs, err := f.taskDeps.Successors(ctx, a.ID)
	if err != nil {
		t.Fatalf("Successors() failed: %v", err)
	}
	if len(succs) != 1 || succs[0] != c.ID {
		t.Errorf("expected a bridged directly to c, got %v", succs)
	}

	_, err = f.tasks.Get(ctx, b.ID)
	var notFound *types.EntityNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected b to be deleted, got %v", err)
	}
}

func TestCascadeModeDeletesWithoutPrecheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sp := f.seedSubProject(t)

	_, err := f.subDel.Delete(ctx, sp.ID, ModeCascade, func(ctx context.Context) error {
		return f.subprojects.Delete(ctx, sp.ID)
	})
	if err != nil {
		t.Fatalf("cascade Delete() failed: %v", err)
	}

	_, err = f.subprojects.Get(ctx, sp.ID)
	var notFound *types.EntityNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected subproject to be deleted, got %v", err)
	}
}
