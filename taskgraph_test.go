package taskgraph

import (
	"context"
	"testing"
	"time"

	"github.com/hirosof/ProjectManagementTool/internal/config"
)

func TestOpenWiresEveryEngine(t *testing.T) {
	ctx := context.Background()
	engine, err := Open(ctx, t.TempDir()+"/test.db", false)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := engine.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
	})

	p := &Project{Name: "Launch"}
	if err := engine.Projects.Create(ctx, p); err != nil {
		t.Fatalf("Projects.Create() failed: %v", err)
	}

	sp := &SubProject{ProjectID: p.ID, Name: "Phase 1"}
	if err := engine.SubProjects.Create(ctx, sp); err != nil {
		t.Fatalf("SubProjects.Create() failed: %v", err)
	}

	task := &Task{ProjectID: p.ID, SubProjectID: &sp.ID, Name: "Draft the brief"}
	if err := engine.Tasks.Create(ctx, task); err != nil {
		t.Fatalf("Tasks.Create() failed: %v", err)
	}

	report, err := engine.Doctor.Scan(ctx)
	if err != nil {
		t.Fatalf("Doctor.Scan() failed: %v", err)
	}
	if len(report.Findings) != 0 {
		t.Errorf("expected no findings, got %+v", report.Findings)
	}
}

func TestOpenForceReinitializesSchema(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/test.db"

	engine, err := Open(ctx, path, false)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	p := &Project{Name: "Launch"}
	if err := engine.Projects.Create(ctx, p); err != nil {
		t.Fatalf("Projects.Create() failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	engine2, err := Open(ctx, path, true)
	if err != nil {
		t.Fatalf("forced Open() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := engine2.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
	})

	projects, err := engine2.Projects.List(ctx)
	if err != nil {
		t.Fatalf("Projects.List() failed: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("expected forced reinit to clear data, got %d projects", len(projects))
	}
}

func TestOpenWithOptionsHonorsDatabasePathAndBusyTimeout(t *testing.T) {
	ctx := context.Background()
	opts := &config.Options{
		DatabasePath: t.TempDir() + "/configured.db",
		BusyTimeout:  2 * time.Second,
		ForceInit:    false,
	}

	engine, err := OpenWithOptions(ctx, opts)
	if err != nil {
		t.Fatalf("OpenWithOptions() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := engine.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
	})

	p := &Project{Name: "Launch"}
	if err := engine.Projects.Create(ctx, p); err != nil {
		t.Fatalf("Projects.Create() failed: %v", err)
	}

	if _, err := OpenWithOptions(ctx, opts); err == nil {
		t.Fatalf("expected re-Open without force to fail on the already-initialized store at opts.DatabasePath")
	}
}

func TestTaskDirectlyUnderProjectWithNoSubProject(t *testing.T) {
	ctx := context.Background()
	engine, err := Open(ctx, t.TempDir()+"/test.db", false)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := engine.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
	})

	p := &Project{Name: "Launch"}
	if err := engine.Projects.Create(ctx, p); err != nil {
		t.Fatalf("Projects.Create() failed: %v", err)
	}

	task := &Task{ProjectID: p.ID, Name: "Kickoff"}
	if err := engine.Tasks.Create(ctx, task); err != nil {
		t.Fatalf("Tasks.Create() failed: %v", err)
	}
	if task.SubProjectID != nil {
		t.Errorf("expected a direct Task to have a nil SubProjectID")
	}
}

func TestStatusDispatchRoutesByNodeType(t *testing.T) {
	ctx := context.Background()
	engine, err := Open(ctx, t.TempDir()+"/test.db", false)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := engine.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
	})

	taskEngine, err := engine.StatusDispatch.For("task")
	if err != nil || taskEngine != engine.TaskStatus {
		t.Fatalf("expected For(%q) to resolve TaskStatus, got %v, %v", "task", taskEngine, err)
	}
	subEngine, err := engine.StatusDispatch.For("subtask")
	if err != nil || subEngine != engine.SubTaskStatus {
		t.Fatalf("expected For(%q) to resolve SubTaskStatus, got %v, %v", "subtask", subEngine, err)
	}
	if _, err := engine.StatusDispatch.For("bogus"); err == nil {
		t.Fatalf("expected an unrecognized node type to fail")
	}
}
