// Command demo exercises taskgraph the way an external collaborator
// would: open an engine, build a small hierarchy, add a dependency,
// walk it through status transitions, capture a template, and run a
// doctor scan. Modeled on the teacher's examples/library-usage/main.go.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	taskgraph "github.com/hirosof/ProjectManagementTool"
	"github.com/hirosof/ProjectManagementTool/internal/config"
	"github.com/hirosof/ProjectManagementTool/internal/logging"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	opts := config.Default()
	logger := logging.New("", opts.LogMaxSizeMB, opts.LogMaxBackups)

	dbPath := "demo.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}
	defer os.Remove(dbPath)

	ctx := context.Background()
	opts.DatabasePath = dbPath
	opts.ForceInit = true
	engine, err := taskgraph.OpenWithOptions(ctx, opts)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer func() { _ = engine.Close() }()
	logger.Info("opened engine at %s", dbPath)

	project := &taskgraph.Project{Name: "Website relaunch", Description: "Q3 relaunch"}
	if err := engine.Projects.Create(ctx, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	phase := &taskgraph.SubProject{ProjectID: project.ID, Name: "Content migration"}
	if err := engine.SubProjects.Create(ctx, phase); err != nil {
		return fmt.Errorf("create subproject: %w", err)
	}

	draft := &taskgraph.Task{ProjectID: project.ID, SubProjectID: &phase.ID, Name: "Draft new copy"}
	review := &taskgraph.Task{ProjectID: project.ID, SubProjectID: &phase.ID, Name: "Review copy"}
	if err := engine.Tasks.Create(ctx, draft); err != nil {
		return fmt.Errorf("create task draft: %w", err)
	}
	if err := engine.Tasks.Create(ctx, review); err != nil {
		return fmt.Errorf("create task review: %w", err)
	}

	if err := engine.TaskDependencies.AddEdge(ctx, draft.ID, review.ID); err != nil {
		return fmt.Errorf("add dependency: %w", err)
	}
	logger.Info("review depends on draft")

	err = engine.TaskStatus.UpdateStatus(ctx, review.ID, taskgraph.StatusDone, engine.Tasks.SetStatus)
	var transErr *types.StatusTransitionError
	if errors.As(err, &transErr) {
		logger.Warn("cannot close review yet: %s", transErr.Reason)
	} else if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}

	if err := engine.TaskStatus.UpdateStatus(ctx, draft.ID, taskgraph.StatusDone, engine.Tasks.SetStatus); err != nil {
		return fmt.Errorf("update draft status: %w", err)
	}
	if err := engine.TaskStatus.UpdateStatus(ctx, review.ID, taskgraph.StatusDone, engine.Tasks.SetStatus); err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	logger.Info("draft and review are both DONE")

	tpl, external, err := engine.Templates.Save(ctx, phase.ID, "content-migration-template", "", true)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	logger.Info("captured template %q with %d external dependency warnings", tpl.Name, len(external))

	project2 := &taskgraph.Project{Name: "Second site relaunch"}
	if err := engine.Projects.Create(ctx, project2); err != nil {
		return fmt.Errorf("create second project: %w", err)
	}
	applied, err := engine.Templates.Apply(ctx, tpl.ID, project2.ID, "Content migration (copy)")
	if err != nil {
		return fmt.Errorf("apply template: %w", err)
	}
	logger.Info("applied template into subproject %d (%d tasks)", applied.SubProjectID, len(applied.TaskIDs))

	report, err := engine.Doctor.Scan(ctx)
	if err != nil {
		return fmt.Errorf("doctor scan: %w", err)
	}
	logger.Info("doctor scan found %d issue(s)", len(report.Findings))
	for _, f := range report.Findings {
		logger.Warn("[%s] %s %d: %s", f.Code, f.Entity, f.ID, f.Detail)
	}

	return nil
}
