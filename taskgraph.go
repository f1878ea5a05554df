// Package taskgraph is the public facade over the project-management
// engine: a single import surface re-exporting the store, repositories,
// dependency engines, status/deletion/template engines, and doctor,
// the same role beads.go plays for the teacher repository this engine
// is descended from.
package taskgraph

import (
	"context"
	"time"

	"github.com/hirosof/ProjectManagementTool/internal/config"
	"github.com/hirosof/ProjectManagementTool/internal/deletion"
	"github.com/hirosof/ProjectManagementTool/internal/dependency"
	"github.com/hirosof/ProjectManagementTool/internal/doctor"
	"github.com/hirosof/ProjectManagementTool/internal/repository"
	"github.com/hirosof/ProjectManagementTool/internal/status"
	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/template"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

// Type aliases so a collaborator only ever imports this one package.
type (
	Project            = types.Project
	SubProject         = types.SubProject
	Task               = types.Task
	SubTask            = types.SubTask
	Status             = types.Status
	Template           = types.Template
	ExternalDependency = template.ExternalDependency
	DeletionMode       = deletion.Mode
	Report             = doctor.Report
	Finding            = doctor.Finding
	Options            = config.Options
)

// Re-exported status constants.
const (
	StatusUnset      = types.StatusUnset
	StatusNotStarted = types.StatusNotStarted
	StatusInProgress = types.StatusInProgress
	StatusDone       = types.StatusDone
)

// Re-exported deletion modes.
const (
	DeletionRestrict = deletion.ModeRestrict
	DeletionBridge   = deletion.ModeBridge
	DeletionCascade  = deletion.ModeCascade
)

// Engine bundles every component over one Store into a single handle,
// the shape an external collaborator actually wants to hold.
type Engine struct {
	Store *store.Store

	Projects    *repository.ProjectRepo
	SubProjects *repository.SubProjectRepo
	Tasks       *repository.TaskRepo
	SubTasks    *repository.SubTaskRepo

	TaskDependencies    *dependency.Engine
	SubTaskDependencies *dependency.Engine

	TaskStatus    *status.Engine
	SubTaskStatus *status.Engine
	StatusDispatch *status.Dispatch

	ProjectDeletion    *deletion.Engine
	SubProjectDeletion *deletion.Engine
	TaskDeletion       *deletion.Engine
	SubTaskDeletion    *deletion.Engine

	Templates *template.Engine
	Doctor    *doctor.Doctor
}

// Open opens the database at path, applies the schema (forcing a
// drop-and-reapply when force is true), and wires every engine over it.
// It is a thin wrapper over OpenWithOptions for callers that have no
// config.Options to assemble.
func Open(ctx context.Context, path string, force bool) (*Engine, error) {
	return OpenWithOptions(ctx, &config.Options{
		DatabasePath: path,
		BusyTimeout:  5 * time.Second,
		ForceInit:    force,
	})
}

// OpenWithOptions opens the database at opts.DatabasePath with the busy
// timeout opts.BusyTimeout, applies the schema (forcing a
// drop-and-reapply when opts.ForceInit is true), and wires every engine
// over it.
func OpenWithOptions(ctx context.Context, opts *config.Options) (*Engine, error) {
	s, err := store.OpenWithTimeout(ctx, opts.DatabasePath, opts.BusyTimeout)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx, opts.ForceInit); err != nil {
		_ = s.Close()
		return nil, err
	}

	taskDeps := dependency.NewTaskEngine(s)
	subtaskDeps := dependency.NewSubTaskEngine(s)
	taskStatus := status.NewTaskStatusEngine(s, taskDeps)
	subtaskStatus := status.NewSubTaskStatusEngine(s, subtaskDeps)

	return &Engine{
		Store: s,

		Projects:    repository.NewProjectRepo(s),
		SubProjects: repository.NewSubProjectRepo(s),
		Tasks:       repository.NewTaskRepo(s),
		SubTasks:    repository.NewSubTaskRepo(s),

		TaskDependencies:    taskDeps,
		SubTaskDependencies: subtaskDeps,

		TaskStatus:     taskStatus,
		SubTaskStatus:  subtaskStatus,
		StatusDispatch: status.NewDispatch(taskStatus, subtaskStatus),

		ProjectDeletion:    deletion.NewProjectEngine(s),
		SubProjectDeletion: deletion.NewSubProjectEngine(s),
		TaskDeletion:       deletion.NewTaskEngine(s, taskDeps),
		SubTaskDeletion:    deletion.NewSubTaskEngine(s, subtaskDeps),

		Templates: template.NewEngine(s),
		Doctor:    doctor.New(s, taskDeps, subtaskDeps),
	}, nil
}

// Close releases the underlying Store.
func (e *Engine) Close() error {
	return e.Store.Close()
}
