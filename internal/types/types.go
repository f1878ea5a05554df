// Package types defines the entities, enums, and error taxonomy shared
// across the engine's internal packages.
package types

import "time"

// Status is the closed set of lifecycle states for a Task or SubTask.
type Status string

const (
	StatusUnset       Status = "UNSET"
	StatusNotStarted  Status = "NOT_STARTED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusDone        Status = "DONE"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUnset, StatusNotStarted, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// DependencyLayer distinguishes the two independent dependency graphs.
type DependencyLayer string

const (
	LayerTask    DependencyLayer = "task"
	LayerSubTask DependencyLayer = "subtask"
)

// Project is the top level of the hierarchy.
type Project struct {
	ID          int64
	Name        string
	Description string
	OrderIndex  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubProject belongs to exactly one Project. Nesting is rejected at the
// create path (see SPEC_FULL.md Open Question resolutions); ParentID
// stays in the struct because the schema column remains nullable, but
// every code path in this engine treats it as always nil.
type SubProject struct {
	ID          int64
	ProjectID   int64
	ParentID    *int64
	Name        string
	Description string
	OrderIndex  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task belongs to exactly one Project, and optionally to one SubProject
// within it. A nil SubProjectID means the Task sits directly under the
// Project rather than under one of its phases.
type Task struct {
	ID           int64
	ProjectID    int64
	SubProjectID *int64
	Name         string
	Description  string
	Status       Status
	OrderIndex   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SubTask belongs to exactly one Task. Assignee is a supplemental,
// unvalidated free-text field (see SPEC_FULL.md §3 supplement).
type SubTask struct {
	ID         int64
	TaskID     int64
	Name       string
	Description string
	Status     Status
	Assignee   string
	OrderIndex int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TaskDependency is a directed edge in the Task-level DAG: Predecessor
// must complete before Successor.
type TaskDependency struct {
	PredecessorID int64
	SuccessorID   int64
	CreatedAt     time.Time
}

// SubTaskDependency is a directed edge in the SubTask-level DAG.
type SubTaskDependency struct {
	PredecessorID int64
	SuccessorID   int64
	CreatedAt     time.Time
}

// Template is a captured snapshot of a SubProject subtree. IncludeTasks
// records whether Task/SubTask rows were captured alongside it, or only
// the Template row itself plus any detected external dependencies.
type Template struct {
	ID          int64
	Name        string
	Description string
	SourceSubProjectID int64
	IncludeTasks bool
	CreatedAt   time.Time
}

// TemplateTask is a captured Task within a Template.
type TemplateTask struct {
	ID          int64
	TemplateID  int64
	Name        string
	Description string
	OrderIndex  int
}

// TemplateSubTask is a captured SubTask within a Template.
type TemplateSubTask struct {
	ID             int64
	TemplateTaskID int64
	Name           string
	Description    string
	Assignee       string
	OrderIndex     int
}

// TemplateDependency is a captured dependency edge, scoped to the layer
// it was captured from, referencing template-local task/subtask ids.
type TemplateDependency struct {
	ID                int64
	TemplateID        int64
	Layer             DependencyLayer
	PredecessorLocal  int64
	SuccessorLocal    int64
}

// Event is an append-only audit row (SPEC_FULL.md §3 supplement).
type Event struct {
	ID         int64
	EntityType string
	EntityID   int64
	EventType  string
	Actor      string
	Detail     string
	CreatedAt  time.Time
}
