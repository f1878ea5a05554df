package store

// schema defines the full relational layout for the engine. It is applied
// idempotently via CREATE TABLE IF NOT EXISTS; Init(force=true) drops every
// table below before reapplying it (see store.go).
const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK(length(name) > 0),
    description TEXT NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_projects_name ON projects(name);

CREATE TABLE IF NOT EXISTS subprojects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    parent_id INTEGER,
    name TEXT NOT NULL CHECK(length(name) > 0),
    description TEXT NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
    FOREIGN KEY (parent_id) REFERENCES subprojects(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_subprojects_project ON subprojects(project_id);

-- Nesting is rejected at the repository layer, but the scoped uniqueness
-- constraint still has to account for the nullable parent_id column:
-- one partial index for root subprojects, one for (currently unused)
-- nested ones, so a future nesting feature would not need a schema
-- migration to gain the same guarantee.
CREATE UNIQUE INDEX IF NOT EXISTS uniq_subprojects_name_root
    ON subprojects(project_id, name) WHERE parent_id IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uniq_subprojects_name_nested
    ON subprojects(parent_id, name) WHERE parent_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    subproject_id INTEGER,
    name TEXT NOT NULL CHECK(length(name) > 0),
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'UNSET',
    order_index INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
    FOREIGN KEY (subproject_id) REFERENCES subprojects(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_subproject ON tasks(subproject_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

-- A Task's name-uniqueness scope is its direct parent: either the
-- SubProject it sits under, or (when subproject_id is null) the Project
-- directly. Two partial indexes mirror the subprojects pair above.
CREATE UNIQUE INDEX IF NOT EXISTS uniq_tasks_name_direct
    ON tasks(project_id, name) WHERE subproject_id IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uniq_tasks_name_scoped
    ON tasks(subproject_id, name) WHERE subproject_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS subtasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER NOT NULL,
    name TEXT NOT NULL CHECK(length(name) > 0),
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'UNSET',
    assignee TEXT NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_subtasks_task ON subtasks(task_id);
CREATE INDEX IF NOT EXISTS idx_subtasks_status ON subtasks(status);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_subtasks_name ON subtasks(task_id, name);

CREATE TABLE IF NOT EXISTS task_dependencies (
    predecessor_id INTEGER NOT NULL,
    successor_id INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (predecessor_id, successor_id),
    FOREIGN KEY (predecessor_id) REFERENCES tasks(id) ON DELETE CASCADE,
    FOREIGN KEY (successor_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_task_deps_successor ON task_dependencies(successor_id);

CREATE TABLE IF NOT EXISTS subtask_dependencies (
    predecessor_id INTEGER NOT NULL,
    successor_id INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (predecessor_id, successor_id),
    FOREIGN KEY (predecessor_id) REFERENCES subtasks(id) ON DELETE CASCADE,
    FOREIGN KEY (successor_id) REFERENCES subtasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_subtask_deps_successor ON subtask_dependencies(successor_id);

CREATE TABLE IF NOT EXISTS templates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK(length(name) > 0),
    description TEXT NOT NULL DEFAULT '',
    source_subproject_id INTEGER NOT NULL,
    include_tasks BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_templates_name ON templates(name);

CREATE TABLE IF NOT EXISTS template_tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    template_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (template_id) REFERENCES templates(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS template_subtasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    template_task_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    assignee TEXT NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (template_task_id) REFERENCES template_tasks(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS template_dependencies (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    template_id INTEGER NOT NULL,
    layer TEXT NOT NULL,
    predecessor_local INTEGER NOT NULL,
    successor_local INTEGER NOT NULL,
    FOREIGN KEY (template_id) REFERENCES templates(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_type, entity_id);

-- schema_version's presence (rather than its value, which this engine
-- does not yet branch on) is what Init(force=false) checks to refuse
-- re-initializing an already-initialized store.
CREATE TABLE IF NOT EXISTS schema_version (
    id INTEGER PRIMARY KEY CHECK(id = 1),
    version INTEGER NOT NULL
);

CREATE VIEW IF NOT EXISTS ready_tasks AS
    SELECT t.id, t.subproject_id, t.name
    FROM tasks t
    WHERE t.status != 'DONE'
    AND NOT EXISTS (
        SELECT 1 FROM task_dependencies td
        JOIN tasks p ON p.id = td.predecessor_id
        WHERE td.successor_id = t.id AND p.status != 'DONE'
    );

CREATE VIEW IF NOT EXISTS ready_subtasks AS
    SELECT s.id, s.task_id, s.name
    FROM subtasks s
    WHERE s.status != 'DONE'
    AND NOT EXISTS (
        SELECT 1 FROM subtask_dependencies sd
        JOIN subtasks p ON p.id = sd.predecessor_id
        WHERE sd.successor_id = s.id AND p.status != 'DONE'
    );
`

// tableNames lists every table created by schema, in an order safe for
// sequential DROP under foreign_keys=OFF (see Init's force path).
var tableNames = []string{
	"schema_version",
	"template_dependencies",
	"template_subtasks",
	"template_tasks",
	"templates",
	"events",
	"subtask_dependencies",
	"task_dependencies",
	"subtasks",
	"tasks",
	"subprojects",
	"projects",
}

// currentSchemaVersion is written to schema_version on every fresh Init.
const currentSchemaVersion = 1

var viewNames = []string{
	"ready_tasks",
	"ready_subtasks",
}
