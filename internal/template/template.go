// Package template implements capture/apply/dry-run/delete for
// SubProject subtrees. A template is a row-snapshot of a SubProject's
// Tasks, SubTasks, and the dependency edges entirely contained within
// that subtree, adapted from the teacher's IsTemplate-flag idiom
// (internal/molecules) to DB-row snapshots instead of file-loaded
// molecules.
package template

import (
	"context"

	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

// Engine captures and applies templates.
type Engine struct {
	store *store.Store
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// ExternalDependency describes a dependency edge that crosses the
// SubProject boundary at capture time: one endpoint is inside the
// captured subtree and the other is not. Per SPEC_FULL.md's Open
// Question resolution, this scope is strictly SubProject-internal vs.
// SubProject-external, never Project-internal vs. Project-external.
type ExternalDependency struct {
	Layer          types.DependencyLayer
	InsideID       int64
	OutsideID      int64
	OutsideIsPred  bool
}

// Save captures subProjectID's Task/SubTask subtree, its internal Task
// and SubTask dependency edges, and reports any edges that cross the
// subtree boundary without capturing them (they are not portable to a
// newly applied copy). When includeTasks is false, only the Template row
// itself is captured (Tasks/SubTasks are skipped); Task-layer external-
// dependency detection still runs either way, since it reports on edges
// that already exist regardless of what this capture keeps.
func (e *Engine) Save(ctx context.Context, subProjectID int64, name, description string, includeTasks bool) (*types.Template, []ExternalDependency, error) {
	var tpl *types.Template
	var external []ExternalDependency

	err := e.store.Transact(ctx, func(tx *store.Tx) error {
		var exists int
		if err := tx.QueryRow(ctx, "SELECT count(*) FROM subprojects WHERE id = ?", subProjectID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &types.EntityNotFound{Entity: "subproject", ID: subProjectID}
		}

		res, err := tx.Exec(ctx,
			`INSERT INTO templates (name, description, source_subproject_id, include_tasks) VALUES (?, ?, ?, ?)`,
			name, description, subProjectID, includeTasks)
		if err != nil {
			return err
		}
		templateID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		tpl = &types.Template{ID: templateID, Name: name, Description: description, SourceSubProjectID: subProjectID, IncludeTasks: includeTasks}

		taskIDs, err := e.taskIDsInSubProject(ctx, tx, subProjectID)
		if err != nil {
			return err
		}

		var taskLocalIDs map[int64]int64
		if includeTasks {
			taskLocalIDs, err = e.captureTasks(ctx, tx, templateID, subProjectID)
			if err != nil {
				return err
			}

			subtaskLocalIDs, err := e.captureSubTasks(ctx, tx, taskLocalIDs)
			if err != nil {
				return err
			}

			subtaskIDs := make(map[int64]bool, len(subtaskLocalIDs))
			for id := range subtaskLocalIDs {
				subtaskIDs[id] = true
			}
			subtaskExternal, err := e.captureDependencies(ctx, tx, templateID, types.LayerSubTask, "subtask_dependencies", subtaskIDs, subtaskLocalIDs)
			if err != nil {
				return err
			}
			external = append(external, subtaskExternal...)
		}

		taskExternal, err := e.captureDependencies(ctx, tx, templateID, types.LayerTask, "task_dependencies", taskIDs, taskLocalIDs)
		if err != nil {
			return err
		}
		external = append(external, taskExternal...)

		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return tpl, external, nil
}

// taskIDsInSubProject returns the set of real Task IDs directly under
// subProjectID, used as the "inside" membership test for external-
// dependency detection even when includeTasks is false.
func (e *Engine) taskIDsInSubProject(ctx context.Context, tx *store.Tx, subProjectID int64) (map[int64]bool, error) {
	rows, err := tx.Query(ctx, `SELECT id FROM tasks WHERE subproject_id = ?`, subProjectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// captureTasks copies every Task under subProjectID into template_tasks
// and returns a map from real Task ID to template-local Task ID.
func (e *Engine) captureTasks(ctx context.Context, tx *store.Tx, templateID, subProjectID int64) (map[int64]int64, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, name, description, order_index FROM tasks WHERE subproject_id = ? ORDER BY order_index, id`, subProjectID)
	if err != nil {
		return nil, err
	}

	type row struct {
		id                      int64
		name, description       string
		orderIndex              int
	}
	var collected []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.name, &r.description, &r.orderIndex); err != nil {
			_ = rows.Close()
			return nil, err
		}
		collected = append(collected, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	localIDs := map[int64]int64{}
	for _, r := range collected {
		res, err := tx.Exec(ctx,
			`INSERT INTO template_tasks (template_id, name, description, order_index) VALUES (?, ?, ?, ?)`,
			templateID, r.name, r.description, r.orderIndex)
		if err != nil {
			return nil, err
		}
		localID, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		localIDs[r.id] = localID
	}
	return localIDs, nil
}

// captureSubTasks copies every SubTask under the captured Tasks into
// template_subtasks and returns a map from real SubTask ID to
// template-local SubTask ID.
func (e *Engine) captureSubTasks(ctx context.Context, tx *store.Tx, taskLocalIDs map[int64]int64) (map[int64]int64, error) {
	localIDs := map[int64]int64{}

	for realTaskID, localTaskID := range taskLocalIDs {
		rows, err := tx.Query(ctx,
			`SELECT id, name, description, assignee, order_index FROM subtasks WHERE task_id = ? ORDER BY order_index, id`, realTaskID)
		if err != nil {
			return nil, err
		}

		type row struct {
			id                                 int64
			name, description, assignee        string
			orderIndex                         int
		}
		var collected []row
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.id, &r.name, &r.description, &r.assignee, &r.orderIndex); err != nil {
				_ = rows.Close()
				return nil, err
			}
			collected = append(collected, r)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		_ = rows.Close()

		for _, r := range collected {
			res, err := tx.Exec(ctx,
				`INSERT INTO template_subtasks (template_task_id, name, description, assignee, order_index) VALUES (?, ?, ?, ?, ?)`,
				localTaskID, r.name, r.description, r.assignee, r.orderIndex)
			if err != nil {
				return nil, err
			}
			localID, err := res.LastInsertId()
			if err != nil {
				return nil, err
			}
			localIDs[r.id] = localID
		}
	}

	return localIDs, nil
}

// captureDependencies copies every dependency edge whose predecessor and
// successor are both inside insideIDs, and reports every edge with
// exactly one endpoint inside as an ExternalDependency. localIDs may be
// nil (when the Task/SubTask rows themselves were not captured), in
// which case internal edges are detected but not inserted anywhere —
// only external-dependency reporting is meaningful.
func (e *Engine) captureDependencies(ctx context.Context, tx *store.Tx, templateID int64, layer types.DependencyLayer, edgeTable string, insideIDs map[int64]bool, localIDs map[int64]int64) ([]ExternalDependency, error) {
	rows, err := tx.Query(ctx, "SELECT predecessor_id, successor_id FROM "+edgeTable)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var external []ExternalDependency
	for rows.Next() {
		var pred, succ int64
		if err := rows.Scan(&pred, &succ); err != nil {
			return nil, err
		}
		predInside := insideIDs[pred]
		succInside := insideIDs[succ]

		switch {
		case predInside && succInside:
			if localIDs == nil {
				continue
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO template_dependencies (template_id, layer, predecessor_local, successor_local) VALUES (?, ?, ?, ?)`,
				templateID, string(layer), localIDs[pred], localIDs[succ]); err != nil {
				return nil, err
			}
		case predInside && !succInside:
			external = append(external, ExternalDependency{Layer: layer, InsideID: pred, OutsideID: succ, OutsideIsPred: false})
		case !predInside && succInside:
			external = append(external, ExternalDependency{Layer: layer, InsideID: succ, OutsideID: pred, OutsideIsPred: true})
		}
	}
	return external, rows.Err()
}

// ApplyResult maps a template's local IDs to the real IDs created by
// Apply, for callers that need to reference the new rows afterward.
type ApplyResult struct {
	SubProjectID   int64
	TaskIDs        map[int64]int64
	SubTaskIDs     map[int64]int64
}

// Apply instantiates templateID under projectID as a new SubProject
// named name, recreating its Tasks, SubTasks, and internal dependency
// edges.
func (e *Engine) Apply(ctx context.Context, templateID, projectID int64, name string) (*ApplyResult, error) {
	result := &ApplyResult{TaskIDs: map[int64]int64{}, SubTaskIDs: map[int64]int64{}}

	err := e.store.Transact(ctx, func(tx *store.Tx) error {
		var exists int
		if err := tx.QueryRow(ctx, "SELECT count(*) FROM templates WHERE id = ?", templateID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &types.EntityNotFound{Entity: "template", ID: templateID}
		}
		if err := tx.QueryRow(ctx, "SELECT count(*) FROM projects WHERE id = ?", projectID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &types.EntityNotFound{Entity: "project", ID: projectID}
		}

		res, err := tx.Exec(ctx,
			`INSERT INTO subprojects (project_id, parent_id, name) VALUES (?, NULL, ?)`, projectID, name)
		if err != nil {
			return err
		}
		subProjectID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		result.SubProjectID = subProjectID

		taskRows, err := tx.Query(ctx,
			`SELECT id, name, description, order_index FROM template_tasks WHERE template_id = ? ORDER BY order_index, id`, templateID)
		if err != nil {
			return err
		}
		type taskRow struct {
			id                int64
			name, description string
			orderIndex        int
		}
		var tasks []taskRow
		for taskRows.Next() {
			var r taskRow
			if err := taskRows.Scan(&r.id, &r.name, &r.description, &r.orderIndex); err != nil {
				_ = taskRows.Close()
				return err
			}
			tasks = append(tasks, r)
		}
		if err := taskRows.Err(); err != nil {
			return err
		}
		_ = taskRows.Close()

		for _, t := range tasks {
			res, err := tx.Exec(ctx,
				`INSERT INTO tasks (project_id, subproject_id, name, description, order_index) VALUES (?, ?, ?, ?, ?)`,
				projectID, subProjectID, t.name, t.description, t.orderIndex)
			if err != nil {
				return err
			}
			newTaskID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			result.TaskIDs[t.id] = newTaskID

			subRows, err := tx.Query(ctx,
				`SELECT id, name, description, assignee, order_index FROM template_subtasks WHERE template_task_id = ? ORDER BY order_index, id`, t.id)
			if err != nil {
				return err
			}
			type subRow struct {
				id                          int64
				name, description, assignee string
				orderIndex                  int
			}
			var subs []subRow
			for subRows.Next() {
				var r subRow
				if err := subRows.Scan(&r.id, &r.name, &r.description, &r.assignee, &r.orderIndex); err != nil {
					_ = subRows.Close()
					return err
				}
				subs = append(subs, r)
			}
			if err := subRows.Err(); err != nil {
				return err
			}
			_ = subRows.Close()

			for _, sr := range subs {
				res, err := tx.Exec(ctx,
					`INSERT INTO subtasks (task_id, name, description, assignee, order_index) VALUES (?, ?, ?, ?, ?)`,
					newTaskID, sr.name, sr.description, sr.assignee, sr.orderIndex)
				if err != nil {
					return err
				}
				newSubID, err := res.LastInsertId()
				if err != nil {
					return err
				}
				result.SubTaskIDs[sr.id] = newSubID
			}
		}

		depRows, err := tx.Query(ctx,
			`SELECT layer, predecessor_local, successor_local FROM template_dependencies WHERE template_id = ?`, templateID)
		if err != nil {
			return err
		}
		defer func() { _ = depRows.Close() }()
		for depRows.Next() {
			var layer string
			var predLocal, succLocal int64
			if err := depRows.Scan(&layer, &predLocal, &succLocal); err != nil {
				return err
			}
			edgeTable := "task_dependencies"
			predID, succID := result.TaskIDs[predLocal], result.TaskIDs[succLocal]
			if types.DependencyLayer(layer) == types.LayerSubTask {
				edgeTable = "subtask_dependencies"
				predID, succID = result.SubTaskIDs[predLocal], result.SubTaskIDs[succLocal]
			}
			if _, err := tx.Exec(ctx,
				"INSERT INTO "+edgeTable+" (predecessor_id, successor_id) VALUES (?, ?)", predID, succID); err != nil {
				return err
			}
		}
		return depRows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TaskPreview summarizes one captured Task for a dry run.
type TaskPreview struct {
	Name         string
	SubTaskCount int
}

// ApplyPreview is the structured result of DryRun: what Apply would
// create, without creating it.
type ApplyPreview struct {
	ProspectiveName string
	TaskCount       int
	SubTaskCount    int
	DependencyCount int
	Tasks           []TaskPreview
}

// DryRun reports what Apply(templateID, ..., newName) would create,
// without writing anything. Plain reads only, no transaction.
func (e *Engine) DryRun(ctx context.Context, templateID int64, newName string) (*ApplyPreview, error) {
	var exists int
	if err := e.store.DB().QueryRowContext(ctx, "SELECT count(*) FROM templates WHERE id = ?", templateID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, &types.EntityNotFound{Entity: "template", ID: templateID}
	}

	preview := &ApplyPreview{ProspectiveName: newName}

	rows, err := e.store.DB().QueryContext(ctx,
		`SELECT id, name FROM template_tasks WHERE template_id = ? ORDER BY order_index, id`, templateID)
	if err != nil {
		return nil, err
	}
	type taskRow struct {
		id   int64
		name string
	}
	var tasks []taskRow
	for rows.Next() {
		var r taskRow
		if err := rows.Scan(&r.id, &r.name); err != nil {
			_ = rows.Close()
			return nil, err
		}
		tasks = append(tasks, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	preview.TaskCount = len(tasks)
	preview.Tasks = make([]TaskPreview, 0, len(tasks))
	for _, t := range tasks {
		var subCount int
		if err := e.store.DB().QueryRowContext(ctx,
			"SELECT count(*) FROM template_subtasks WHERE template_task_id = ?", t.id).Scan(&subCount); err != nil {
			return nil, err
		}
		preview.SubTaskCount += subCount
		preview.Tasks = append(preview.Tasks, TaskPreview{Name: t.name, SubTaskCount: subCount})
	}

	if err := e.store.DB().QueryRowContext(ctx,
		"SELECT count(*) FROM template_dependencies WHERE template_id = ?", templateID).Scan(&preview.DependencyCount); err != nil {
		return nil, err
	}

	return preview, nil
}

// Delete removes a captured template and its child rows.
func (e *Engine) Delete(ctx context.Context, templateID int64) error {
	return e.store.Transact(ctx, func(tx *store.Tx) error {
		res, err := tx.Exec(ctx, `DELETE FROM templates WHERE id = ?`, templateID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &types.EntityNotFound{Entity: "template", ID: templateID}
		}
		return nil
	})
}
