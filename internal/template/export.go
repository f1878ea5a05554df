package template

import (
	"context"

	"gopkg.in/yaml.v3"

	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

// Document is the portable YAML representation of a captured template,
// suitable for sharing outside the database it was captured from.
// Modeled on the teacher's config-file yaml.Unmarshal usage
// (cmd/bd/autoimport.go), adapted from reading config to round-tripping
// a template.
type Document struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Tasks       []DocumentTask       `yaml:"tasks"`
	Dependencies []DocumentDependency `yaml:"dependencies,omitempty"`
}

type DocumentTask struct {
	LocalID     int64                `yaml:"local_id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description,omitempty"`
	OrderIndex  int                  `yaml:"order_index"`
	SubTasks    []DocumentSubTask    `yaml:"subtasks,omitempty"`
}

type DocumentSubTask struct {
	LocalID     int64  `yaml:"local_id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Assignee    string `yaml:"assignee,omitempty"`
	OrderIndex  int    `yaml:"order_index"`
}

type DocumentDependency struct {
	Layer            string `yaml:"layer"`
	PredecessorLocal int64  `yaml:"predecessor_local"`
	SuccessorLocal   int64  `yaml:"successor_local"`
}

// Export reads a previously captured template and marshals it to YAML.
func (e *Engine) Export(ctx context.Context, templateID int64) ([]byte, error) {
	var doc Document

	err := e.store.Transact(ctx, func(tx *store.Tx) error {
		row := tx.QueryRow(ctx, `SELECT name, description FROM templates WHERE id = ?`, templateID)
		if err := row.Scan(&doc.Name, &doc.Description); err != nil {
			return err
		}

		taskRows, err := tx.Query(ctx,
			`SELECT id, name, description, order_index FROM template_tasks WHERE template_id = ? ORDER BY order_index, id`, templateID)
		if err != nil {
			return err
		}
		for taskRows.Next() {
			var t DocumentTask
			if err := taskRows.Scan(&t.LocalID, &t.Name, &t.Description, &t.OrderIndex); err != nil {
				_ = taskRows.Close()
				return err
			}
			doc.Tasks = append(doc.Tasks, t)
		}
		if err := taskRows.Err(); err != nil {
			return err
		}
		_ = taskRows.Close()

		for i := range doc.Tasks {
			subRows, err := tx.Query(ctx,
				`SELECT id, name, description, assignee, order_index FROM template_subtasks WHERE template_task_id = ? ORDER BY order_index, id`,
				doc.Tasks[i].LocalID)
			if err != nil {
				return err
			}
			for subRows.Next() {
				var s DocumentSubTask
				if err := subRows.Scan(&s.LocalID, &s.Name, &s.Description, &s.Assignee, &s.OrderIndex); err != nil {
					_ = subRows.Close()
					return err
				}
				doc.Tasks[i].SubTasks = append(doc.Tasks[i].SubTasks, s)
			}
			if err := subRows.Err(); err != nil {
				return err
			}
			_ = subRows.Close()
		}

		depRows, err := tx.Query(ctx,
			`SELECT layer, predecessor_local, successor_local FROM template_dependencies WHERE template_id = ?`, templateID)
		if err != nil {
			return err
		}
		defer func() { _ = depRows.Close() }()
		for depRows.Next() {
			var d DocumentDependency
			if err := depRows.Scan(&d.Layer, &d.PredecessorLocal, &d.SuccessorLocal); err != nil {
				return err
			}
			doc.Dependencies = append(doc.Dependencies, d)
		}
		return depRows.Err()
	})
	if err != nil {
		return nil, err
	}

	return yaml.Marshal(&doc)
}

// Import parses a YAML document produced by Export and recreates it as
// a template attached to sourceSubProjectID (recorded for provenance
// only; the imported rows are not copied from that subproject).
func (e *Engine) Import(ctx context.Context, data []byte, sourceSubProjectID int64) (*types.Template, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var tpl *types.Template
	err := e.store.Transact(ctx, func(tx *store.Tx) error {
		var exists int
		if err := tx.QueryRow(ctx, "SELECT count(*) FROM subprojects WHERE id = ?", sourceSubProjectID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return &types.EntityNotFound{Entity: "subproject", ID: sourceSubProjectID}
		}

		includeTasks := len(doc.Tasks) > 0
		res, err := tx.Exec(ctx,
			`INSERT INTO templates (name, description, source_subproject_id, include_tasks) VALUES (?, ?, ?, ?)`,
			doc.Name, doc.Description, sourceSubProjectID, includeTasks)
		if err != nil {
			return err
		}
		templateID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		tpl = &types.Template{ID: templateID, Name: doc.Name, Description: doc.Description, SourceSubProjectID: sourceSubProjectID, IncludeTasks: includeTasks}

		// The document's LocalID fields are stable across export/import,
		// but the rows inserted here get fresh autoincrement IDs; these
		// maps translate so dependencies reference the newly inserted
		// rows rather than the ids from whichever template was exported.
		taskLocalIDs := map[int64]int64{}
		subtaskLocalIDs := map[int64]int64{}

		for _, t := range doc.Tasks {
			res, err := tx.Exec(ctx,
				`INSERT INTO template_tasks (template_id, name, description, order_index) VALUES (?, ?, ?, ?)`,
				templateID, t.Name, t.Description, t.OrderIndex)
			if err != nil {
				return err
			}
			newTaskLocal, err := res.LastInsertId()
			if err != nil {
				return err
			}
			taskLocalIDs[t.LocalID] = newTaskLocal

			for _, s := range t.SubTasks {
				res, err := tx.Exec(ctx,
					`INSERT INTO template_subtasks (template_task_id, name, description, assignee, order_index) VALUES (?, ?, ?, ?, ?)`,
					newTaskLocal, s.Name, s.Description, s.Assignee, s.OrderIndex)
				if err != nil {
					return err
				}
				newSubLocal, err := res.LastInsertId()
				if err != nil {
					return err
				}
				subtaskLocalIDs[s.LocalID] = newSubLocal
			}
		}

		for _, d := range doc.Dependencies {
			predLocal, succLocal := taskLocalIDs[d.PredecessorLocal], taskLocalIDs[d.SuccessorLocal]
			if types.DependencyLayer(d.Layer) == types.LayerSubTask {
				predLocal, succLocal = subtaskLocalIDs[d.PredecessorLocal], subtaskLocalIDs[d.SuccessorLocal]
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO template_dependencies (template_id, layer, predecessor_local, successor_local) VALUES (?, ?, ?, ?)`,
				templateID, d.Layer, predLocal, succLocal); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tpl, nil
}
