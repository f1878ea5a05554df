// Package doctor implements a read-only integrity auditor over the
// engine's data: referential, DAG, status, ordering, and nesting checks,
// producing a classified Report. Doctor never mutates the store.
package doctor

import (
	"context"

	"github.com/hirosof/ProjectManagementTool/internal/dependency"
	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Finding is one reported issue.
type Finding struct {
	Code     string
	Severity Severity
	Entity   string
	ID       int64
	Detail   string
}

// Report is the full result of a scan.
type Report struct {
	Findings []Finding
}

func (r *Report) add(code string, sev Severity, entity string, id int64, detail string) {
	r.Findings = append(r.Findings, Finding{Code: code, Severity: sev, Entity: entity, ID: id, Detail: detail})
}

// Doctor runs the six independent checks.
type Doctor struct {
	store       *store.Store
	taskDeps    *dependency.Engine
	subtaskDeps *dependency.Engine
}

func New(s *store.Store, taskDeps, subtaskDeps *dependency.Engine) *Doctor {
	return &Doctor{store: s, taskDeps: taskDeps, subtaskDeps: subtaskDeps}
}

// Scan runs every check and returns the combined Report.
func (d *Doctor) Scan(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := d.checkReferential(ctx, report); err != nil {
		return nil, err
	}
	if err := d.checkDAGs(ctx, report); err != nil {
		return nil, err
	}
	if err := d.checkStatus(ctx, report); err != nil {
		return nil, err
	}
	if err := d.checkOrdering(ctx, report); err != nil {
		return nil, err
	}
	if err := d.checkNesting(ctx, report); err != nil {
		return nil, err
	}

	return report, nil
}

// referentialCheck is one FK00x row-existence query: a row in fromTable
// is flagged when the referenced row in toTable (joined on fromColumn =
// toTable.id) is missing.
type referentialCheck struct {
	code       string
	fromEntity string
	query      string
	detail     string
}

// checkReferential flags rows whose parent (or, for dependency edges,
// endpoint) row no longer exists. Under correct FK enforcement this
// should never fire; it is defense in depth against a database touched
// outside this engine.
func (d *Doctor) checkReferential(ctx context.Context, report *Report) error {
	checks := []referentialCheck{
		{
			code:       "FK001",
			fromEntity: "subproject",
			query:      `SELECT sp.id FROM subprojects sp LEFT JOIN projects p ON p.id = sp.project_id WHERE p.id IS NULL`,
			detail:     "references a missing project",
		},
		{
			code:       "FK002",
			fromEntity: "task",
			query:      `SELECT t.id FROM tasks t LEFT JOIN projects p ON p.id = t.project_id WHERE p.id IS NULL`,
			detail:     "references a missing project",
		},
		{
			code:       "FK003",
			fromEntity: "task",
			query:      `SELECT t.id FROM tasks t LEFT JOIN subprojects sp ON sp.id = t.subproject_id WHERE t.subproject_id IS NOT NULL AND sp.id IS NULL`,
			detail:     "references a missing subproject",
		},
		{
			code:       "FK004",
			fromEntity: "subtask",
			query:      `SELECT s.id FROM subtasks s LEFT JOIN tasks t ON t.id = s.task_id WHERE t.id IS NULL`,
			detail:     "references a missing task",
		},
		{
			code:       "FK005",
			fromEntity: "task_dependency",
			query:      `SELECT td.rowid FROM task_dependencies td LEFT JOIN tasks t ON t.id = td.predecessor_id WHERE t.id IS NULL`,
			detail:     "predecessor references a missing task",
		},
		{
			code:       "FK006",
			fromEntity: "task_dependency",
			query:      `SELECT td.rowid FROM task_dependencies td LEFT JOIN tasks t ON t.id = td.successor_id WHERE t.id IS NULL`,
			detail:     "successor references a missing task",
		},
		{
			code:       "FK007",
			fromEntity: "subtask_dependency",
			query:      `SELECT sd.rowid FROM subtask_dependencies sd LEFT JOIN subtasks s ON s.id = sd.predecessor_id WHERE s.id IS NULL`,
			detail:     "predecessor references a missing subtask",
		},
		{
			code:       "FK008",
			fromEntity: "subtask_dependency",
			query:      `SELECT sd.rowid FROM subtask_dependencies sd LEFT JOIN subtasks s ON s.id = sd.successor_id WHERE s.id IS NULL`,
			detail:     "successor references a missing subtask",
		},
	}

	for _, c := range checks {
		rows, err := d.store.DB().QueryContext(ctx, c.query)
		if err != nil {
			return err
		}
		if err := scanIDsInto(rows, func(id int64) {
			report.add(c.code, SeverityError, c.fromEntity, id, c.detail)
		}); err != nil {
			return err
		}
	}
	return nil
}

// checkDAGs re-derives reachability for every node in each layer and
// flags any node that can reach itself, which would mean a cycle slipped
// past AddEdge's preflight (e.g. rows inserted outside this engine).
func (d *Doctor) checkDAGs(ctx context.Context, report *Report) error {
	if err := d.checkLayerAcyclic(ctx, report, "DAG001", "task", "tasks", d.taskDeps); err != nil {
		return err
	}
	return d.checkLayerAcyclic(ctx, report, "DAG002", "subtask", "subtasks", d.subtaskDeps)
}

func (d *Doctor) checkLayerAcyclic(ctx context.Context, report *Report, code, entity, table string, deps *dependency.Engine) error {
	rows, err := d.store.DB().QueryContext(ctx, "SELECT id FROM "+table)
	if err != nil {
		return err
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return err
	}

	for _, id := range ids {
		succs, err := deps.Successors(ctx, id)
		if err != nil {
			return err
		}
		for _, s := range succs {
			would, err := deps.WouldCycle(ctx, id, s)
			if err != nil {
				return err
			}
			if would {
				report.add(code, SeverityError, entity, id, "participates in a cycle")
			}
		}
	}
	return nil
}

// checkStatus flags Tasks marked DONE despite having a non-DONE child
// SubTask, Tasks/SubTasks marked DONE despite an open predecessor, and
// any row whose status column holds a token outside the closed enum —
// states that should be unreachable via UpdateStatus but are checked
// here in case a row was written directly.
func (d *Doctor) checkStatus(ctx context.Context, report *Report) error {
	rows, err := d.store.DB().QueryContext(ctx,
		`SELECT t.id FROM tasks t
		 WHERE t.status = ? AND EXISTS (
		     SELECT 1 FROM subtasks s WHERE s.task_id = t.id AND s.status != ?
		 )`, string(types.StatusDone), string(types.StatusDone))
	if err != nil {
		return err
	}
	if err := scanIDsInto(rows, func(id int64) {
		report.add("STATUS001", SeverityError, "task", id, "marked DONE with incomplete children")
	}); err != nil {
		return err
	}

	rows, err = d.store.DB().QueryContext(ctx,
		`SELECT td.successor_id FROM task_dependencies td
		 JOIN tasks p ON p.id = td.predecessor_id
		 JOIN tasks s ON s.id = td.successor_id
		 WHERE s.status = ? AND p.status != ?`, string(types.StatusDone), string(types.StatusDone))
	if err != nil {
		return err
	}
	if err := scanIDsInto(rows, func(id int64) {
		report.add("STATUS002", SeverityError, "task", id, "marked DONE with an open predecessor")
	}); err != nil {
		return err
	}

	rows, err = d.store.DB().QueryContext(ctx,
		`SELECT sd.successor_id FROM subtask_dependencies sd
		 JOIN subtasks p ON p.id = sd.predecessor_id
		 JOIN subtasks s ON s.id = sd.successor_id
		 WHERE s.status = ? AND p.status != ?`, string(types.StatusDone), string(types.StatusDone))
	if err != nil {
		return err
	}
	if err := scanIDsInto(rows, func(id int64) {
		report.add("STATUS003", SeverityError, "subtask", id, "marked DONE with an open predecessor")
	}); err != nil {
		return err
	}

	if err := d.checkInvalidStatusTokens(ctx, report, "STATUS_INVALID001", "task", "tasks"); err != nil {
		return err
	}
	return d.checkInvalidStatusTokens(ctx, report, "STATUS_INVALID002", "subtask", "subtasks")
}

func (d *Doctor) checkInvalidStatusTokens(ctx context.Context, report *Report, code, entity, table string) error {
	rows, err := d.store.DB().QueryContext(ctx,
		"SELECT id, status FROM "+table+" WHERE status NOT IN (?, ?, ?, ?)",
		string(types.StatusUnset), string(types.StatusNotStarted), string(types.StatusInProgress), string(types.StatusDone))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id int64
		var status string
		if err := rows.Scan(&id, &status); err != nil {
			return err
		}
		report.add(code, SeverityError, entity, id, "holds an unrecognized status token: "+status)
	}
	return rows.Err()
}

// orderedRow is one sibling-scope row's id and order_index, used by
// checkSiblingOrdering to flag negative values, duplicates, and gaps.
type orderedRow struct {
	id         int64
	orderIndex int
}

// checkOrdering checks order_index within each of the three sibling
// scopes (SubProjects under a Project, Tasks under their direct parent,
// SubTasks under a Task): negative values and duplicates are errors,
// gaps are warnings. Gaps never auto-compact; they are reported so an
// operator can decide whether to renumber.
func (d *Doctor) checkOrdering(ctx context.Context, report *Report) error {
	if err := d.checkOrderingGroup(ctx, report, "ORDER_NEG001", "ORDER001", "ORDER_W001", "subproject",
		`SELECT id, order_index, project_id FROM subprojects WHERE parent_id IS NULL ORDER BY project_id, order_index`); err != nil {
		return err
	}
	if err := d.checkOrderingGroup(ctx, report, "ORDER_NEG002", "ORDER002", "ORDER_W002", "task",
		`SELECT id, order_index, COALESCE(subproject_id, -project_id) FROM tasks ORDER BY COALESCE(subproject_id, -project_id), order_index`); err != nil {
		return err
	}
	return d.checkOrderingGroup(ctx, report, "ORDER_NEG003", "ORDER003", "ORDER_W003", "subtask",
		`SELECT id, order_index, task_id FROM subtasks ORDER BY task_id, order_index`)
}

// checkOrderingGroup scans rows pre-ordered by (scope, order_index) and
// flags negative values, duplicate order_index within a scope, and gaps
// in the 0..n-1 sequence within a scope.
func (d *Doctor) checkOrderingGroup(ctx context.Context, report *Report, negCode, dupCode, gapCode, entity, query string) error {
	rows, err := d.store.DB().QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	groups := map[int64][]orderedRow{}
	var order []int64
	for rows.Next() {
		var row orderedRow
		var scope int64
		if err := rows.Scan(&row.id, &row.orderIndex, &scope); err != nil {
			return err
		}
		if _, seen := groups[scope]; !seen {
			order = append(order, scope)
		}
		groups[scope] = append(groups[scope], row)

		if row.orderIndex < 0 {
			report.add(negCode, SeverityError, entity, row.id, "has a negative order_index")
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, scope := range order {
		members := groups[scope]
		seen := map[int]int{}
		maxIndex := -1
		for _, row := range members {
			seen[row.orderIndex]++
			if row.orderIndex > maxIndex {
				maxIndex = row.orderIndex
			}
		}
		for _, row := range members {
			if row.orderIndex >= 0 && seen[row.orderIndex] > 1 {
				report.add(dupCode, SeverityError, entity, row.id, "duplicate order_index among siblings")
			}
		}
		for want := 0; want < maxIndex; want++ {
			if seen[want] == 0 {
				report.add(gapCode, SeverityWarning, entity, scope, "gap in order_index sequence among siblings")
			}
		}
	}
	return nil
}

// checkNesting flags any SubProject with a non-null parent_id. Given
// SubProjectRepo.Create always rejects a non-nil ParentID, this can only
// fire if a row was inserted outside this engine.
func (d *Doctor) checkNesting(ctx context.Context, report *Report) error {
	rows, err := d.store.DB().QueryContext(ctx, `SELECT id FROM subprojects WHERE parent_id IS NOT NULL`)
	if err != nil {
		return err
	}
	return scanIDsInto(rows, func(id int64) {
		report.add("NEST001", SeverityError, "subproject", id, "has a non-null parent_id despite nesting being unsupported")
	})
}
