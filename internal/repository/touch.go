package repository

import (
	"context"
	"database/sql"

	"github.com/hirosof/ProjectManagementTool/internal/store"
)

// touchProject stamps a Project's updated_at, used both directly (a
// SubProject create/update touches its Project) and as the final link in
// the Task/SubTask ancestor chains below.
func touchProject(ctx context.Context, tx *store.Tx, projectID int64) error {
	_, err := tx.Exec(ctx, `UPDATE projects SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, projectID)
	return err
}

// touchSubProject stamps a SubProject's updated_at and propagates to its
// Project, so a Task create/update touches the chain upward.
func touchSubProject(ctx context.Context, tx *store.Tx, subProjectID int64) error {
	if _, err := tx.Exec(ctx, `UPDATE subprojects SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, subProjectID); err != nil {
		return err
	}
	var projectID int64
	if err := tx.QueryRow(ctx, `SELECT project_id FROM subprojects WHERE id = ?`, subProjectID).Scan(&projectID); err != nil {
		return err
	}
	return touchProject(ctx, tx, projectID)
}

// touchTaskParents stamps updated_at up the chain from a Task's direct
// parent to its Project: the SubProject (if any) and then the Project,
// or the Project alone when the Task sits directly under it.
func touchTaskParents(ctx context.Context, tx *store.Tx, projectID int64, subProjectID *int64) error {
	if subProjectID != nil {
		return touchSubProject(ctx, tx, *subProjectID)
	}
	return touchProject(ctx, tx, projectID)
}

// touchTaskAndAncestors stamps a Task's own updated_at and then walks the
// same chain touchTaskParents does, for SubTask mutations that must touch
// the full ancestor chain up to the Project.
func touchTaskAndAncestors(ctx context.Context, tx *store.Tx, taskID int64) error {
	var projectID int64
	var subProjectID sql.NullInt64
	if err := tx.QueryRow(ctx,
		`SELECT project_id, subproject_id FROM tasks WHERE id = ?`, taskID).Scan(&projectID, &subProjectID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE tasks SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, taskID); err != nil {
		return err
	}
	var spID *int64
	if subProjectID.Valid {
		spID = &subProjectID.Int64
	}
	return touchTaskParents(ctx, tx, projectID, spID)
}
