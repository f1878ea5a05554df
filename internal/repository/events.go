package repository

import (
	"context"

	"github.com/hirosof/ProjectManagementTool/internal/store"
)

// recordEvent appends an audit row within the caller's transaction scope.
// See SPEC_FULL.md §3 supplement: events are history only and are never
// read back by the engines themselves.
func recordEvent(ctx context.Context, tx *store.Tx, entityType string, entityID int64, eventType, actor string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO events (entity_type, entity_id, event_type, actor) VALUES (?, ?, ?, ?)`,
		entityType, entityID, eventType, actor)
	return err
}
