package repository

import (
	"context"

	"github.com/hirosof/ProjectManagementTool/internal/store"
	"github.com/hirosof/ProjectManagementTool/internal/types"
)

// scopedNameTaken checks name uniqueness against every row the sibling
// scope selects, where scopeClause/scopeArgs is a WHERE fragment
// identifying the parent scope (e.g. "project_id = ? AND subproject_id
// IS NULL"). excludeID is skipped so Update can check a row against its
// siblings without conflicting with itself; pass 0 on Create.
func scopedNameTaken(ctx context.Context, tx *store.Tx, table, scopeClause string, scopeArgs []any, name string, excludeID int64) (bool, error) {
	args := append(append([]any{}, scopeArgs...), name, excludeID)
	var count int
	row := tx.QueryRow(ctx,
		"SELECT count(*) FROM "+table+" WHERE "+scopeClause+" AND name = ? AND id != ?", args...)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// nextOrderIndex computes max(order_index)+1 among the sibling scope
// selected by scopeClause/scopeArgs, or 0 if the scope is empty.
func nextOrderIndex(ctx context.Context, tx *store.Tx, table, scopeClause string, scopeArgs []any) (int, error) {
	var max *int
	row := tx.QueryRow(ctx, "SELECT max(order_index) FROM "+table+" WHERE "+scopeClause, scopeArgs...)
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

// orderIndexTaken reports whether orderIndex is already used by another
// row in the sibling scope, for Update's no-auto-shuffle collision check.
func orderIndexTaken(ctx context.Context, tx *store.Tx, table, scopeClause string, scopeArgs []any, orderIndex int, excludeID int64) (bool, error) {
	args := append(append([]any{}, scopeArgs...), orderIndex, excludeID)
	var count int
	row := tx.QueryRow(ctx,
		"SELECT count(*) FROM "+table+" WHERE "+scopeClause+" AND order_index = ? AND id != ?", args...)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// nameConflict builds the ConstraintViolation scopedNameTaken's callers
// return when a conflict is found.
func nameConflict(entity string, id int64) error {
	return &types.ConstraintViolation{Reason: types.NameConflict, Entity: entity, ID: id}
}

// orderIndexConflict builds the ConstraintViolation Update returns when
// the requested order_index collides with a sibling.
func orderIndexConflict(entity string, id int64) error {
	return &types.ConstraintViolation{Reason: types.DuplicateOrderIndex, Entity: entity, ID: id}
}
