// Package validation provides the field-level and composable entity
// checks used before a mutation is allowed to reach the store.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/hirosof/ProjectManagementTool/internal/types"
)

const (
	MaxNameLength        = 256
	MaxDescriptionLength = 2000
)

// Name validates a required, bounded-length name field and returns the
// trimmed value callers should persist.
func Name(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", &types.ValidationError{Field: field, Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return "", &types.ValidationError{Field: field, Reason: "exceeds maximum length"}
	}
	return trimmed, nil
}

// Description validates an optional, bounded-length description field and
// returns the trimmed value, normalized to empty when blank after trim.
func Description(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if utf8.RuneCountInString(trimmed) > MaxDescriptionLength {
		return "", &types.ValidationError{Field: field, Reason: "exceeds maximum length"}
	}
	return trimmed, nil
}

// StatusValue validates that a status is one of the closed enum members.
func StatusValue(field string, value types.Status) error {
	if !value.Valid() {
		return &types.ValidationError{Field: field, Reason: "not a recognized status"}
	}
	return nil
}

// OrderIndex validates that an order index is non-negative. Gaps are
// permitted (see SPEC_FULL.md's ordering-holes Open Question resolution);
// only negative values are rejected here.
func OrderIndex(field string, value int) error {
	if value < 0 {
		return &types.ValidationError{Field: field, Reason: "must be non-negative"}
	}
	return nil
}

// EntityValidator checks a single entity, identified by id, returning a
// typed error on failure. Modeled on the teacher's IssueValidator chain.
type EntityValidator[T any] func(id int64, entity *T) error

// Chain composes validators, short-circuiting on the first failure.
func Chain[T any](validators ...EntityValidator[T]) EntityValidator[T] {
	return func(id int64, entity *T) error {
		for _, v := range validators {
			if err := v(id, entity); err != nil {
				return err
			}
		}
		return nil
	}
}
