package store

import (
	"context"
	"errors"
	"testing"

	"github.com/hirosof/ProjectManagementTool/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	path := t.TempDir() + "/test.db"

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Init(ctx, false); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
	})
	return s
}

func TestOpenInitCreatesSchema(t *testing.T) {
	s := newTestStore(t)

	var count int
	row := s.DB().QueryRowContext(context.Background(),
		"SELECT count(*) FROM sqlite_master WHERE type='table' AND name='projects'")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected projects table to exist, count=%d", count)
	}
}

func TestTransactCommitsOnSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Transact(ctx, func(tx *Tx) error {
		_, execErr := tx.Exec(ctx, "INSERT INTO projects (name) VALUES (?)", "demo")
		return execErr
	})
	if err != nil {
		t.Fatalf("Transact() failed: %v", err)
	}

	var count int
	row := s.DB().QueryRowContext(ctx, "SELECT count(*) FROM projects")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 project row, got %d", count)
	}
}

func TestTransactRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("rollback sentinel")
	err := s.Transact(ctx, func(tx *Tx) error {
		if _, execErr := tx.Exec(ctx, "INSERT INTO projects (name) VALUES (?)", "rollback-me"); execErr != nil {
			return execErr
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected sentinel error to propagate, got %v", err)
	}

	var count int
	row := s.DB().QueryRowContext(ctx, "SELECT count(*) FROM projects")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to leave no rows, got %d", count)
	}
}

func TestInitWithoutForceFailsWhenAlreadyInitialized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Init(ctx, false)
	var storeErr *types.StoreError
	if !errors.As(err, &storeErr) || storeErr.Reason != types.ReasonAlreadyInitialized {
		t.Fatalf("expected ReasonAlreadyInitialized, got %v", err)
	}
}

func TestIntrospectReportsSchemaVersionAndTables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	info, err := s.Introspect(ctx)
	if err != nil {
		t.Fatalf("Introspect() failed: %v", err)
	}
	if info.SchemaVersion == 0 {
		t.Errorf("expected a non-zero schema version")
	}
	if !info.ForeignKeysOn {
		t.Errorf("expected foreign keys to be enforced")
	}
	found := false
	for _, name := range info.Tables {
		if name == "projects" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected projects table in Introspect() result, got %v", info.Tables)
	}
}

func TestInitForceDropsExistingData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Transact(ctx, func(tx *Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO projects (name) VALUES (?)", "demo")
		return err
	}); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	if err := s.Init(ctx, true); err != nil {
		t.Fatalf("forced Init() failed: %v", err)
	}

	var count int
	row := s.DB().QueryRowContext(ctx, "SELECT count(*) FROM projects")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected force init to clear rows, got %d", count)
	}
}
