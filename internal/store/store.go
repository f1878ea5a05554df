// Package store owns the single SQLite connection the engine operates
// over: schema application, transaction scopes, and an advisory
// single-writer lock.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/hirosof/ProjectManagementTool/internal/types"
)

// defaultLockRetryInterval bounds how long Open waits to acquire the
// advisory lock before giving up.
const defaultLockRetryInterval = 200 * time.Millisecond

// defaultBusyTimeout is used by Open when no config.Options is in play.
const defaultBusyTimeout = 5 * time.Second

// Store is the single owned handle to the engine's SQLite database. It
// deliberately pins the connection pool to one connection: SQLite write
// transactions are not safely pooled, and §5 of the specification this
// engine implements calls for exactly one connection per Store.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open establishes the connection with a default busy timeout and takes
// the advisory lock, but does not apply the schema; call Init afterward.
func Open(ctx context.Context, path string) (*Store, error) {
	return OpenWithTimeout(ctx, path, defaultBusyTimeout)
}

// OpenWithTimeout is Open with an explicit busy timeout, letting callers
// wire config.Options.BusyTimeout through instead of the hardcoded
// default.
func OpenWithTimeout(ctx context.Context, path string, busyTimeout time.Duration) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
	}
	db.SetMaxOpenConns(1)

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, defaultLockRetryInterval)
	if err != nil {
		_ = db.Close()
		return nil, &types.StoreError{Reason: types.ReasonLockHeld, Underlying: err}
	}
	if !locked {
		_ = db.Close()
		return nil, &types.StoreError{Reason: types.ReasonLockHeld}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = lock.Unlock()
		_ = db.Close()
		return nil, &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
	}

	return &Store{db: db, path: path, lock: lock}, nil
}

// Init applies the schema. Without force, initializing a store that
// already carries a schema_version row fails with ReasonAlreadyInitialized.
// Under force it first drops every known table and view with foreign key
// enforcement disabled, then re-enables it and reapplies the schema from
// scratch.
func (s *Store) Init(ctx context.Context, force bool) error {
	if !force {
		already, err := s.isInitialized(ctx)
		if err != nil {
			return &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
		}
		if already {
			return &types.StoreError{Reason: types.ReasonAlreadyInitialized}
		}
	}

	if force {
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
			return &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
		}
		for _, v := range viewNames {
			if _, err := s.db.ExecContext(ctx, "DROP VIEW IF EXISTS "+v); err != nil {
				return &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
			}
		}
		for _, t := range tableNames {
			if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
				return &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
			}
		}
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
		}
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO schema_version (id, version) VALUES (1, ?)", currentSchemaVersion); err != nil {
		return &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
	}
	return nil
}

// isInitialized reports whether schema_version already exists and holds
// its one row, the signal that this store was already Init'd.
func (s *Store) isInitialized(ctx context.Context) (bool, error) {
	var name string
	row := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM schema_version").Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Introspection is the read-only result of Introspect: the engine's
// current schema_version, the tables present in the database, and
// whether foreign key enforcement is on for this connection.
type Introspection struct {
	SchemaVersion  int
	Tables         []string
	ForeignKeysOn  bool
}

// Introspect reports the store's current schema state without mutating
// anything, for callers that want to confirm a store is usable before
// running operations against it.
func (s *Store) Introspect(ctx context.Context) (*Introspection, error) {
	info := &Introspection{}

	row := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version WHERE id = 1")
	if err := row.Scan(&info.SchemaVersion); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
		}
		info.Tables = append(info.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
	}

	var fk int
	if err := s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		return nil, &types.StoreError{Reason: types.ReasonSchemaApply, Underlying: err}
	}
	info.ForeignKeysOn = fk == 1

	return info, nil
}

// Tx is a transaction scope. Commit must be called explicitly; if the
// scope is abandoned without a Commit, Rollback undoes any work.
type Tx struct {
	tx *sql.Tx
}

// Transact opens a transaction scope and passes it to fn. If fn returns a
// non-nil error, the transaction is rolled back; otherwise it is
// committed. This mirrors the teacher's RunInTransaction convention,
// generalized to return the caller's error unchanged.
func (s *Store) Transact(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.StoreError{Reason: types.ReasonTransactionFail, Underlying: err}
	}
	scope := &Tx{tx: sqlTx}

	if err := fn(scope); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return &types.StoreError{Reason: types.ReasonTransactionFail, Underlying: err}
	}
	return nil
}

// Exec runs a statement within the transaction scope.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Query runs a query within the transaction scope.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row query within the transaction scope.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// DB exposes the underlying handle for read-only packages (doctor,
// dependency reachability queries) that do not need a transaction scope.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path this Store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close releases the advisory lock and closes the connection.
func (s *Store) Close() error {
	var lockErr error
	if s.lock != nil {
		lockErr = s.lock.Unlock()
	}
	dbErr := s.db.Close()
	if dbErr != nil {
		return &types.StoreError{Reason: types.ReasonTransactionFail, Underlying: dbErr}
	}
	if lockErr != nil {
		return &types.StoreError{Reason: types.ReasonLockHeld, Underlying: lockErr}
	}
	return nil
}

// RemoveLockFile best-effort removes a stale lock file left behind by a
// process that did not shut down cleanly. Callers must be certain no
// other process holds the database before calling this.
func RemoveLockFile(path string) error {
	return os.Remove(path + ".lock")
}
