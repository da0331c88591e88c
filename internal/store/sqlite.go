package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seantiz/magma/internal/model"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    stressor    TEXT NOT NULL,
    instance    INTEGER NOT NULL,
    status      TEXT NOT NULL,
    ops         INTEGER NOT NULL,
    iterations  INTEGER NOT NULL,
    limited     INTEGER NOT NULL,
    error       TEXT,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME
)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite. The database file is guarded
// by a cross-process file lock so concurrent magma invocations serialize
// their access rather than corrupting each other's WAL.
type SQLiteStore struct {
	db   *sql.DB
	lock *fileLock
}

// Open acquires the file lock for dbPath, opens the SQLite database, and
// runs migrations. The lock is held until Close.
func Open(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	lock, err := acquireFileLock(ctx, dbPath+".lock")
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		lock.release()
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		lock.release()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		lock.release()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		lock.release()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	return &SQLiteStore{db: db, lock: lock}, nil
}

// Close closes the underlying database connection and releases the file lock.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	s.lock.release()
	return err
}

// InsertRun inserts a new run record.
func (s *SQLiteStore) InsertRun(ctx context.Context, r *model.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
			id, stressor, instance, status, ops, iterations,
			limited, error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Stressor, r.Instance, r.Status, r.Ops, r.Iterations,
		r.Limited, r.Error, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r := &model.Run{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, stressor, instance, status, ops, iterations,
			limited, error, started_at, finished_at
		FROM runs WHERE id = ?`, id,
	).Scan(
		&r.ID, &r.Stressor, &r.Instance, &r.Status, &r.Ops, &r.Iterations,
		&r.Limited, &r.Error, &r.StartedAt, &r.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns a paginated list of runs ordered by started_at DESC,
// along with the total count of all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin list transaction: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, stressor, instance, status, ops, iterations,
			limited, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r := &model.Run{}
		if err := rows.Scan(
			&r.ID, &r.Stressor, &r.Instance, &r.Status, &r.Ops, &r.Iterations,
			&r.Limited, &r.Error, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, total, nil
}
