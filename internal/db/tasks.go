package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/tasksync/internal/model"
)

var (
	// ErrNotFound is returned by prefix lookups that match nothing
	ErrNotFound = errors.New("task not found")
	// ErrAmbiguous is returned when a prefix matches more than one task
	ErrAmbiguous = errors.New("task id prefix is ambiguous")
)

const taskColumns = `id, title, description, completed, created_at, updated_at, sync_status`

const upsertTask = `
INSERT INTO tasks (id, title, description, completed, created_at, updated_at, sync_status)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    completed = excluded.completed,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at,
    sync_status = excluded.sync_status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t                    model.Task
		completed            int
		createdAt, updatedAt int64
		status               string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &completed, &createdAt, &updatedAt, &status); err != nil {
		return model.Task{}, err
	}
	t.Completed = completed != 0
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	t.SyncStatus = model.ParseSyncStatus(status)
	return t, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func taskArgs(t model.Task) []any {
	completed := 0
	if t.Completed {
		completed = 1
	}
	return []any{
		t.ID, t.Title, t.Description, completed,
		t.CreatedAt.UnixMilli(), t.UpdatedAt.UnixMilli(), string(t.SyncStatus),
	}
}

func (db *DB) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetAll returns every task, most recently updated first
func (db *DB) GetAll(ctx context.Context) ([]model.Task, error) {
	tasks, err := db.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetByID returns the task or nil when it does not exist
func (db *DB) GetByID(ctx context.Context, id string) (*model.Task, error) {
	row := db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return &t, nil
}

// FindByPrefix returns the single task whose id starts with prefix
func (db *DB) FindByPrefix(ctx context.Context, prefix string) (*model.Task, error) {
	if t, err := db.GetByID(ctx, prefix); err != nil || t != nil {
		return t, err
	}

	tasks, err := db.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE substr(id, 1, length(?)) = ? LIMIT 2`,
		prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to find task %s: %w", prefix, err)
	}

	switch len(tasks) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return &tasks[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
}

// GetPending returns tasks with unpushed local changes
func (db *DB) GetPending(ctx context.Context) ([]model.Task, error) {
	tasks, err := db.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE sync_status = ? ORDER BY updated_at`,
		string(model.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}
	return tasks, nil
}

// CountUnsynced counts tasks that are pending or being pushed
func (db *DB) CountUnsynced(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE sync_status IN (?, ?)`,
		string(model.StatusPending), string(model.StatusSyncing)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced tasks: %w", err)
	}
	return n, nil
}

// Upsert inserts the task or replaces every field of the stored one
func (db *DB) Upsert(ctx context.Context, t model.Task) error {
	if _, err := db.ExecContext(ctx, upsertTask, taskArgs(t)...); err != nil {
		return fmt.Errorf("failed to save task %s: %w", t.ID, err)
	}
	db.notify(ctx)
	return nil
}

// UpsertIfSettled inserts the task, or replaces the stored one only while it
// carries no local work (SYNCED or CONFLICT). Reports whether it applied.
func (db *DB) UpsertIfSettled(ctx context.Context, t model.Task) (bool, error) {
	res, err := db.ExecContext(ctx,
		upsertTask+` WHERE tasks.sync_status IN (?, ?)`,
		append(taskArgs(t), string(model.StatusSynced), string(model.StatusConflict))...)
	if err != nil {
		return false, fmt.Errorf("failed to merge task %s: %w", t.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		db.notify(ctx)
	}
	return n > 0, nil
}

// UpdateSyncStatus changes only the sync status. Missing ids are ignored.
func (db *DB) UpdateSyncStatus(ctx context.Context, id string, status model.SyncStatus) error {
	res, err := db.ExecContext(ctx,
		`UPDATE tasks SET sync_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update sync status of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		db.notify(ctx)
	}
	return nil
}

// ClaimPending moves the task from PENDING to SYNCING and returns the row as
// stored at that moment, in one transaction. Returns nil when the task is
// gone or no longer PENDING.
func (db *DB) ClaimPending(ctx context.Context, id string) (*model.Task, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET sync_status = ? WHERE id = ? AND sync_status = ?`,
		string(model.StatusSyncing), id, string(model.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to claim task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}

	t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task %s: %w", id, err)
	}

	db.notify(ctx)
	return &t, nil
}

// ResetSyncing moves tasks stuck in SYNCING back to PENDING. Only valid
// while no push is in flight, e.g. after a crash mid-cycle.
func (db *DB) ResetSyncing(ctx context.Context) (int, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE tasks SET sync_status = ? WHERE sync_status = ?`,
		string(model.StatusPending), string(model.StatusSyncing))
	if err != nil {
		return 0, fmt.Errorf("failed to reset syncing tasks: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		db.notify(ctx)
	}
	return int(n), nil
}

// DeleteByID removes the task. Missing ids are ignored.
func (db *DB) DeleteByID(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		db.notify(ctx)
	}
	return nil
}

// Clear deletes every task
func (db *DB) Clear(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	db.notify(ctx)
	return nil
}

// AdoptRemote replaces the local record localID with the version the server
// accepted, in one transaction. A record still SYNCING becomes the server
// version, SYNCED. A record edited again while the push was in flight keeps
// its local fields under the server id and stays PENDING. A record deleted in
// the meantime is restored from the server version. Returns what was stored.
func (db *DB) AdoptRemote(ctx context.Context, localID string, remote model.Task) (model.Task, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current *model.Task
	t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, localID))
	switch {
	case err == nil:
		current = &t
	case !errors.Is(err, sql.ErrNoRows):
		return model.Task{}, fmt.Errorf("failed to read task %s: %w", localID, err)
	}

	stored := remote
	stored.SyncStatus = model.StatusSynced
	if current != nil && current.SyncStatus == model.StatusPending {
		stored = *current
		stored.ID = remote.ID
		stored.CreatedAt = remote.CreatedAt
		if !stored.UpdatedAt.After(stored.CreatedAt) {
			stored.UpdatedAt = stored.CreatedAt.Add(time.Millisecond)
		}
	}

	if localID != remote.ID {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, localID); err != nil {
			return model.Task{}, fmt.Errorf("failed to delete task %s: %w", localID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, upsertTask, taskArgs(stored)...); err != nil {
		return model.Task{}, fmt.Errorf("failed to save task %s: %w", stored.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Task{}, fmt.Errorf("failed to commit task %s: %w", stored.ID, err)
	}

	db.notify(ctx)
	return stored, nil
}
