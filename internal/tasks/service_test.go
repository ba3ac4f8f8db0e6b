package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/tasksync/internal/db"
	"github.com/existflow/tasksync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(store), store
}

func TestCreate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	task, err := s.Create(ctx, "  Buy milk  ", " 2L ")
	require.NoError(t, err)

	assert.True(t, model.IsLocalID(task.ID))
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, "2L", task.Description)
	assert.Equal(t, model.StatusPending, task.SyncStatus)
	assert.True(t, task.IsNew())

	stored, err := s.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, stored)

	_, err = s.Create(ctx, "   ", "x")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestUpdateMovesTimestampForward(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	task, err := s.Create(ctx, "Draft", "")
	require.NoError(t, err)

	// Same clock reading: the edit still lands strictly after creation
	updated, err := s.Update(ctx, task.ID, "Final", "done soon", true)
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.True(t, updated.Completed)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.False(t, updated.IsNew())
	assert.Equal(t, model.StatusPending, updated.SyncStatus)

	_, err = s.Update(ctx, task.ID, "", "", false)
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = s.Update(ctx, "missing", "x", "", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleForcesPending(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	synced := model.Task{
		ID:         "server-1",
		Title:      "Synced",
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		SyncStatus: model.StatusSynced,
	}
	require.NoError(t, store.Upsert(ctx, synced))

	toggled, err := s.Toggle(ctx, "server-1")
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.Equal(t, model.StatusPending, toggled.SyncStatus)
	assert.True(t, toggled.UpdatedAt.After(synced.UpdatedAt))

	n, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	toggled, err = s.Toggle(ctx, "server-1")
	require.NoError(t, err)
	assert.False(t, toggled.Completed)
}

func TestDelete(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	task, err := s.Create(ctx, "Temp", "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, task.ID))
	_, err = s.Get(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, task.ID), ErrNotFound)
}

func TestFindByPrefixAndList(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "A", "")
	require.NoError(t, err)
	_, err = s.Create(ctx, "B", "")
	require.NoError(t, err)

	found, err := s.Find(ctx, a.ID[:len(model.LocalIDPrefix)+8])
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	_, err = s.Find(ctx, model.LocalIDPrefix)
	assert.ErrorIs(t, err, db.ErrAmbiguous)

	_, err = s.Find(ctx, "nothing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
