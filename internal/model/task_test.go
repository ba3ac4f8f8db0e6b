package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Run("creates pending task with local id", func(t *testing.T) {
		task, err := NewTask("  Buy milk ", " two liters ")
		require.NoError(t, err)

		assert.True(t, IsLocalID(task.ID))
		assert.Equal(t, "Buy milk", task.Title)
		assert.Equal(t, "two liters", task.Description)
		assert.Equal(t, StatusPending, task.SyncStatus)
		assert.True(t, task.IsNew())
		assert.NoError(t, task.Validate())
	})

	t.Run("rejects blank title", func(t *testing.T) {
		_, err := NewTask("   ", "x")
		assert.ErrorIs(t, err, ErrEmptyTitle)
	})

	t.Run("generates distinct ids", func(t *testing.T) {
		a, _ := NewTask("a", "")
		b, _ := NewTask("b", "")
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestTask_Touch(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("moves updatedAt forward and marks pending", func(t *testing.T) {
		task := Task{ID: "1", Title: "a", CreatedAt: created, UpdatedAt: created, SyncStatus: StatusSynced}
		task.Touch(created.Add(time.Minute))

		assert.Equal(t, created.Add(time.Minute), task.UpdatedAt)
		assert.Equal(t, StatusPending, task.SyncStatus)
		assert.False(t, task.IsNew())
	})

	t.Run("same millisecond as creation is no longer new", func(t *testing.T) {
		task := Task{ID: "1", Title: "a", CreatedAt: created, UpdatedAt: created}
		task.Touch(created)

		assert.True(t, task.UpdatedAt.After(task.CreatedAt))
		assert.False(t, task.IsNew())
	})

	t.Run("clock behind last update still moves forward", func(t *testing.T) {
		updated := created.Add(time.Hour)
		task := Task{ID: "1", Title: "a", CreatedAt: created, UpdatedAt: updated}
		task.Touch(created.Add(time.Minute))

		assert.Equal(t, updated.Add(time.Millisecond), task.UpdatedAt)
	})
}

func TestTask_Invariant(t *testing.T) {
	now := Now()
	for i := 0; i < 50; i++ {
		task, err := NewTask(strings.Repeat("x", i+1), "")
		require.NoError(t, err)
		task.Touch(now)
		assert.False(t, task.UpdatedAt.Before(task.CreatedAt))
	}
}

func TestTask_Validate(t *testing.T) {
	created := Now()
	bad := Task{ID: "1", Title: "a", CreatedAt: created, UpdatedAt: created.Add(-time.Second)}
	assert.Error(t, bad.Validate())

	noID := Task{Title: "a", CreatedAt: created, UpdatedAt: created}
	assert.Error(t, noID.Validate())
}

func TestParseSyncStatus(t *testing.T) {
	assert.Equal(t, StatusPending, ParseSyncStatus("PENDING"))
	assert.Equal(t, StatusSyncing, ParseSyncStatus("SYNCING"))
	assert.Equal(t, StatusConflict, ParseSyncStatus("CONFLICT"))
	assert.Equal(t, StatusSynced, ParseSyncStatus("SYNCED"))
	assert.Equal(t, StatusSynced, ParseSyncStatus("garbage"))

	assert.True(t, StatusConflict.Settled())
	assert.False(t, StatusSyncing.Settled())
}
