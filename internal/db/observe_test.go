package db

import (
	"context"
	"testing"
	"time"

	"github.com/existflow/tasksync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextSnapshot(t *testing.T, ch <-chan []model.Task) []model.Task {
	t.Helper()
	select {
	case tasks, ok := <-ch:
		require.True(t, ok, "observation closed")
		return tasks
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func TestObserve_EmitsCurrentThenChanges(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.Upsert(ctx, task("a", "first", 0, model.StatusSynced)))

	ch, cancel, err := d.Observe(ctx)
	require.NoError(t, err)
	defer cancel()

	initial := nextSnapshot(t, ch)
	require.Len(t, initial, 1)
	assert.Equal(t, "a", initial[0].ID)

	require.NoError(t, d.Upsert(ctx, task("b", "second", time.Minute, model.StatusPending)))
	after := nextSnapshot(t, ch)
	require.Len(t, after, 2)
	assert.Equal(t, "b", after[0].ID)

	require.NoError(t, d.DeleteByID(ctx, "a"))
	after = nextSnapshot(t, ch)
	require.Len(t, after, 1)
	assert.Equal(t, "b", after[0].ID)
}

func TestObserve_CancelStopsDelivery(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	ch, cancel, err := d.Observe(ctx)
	require.NoError(t, err)
	nextSnapshot(t, ch)

	cancel()
	require.NoError(t, d.Upsert(ctx, task("a", "x", 0, model.StatusPending)))

	_, ok := <-ch
	assert.False(t, ok)
}

func TestObserve_SkippedMergeDoesNotEmit(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.Upsert(ctx, task("a", "local", 0, model.StatusPending)))

	ch, cancel, err := d.Observe(ctx)
	require.NoError(t, err)
	defer cancel()
	nextSnapshot(t, ch)

	applied, err := d.UpsertIfSettled(ctx, task("a", "remote", time.Hour, model.StatusSynced))
	require.NoError(t, err)
	assert.False(t, applied)

	select {
	case <-ch:
		t.Fatal("unexpected snapshot")
	case <-time.After(100 * time.Millisecond):
	}
}
