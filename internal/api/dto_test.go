package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/existflow/tasksync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTask_ParsesTimestamps(t *testing.T) {
	dto := TaskDto{
		ID:        "t1",
		Title:     "Title",
		Completed: true,
		CreatedAt: "2024-01-01T10:00:00.000Z",
		UpdatedAt: "2024-01-01T12:30:00.123456+02:00",
	}

	task := dto.ToTask(time.Now())
	assert.Equal(t, model.StatusSynced, task.SyncStatus)
	assert.True(t, task.Completed)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), task.CreatedAt)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 30, 0, 123_000_000, time.UTC), task.UpdatedAt)
}

func TestToTask_MalformedTimestampsUseNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	dto := TaskDto{ID: "t1", Title: "x", CreatedAt: "yesterday", UpdatedAt: ""}

	task := dto.ToTask(now)
	assert.Equal(t, now, task.CreatedAt)
	assert.Equal(t, now, task.UpdatedAt)

	// Only createdAt is malformed: the valid but older updatedAt is raised to it
	dto = TaskDto{ID: "t2", Title: "y", CreatedAt: "garbage", UpdatedAt: "2024-01-01T00:00:00.000Z"}
	task = dto.ToTask(now)
	assert.Equal(t, now, task.CreatedAt)
	assert.Equal(t, now, task.UpdatedAt)
	assert.False(t, task.UpdatedAt.Before(task.CreatedAt))

	// Only updatedAt is malformed
	dto = TaskDto{ID: "t3", Title: "z", CreatedAt: "2024-01-01T00:00:00.000Z", UpdatedAt: "nope"}
	task = dto.ToTask(now)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), task.CreatedAt)
	assert.Equal(t, now, task.UpdatedAt)
}

func TestTaskDto_MissingDescriptionDecodesEmpty(t *testing.T) {
	var dto TaskDto
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","title":"x","completed":false,"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}`), &dto))
	assert.Equal(t, "", dto.Description)
}

func TestFromTask_WireFormat(t *testing.T) {
	task := model.Task{
		ID:        "t1",
		Title:     "x",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 1, 500_000_000, time.FixedZone("X", 3600)),
	}

	dto := FromTask(task)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", dto.CreatedAt)
	assert.Equal(t, "2023-12-31T23:00:01.500Z", dto.UpdatedAt)

	back := dto.ToTask(time.Now())
	assert.True(t, task.UpdatedAt.Equal(back.UpdatedAt))
}
