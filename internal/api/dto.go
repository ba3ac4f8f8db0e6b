package api

import (
	"time"

	"github.com/existflow/tasksync/internal/model"
)

// TimeLayout is the wire format for instants: RFC 3339, UTC, milliseconds
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// TaskDto is a task as the server sends and receives it
type TaskDto struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email string `json:"email"`
}

// LoginResponse carries the issued credential
type LoginResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// User converts the response into the persisted user
func (r LoginResponse) User() model.User {
	return model.User{ID: r.ID, Email: r.Email, Token: r.Token}
}

// FormatTime renders t in the wire format
func FormatTime(t time.Time) string {
	return model.Truncate(t).Format(TimeLayout)
}

// ParseTime parses any RFC 3339 instant and normalizes it
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return model.Truncate(t), nil
}

// FromTask encodes a local task for the wire
func FromTask(t model.Task) TaskDto {
	return TaskDto{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   FormatTime(t.CreatedAt),
		UpdatedAt:   FormatTime(t.UpdatedAt),
	}
}

// ToTask decodes a server task as SYNCED. Malformed timestamps become now,
// so decoding never fails, and updatedAt never precedes createdAt.
func (d TaskDto) ToTask(now time.Time) model.Task {
	now = model.Truncate(now)

	createdAt, err := ParseTime(d.CreatedAt)
	if err != nil {
		createdAt = now
	}
	updatedAt, err := ParseTime(d.UpdatedAt)
	if err != nil {
		updatedAt = now
	}
	if updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}

	return model.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		SyncStatus:  model.StatusSynced,
	}
}
