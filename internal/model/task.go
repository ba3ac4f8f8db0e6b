package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalIDPrefix marks identifiers generated on this device that the server
// has not accepted yet.
const LocalIDPrefix = "local-"

// SyncStatus is the per-record sync lifecycle state
type SyncStatus string

const (
	StatusSynced  SyncStatus = "SYNCED"
	StatusPending SyncStatus = "PENDING"
	StatusSyncing SyncStatus = "SYNCING"
	// StatusConflict is never produced by last-writer-wins; reserved for
	// stricter policies.
	StatusConflict SyncStatus = "CONFLICT"
)

// ParseSyncStatus decodes a stored status name. Unknown values decode as
// SYNCED.
func ParseSyncStatus(s string) SyncStatus {
	switch SyncStatus(s) {
	case StatusPending, StatusSyncing, StatusConflict:
		return SyncStatus(s)
	default:
		return StatusSynced
	}
}

// Settled reports whether a record carries no unpushed local work
func (s SyncStatus) Settled() bool {
	return s == StatusSynced || s == StatusConflict
}

// ErrEmptyTitle is returned when a task title is blank
var ErrEmptyTitle = errors.New("task title cannot be blank")

// Task represents a single todo item
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SyncStatus  SyncStatus `json:"sync_status"`
}

// Now returns the current instant at the precision tasks are stored with
func Now() time.Time {
	return Truncate(time.Now())
}

// Truncate normalizes t to UTC millisecond precision
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NewLocalID generates a temporary identifier for a task created offline
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was generated locally
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// NewTask creates a new pending task with a local identifier
func NewTask(title, description string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}

	now := Now()
	return Task{
		ID:          NewLocalID(),
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
		SyncStatus:  StatusPending,
	}, nil
}

// IsNew returns true if the task was never touched since creation, i.e. it
// has never been pushed.
func (t Task) IsNew() bool {
	return t.CreatedAt.Equal(t.UpdatedAt)
}

// Touch marks the task as locally modified at now. UpdatedAt always moves
// strictly forward, so a touched task is never classified as new.
func (t *Task) Touch(now time.Time) {
	now = Truncate(now)
	floor := t.UpdatedAt
	if floor.Before(t.CreatedAt) {
		floor = t.CreatedAt
	}
	if !now.After(floor) {
		now = floor.Add(time.Millisecond)
	}
	t.UpdatedAt = now
	t.SyncStatus = StatusPending
}

// Validate checks the task invariants
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.ID == "" {
		return errors.New("task id cannot be empty")
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		return errors.New("task updated before it was created")
	}
	return nil
}

// SameContent reports whether the user-visible fields match
func (t Task) SameContent(other Task) bool {
	return t.Title == other.Title &&
		t.Description == other.Description &&
		t.Completed == other.Completed
}
