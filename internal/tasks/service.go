// Package tasks is the local write path used by the CLI and the live view.
// Every mutation lands in the store as PENDING so the sync engine picks it up.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/tasksync/internal/db"
	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/internal/model"
)

var (
	// ErrNotFound is returned for unknown task ids
	ErrNotFound = errors.New("task not found")
	// ErrEmptyTitle is returned when a title is blank after trimming
	ErrEmptyTitle = model.ErrEmptyTitle
)

// Store is the local task storage
type Store interface {
	GetAll(ctx context.Context) ([]model.Task, error)
	GetByID(ctx context.Context, id string) (*model.Task, error)
	FindByPrefix(ctx context.Context, prefix string) (*model.Task, error)
	CountUnsynced(ctx context.Context) (int, error)
	Upsert(ctx context.Context, t model.Task) error
	DeleteByID(ctx context.Context, id string) error
}

// Service creates and edits tasks
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a task service over store
func NewService(store Store) *Service {
	return &Service{store: store, now: model.Now}
}

// Create stores a new PENDING task with a local id
func (s *Service) Create(ctx context.Context, title, description string) (model.Task, error) {
	task, err := model.NewTask(title, description)
	if err != nil {
		return model.Task{}, err
	}
	now := model.Truncate(s.now())
	task.CreatedAt, task.UpdatedAt = now, now

	if err := s.store.Upsert(ctx, task); err != nil {
		return model.Task{}, err
	}

	logger.Info("Task created", logger.F("id", task.ID))
	return task, nil
}

// Update replaces the editable fields of a task
func (s *Service) Update(ctx context.Context, id, title, description string, completed bool) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	task.Title = title
	task.Description = strings.TrimSpace(description)
	task.Completed = completed
	return s.save(ctx, task, "Task updated")
}

// Toggle flips the completed flag
func (s *Service) Toggle(ctx context.Context, id string) (model.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	task.Completed = !task.Completed
	return s.save(ctx, task, "Task toggled")
}

// Delete removes a task locally. The deletion is not sent to the server.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return err
	}

	logger.Info("Task deleted", logger.F("id", id))
	return nil
}

// Get returns the task with the exact id
func (s *Service) Get(ctx context.Context, id string) (model.Task, error) {
	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if task == nil {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *task, nil
}

// Find resolves a full id or a unique id prefix
func (s *Service) Find(ctx context.Context, idOrPrefix string) (model.Task, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return model.Task{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	task, err := s.store.FindByPrefix(ctx, idOrPrefix)
	if errors.Is(err, db.ErrNotFound) {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	}
	if err != nil {
		return model.Task{}, err
	}
	return *task, nil
}

// List returns all tasks, most recently updated first
func (s *Service) List(ctx context.Context) ([]model.Task, error) {
	return s.store.GetAll(ctx)
}

// PendingCount returns how many tasks still need to reach the server
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.store.CountUnsynced(ctx)
}

func (s *Service) save(ctx context.Context, task model.Task, msg string) (model.Task, error) {
	task.Touch(s.now())
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}
	if err := s.store.Upsert(ctx, task); err != nil {
		return model.Task{}, err
	}

	logger.Debug(msg, logger.F("id", task.ID))
	return task, nil
}
