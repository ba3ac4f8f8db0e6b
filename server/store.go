package server

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTaskExists is returned when creating a task whose id is taken
	ErrTaskExists = errors.New("task already exists")
	// ErrTaskMissing is returned when updating or deleting an unknown task
	ErrTaskMissing = errors.New("task not found")
	// ErrSessionMissing is returned for unknown session digests
	ErrSessionMissing = errors.New("session not found")
)

// Task is a task as the server stores it
type Task struct {
	ID          string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is an account identified by email
type User struct {
	ID    string
	Email string
}

// Session maps a token digest to a user
type Session struct {
	Digest    string
	UserID    string
	ExpiresAt time.Time
}

// Store persists server state
type Store interface {
	// ListTasks returns tasks with UpdatedAt >= since; the zero time lists all
	ListTasks(ctx context.Context, since time.Time) ([]Task, error)
	GetTask(ctx context.Context, id string) (*Task, error)
	CreateTask(ctx context.Context, t Task) error
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id string) error

	EnsureUser(ctx context.Context, email string) (User, error)
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, digest string) (*Session, error)

	Close() error
}

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	tasks    map[string]Task
	users    map[string]User // By email
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:    make(map[string]Task),
		users:    make(map[string]User),
		sessions: make(map[string]Session),
	}
}

func (m *MemoryStore) ListTasks(ctx context.Context, since time.Time) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !since.IsZero() && t.UpdatedAt.Before(since) {
			continue
		}
		tasks = append(tasks, t)
	}
	sortTasks(tasks)
	return tasks, nil
}

func (m *MemoryStore) GetTask(ctx context.Context, id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryStore) CreateTask(ctx context.Context, t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[t.ID]; ok {
		return ErrTaskExists
	}
	m.tasks[t.ID] = t
	return nil
}

func (m *MemoryStore) UpdateTask(ctx context.Context, t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[t.ID]; !ok {
		return ErrTaskMissing
	}
	m.tasks[t.ID] = t
	return nil
}

func (m *MemoryStore) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return ErrTaskMissing
	}
	delete(m.tasks, id)
	return nil
}

func (m *MemoryStore) EnsureUser(ctx context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[email]; ok {
		return u, nil
	}
	u := User{ID: "user-" + uuid.NewString(), Email: email}
	m.users[email] = u
	return u, nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Digest] = s
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, digest string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[digest]
	if !ok {
		return nil, ErrSessionMissing
	}
	return &s, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func sortTasks(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].UpdatedAt.Equal(tasks[j].UpdatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].UpdatedAt.Before(tasks[j].UpdatedAt)
	})
}
