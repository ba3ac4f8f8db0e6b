package sync

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/existflow/tasksync/internal/api"
	"github.com/existflow/tasksync/internal/db"
	"github.com/existflow/tasksync/internal/model"
	"github.com/stretchr/testify/require"
)

// fakeRemote is an in-memory task server with failure hooks
type fakeRemote struct {
	mu     gosync.Mutex
	tasks  map[string]api.TaskDto
	nextID int
	calls  []string

	createErr error
	updateErr error
	listErr   error
	panicList bool
	noBody    bool

	// Runs inside the request before the response is produced
	beforeCreate func(api.TaskDto)
	block        chan struct{}
	listed       []api.TaskDto // Extra tasks to return from pull, if set
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{tasks: make(map[string]api.TaskDto)}
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) put(dto api.TaskDto) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[dto.ID] = dto
}

func (f *fakeRemote) get(id string) (api.TaskDto, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dto, ok := f.tasks[id]
	return dto, ok
}

func (f *fakeRemote) List(ctx context.Context) ([]api.TaskDto, error) {
	f.record("list")
	return f.list(time.Time{})
}

func (f *fakeRemote) ListSince(ctx context.Context, since time.Time) ([]api.TaskDto, error) {
	f.record("listSince")
	return f.list(since)
}

func (f *fakeRemote) list(since time.Time) ([]api.TaskDto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.panicList {
		panic("list exploded")
	}
	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []api.TaskDto
	for _, dto := range f.tasks {
		updated, err := api.ParseTime(dto.UpdatedAt)
		if err == nil && updated.Before(since) {
			continue
		}
		out = append(out, dto)
	}
	return append(out, f.listed...), nil
}

func (f *fakeRemote) Create(ctx context.Context, dto api.TaskDto) (*api.TaskDto, error) {
	f.record("create:" + dto.ID)
	if f.beforeCreate != nil {
		f.beforeCreate(dto)
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.tasks[dto.ID]; ok {
		return nil, &api.StatusError{Code: http.StatusConflict, Body: `{"error":"Task already exists"}`}
	}
	if model.IsLocalID(dto.ID) {
		f.nextID++
		dto.ID = fmt.Sprintf("server-%d", f.nextID)
	}
	f.tasks[dto.ID] = dto
	if f.noBody {
		return nil, nil
	}
	return &dto, nil
}

func (f *fakeRemote) Update(ctx context.Context, id string, dto api.TaskDto) (*api.TaskDto, error) {
	f.record("update:" + id)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if _, ok := f.tasks[id]; !ok {
		return nil, &api.StatusError{Code: http.StatusNotFound, Body: `{"error":"Task not found"}`}
	}
	dto.ID = id
	f.tasks[id] = dto
	if f.noBody {
		return nil, nil
	}
	return &dto, nil
}

// memCheckpoint keeps the last sync time in memory
type memCheckpoint struct {
	mu  gosync.Mutex
	at  time.Time
	err error
}

func (m *memCheckpoint) LastSyncTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.at
}

func (m *memCheckpoint) SetLastSyncTime(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.at = t
	return nil
}

// switchNetwork is a connectivity flag tests can flip
type switchNetwork struct {
	online atomic.Bool
}

func newSwitchNetwork(online bool) *switchNetwork {
	n := &switchNetwork{}
	n.online.Store(online)
	return n
}

func (n *switchNetwork) IsOnline() bool {
	return n.online.Load()
}

type harness struct {
	db         *db.DB
	remote     *fakeRemote
	checkpoint *memCheckpoint
	network    *switchNetwork
	engine     *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := db.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &harness{
		db:         store,
		remote:     newFakeRemote(),
		checkpoint: &memCheckpoint{},
		network:    newSwitchNetwork(true),
	}
	h.engine = NewEngine(h.db, h.remote, h.checkpoint, h.network)
	return h
}

func (h *harness) get(t *testing.T, id string) *model.Task {
	t.Helper()
	task, err := h.db.GetByID(context.Background(), id)
	require.NoError(t, err)
	return task
}

func (h *harness) all(t *testing.T) []model.Task {
	t.Helper()
	tasks, err := h.db.GetAll(context.Background())
	require.NoError(t, err)
	return tasks
}
