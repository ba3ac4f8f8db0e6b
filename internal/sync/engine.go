// Package sync reconciles the local task store with the remote task server.
//
// A cycle pushes every PENDING task, then pulls what changed on the server
// since the last successful pull and merges it with last-writer-wins.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/existflow/tasksync/internal/api"
	"github.com/existflow/tasksync/internal/conflict"
	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/internal/model"
	"github.com/existflow/tasksync/internal/observe"
)

var (
	// ErrSyncInProgress is returned when a cycle is already running
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrOffline is returned when there is no connectivity
	ErrOffline = errors.New("offline")
)

// Store is the local task storage the engine reads and writes
type Store interface {
	GetByID(ctx context.Context, id string) (*model.Task, error)
	GetPending(ctx context.Context) ([]model.Task, error)
	UpdateSyncStatus(ctx context.Context, id string, status model.SyncStatus) error
	ClaimPending(ctx context.Context, id string) (*model.Task, error)
	ResetSyncing(ctx context.Context) (int, error)
	UpsertIfSettled(ctx context.Context, t model.Task) (bool, error)
	AdoptRemote(ctx context.Context, localID string, remote model.Task) (model.Task, error)
}

// Remote is the task server
type Remote interface {
	List(ctx context.Context) ([]api.TaskDto, error)
	ListSince(ctx context.Context, since time.Time) ([]api.TaskDto, error)
	Create(ctx context.Context, task api.TaskDto) (*api.TaskDto, error)
	Update(ctx context.Context, id string, task api.TaskDto) (*api.TaskDto, error)
}

// Checkpoint persists the instant of the last successful pull
type Checkpoint interface {
	LastSyncTime() time.Time
	SetLastSyncTime(t time.Time) error
}

// Connectivity answers whether the server can be reached right now
type Connectivity interface {
	IsOnline() bool
}

// Phase is the coarse engine state shown to users
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSyncing
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseSyncing:
		return "syncing"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// State is the observable engine state
type State struct {
	Phase   Phase
	Message string // Set for PhaseError
	At      time.Time
}

// Result holds statistics of one cycle
type Result struct {
	Pushed      int // Tasks accepted by the server
	PushFailed  int // Tasks reverted to PENDING
	Pulled      int // Tasks received from the server
	Applied     int // Remote versions written locally
	Skipped     int // Remote versions ignored because local work is pending
	Conflicts   int // Remote versions that conflicted with local edits
	MergeFailed int // Remote versions that could not be stored
}

// Engine runs sync cycles. At most one cycle runs at a time.
type Engine struct {
	store      Store
	remote     Remote
	checkpoint Checkpoint
	network    Connectivity
	now        func() time.Time

	running  atomic.Bool
	state    *observe.Subject[State]
	lastSync *observe.Subject[time.Time]
}

// NewEngine creates a sync engine. A nil network is treated as always online.
func NewEngine(store Store, remote Remote, checkpoint Checkpoint, network Connectivity) *Engine {
	return &Engine{
		store:      store,
		remote:     remote,
		checkpoint: checkpoint,
		network:    network,
		now:        model.Now,
		state:      observe.New(State{Phase: PhaseIdle}),
		lastSync:   observe.New(checkpoint.LastSyncTime()),
	}
}

// State returns the current engine state
func (e *Engine) State() State {
	return e.state.Value()
}

// ObserveState emits the current state and every change after it
func (e *Engine) ObserveState() (<-chan State, func()) {
	return e.state.Subscribe()
}

// LastSyncTime returns the instant of the last successful pull
func (e *Engine) LastSyncTime() time.Time {
	return e.lastSync.Value()
}

// ObserveLastSync emits the last successful sync time and every change after it
func (e *Engine) ObserveLastSync() (<-chan time.Time, func()) {
	return e.lastSync.Subscribe()
}

// IsRunning reports whether a cycle is in flight
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// MarkIdle resets the visible state to idle unless a cycle is running
func (e *Engine) MarkIdle() {
	if !e.running.Load() {
		e.state.Publish(State{Phase: PhaseIdle, At: e.now()})
	}
}

// RunCycle runs one cycle and reports whether it succeeded. Per-record
// failures are logged, not returned.
func (e *Engine) RunCycle(ctx context.Context) bool {
	_, err := e.Sync(ctx)
	return err == nil
}

// Sync runs one push-then-pull cycle. It returns ErrSyncInProgress without
// doing anything when another cycle is running and ErrOffline when there is
// no connectivity.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		logger.Debug("Sync request dropped, cycle in flight")
		return nil, ErrSyncInProgress
	}
	defer e.running.Store(false)

	if e.network != nil && !e.network.IsOnline() {
		logger.Info("Sync skipped, offline")
		e.state.Publish(State{Phase: PhaseError, Message: "No network connection", At: e.now()})
		return nil, ErrOffline
	}

	e.state.Publish(State{Phase: PhaseSyncing, At: e.now()})
	start := time.Now()

	result, err := e.guardedCycle(ctx)
	if err != nil {
		logger.Error("Sync failed", logger.F("error", err), logger.F("duration", time.Since(start)))
		e.state.Publish(State{Phase: PhaseError, Message: err.Error(), At: e.now()})
		return result, err
	}

	logger.Info("Sync completed",
		logger.F("pushed", result.Pushed),
		logger.F("push_failed", result.PushFailed),
		logger.F("pulled", result.Pulled),
		logger.F("applied", result.Applied),
		logger.F("skipped", result.Skipped),
		logger.F("conflicts", result.Conflicts),
		logger.F("duration", time.Since(start)))
	e.state.Publish(State{Phase: PhaseSuccess, At: e.now()})
	return result, nil
}

// guardedCycle turns a panic anywhere in the cycle into an error
func (e *Engine) guardedCycle(ctx context.Context) (result *Result, err error) {
	result = &Result{}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync panicked: %v", r)
		}
	}()

	if err := e.push(ctx, result); err != nil {
		return result, fmt.Errorf("push failed: %w", err)
	}
	if err := e.pull(ctx, result); err != nil {
		return result, fmt.Errorf("pull failed: %w", err)
	}
	return result, nil
}

// push sends every PENDING task to the server. Failures of single tasks
// revert them to PENDING and never stop the loop.
func (e *Engine) push(ctx context.Context, result *Result) error {
	// Nothing is in flight, so SYNCING rows are leftovers of an aborted cycle
	if n, err := e.store.ResetSyncing(ctx); err != nil {
		return err
	} else if n > 0 {
		logger.Warn("Recovered tasks stuck in syncing", logger.F("count", n))
	}

	pending, err := e.store.GetPending(ctx)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		logger.Debug("Pushing local changes", logger.F("count", len(pending)))
	}

	for _, snapshot := range pending {
		// Local writes may have landed since the snapshot, so push the row as stored now
		task, err := e.store.ClaimPending(ctx, snapshot.ID)
		if err != nil {
			result.PushFailed++
			logger.Warn("Failed to claim task for push", logger.F("id", snapshot.ID), logger.F("error", err))
			continue
		}
		if task == nil {
			logger.Debug("Task deleted or settled before its push, skipped", logger.F("id", snapshot.ID))
			continue
		}

		if err := e.pushOne(ctx, *task); err != nil {
			result.PushFailed++
			logger.Warn("Failed to push task", logger.F("id", task.ID), logger.F("error", err))
			if err := e.store.UpdateSyncStatus(ctx, task.ID, model.StatusPending); err != nil {
				logger.Error("Failed to revert task to pending", logger.F("id", task.ID), logger.F("error", err))
			}
			continue
		}
		result.Pushed++
	}
	return nil
}

// pushOne sends a task already claimed as SYNCING and adopts the server version
func (e *Engine) pushOne(ctx context.Context, task model.Task) error {
	dto := api.FromTask(task)
	var (
		resp *api.TaskDto
		err  error
	)
	if task.IsNew() {
		resp, err = e.remote.Create(ctx, dto)
		if errors.Is(err, api.ErrConflict) {
			logger.Debug("Task exists on server, updating instead", logger.F("id", task.ID))
			resp, err = e.remote.Update(ctx, task.ID, dto)
		}
	} else {
		resp, err = e.remote.Update(ctx, task.ID, dto)
		if errors.Is(err, api.ErrNotFound) {
			logger.Debug("Task missing on server, creating instead", logger.F("id", task.ID))
			resp, err = e.remote.Create(ctx, dto)
		}
	}
	if err != nil {
		return err
	}

	accepted := task
	if resp != nil {
		accepted = resp.ToTask(e.now())
	}

	stored, err := e.store.AdoptRemote(ctx, task.ID, accepted)
	if err != nil {
		return err
	}
	if stored.SyncStatus == model.StatusPending {
		logger.Debug("Task edited during push, kept pending", logger.F("id", stored.ID))
	}
	return nil
}

// pull fetches server changes since the last successful pull and merges them
func (e *Engine) pull(ctx context.Context, result *Result) error {
	since := e.checkpoint.LastSyncTime()
	pullStart := e.now()

	var (
		remote []api.TaskDto
		err    error
	)
	if since.IsZero() {
		remote, err = e.remote.List(ctx)
	} else {
		remote, err = e.remote.ListSince(ctx, since)
	}
	if err != nil {
		return err
	}
	result.Pulled = len(remote)

	for _, dto := range remote {
		if err := e.merge(ctx, dto.ToTask(e.now()), result); err != nil {
			result.MergeFailed++
			logger.Warn("Failed to merge remote task", logger.F("id", dto.ID), logger.F("error", err))
		}
	}

	if err := e.checkpoint.SetLastSyncTime(pullStart); err != nil {
		return fmt.Errorf("failed to save last sync time: %w", err)
	}
	e.lastSync.Publish(pullStart)
	return nil
}

func (e *Engine) merge(ctx context.Context, remote model.Task, result *Result) error {
	local, err := e.store.GetByID(ctx, remote.ID)
	if err != nil {
		return err
	}

	if local == nil {
		return e.apply(ctx, remote, result)
	}

	// Local work wins until it has been pushed
	if !local.SyncStatus.Settled() {
		result.Skipped++
		return nil
	}

	if !conflict.HasConflict(*local, remote) {
		if remote.UpdatedAt.After(local.UpdatedAt) {
			return e.apply(ctx, remote, result)
		}
		return nil
	}

	result.Conflicts++
	resolution := conflict.Resolve(*local, remote)
	logger.Info("Resolved conflict",
		logger.F("id", remote.ID),
		logger.F("winner", resolution.Winner))

	if resolution.Winner == conflict.KeepRemote {
		return e.apply(ctx, remote, result)
	}
	return e.store.UpdateSyncStatus(ctx, local.ID, model.StatusPending)
}

// apply stores the remote version unless the local row picked up work
// since it was read
func (e *Engine) apply(ctx context.Context, remote model.Task, result *Result) error {
	remote.SyncStatus = model.StatusSynced
	applied, err := e.store.UpsertIfSettled(ctx, remote)
	if err != nil {
		return err
	}
	if applied {
		result.Applied++
	} else {
		result.Skipped++
	}
	return nil
}
