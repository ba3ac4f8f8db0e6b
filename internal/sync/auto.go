package sync

import (
	"context"
	"time"

	"github.com/existflow/tasksync/internal/config"
	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/internal/model"
	"golang.org/x/sync/errgroup"
)

// Runner runs sync cycles; *Engine implements it
type Runner interface {
	RunCycle(ctx context.Context) bool
	MarkIdle()
}

// Network is the live connectivity signal
type Network interface {
	IsOnline() bool
	Subscribe() (<-chan bool, func())
}

// TaskWatcher delivers task snapshots after every store mutation
type TaskWatcher interface {
	Observe(ctx context.Context) (<-chan []model.Task, func(), error)
}

// Options configures the trigger loops
type Options struct {
	OnlineDelay   time.Duration // Wait after connectivity returns
	DebounceDelay time.Duration // Wait after the unsynced count changes
	PollInterval  time.Duration // Periodic background sync
	MaxRetries    int           // Retries of a failed periodic sync
	RetryBackoff  time.Duration // First retry delay, doubled each attempt
}

// DefaultOptions returns the standard trigger timings
func DefaultOptions() Options {
	return Options{
		OnlineDelay:   500 * time.Millisecond,
		DebounceDelay: 5 * time.Second,
		PollInterval:  15 * time.Minute,
		MaxRetries:    3,
		RetryBackoff:  30 * time.Second,
	}
}

// OptionsFromConfig maps the sync section of the config file
func OptionsFromConfig(c config.SyncConfig) Options {
	opts := DefaultOptions()
	if c.OnlineDelay > 0 {
		opts.OnlineDelay = c.OnlineDelay
	}
	if c.DebounceDelay > 0 {
		opts.DebounceDelay = c.DebounceDelay
	}
	if c.PollInterval > 0 {
		opts.PollInterval = c.PollInterval
	}
	if c.MaxRetries >= 0 {
		opts.MaxRetries = c.MaxRetries
	}
	return opts
}

// AutoSync starts sync cycles when connectivity returns, when local changes
// pile up and on a fixed period. Every trigger goes through the engine's
// in-flight guard, so cycles never overlap.
type AutoSync struct {
	engine  Runner
	network Network
	store   TaskWatcher
	opts    Options
	trigger chan struct{}
}

// NewAutoSync creates a new auto-sync manager
func NewAutoSync(engine Runner, network Network, store TaskWatcher, opts Options) *AutoSync {
	return &AutoSync{
		engine:  engine,
		network: network,
		store:   store,
		opts:    opts,
		trigger: make(chan struct{}, 1),
	}
}

// Run drives all trigger loops until ctx is done
func (a *AutoSync) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.watchConnectivity(ctx) })
	g.Go(func() error { return a.watchPending(ctx) })
	g.Go(func() error { return a.poll(ctx) })
	g.Go(func() error { return a.watchTriggers(ctx) })

	logger.Info("Auto sync started",
		logger.F("debounce", a.opts.DebounceDelay),
		logger.F("poll_interval", a.opts.PollInterval))
	err := g.Wait()
	logger.Info("Auto sync stopped")
	return err
}

// TriggerSync asks for a sync soon. Calls within the debounce window
// coalesce into one cycle.
func (a *AutoSync) TriggerSync() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}

// cycle runs one cycle that outlives trigger cancellation
func (a *AutoSync) cycle(ctx context.Context, reason string) bool {
	logger.Debug("Sync triggered", logger.F("reason", reason))
	return a.engine.RunCycle(context.WithoutCancel(ctx))
}

func (a *AutoSync) watchConnectivity(ctx context.Context) error {
	updates, cancel := a.network.Subscribe()
	defer cancel()

	known, last := false, false
	for {
		select {
		case <-ctx.Done():
			return nil
		case online, ok := <-updates:
			if !ok {
				return nil
			}
			if known && online == last {
				continue
			}
			known, last = true, online

			if !online {
				logger.Info("Connectivity lost")
				a.engine.MarkIdle()
				continue
			}

			logger.Info("Connectivity available")
			if !sleep(ctx, a.opts.OnlineDelay) {
				return nil
			}
			if a.network.IsOnline() {
				a.cycle(ctx, "online")
			}
		}
	}
}

func (a *AutoSync) watchPending(ctx context.Context) error {
	snapshots, cancel, err := a.store.Observe(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
			timer, fire = nil, nil
		}
	}
	defer stop()

	last := -1
	for {
		select {
		case <-ctx.Done():
			return nil

		case tasks, ok := <-snapshots:
			if !ok {
				return nil
			}
			count := countUnsynced(tasks)
			if count == last {
				continue
			}
			last = count

			stop()
			if count > 0 && a.network.IsOnline() {
				timer = time.NewTimer(a.opts.DebounceDelay)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			if a.network.IsOnline() {
				a.cycle(ctx, "pending changes")
			}
		}
	}
}

func (a *AutoSync) poll(ctx context.Context) error {
	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if a.network.IsOnline() {
				a.syncWithRetry(ctx)
			}
		}
	}
}

// syncWithRetry retries a failed periodic cycle with exponential backoff
func (a *AutoSync) syncWithRetry(ctx context.Context) bool {
	backoff := a.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		if a.cycle(ctx, "periodic") {
			return true
		}
		if attempt >= a.opts.MaxRetries {
			logger.Warn("Periodic sync gave up", logger.F("attempts", attempt+1))
			return false
		}
		if !sleep(ctx, backoff) {
			return false
		}
		backoff *= 2
	}
}

func (a *AutoSync) watchTriggers(ctx context.Context) error {
	var fire <-chan time.Time
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.trigger:
			timer.Reset(a.opts.DebounceDelay)
			fire = timer.C
		case <-fire:
			fire = nil
			if a.network.IsOnline() {
				a.cycle(ctx, "manual")
			}
		}
	}
}

func countUnsynced(tasks []model.Task) int {
	n := 0
	for _, t := range tasks {
		if t.SyncStatus == model.StatusPending || t.SyncStatus == model.StatusSyncing {
			n++
		}
	}
	return n
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
