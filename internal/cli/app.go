package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/existflow/tasksync/internal/api"
	"github.com/existflow/tasksync/internal/config"
	"github.com/existflow/tasksync/internal/db"
	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/internal/network"
	"github.com/existflow/tasksync/internal/prefs"
	"github.com/existflow/tasksync/internal/sync"
	"github.com/existflow/tasksync/internal/tasks"
)

// app holds the collaborators every command works with
type app struct {
	cfg    *config.Config
	db     *db.DB
	prefs  *prefs.Prefs
	client *api.Client
	tasks  *tasks.Service
	prober *network.Prober
	engine *sync.Engine
}

// openApp wires the local store, preferences and sync engine for cfg
func openApp(cfg *config.Config) (*app, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open database", logger.F("error", err))
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	p, err := prefs.OpenDefault()
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	client := api.NewClient(cfg.ServerURL, p, cfg.Sync.RequestTimeout)
	prober := network.NewProber(client, cfg.Sync.ProbeInterval)

	return &app{
		cfg:    cfg,
		db:     database,
		prefs:  p,
		client: client,
		tasks:  tasks.NewService(database),
		prober: prober,
		engine: sync.NewEngine(database, client, p, prober),
	}, nil
}

// Close releases the database
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logger.Warn("Failed to close database", logger.F("error", err))
		return
	}
	logger.Debug("Database closed")
}

// syncNow probes the server and runs one cycle
func (a *app) syncNow(ctx context.Context) (*sync.Result, error) {
	a.prober.Probe(ctx)
	return a.engine.Sync(ctx)
}

// maybeSync runs a cycle when requested and prints a one-line summary.
// Failures are reported but never fail the command: the change is already
// stored locally and stays queued.
func (a *app) maybeSync(ctx context.Context, out io.Writer, requested bool) {
	if !requested {
		return
	}

	fmt.Fprintln(out, "🔄 Syncing...")
	result, err := a.syncNow(ctx)
	switch {
	case errors.Is(err, sync.ErrOffline):
		fmt.Fprintf(out, "⚠️  Server unreachable at %s, changes stay queued\n", a.client.BaseURL())
	case err != nil:
		fmt.Fprintf(out, "⚠️  Sync failed: %v\n", err)
	default:
		printResult(out, result)
	}
}

func printResult(out io.Writer, r *sync.Result) {
	if r.Pushed == 0 && r.Applied == 0 && r.PushFailed == 0 {
		fmt.Fprintln(out, "✓ Already up to date")
		return
	}
	fmt.Fprintf(out, "✓ Synced (↑%d ↓%d)\n", r.Pushed, r.Applied)
	if r.PushFailed > 0 {
		fmt.Fprintf(out, "⚠️  %d task(s) could not be pushed and will be retried\n", r.PushFailed)
	}
}
