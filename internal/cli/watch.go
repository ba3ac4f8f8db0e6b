package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/internal/sync"
	"github.com/existflow/tasksync/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live task view with background sync",
	Long: `Open the live task view. While it runs, tasks sync when the server
becomes reachable, shortly after local changes and periodically.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the live view needs a terminal; use 'tasksync list' instead")
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskFeed, stopTasks, err := a.db.Observe(ctx)
	if err != nil {
		return fmt.Errorf("failed to observe tasks: %w", err)
	}
	defer stopTasks()
	stateFeed, stopState := a.engine.ObserveState()
	defer stopState()

	auto := sync.NewAutoSync(a.engine, a.prober, a.db, sync.OptionsFromConfig(cfg.Sync))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.prober.Run(gctx) })
	g.Go(func() error { return auto.Run(gctx) })
	g.Go(func() error { return a.prefs.Watch(gctx) })
	g.Go(func() error { return syncOnLogin(gctx, a, auto) })

	model := tui.NewModel(tui.Options{
		Tasks:    a.tasks,
		Trigger:  auto,
		TaskFeed: taskFeed,
		SyncFeed: stateFeed,
		LastSync: a.engine.LastSyncTime,
		Online:   a.prober.IsOnline,
		User: func() string {
			if u := a.prefs.User(); u != nil {
				return u.Email
			}
			return ""
		},
	})

	logger.Info("Launching TUI")
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	cancel()
	if err := g.Wait(); err != nil {
		logger.Warn("Background sync stopped with error", logger.F("error", err))
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		logger.Error("TUI error", logger.F("error", runErr))
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}

	logger.Info("TUI exited normally")
	return nil
}

// syncOnLogin requests a cycle whenever a new credential shows up, for
// example after 'tasksync auth login' ran in another terminal
func syncOnLogin(ctx context.Context, a *app, auto *sync.AutoSync) error {
	tokens, cancel := a.prefs.ObserveToken()
	defer cancel()

	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case token, ok := <-tokens:
			if !ok {
				return nil
			}
			if first {
				first = false
				continue
			}
			if token != "" {
				logger.Info("Credential changed, requesting sync")
				auto.TriggerSync()
			}
		}
	}
}
