package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/existflow/tasksync/internal/prefs"
	"github.com/existflow/tasksync/internal/sync"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync tasks with server",
	Long: `Push local changes and pull remote ones.

Commands:
  tasksync sync                          # Sync now
  tasksync sync status                   # Show sync status
  tasksync sync config --server URL      # Point at another server`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	Args:  cobra.NoArgs,
	RunE:  runSyncStatus,
}

var syncConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure sync settings",
	Args:  cobra.NoArgs,
	RunE:  runSyncConfig,
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncConfigCmd)

	syncConfigCmd.Flags().String("server", "", "Set server URL")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔄 Synchronizing...")

	result, err := a.syncNow(cmd.Context())
	if errors.Is(err, sync.ErrOffline) {
		return fmt.Errorf("server unreachable at %s", a.client.BaseURL())
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintf(out, "✓ Sync complete! Pushed: %d, Pulled: %d, Applied: %d\n",
		result.Pushed, result.Pulled, result.Applied)
	if result.PushFailed > 0 {
		fmt.Fprintf(out, "⚠️  %d task(s) could not be pushed and will be retried\n", result.PushFailed)
	}
	if result.Conflicts > 0 {
		fmt.Fprintf(out, "Resolved %d conflict(s), newest edit won\n", result.Conflicts)
	}
	return nil
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	pending, err := a.tasks.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending tasks: %w", err)
	}

	reachable := "✗ unreachable"
	if a.prober.Probe(ctx) {
		reachable = "✓ reachable"
	}

	fmt.Fprintf(out, "Server:    %s (%s)\n", a.client.BaseURL(), reachable)
	if u := a.prefs.User(); u != nil {
		fmt.Fprintf(out, "User:      %s (%s)\n", u.Email, u.ID)
	} else {
		fmt.Fprintln(out, "User:      not logged in")
	}

	if last := a.prefs.LastSyncTime(); last.IsZero() {
		fmt.Fprintln(out, "Last Sync: never")
	} else {
		fmt.Fprintf(out, "Last Sync: %s\n", last.Local().Format(time.DateTime))
	}
	fmt.Fprintf(out, "Pending:   %d\n", pending)
	return nil
}

func runSyncConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		// Just show config
		fmt.Fprintf(out, "Server:    %s\n", cfg.ServerURL)
		fmt.Fprintf(out, "Debounce:  %s\n", cfg.Sync.DebounceDelay)
		fmt.Fprintf(out, "Poll:      %s\n", cfg.Sync.PollInterval)
		fmt.Fprintf(out, "Retries:   %d\n", cfg.Sync.MaxRetries)
		return nil
	}

	u, err := url.Parse(server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: expected http(s)://host[:port]", server)
	}

	server = strings.TrimRight(server, "/")
	changed := server != cfg.ServerURL
	cfg.ServerURL = server
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	// Incremental pulls are relative to one server's clock
	if changed {
		p, err := prefs.OpenDefault()
		if err != nil {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
		if err := p.SetLastSyncTime(time.Time{}); err != nil {
			return fmt.Errorf("failed to reset last sync time: %w", err)
		}
	}
	fmt.Fprintf(out, "✓ Server set to: %s\n", cfg.ServerURL)
	return nil
}
