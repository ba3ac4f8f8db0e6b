package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all local tasks",
	Long: `Remove every task from the local store and forget the last sync time,
so the next sync pulls everything from the server again. Unsynced changes
are lost.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().Bool("force", false, "Do not ask for confirmation")
}

func runClear(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	out := cmd.OutOrStdout()

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if !force {
		pending, err := a.tasks.PendingCount(ctx)
		if err != nil {
			return fmt.Errorf("failed to count pending tasks: %w", err)
		}
		if pending > 0 {
			fmt.Fprintf(out, "%d task(s) have not been synced yet and will be lost.\n", pending)
		}
		fmt.Fprint(out, "Are you sure you want to clear local data? (y/N): ")
		response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.ToLower(strings.TrimSpace(response)) != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	fmt.Fprintln(out, "🧹 Clearing local data...")
	if err := a.db.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear local data: %w", err)
	}
	if err := a.prefs.SetLastSyncTime(time.Time{}); err != nil {
		return fmt.Errorf("failed to reset last sync time: %w", err)
	}
	fmt.Fprintln(out, "Local data cleared.")
	return nil
}
