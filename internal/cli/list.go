package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/existflow/tasksync/internal/model"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `List local tasks with their sync state.

Examples:
  tasksync list
  tasksync list --pending
  tasksync list --sync`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listPending bool
	listSync    bool
)

func init() {
	listCmd.Flags().BoolVar(&listPending, "pending", false, "Only show tasks not yet synced")
	listCmd.Flags().BoolVarP(&listSync, "sync", "s", false, "Sync with server before listing")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// Sync before listing if flag is set
	a.maybeSync(ctx, out, listSync)

	tasks, err := a.tasks.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if listPending {
		filtered := tasks[:0]
		for _, t := range tasks {
			if !t.SyncStatus.Settled() {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found. Add one with: tasksync add \"Your task\"")
		return nil
	}

	printTasks(out, tasks)
	return nil
}

func printTasks(out io.Writer, tasks []model.Task) {
	open, unsynced := 0, 0
	for _, t := range tasks {
		if !t.Completed {
			open++
		}
		if !t.SyncStatus.Settled() {
			unsynced++
		}
	}

	fmt.Fprintf(out, "\n📋 Tasks (%d open, %d unsynced)\n", open, unsynced)
	fmt.Fprintln(out, strings.Repeat("─", 60))

	for _, t := range tasks {
		printTask(out, t)
	}
	fmt.Fprintln(out)
}

func printTask(out io.Writer, t model.Task) {
	// Status icon
	icon := "[ ]"
	if t.Completed {
		icon = "[x]"
	}

	// Sync indicator
	sync := ""
	switch t.SyncStatus {
	case model.StatusPending:
		sync = "● pending"
	case model.StatusSyncing:
		sync = "↻ syncing"
	case model.StatusConflict:
		sync = "! conflict"
	}

	// Truncate title if too long
	title := t.Title
	if r := []rune(title); len(r) > 40 {
		title = string(r[:37]) + "..."
	}

	fmt.Fprintf(out, "  %s  %-14s  %-40s  %s\n", icon, shortID(t.ID), title, sync)
}

// shortID trims an id for display. The result is still a prefix of the id,
// so it can be passed back to done, edit and delete.
func shortID(id string) string {
	keep := 8
	for _, prefix := range []string{model.LocalIDPrefix, "task-"} {
		if strings.HasPrefix(id, prefix) {
			keep += len(prefix)
			break
		}
	}
	if len(id) > keep {
		return id[:keep]
	}
	return id
}
