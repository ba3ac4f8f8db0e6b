package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var doneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Toggle a task between done and open",
	Long: `Toggle the completed flag of a task. Any unique id prefix works.

Examples:
  tasksync done local-3f2a
  tasksync done task-9c1e --sync`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

var doneSync bool

func init() {
	doneCmd.Flags().BoolVarP(&doneSync, "sync", "s", false, "Sync with server after the change")
}

func runDone(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	task, err := a.tasks.Find(ctx, args[0])
	if err != nil {
		return err
	}

	updated, err := a.tasks.Toggle(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	out := cmd.OutOrStdout()
	if updated.Completed {
		fmt.Fprintf(out, "✓ Completed: \"%s\"\n", updated.Title)
	} else {
		fmt.Fprintf(out, "○ Reopened: \"%s\"\n", updated.Title)
	}

	a.maybeSync(ctx, out, doneSync)
	return nil
}
