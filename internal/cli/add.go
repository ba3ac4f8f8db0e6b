package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Long: `Add a new task. It is stored locally and synced later.

Examples:
  tasksync add "Buy groceries"
  tasksync add Call the bank -d "about the card"
  tasksync add "Ship release" --sync`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addDescription string
	addSync        bool
)

func init() {
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Task description")
	addCmd.Flags().BoolVarP(&addSync, "sync", "s", false, "Sync with server after adding")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	title := strings.Join(args, " ")

	task, err := a.tasks.Create(ctx, title, addDescription)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Added: \"%s\" (%s)\n", task.Title, shortID(task.ID))
	a.maybeSync(ctx, out, addSync)
	return nil
}
