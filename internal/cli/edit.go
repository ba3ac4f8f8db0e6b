package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit [task-id]",
	Short: "Change the title or description of a task",
	Long: `Change the title or description of a task.

Examples:
  tasksync edit local-3f2a --title "Buy oat milk"
  tasksync edit task-9c1e --description ""`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var (
	editTitle       string
	editDescription string
	editSync        bool
)

func init() {
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVarP(&editDescription, "description", "d", "", "New description")
	editCmd.Flags().BoolVarP(&editSync, "sync", "s", false, "Sync with server after the change")
}

func runEdit(cmd *cobra.Command, args []string) error {
	titleSet := cmd.Flags().Changed("title")
	descSet := cmd.Flags().Changed("description")
	if !titleSet && !descSet {
		return errors.New("nothing to change: pass --title and/or --description")
	}

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

	title, description := task.Title, task.Description
	if titleSet {
		title = editTitle
	}
	if descSet {
		description = editDescription
	}

	updated, err := a.tasks.Update(ctx, task.ID, title, description, task.Completed)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✎ Updated: \"%s\"\n", updated.Title)
	a.maybeSync(ctx, out, editSync)
	return nil
}
