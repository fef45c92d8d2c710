package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var tasksHistoryLimit int

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and run background tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled tasks",
	Args:  cobra.NoArgs,
	RunE:  runTasksList,
}

var tasksRunCmd = &cobra.Command{
	Use:   "run [task-id]",
	Short: "Run a task now",
	Long:  `Runs a task immediately. The default task is the embedding sweep.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTasksRun,
}

var tasksHistoryCmd = &cobra.Command{
	Use:   "history [task-id]",
	Short: "Show recent runs of a task",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTasksHistory,
}

func init() {
	tasksHistoryCmd.Flags().IntVarP(&tasksHistoryLimit, "limit", "n", 10, "maximum number of runs")
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksRunCmd)
	tasksCmd.AddCommand(tasksHistoryCmd)
	rootCmd.AddCommand(tasksCmd)
}

func taskIDArg(args []string) string {
	if len(args) == 0 {
		return domain.TaskIDEmbedSweep
	}
	return args[0]
}

func runTasksList(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	tasks, err := scheduler.Tasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if len(tasks) == 0 {
		cmd.Println("No scheduled tasks.")
		return nil
	}

	for i := range tasks {
		t := &tasks[i]
		cmd.Printf("  %s (%s)\n", t.ID, t.Name)
		cmd.Printf("    Interval: %s\n", t.Interval)
		if !t.LastRun.IsZero() {
			cmd.Printf("    Last run: %s\n", t.LastRun.Format(timeFormat))
		}
		if !t.NextRun.IsZero() {
			cmd.Printf("    Next run: %s\n", t.NextRun.Format(timeFormat))
		}
		if t.LastError != "" {
			cmd.Printf("    Last error: %s\n", t.LastError)
		}
	}
	return nil
}

func runTasksRun(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	result, err := scheduler.RunTask(cmd.Context(), taskIDArg(args))
	if err != nil {
		return fmt.Errorf("failed to run task: %w", err)
	}

	cmd.Printf("Task %s processed %d items in %s.\n",
		result.TaskID, result.ItemsProcessed, result.Duration())
	if !result.Success() {
		return fmt.Errorf("task %s failed: %w", result.TaskID, result.Err)
	}
	return nil
}

func runTasksHistory(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	taskID := taskIDArg(args)
	history, err := scheduler.History(cmd.Context(), taskID, tasksHistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to load task history: %w", err)
	}

	if len(history) == 0 {
		cmd.Printf("No runs recorded for %s.\n", taskID)
		return nil
	}

	for i := range history {
		r := &history[i]
		status := "ok"
		if !r.Success() {
			status = "error: " + r.Err.Error()
		}
		cmd.Printf("  %s  %d items  %s\n", r.StartedAt.Format(timeFormat), r.ItemsProcessed, status)
	}
	return nil
}
