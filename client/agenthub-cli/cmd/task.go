package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	agenthttp "AgentHub/backend/go/pkg/http"

	"github.com/spf13/cobra"
)

var (
	waitForResult bool
	pollInterval  time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit [task description]",
	Short: "Submit a new task to the orchestrator",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitTask(cmd.Context(), cmd.OutOrStdout(), newClient(), strings.Join(args, " "), waitForResult, pollInterval)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show the status of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var task taskView
		if err := newClient().GetJSON(cmd.Context(), "/api/v1/tasks/"+args[0], &task); err != nil {
			return err
		}
		printTask(cmd.OutOrStdout(), &task)
		return nil
	},
}

var activitiesCmd = &cobra.Command{
	Use:   "activities [task-id]",
	Short: "Print the activity log of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var activities []activityView
		if err := newClient().GetJSON(cmd.Context(), "/api/v1/tasks/"+args[0]+"/activities", &activities); err != nil {
			return err
		}
		for _, a := range activities {
			printActivity(cmd.OutOrStdout(), a)
		}
		return nil
	},
}

func init() {
	submitCmd.Flags().BoolVar(&waitForResult, "wait", false, "wait for the task to finish and print its deliverable")
	submitCmd.Flags().DurationVar(&pollInterval, "interval", 2*time.Second, "polling interval used with --wait")
	rootCmd.AddCommand(submitCmd, statusCmd, activitiesCmd)
}

func submitTask(ctx context.Context, out io.Writer, client *agenthttp.Client, description string, wait bool, interval time.Duration) error {
	var resp submitResponse
	if err := client.PostJSON(ctx, "/api/v1/tasks", map[string]string{"description": description}, &resp); err != nil {
		return err
	}
	fmt.Fprintf(out, "Task submitted successfully!\nTask ID: %s\n", resp.TaskID)
	if !wait {
		fmt.Fprintf(out, "To watch for results, run: agenthub-cli watch %s\n", resp.TaskID)
		return nil
	}

	task, err := waitForTask(ctx, client, resp.TaskID, interval)
	if err != nil {
		return err
	}
	printTask(out, task)
	if task.DeliverableID == "" {
		return nil
	}
	var d deliverableView
	if err := client.GetJSON(ctx, "/api/v1/deliverables/"+task.DeliverableID, &d); err != nil {
		return err
	}
	fmt.Fprintln(out)
	printDeliverable(out, &d)
	return nil
}

// waitForTask polls the task until it reaches a terminal status.
func waitForTask(ctx context.Context, client *agenthttp.Client, taskID string, interval time.Duration) (*taskView, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		var task taskView
		if err := client.GetJSON(ctx, "/api/v1/tasks/"+taskID, &task); err != nil {
			return nil, err
		}
		if task.finished() {
			return &task, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printTask(out io.Writer, t *taskView) {
	fmt.Fprintf(out, "Task:        %s\n", t.ID)
	fmt.Fprintf(out, "Status:      %s\n", t.Status)
	fmt.Fprintf(out, "Description: %s\n", t.Description)
	if len(t.AssignedAgents) > 0 {
		names := make([]string, 0, len(t.AssignedAgents))
		for _, a := range t.AssignedAgents {
			names = append(names, a.DisplayName)
		}
		fmt.Fprintf(out, "Agents:      %s\n", strings.Join(names, ", "))
	}
	if t.FirstError != "" {
		fmt.Fprintf(out, "First error: %s\n", t.FirstError)
	}
	if t.DeliverableID != "" {
		fmt.Fprintf(out, "Deliverable: %s\n", t.DeliverableID)
	}
}

func printActivity(out io.Writer, a activityView) {
	fmt.Fprintf(out, "[%3d] %s %-18s %s\n", a.Seq, a.Timestamp.Local().Format("15:04:05"), a.Kind, a.Message)
}
