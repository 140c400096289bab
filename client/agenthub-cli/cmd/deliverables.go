package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var deliverablesCmd = &cobra.Command{
	Use:   "deliverables",
	Short: "Browse produced deliverables",
}

var listDeliverablesCmd = &cobra.Command{
	Use:   "list",
	Short: "List deliverables, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var deliverables []deliverableView
		if err := newClient().GetJSON(cmd.Context(), "/api/v1/deliverables", &deliverables); err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTASK\tCREATED\tTITLE")
		for _, d := range deliverables {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.TaskID, d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Title)
		}
		return w.Flush()
	},
}

var getDeliverableCmd = &cobra.Command{
	Use:   "get [deliverable-id]",
	Short: "Print one deliverable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var d deliverableView
		if err := newClient().GetJSON(cmd.Context(), "/api/v1/deliverables/"+args[0], &d); err != nil {
			return err
		}
		printDeliverable(cmd.OutOrStdout(), &d)
		return nil
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the registered agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var agents []agentView
		if err := newClient().GetJSON(cmd.Context(), "/api/v1/agents", &agents); err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tMODEL")
		for _, a := range agents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.DisplayName, a.Provider, a.Model)
		}
		return w.Flush()
	},
}

func init() {
	deliverablesCmd.AddCommand(listDeliverablesCmd, getDeliverableCmd)
	rootCmd.AddCommand(deliverablesCmd, agentsCmd)
}

func printDeliverable(out io.Writer, d *deliverableView) {
	fmt.Fprintf(out, "# %s\n\n%s\n", d.Title, d.Description)
	if d.Synthesized {
		fmt.Fprintln(out, "(synthesized from multiple agents)")
	}
	fmt.Fprintf(out, "\n%s\n", d.Content)
}
