package cmd

import (
	"fmt"
	"os"
	"time"

	agenthttp "AgentHub/backend/go/pkg/http"

	"github.com/spf13/cobra"
)

var (
	serverURL      string
	requestTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "agenthub-cli",
	Short:        "A CLI client to interact with the AgentHub orchestrator",
	Long:         `A command-line interface for submitting tasks to the orchestrator, following their progress and reading the deliverables they produce.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "orchestrator base URL")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "per-request timeout")
}

func newClient() *agenthttp.Client {
	return agenthttp.NewClient(serverURL, requestTimeout)
}
