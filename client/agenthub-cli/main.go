package main

import "AgentHub/client/agenthub-cli/cmd"

func main() {
	cmd.Execute()
}
