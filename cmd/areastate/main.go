package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "areastate",
	Short: "Per-instance world state cache for a game automation agent",
	Long: `areastate tracks what an agent has discovered in every area instance it visits:
locations, containers and ground items. It consumes observation frames from a host
bridge over websocket and publishes discovery events to a journal, a sqlite index
and optionally redis.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
