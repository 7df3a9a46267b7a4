package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "signalbus",
	Short: "SignalBus - in-process publish/subscribe message bus",
	Long: `SignalBus is the topic/subscription/broker engine underlying the
SignalR real-time messaging stack: bounded per-topic message stores with
monotonic sequence ids, cursor-based resumable delivery, and a worker-pool
broker with serialized per-subscriber delivery.

The serve command runs the observability skeleton around an embedded bus;
the bench command drives an in-process publish/subscribe load run.`,
	Version: Version,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"SignalBus version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(benchCmd)
}
