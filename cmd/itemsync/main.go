// itemsync reconciles a YAML-described hierarchy of epics, stories, tasks
// and subtasks against a GitHub repository's issue tracker.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "itemsync",
	Short:         "Keep a GitHub issue tracker in sync with a YAML item config",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Credentials may live in a local .env file, mirroring the
		// GITHUB_TOKEN env var. A missing file is fine.
		_ = godotenv.Load()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}
