// Package main provides the CLI entry point for the ClinicFlow orchestrator.
//
// The orchestrator receives Chatwoot webhook events, classifies the
// inbound question, dispatches it to a specialist agent (sales, support,
// emergency, schedule), and replies through the configured chat-platform
// adapter.
//
// Start the server:
//
//	orchestrator serve --config orchestrator.yaml
//
// Apply database migrations:
//
//	orchestrator migrate up
//
// Inspect the tenant registry:
//
//	orchestrator tenant list
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "orchestrator",
		Short:   "ClinicFlow multi-agent conversation orchestrator",
		Version: version + " (commit " + commit + ")",
		Long: `orchestrator routes inbound Chatwoot conversations through a
classification graph to specialist agents (sales, support, emergency,
schedule), with shared state, conversation memory, and a compensation
orchestrator for side-effecting tool calls.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildMigrateCmd(),
		buildTenantCmd(),
	)

	return rootCmd
}
