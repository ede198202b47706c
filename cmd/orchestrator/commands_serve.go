package main

import "github.com/spf13/cobra"

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook HTTP server",
		Long: `Start the orchestrator's webhook listener and metrics endpoint.

The server will:
1. Load and validate configuration.
2. Connect to Redis (shared state, conversation memory) and Postgres
   (prompt store, audit log), falling back to in-memory backends when
   unconfigured.
3. Wire the router, specialist agents, tool executor, and compensation
   orchestrator.
4. Serve the Chatwoot webhook on server.http_port and Prometheus metrics
   on server.metrics_port.

Graceful shutdown runs on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, resolveConfigPath(configPath))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}
