package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/clinicflow/orchestrator/internal/config"
)

// schemaStatements creates the tables prompts.PostgresStore and
// audit.PostgresSink query against, idempotently.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS prompts (
		id            BIGSERIAL PRIMARY KEY,
		company_id    TEXT NOT NULL,
		agent_key     TEXT NOT NULL,
		provenance    TEXT NOT NULL,
		body          TEXT NOT NULL,
		version       INTEGER NOT NULL DEFAULT 1,
		last_modified TIMESTAMPTZ NOT NULL DEFAULT now(),
		active        BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prompts_lookup
		ON prompts (company_id, agent_key, provenance, active, version DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id                  UUID PRIMARY KEY,
		user_id             TEXT NOT NULL,
		action_type         TEXT NOT NULL,
		action_name         TEXT NOT NULL,
		input_params        JSONB,
		compensable         BOOLEAN NOT NULL DEFAULT false,
		compensation_action TEXT,
		status              TEXT NOT NULL,
		result              JSONB,
		error_message       TEXT,
		created_at          TIMESTAMPTZ NOT NULL,
		completed_at        TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_user ON audit_log (user_id, created_at DESC)`,
}

func runMigrateUp(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openMigrationDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(cmd.Context(), stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied: prompts, audit_log")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openMigrationDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	for _, table := range []string{"prompts", "audit_log"} {
		var exists bool
		err := db.QueryRowContext(cmd.Context(),
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			table,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		fmt.Fprintf(out, "%-10s %v\n", table, exists)
	}
	return nil
}

func openMigrationDB(cfg *config.Config) (*sql.DB, error) {
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is not configured")
	}
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
