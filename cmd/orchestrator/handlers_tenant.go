package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/clinicflow/orchestrator/internal/config"
	"github.com/clinicflow/orchestrator/internal/tenant"
)

func runTenantList(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry, err := tenant.NewRegistry(cfg.Tenant.SeedPath, false, slog.Default())
	if err != nil {
		return fmt.Errorf("load tenant seed: %w", err)
	}
	defer registry.Close()

	out := cmd.OutOrStdout()
	for _, t := range registry.All() {
		fmt.Fprintf(out, "%-20s %s\n", t.CompanyID, t.DisplayName)
	}
	return nil
}

func runTenantValidate(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry, err := tenant.NewRegistry(cfg.Tenant.SeedPath, false, slog.Default())
	if err != nil {
		return fmt.Errorf("tenant seed invalid: %w", err)
	}
	defer registry.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "tenant seed file is valid: %d tenant(s)\n", len(registry.All()))
	return nil
}
