package main

import "github.com/spf13/cobra"

func buildTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Inspect the tenant registry seed file",
	}
	cmd.AddCommand(buildTenantListCmd(), buildTenantValidateCmd())
	return cmd
}

func buildTenantListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every tenant and its company_id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenantList(cmd, resolveConfigPath(configPath))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func buildTenantValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the seed file and report any errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenantValidate(cmd, resolveConfigPath(configPath))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}
