package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowmeter-agent/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the telemetry table",
	Long:  "dashboard renders the Grafana dashboards. GREPTIMEDB_DATASOURCE_UID and POSTGRES_DATASOURCE_UID must be set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath, schemaPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		data := dashboard.Data{
			GreptimeTable: cfg.Sinks.Greptime.Table,
			PostgresTable: cfg.Sinks.Postgres.Table,
		}
		if err := dashboard.Render(dashboardOut, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dashboards written to %s\n", dashboardOut)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "dashboards", "Output directory")
}
