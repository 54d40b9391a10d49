package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitRestart asks the service supervisor to start the agent again.
const exitRestart = 75

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	schemaPath string
)

var rootCmd = &cobra.Command{
	Use:     "flowmeter",
	Short:   "Pulse flow meter telemetry agent",
	Long:    "flowmeter counts pulses from a flow sensor and reports volume over MQTT or Redis, with local sinks for GreptimeDB, PostgreSQL, files and a terminal monitor.",
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errRestart) {
			os.Exit(exitRestart)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/agent.yaml", "Path to agent configuration YAML")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Path to CUE schema file (defaults to the embedded schema)")
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(adoptCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(tokenCmd)
}
