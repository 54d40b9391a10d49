package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowmeter-agent/internal/agent"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a telemetry log into the configured sinks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("--input is required")
		}
		cfg, err := loadConfig(configPath, schemaPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		// the log being replayed must not receive its own rows
		cfg.Sinks.LogFile = ""
		cfg.Sinks.TUI = false
		writer, cleanup, err := newWriters(cfg, replayPrintOnly)
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := agent.ReplayLogFile(cmd.Context(), replayInput, writer, replaySpeed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "replayed %d rows\n", n)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to JSONL telemetry log")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delay)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to sinks")
}
