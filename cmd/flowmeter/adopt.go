package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"flowmeter-agent/internal/adopt"
)

var adoptCmd = &cobra.Command{
	Use:   "adopt",
	Short: "Print the adoption document",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := adopt.Build(adopt.Info{Firmware: firmware, Started: time.Now()})
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}
