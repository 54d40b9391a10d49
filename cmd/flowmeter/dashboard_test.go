package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDashboardUsesConfiguredTables(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	t.Setenv("POSTGRES_DATASOURCE_UID", "uid2")
	t.Setenv("GREPTIMEDB_TABLE", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "agent.yaml")
	data := []byte("sinks:\n  greptime:\n    table: meter_live\n  postgres:\n    table: meter_archive\n")
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "dashboards")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"dashboard", "--config", cfgPath, "--out", out})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("dashboard command: %v", err)
	}

	for name, want := range map[string]string{
		"grafana-flow-greptime.json": "FROM meter_live",
		"grafana-flow-postgres.json": "FROM meter_archive",
	} {
		b, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(b), want) {
			t.Fatalf("%s: expected %q", name, want)
		}
	}
}
