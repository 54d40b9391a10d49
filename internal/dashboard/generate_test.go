package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	t.Setenv("POSTGRES_DATASOURCE_UID", "")
	if err := Render(t.TempDir(), Data{}); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	t.Setenv("POSTGRES_DATASOURCE_UID", "uid2")

	dir := t.TempDir()
	if err := Render(dir, Data{}); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	for name, uid := range map[string]string{
		"grafana-flow-greptime.json": "uid1",
		"grafana-flow-postgres.json": "uid2",
	} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(b), uid) {
			t.Fatalf("%s: datasource uid not rendered", name)
		}
		if !strings.Contains(string(b), "flow_telemetry") {
			t.Fatalf("%s: table name not rendered", name)
		}
		var v map[string]any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("%s is not valid JSON: %v", name, err)
		}
	}
}

func TestRenderConfiguredTables(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	t.Setenv("POSTGRES_DATASOURCE_UID", "uid2")

	dir := t.TempDir()
	if err := Render(dir, Data{GreptimeTable: "meter_live", PostgresTable: "meter_archive"}); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for name, want := range map[string]string{
		"grafana-flow-greptime.json": "meter_live",
		"grafana-flow-postgres.json": "meter_archive",
	} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(b), "FROM "+want) {
			t.Fatalf("%s: expected queries against %s", name, want)
		}
		if strings.Contains(string(b), "flow_telemetry") {
			t.Fatalf("%s: default table leaked into dashboard", name)
		}
	}
}
