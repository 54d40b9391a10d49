package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"flowmeter-agent/internal/telemetry"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

var templateFiles = []string{
	"templates/grafana-flow-greptime.json.tmpl",
	"templates/grafana-flow-postgres.json.tmpl",
}

// Data is passed to every dashboard template.
type Data struct {
	GreptimeTable string
	PostgresTable string
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// Empty table names fall back to telemetry.DefaultTableName.
func Render(outDir string, data Data) error {
	if data.GreptimeTable == "" {
		data.GreptimeTable = telemetry.DefaultTableName
	}
	if data.PostgresTable == "" {
		data.PostgresTable = telemetry.DefaultTableName
	}
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tplName := range templateFiles {
		t, err := template.New(filepath.Base(tplName)).Funcs(funcMap).ParseFS(templates, tplName)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(tplName), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, data); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
