package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"flowmeter-agent/internal/telemetry"
)

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes telemetry to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client  greptimeClient
	table   string
	timeout time.Duration
}

const defaultGreptimeTimeout = 5 * time.Second

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port") and
// writes into database.table. The table is created on first write.
func NewGreptimeDBWriter(endpoint, database, tableName string) (*GreptimeDBWriter, error) {
	host, port := endpoint, 4001
	if h, p, ok := strings.Cut(endpoint, ":"); ok {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid greptime endpoint %q: %w", endpoint, err)
		}
		host, port = h, n
	}
	if database == "" {
		database = "public"
	}
	if tableName == "" {
		tableName = telemetry.DefaultTableName
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	cli, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{client: cli, table: tableName, timeout: defaultGreptimeTimeout}, nil
}

// Write inserts a single telemetry row.
func (w *GreptimeDBWriter) Write(row telemetry.Row) error {
	return w.WriteBatch([]telemetry.Row{row})
}

// WriteBatch inserts multiple telemetry rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("device_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("elapsed_ms", types.UINT32); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("pulse_count", types.UINT32); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("volume_mls", types.UINT32); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("flow_lpm", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}

	for _, r := range rows {
		if err := tbl.AddRow(r.DeviceID, r.ElapsedMs, r.PulseCount, r.VolumeMls, r.FlowLPM, r.Timestamp); err != nil {
			return err
		}
	}

	timeout := w.timeout
	if timeout <= 0 {
		timeout = defaultGreptimeTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	slog.Debug("greptime rows written", "table", w.table, "rows", len(rows))
	return nil
}
