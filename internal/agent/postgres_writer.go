package agent

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"flowmeter-agent/internal/telemetry"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresWriter archives telemetry rows in a PostgreSQL table.
type PostgresWriter struct {
	db      execer
	closer  func() error
	insert  string
	timeout time.Duration
}

// NewPostgresWriter opens dsn with the pgx driver and creates the table
// if it does not exist.
func NewPostgresWriter(dsn, tableName string) (*PostgresWriter, error) {
	if tableName == "" {
		tableName = telemetry.DefaultTableName
	}
	if !identRe.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q", tableName)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	w := newPostgresWriter(db, tableName)
	w.closer = db.Close

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.createTable(ctx, tableName); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func newPostgresWriter(db execer, tableName string) *PostgresWriter {
	return &PostgresWriter{
		db: db,
		insert: fmt.Sprintf(`INSERT INTO %s (device_id, elapsed_ms, pulse_count, volume_mls, flow_lpm, ts)
VALUES ($1, $2, $3, $4, $5, $6)`, tableName),
		timeout: 5 * time.Second,
	}
}

func (w *PostgresWriter) createTable(ctx context.Context, tableName string) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  device_id TEXT NOT NULL,
  elapsed_ms BIGINT NOT NULL,
  pulse_count BIGINT NOT NULL,
  volume_mls BIGINT NOT NULL,
  flow_lpm DOUBLE PRECISION NOT NULL,
  ts TIMESTAMPTZ NOT NULL
)`, tableName)
	if _, err := w.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}
	return nil
}

// Write inserts a single telemetry row.
func (w *PostgresWriter) Write(row telemetry.Row) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, w.insert,
		row.DeviceID, int64(row.ElapsedMs), int64(row.PulseCount), int64(row.VolumeMls), row.FlowLPM, row.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres insert: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (w *PostgresWriter) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer()
}
