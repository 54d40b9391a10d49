// YAML agent config loader with CUE validation integration
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeviceConfig identifies the agent on the messaging channel.
type DeviceConfig struct {
	ClientID string `yaml:"client_id"`
	Name     string `yaml:"name"`
}

// SensorConfig selects the edge source.
type SensorConfig struct {
	Source     string  `yaml:"source"`
	GPIOChip   string  `yaml:"gpio_chip"`
	GPIOLine   int     `yaml:"gpio_line"`
	SimKFactor float64 `yaml:"sim_k_factor"`
	SimJitter  float64 `yaml:"sim_jitter"`
	Profile    string  `yaml:"profile"`
}

// ReportingConfig seeds the runtime tunables and the loop behaviour.
type ReportingConfig struct {
	TelemetryIntervalMs int    `yaml:"telemetry_interval_ms"`
	KFactor             int    `yaml:"k_factor"`
	FailurePolicy       string `yaml:"failure_policy"`
	LoopIntervalMs      int    `yaml:"loop_interval_ms"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Broker           string `yaml:"broker"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	TopicPrefix      string `yaml:"topic_prefix"`
	TopicSuffix      string `yaml:"topic_suffix"`
	QoS              int    `yaml:"qos"`
	PublishTimeoutMs int    `yaml:"publish_timeout_ms"`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
}

// RedisConfig configures the Redis pub/sub transport.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// GreptimeConfig configures the GreptimeDB sink.
type GreptimeConfig struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// PostgresConfig configures the PostgreSQL sink.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// SinksConfig lists local destinations for delivered telemetry.
type SinksConfig struct {
	LogFile  string         `yaml:"log_file"`
	Stdout   bool           `yaml:"stdout"`
	TUI      bool           `yaml:"tui"`
	Greptime GreptimeConfig `yaml:"greptime"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// AdminConfig configures the admin HTTP server.
type AdminConfig struct {
	Addr       string `yaml:"addr"`
	JWTSecret  string `yaml:"jwt_secret"`
	RecentRows int    `yaml:"recent_rows"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MQTT       bool   `yaml:"mqtt"`
}

// AgentConfig is the root configuration of the flow meter agent.
type AgentConfig struct {
	Device    DeviceConfig    `yaml:"device"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Reporting ReportingConfig `yaml:"reporting"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Redis     RedisConfig     `yaml:"redis"`
	Sinks     SinksConfig     `yaml:"sinks"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() *AgentConfig {
	return &AgentConfig{
		Device: DeviceConfig{Name: "flow-sensor"},
		Sensor: SensorConfig{
			Source:     "simulated",
			GPIOChip:   "gpiochip0",
			GPIOLine:   2,
			SimKFactor: DefaultKFactor,
			SimJitter:  0.05,
			Profile:    "steady",
		},
		Reporting: ReportingConfig{
			TelemetryIntervalMs: DefaultTelemetryIntervalMs,
			KFactor:             DefaultKFactor,
			FailurePolicy:       "retry",
			LoopIntervalMs:      10,
		},
		MQTT: MQTTConfig{
			QoS:              0,
			PublishTimeoutMs: 2000,
			ConnectTimeoutMs: 15000,
		},
		Redis: RedisConfig{ChannelPrefix: "flow"},
		Sinks: SinksConfig{
			Greptime: GreptimeConfig{Database: "public", Table: "flow_telemetry"},
			Postgres: PostgresConfig{Table: "flow_telemetry"},
		},
		Admin: AdminConfig{Addr: ":8080", RecentRows: 100},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MQTT:       true,
		},
	}
}

// Load validates the YAML file at configPath against the CUE schema and
// decodes it over the defaults. An empty cueSchemaPath selects the
// embedded schema.
func Load(configPath, cueSchemaPath string) (*AgentConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot decode YAML config: %w", err)
	}
	return cfg, nil
}

// RuntimeUpdate converts the reporting section into a runtime update.
func (c *AgentConfig) RuntimeUpdate() Update {
	interval := int64(c.Reporting.TelemetryIntervalMs)
	k := int64(c.Reporting.KFactor)
	return Update{TelemetryIntervalMs: &interval, KFactor: &k}
}
