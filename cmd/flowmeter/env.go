package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"flowmeter-agent/internal/adopt"
	"flowmeter-agent/internal/config"
)

var firmware = adopt.Firmware{
	Name:      "Flow Meter Agent",
	ShortName: "Flow Meter",
	Maker:     "flowmeter-agent",
	Version:   version,
	GithubURL: "https://github.com/sumnerboy12/OXRS-BJ-FlowSensor-ESP-FW",
}

// loadConfig reads the agent file and applies environment overrides. A
// missing file is only tolerated at the default path.
func loadConfig(path, schema string, explicit bool) (*config.AgentConfig, error) {
	cfg, err := config.Load(path, schema)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		cfg = config.Default()
	default:
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *config.AgentConfig) error {
	str := map[string]*string{
		"MQTT_BROKER":         &cfg.MQTT.Broker,
		"MQTT_USERNAME":       &cfg.MQTT.Username,
		"MQTT_PASSWORD":       &cfg.MQTT.Password,
		"CLIENT_ID":           &cfg.Device.ClientID,
		"REDIS_ADDR":          &cfg.Redis.Addr,
		"GREPTIMEDB_ENDPOINT": &cfg.Sinks.Greptime.Endpoint,
		"GREPTIMEDB_TABLE":    &cfg.Sinks.Greptime.Table,
		"POSTGRES_DSN":        &cfg.Sinks.Postgres.DSN,
		"ADMIN_JWT_SECRET":    &cfg.Admin.JWTSecret,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	ints := map[string]*int{
		"TELEMETRY_INTERVAL_MS": &cfg.Reporting.TelemetryIntervalMs,
		"K_FACTOR":              &cfg.Reporting.KFactor,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}
