package main

import (
	"flowmeter-agent/internal/agent"
	"flowmeter-agent/internal/config"
)

// newWriters sets up the local telemetry sinks from the config. It
// returns the fan-out writer and a cleanup function closing every sink.
func newWriters(cfg *config.AgentConfig, printOnly bool) (*agent.MultiWriter, func(), error) {
	mw := agent.NewMultiWriter()
	cleanup := func() { _ = mw.Close() }

	s := cfg.Sinks
	switch {
	case s.TUI && !printOnly:
		mw.Add(agent.NewTUIWriter())
	case s.Stdout || printOnly:
		mw.Add(agent.NewStdoutWriter())
	}
	if printOnly {
		return mw, cleanup, nil
	}

	if s.LogFile != "" {
		fw, err := agent.NewFileWriter(s.LogFile)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		mw.Add(fw)
	}
	if s.Greptime.Endpoint != "" {
		gw, err := agent.NewGreptimeDBWriter(s.Greptime.Endpoint, s.Greptime.Database, s.Greptime.Table)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		mw.Add(gw)
	}
	if s.Postgres.DSN != "" {
		pw, err := agent.NewPostgresWriter(s.Postgres.DSN, s.Postgres.Table)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		mw.Add(pw)
	}
	return mw, cleanup, nil
}
