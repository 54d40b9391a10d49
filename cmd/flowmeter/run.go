package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flowmeter-agent/internal/admin"
	"flowmeter-agent/internal/adopt"
	"flowmeter-agent/internal/agent"
	"flowmeter-agent/internal/config"
	"flowmeter-agent/internal/logging"
	"flowmeter-agent/internal/profile"
	"flowmeter-agent/internal/pulse"
	"flowmeter-agent/internal/telemetry"
	"flowmeter-agent/internal/transport"
)

// errRestart is returned by run when a restart command was received.
var errRestart = errors.New("restart requested")

var (
	runPrintOnly bool
	runNoAdmin   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Count pulses and report flow telemetry",
	Long:  "run starts the edge source, the reporting loop, the messaging transport and the admin server.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath, schemaPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		return runAgent(cmd.Context(), cfg)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to sinks")
	runCmd.Flags().BoolVar(&runNoAdmin, "no-admin", false, "Do not start the admin HTTP server")
}

func runAgent(parent context.Context, cfg *config.AgentConfig) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote := &logging.RemoteWriter{}
	lo := logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}
	if cfg.Logging.MQTT {
		lo.Remote = remote
	}
	if cfg.Sinks.TUI && !runPrintOnly {
		lo.Stdout = io.Discard
	}
	log, err := logging.NewWithOptions(lo)
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	ctx = logging.NewContext(ctx, log)

	policy, err := agent.ParseFailurePolicy(cfg.Reporting.FailurePolicy)
	if err != nil {
		return err
	}
	rt := config.NewRuntime()
	rt.Apply(cfg.RuntimeUpdate())

	clientID := cfg.Device.ClientID
	if clientID == "" {
		clientID = transport.DefaultClientID()
	}

	mw, cleanup, err := newWriters(cfg, runPrintOnly)
	if err != nil {
		return err
	}
	defer cleanup()
	recent := agent.NewRecentRows(cfg.Admin.RecentRows)
	hub := admin.NewHub(log)
	mw.Add(recent)
	mw.Add(hub)

	restart := make(chan string, 1)
	restarter := agent.RestartFunc(func(reason string) {
		select {
		case restart <- reason:
		default:
		}
	})

	var pub agent.Publisher = agent.NopPublisher{}
	rep := agent.NewReporter(agent.Options{
		DeviceID: clientID,
		Runtime:  rt,
		Publisher: agent.PublisherFunc(func(ctx context.Context, rec telemetry.Record) error {
			return pub.Publish(ctx, rec)
		}),
		Writer:         mw,
		Policy:         policy,
		LoopInterval:   time.Duration(cfg.Reporting.LoopIntervalMs) * time.Millisecond,
		PublishTimeout: time.Duration(cfg.MQTT.PublishTimeoutMs) * time.Millisecond,
		Restarter:      restarter,
	})

	started := time.Now()
	adoptDoc := func() adopt.Document {
		return adopt.Build(adopt.Info{Firmware: firmware, BootID: rep.BootID(), Started: started})
	}

	switch {
	case cfg.MQTT.Broker != "":
		var m *transport.MQTT
		m = transport.NewMQTT(transport.MQTTOptions{
			Broker:         cfg.MQTT.Broker,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			Topics:         transport.Topics{Prefix: cfg.MQTT.TopicPrefix, Suffix: cfg.MQTT.TopicSuffix, ClientID: clientID},
			QoS:            byte(cfg.MQTT.QoS),
			ConnectTimeout: time.Duration(cfg.MQTT.ConnectTimeoutMs) * time.Millisecond,
			PublishTimeout: time.Duration(cfg.MQTT.PublishTimeoutMs) * time.Millisecond,
			Logger:         log,
			Adopt:          func() any { return adoptDoc() },
			OnConnect:      func() { remote.Attach(m.PublishLog) },
			OnDisconnect:   func() { remote.Attach(nil) },
		}, rep)
		pub = m
		m.Start(ctx)
		defer m.Close()
	case cfg.Redis.Addr != "":
		topics := transport.Topics{Prefix: cfg.Redis.ChannelPrefix, ClientID: clientID}
		r := transport.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, topics, rep, log)
		pub = r
		defer r.Close()
		go func() {
			if err := r.Listen(ctx); err != nil && ctx.Err() == nil {
				log.Error("redis listener stopped", "err", err)
			}
		}()
		log.Info("redis transport enabled", "addr", cfg.Redis.Addr, "telemetry_channel", topics.Telemetry())
	default:
		log.Warn("no messaging transport configured, telemetry goes to local sinks only")
	}

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	go func() {
		if err := src.Run(ctx, rep.Counter().OnEdge); err != nil && ctx.Err() == nil {
			log.Error("edge source stopped", "source", cfg.Sensor.Source, "err", err)
		}
	}()

	if !runNoAdmin && cfg.Admin.Addr != "" {
		srv := admin.NewServer(admin.Options{
			Reporter:  rep,
			Adopt:     adoptDoc,
			Recent:    recent,
			Hub:       hub,
			JWTSecret: cfg.Admin.JWTSecret,
			Logger:    log,
		})
		go func() {
			if err := srv.Start(ctx, cfg.Admin.Addr, mw.SetAdminStatus); err != nil {
				log.Error("admin server failed", "err", err)
			}
		}()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var reason string
	go func() {
		select {
		case reason = <-restart:
			cancel()
		case <-runCtx.Done():
		}
	}()
	if err := rep.Run(runCtx); err != nil {
		return err
	}
	if reason != "" {
		log.Info("restarting agent", "reason", reason)
		return errRestart
	}
	log.Info("flow meter agent stopped")
	return nil
}

func newSource(cfg *config.AgentConfig) (pulse.Source, error) {
	switch cfg.Sensor.Source {
	case "gpio":
		g, err := pulse.NewGPIOSource(cfg.Sensor.GPIOChip, cfg.Sensor.GPIOLine)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "", "simulated":
		p, err := profile.Resolve(cfg.Sensor.Profile)
		if err != nil {
			return nil, err
		}
		return pulse.NewSimulatedSource(p, cfg.Sensor.SimKFactor, cfg.Sensor.SimJitter), nil
	}
	return nil, fmt.Errorf("unknown sensor source %q", cfg.Sensor.Source)
}
