// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/robolink/lib/clock"
	"github.com/bureau-foundation/robolink/lib/codec"
	"github.com/bureau-foundation/robolink/lib/config"
	"github.com/bureau-foundation/robolink/lib/logging"
	"github.com/bureau-foundation/robolink/lib/monitor"
	"github.com/bureau-foundation/robolink/lib/packet"
	"github.com/bureau-foundation/robolink/lib/path"
	"github.com/bureau-foundation/robolink/lib/process"
	"github.com/bureau-foundation/robolink/lib/version"
)

func main() {
	process.Exit(run())
}

func run() error {
	var (
		configPath  string
		address     string
		name        string
		logLevel    string
		pathFile    string
		colorMode   string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("robolink-monitor", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to robolink.yaml (default: $ROBOLINK_CONFIG, else built-in defaults)")
	flagSet.StringVarP(&address, "address", "a", "", "robot bridge address, host:port (overrides monitor.address)")
	flagSet.StringVar(&name, "name", "", "name sent to the robot (overrides monitor.name)")
	flagSet.StringVar(&logLevel, "log-level", "info", "level of the monitor's own diagnostics on stderr")
	flagSet.StringVar(&pathFile, "path", "", "YAML path file to upload after each connect")
	flagSet.StringVar(&colorMode, "color", "auto", "colour log levels: auto, always, or never")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("robolink-monitor %s\n", version.Info())
		return nil
	}

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := slog.New(logging.NewLocalHandler(os.Stderr, level))

	var color bool
	switch colorMode {
	case "auto":
		color = logging.IsTerminal(os.Stdout)
	case "always":
		color = true
	case "never":
	default:
		return fmt.Errorf("--color must be auto, always, or never, got %q", colorMode)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("address") {
		cfg.Monitor.Address = address
	}
	if flagSet.Changed("name") {
		cfg.Monitor.Name = name
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var pathPayload codec.RawMessage
	if pathFile != "" {
		actions, err := loadPathFile(pathFile)
		if err != nil {
			return err
		}
		pathPayload, err = path.Encode(actions)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", pathFile, err)
		}
	}

	options := cfg.MonitorOptions()
	options.Logger = logger
	client, err := monitor.New(options)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := &watcher{
		client:             client,
		printer:            &printer{out: os.Stdout, color: color},
		clock:              clock.Real(),
		logger:             logger,
		pingInterval:       cfg.Monitor.PingInterval.Std(),
		logRequestInterval: cfg.Monitor.LogRequestInterval.Std(),
		pathPayload:        pathPayload,
	}
	logger.Info("connecting to robot", "address", cfg.Monitor.Address, "version", version.Info())
	return w.run(ctx)
}

func loadConfig(configPath string) (*config.Config, error) {
	switch {
	case configPath != "":
		return config.LoadFile(configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		return config.Load()
	default:
		return config.Resolved(), nil
	}
}

// watcher prints everything the robot sends, pings it, and keeps
// asking for logs.
type watcher struct {
	client             *monitor.Client
	printer            *printer
	clock              clock.Clock
	logger             *slog.Logger
	pingInterval       time.Duration
	logRequestInterval time.Duration

	// pathPayload, when set, is uploaded after every handshake.
	pathPayload codec.RawMessage
}

func (w *watcher) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	clientDone := make(chan error, 1)
	go func() { clientDone <- w.client.Run(ctx) }()

	pingTicker := w.clock.NewTicker(w.pingInterval)
	defer pingTicker.Stop()
	logTicker := w.clock.NewTicker(w.logRequestInterval)
	defer logTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return <-clientDone
		case received := <-w.client.Packets():
			w.printer.print(received, w.clock.Now())
			if _, ok := received.(packet.RobotInfo); ok {
				w.onConnect()
			}
		case <-pingTicker.C:
			if err := w.client.Ping(); err == nil {
				w.printer.pingSent = w.clock.Now()
			} else if !errors.Is(err, monitor.ErrNotConnected) {
				w.logger.Warn("ping failed", "error", err)
			}
		case <-logTicker.C:
			w.requestLogs()
		}
	}
}

// onConnect fetches the backlog and uploads the configured path.
func (w *watcher) onConnect() {
	w.requestLogs()
	if w.pathPayload == nil {
		return
	}
	if err := w.client.SendPath(w.pathPayload); err != nil {
		w.logger.Warn("uploading path failed", "error", err)
	}
}

func (w *watcher) requestLogs() {
	if err := w.client.RequestLogs(); err != nil && !errors.Is(err, monitor.ErrNotConnected) {
		w.logger.Warn("requesting logs failed", "error", err)
	}
}
