// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/robolink/lib/bridge"
	"github.com/bureau-foundation/robolink/lib/clock"
	"github.com/bureau-foundation/robolink/lib/config"
	"github.com/bureau-foundation/robolink/lib/process"
	"github.com/bureau-foundation/robolink/lib/version"
)

func main() {
	process.Exit(run())
}

func run() error {
	var (
		configPath     string
		listen         string
		name           string
		logLevel       string
		metricsAddress string
		tick           time.Duration
		showVersion    bool
	)

	flagSet := pflag.NewFlagSet("robolink-robot", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to robolink.yaml (default: $ROBOLINK_CONFIG, else built-in defaults)")
	flagSet.StringVar(&listen, "listen", "", "TCP address to accept monitors on (overrides robot.listen)")
	flagSet.StringVar(&name, "name", "", "robot name sent to monitors (overrides robot.name)")
	flagSet.StringVar(&logLevel, "log-level", "", "error, warn, info, debug, or trace (overrides log.level)")
	flagSet.StringVar(&metricsAddress, "metrics-address", "", "serve Prometheus metrics on this address (overrides robot.metrics_address)")
	flagSet.DurationVar(&tick, "tick", 20*time.Millisecond, "control loop period")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("robolink-robot %s\n", version.Info())
		return nil
	}
	if tick <= 0 {
		return fmt.Errorf("--tick must be positive, got %v", tick)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("listen") {
		cfg.Robot.Listen = listen
	}
	if flagSet.Changed("name") {
		cfg.Robot.Name = name
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flagSet.Changed("metrics-address") {
		cfg.Robot.MetricsAddress = metricsAddress
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	bridgeConfig, err := cfg.BridgeConfig()
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bridgeConfig.Registerer = registry

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mediator, err := bridge.Initialize(ctx, bridgeConfig)
	if err != nil {
		return err
	}
	logger := mediator.Logger()

	if cfg.Robot.MetricsAddress != "" {
		if err := serveMetrics(ctx, cfg.Robot.MetricsAddress, registry, logger); err != nil {
			mediator.Close()
			return err
		}
	}

	logger.Info("robot bridge listening",
		"address", mediator.Addr().String(),
		"robot", cfg.Robot.Name,
		"version", version.Info(),
	)

	err = newController(mediator, clock.Real(), tick).run(ctx)
	mediator.Close()
	mediator.Wait()
	return err
}

// loadConfig prefers an explicit --config, then ROBOLINK_CONFIG, then
// the defaults.
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

// serveMetrics binds address and serves /metrics until ctx is done.
func serveMetrics(ctx context.Context, address string, registry *prometheus.Registry, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	})

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "address", listener.Addr().String())
	return nil
}
