// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/robolink/lib/bridge"
	"github.com/bureau-foundation/robolink/lib/framing"
	"github.com/bureau-foundation/robolink/lib/logging"
	"github.com/bureau-foundation/robolink/lib/monitor"
	"github.com/bureau-foundation/robolink/lib/plot"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "ROBOLINK_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for bench testing against a workstation.
	Development Environment = "development"
	// Production is for robots in the field.
	Production Environment = "production"
)

// Config is the configuration shared by robolink-robot and
// robolink-monitor. Each binary reads the sections it needs.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Log configures local and forwarded logging.
	Log LogConfig `yaml:"log"`

	// Robot configures the bridge inside robolink-robot.
	Robot RobotConfig `yaml:"robot"`

	// Monitor configures robolink-monitor.
	Monitor MonitorConfig `yaml:"monitor"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains the sections that can be overridden per
// environment. Only non-zero fields override.
type ConfigOverrides struct {
	Log     *LogConfig     `yaml:"log,omitempty"`
	Robot   *RobotConfig   `yaml:"robot,omitempty"`
	Monitor *MonitorConfig `yaml:"monitor,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the minimum level logged locally and forwarded to the
	// monitor: error, warn, info, debug, or trace.
	// Default: debug
	Level string `yaml:"level"`

	// DefaultTarget is the target of records that name none.
	// Default: robot
	DefaultTarget string `yaml:"default_target"`
}

// RobotConfig configures the robot-side bridge.
type RobotConfig struct {
	// Listen is the TCP address the bridge accepts monitors on.
	// Default: 0.0.0.0:8733
	Listen string `yaml:"listen"`

	// Name is sent to monitors in the handshake.
	// Default: ${HOSTNAME}
	Name string `yaml:"name"`

	// OutboundCapacity and InboundCapacity bound the event queues.
	// Default: 100 each
	OutboundCapacity int `yaml:"outbound_capacity"`
	InboundCapacity  int `yaml:"inbound_capacity"`

	// MaxFrameSize bounds frames read from a monitor, in bytes.
	// Default: 16 MiB
	MaxFrameSize int `yaml:"max_frame_size"`

	// WriteTimeout bounds each frame write to a monitor.
	// Default: 10s
	WriteTimeout Duration `yaml:"write_timeout"`

	// Plot configures plot batching.
	Plot PlotConfig `yaml:"plot"`

	// MetricsAddress serves Prometheus metrics at /metrics when set.
	// Default: "" (disabled)
	MetricsAddress string `yaml:"metrics_address"`
}

// PlotConfig configures when plot batches are flushed.
type PlotConfig struct {
	// BatchSize flushes a series once it holds this many samples.
	// Default: 50
	BatchSize int `yaml:"batch_size"`

	// FlushInterval flushes a non-empty series this long after its
	// previous flush.
	// Default: 100ms
	FlushInterval Duration `yaml:"flush_interval"`
}

// MonitorConfig configures the monitoring client.
type MonitorConfig struct {
	// Address is the robot bridge to connect to.
	// Default: 127.0.0.1:8733
	Address string `yaml:"address"`

	// Name identifies this monitor to the robot.
	// Default: robolink-monitor
	Name string `yaml:"name"`

	// InitialBackoff and MaxBackoff bound the reconnect delay.
	// Default: 250ms and 5s
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`

	// PingInterval sends a Ping this often while connected.
	// Default: 1s
	PingInterval Duration `yaml:"ping_interval"`

	// LogRequestInterval asks for unsent logs this often.
	// Default: 2s
	LogRequestInterval Duration `yaml:"log_request_interval"`
}

// Duration is a time.Duration written in YAML as a Go duration
// string such as "250ms" or "5s".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the default configuration, the base a config file
// is merged onto.
func Default() *Config {
	return &Config{
		Environment: Development,
		Log: LogConfig{
			Level:         "debug",
			DefaultTarget: bridge.DefaultTarget,
		},
		Robot: RobotConfig{
			Listen:           bridge.DefaultListenAddress,
			Name:             "${HOSTNAME:-robot}",
			OutboundCapacity: bridge.DefaultQueueCapacity,
			InboundCapacity:  bridge.DefaultQueueCapacity,
			MaxFrameSize:     framing.DefaultMaxFrameSize,
			WriteTimeout:     Duration(bridge.DefaultWriteTimeout),
			Plot: PlotConfig{
				BatchSize:     plot.DefaultBatchSize,
				FlushInterval: Duration(plot.DefaultFlushInterval),
			},
		},
		Monitor: MonitorConfig{
			Address:            "127.0.0.1:8733",
			Name:               "robolink-monitor",
			InitialBackoff:     Duration(monitor.DefaultInitialBackoff),
			MaxBackoff:         Duration(monitor.DefaultMaxBackoff),
			PingInterval:       Duration(time.Second),
			LogRequestInterval: Duration(2 * time.Second),
		},
	}
}

// Load loads configuration from the file named by ROBOLINK_CONFIG.
// There is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your robolink.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path over
// Default, applies the section for the configured environment, and
// expands ${VAR} and ${VAR:-default} in address and name fields.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse is LoadFile for configuration already in memory.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// Resolved returns the defaults with variables expanded, for binaries
// started without a config file.
func Resolved() *Config {
	cfg := Default()
	cfg.expandVariables()
	return cfg
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production robots forward less by default.
		if overrides == nil {
			overrides = &ConfigOverrides{Log: &LogConfig{Level: "info"}}
		}
	}
	if overrides == nil {
		return
	}

	if log := overrides.Log; log != nil {
		override(&c.Log.Level, log.Level)
		override(&c.Log.DefaultTarget, log.DefaultTarget)
	}
	if robot := overrides.Robot; robot != nil {
		override(&c.Robot.Listen, robot.Listen)
		override(&c.Robot.Name, robot.Name)
		override(&c.Robot.OutboundCapacity, robot.OutboundCapacity)
		override(&c.Robot.InboundCapacity, robot.InboundCapacity)
		override(&c.Robot.MaxFrameSize, robot.MaxFrameSize)
		override(&c.Robot.WriteTimeout, robot.WriteTimeout)
		override(&c.Robot.Plot.BatchSize, robot.Plot.BatchSize)
		override(&c.Robot.Plot.FlushInterval, robot.Plot.FlushInterval)
		override(&c.Robot.MetricsAddress, robot.MetricsAddress)
	}
	if mon := overrides.Monitor; mon != nil {
		override(&c.Monitor.Address, mon.Address)
		override(&c.Monitor.Name, mon.Name)
		override(&c.Monitor.InitialBackoff, mon.InitialBackoff)
		override(&c.Monitor.MaxBackoff, mon.MaxBackoff)
		override(&c.Monitor.PingInterval, mon.PingInterval)
		override(&c.Monitor.LogRequestInterval, mon.LogRequestInterval)
	}
}

// override replaces *field with value unless value is zero.
func override[T comparable](field *T, value T) {
	var zero T
	if value != zero {
		*field = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{}
	if hostname, err := os.Hostname(); err == nil {
		vars["HOSTNAME"] = hostname
	}

	c.Robot.Listen = expandVars(c.Robot.Listen, vars)
	c.Robot.Name = expandVars(c.Robot.Name, vars)
	c.Robot.MetricsAddress = expandVars(c.Robot.MetricsAddress, vars)
	c.Monitor.Address = expandVars(c.Monitor.Address, vars)
	c.Monitor.Name = expandVars(c.Monitor.Name, vars)
	c.Log.DefaultTarget = expandVars(c.Log.DefaultTarget, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, looking in
// vars before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value := os.Getenv(name); value != "" {
			return value
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Robot.Listen == "" {
		errs = append(errs, errors.New("robot.listen is required"))
	}
	if c.Robot.OutboundCapacity < 1 {
		errs = append(errs, fmt.Errorf("robot.outbound_capacity must be at least 1, got %d", c.Robot.OutboundCapacity))
	}
	if c.Robot.InboundCapacity < 1 {
		errs = append(errs, fmt.Errorf("robot.inbound_capacity must be at least 1, got %d", c.Robot.InboundCapacity))
	}
	if c.Robot.Plot.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("robot.plot.batch_size must be at least 1, got %d", c.Robot.Plot.BatchSize))
	}
	if c.Robot.Plot.FlushInterval < 0 {
		errs = append(errs, fmt.Errorf("robot.plot.flush_interval must not be negative, got %v", c.Robot.Plot.FlushInterval.Std()))
	}
	if c.Monitor.Address == "" {
		errs = append(errs, errors.New("monitor.address is required"))
	}
	if c.Monitor.MaxBackoff < c.Monitor.InitialBackoff {
		errs = append(errs, fmt.Errorf("monitor.max_backoff %v is below monitor.initial_backoff %v",
			c.Monitor.MaxBackoff.Std(), c.Monitor.InitialBackoff.Std()))
	}
	if c.Monitor.PingInterval <= 0 {
		errs = append(errs, errors.New("monitor.ping_interval must be positive"))
	}
	if c.Monitor.LogRequestInterval <= 0 {
		errs = append(errs, errors.New("monitor.log_request_interval must be positive"))
	}

	return errors.Join(errs...)
}

// BridgeConfig converts the robot section to a bridge.Config. The
// caller fills in the fields that are not file settings (Clock,
// LocalHandler, Registerer).
func (c *Config) BridgeConfig() (bridge.Config, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return bridge.Config{}, fmt.Errorf("log.level: %w", err)
	}
	return bridge.Config{
		ListenAddress:     c.Robot.Listen,
		RobotName:         c.Robot.Name,
		OutboundCapacity:  c.Robot.OutboundCapacity,
		InboundCapacity:   c.Robot.InboundCapacity,
		PlotBatchSize:     c.Robot.Plot.BatchSize,
		PlotFlushInterval: c.Robot.Plot.FlushInterval.Std(),
		MaxFrameSize:      c.Robot.MaxFrameSize,
		WriteTimeout:      c.Robot.WriteTimeout.Std(),
		Level:             level,
		DefaultTarget:     c.Log.DefaultTarget,
	}, nil
}

// MonitorOptions converts the monitor section to monitor.Options. The
// caller sets Logger and Clock.
func (c *Config) MonitorOptions() monitor.Options {
	return monitor.Options{
		Address:        c.Monitor.Address,
		Name:           c.Monitor.Name,
		InitialBackoff: c.Monitor.InitialBackoff.Std(),
		MaxBackoff:     c.Monitor.MaxBackoff.Std(),
	}
}
