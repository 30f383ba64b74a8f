// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/robolink/lib/clock"
	"github.com/bureau-foundation/robolink/lib/framing"
	"github.com/bureau-foundation/robolink/lib/logging"
	"github.com/bureau-foundation/robolink/lib/plot"
)

// Defaults applied by Start to zero Config fields.
const (
	DefaultListenAddress      = "0.0.0.0:8733"
	DefaultQueueCapacity      = 100
	DefaultAcceptPollInterval = 250 * time.Millisecond
	DefaultWriteTimeout       = 10 * time.Second
	DefaultTarget             = "robot"
)

// Config holds the bridge's runtime settings. The zero value is usable:
// every zero field takes its default.
type Config struct {
	// ListenAddress is the TCP address the Listener binds. Default
	// DefaultListenAddress. Use "127.0.0.1:0" for an ephemeral port.
	ListenAddress string

	// RobotName is sent to every client in the RobotInfo handshake.
	// Default: the host name.
	RobotName string

	// OutboundCapacity and InboundCapacity bound the two queues.
	// Default DefaultQueueCapacity each.
	OutboundCapacity int
	InboundCapacity  int

	// PlotBatchSize and PlotFlushInterval are the plot flush
	// thresholds. Defaults plot.DefaultBatchSize and
	// plot.DefaultFlushInterval.
	PlotBatchSize     int
	PlotFlushInterval time.Duration

	// MaxFrameSize bounds frames read from the client. Default
	// framing.DefaultMaxFrameSize.
	MaxFrameSize int

	// AcceptPollInterval is how long the accept goroutine waits after
	// a failed Accept before trying again. Default
	// DefaultAcceptPollInterval.
	AcceptPollInterval time.Duration

	// WriteTimeout bounds each frame write to the client. A client
	// that stops reading is disconnected once it expires. Default
	// DefaultWriteTimeout; negative disables the timeout.
	WriteTimeout time.Duration

	// Clock drives plot timestamps and accept retries. Default
	// clock.Real().
	Clock clock.Clock

	// LocalHandler receives a copy of every record logged through the
	// Mediator's logger, and the Listener's own diagnostics. Default:
	// logging.NewLocalHandler on stderr at Level.
	LocalHandler slog.Handler

	// Level is the minimum level the Mediator's logger forwards to the
	// client. Default logging.DefaultLevel.
	Level slog.Leveler

	// DefaultTarget is the target of log records that carry neither a
	// "target" attribute nor a group. Default DefaultTarget.
	DefaultTarget string

	// Registerer receives the bridge metrics. Nil leaves them
	// unregistered (they are still maintained).
	Registerer prometheus.Registerer
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if c.RobotName == "" {
		if hostname, err := os.Hostname(); err == nil && hostname != "" {
			c.RobotName = hostname
		} else {
			c.RobotName = "robot"
		}
	}
	if c.OutboundCapacity == 0 {
		c.OutboundCapacity = DefaultQueueCapacity
	}
	if c.InboundCapacity == 0 {
		c.InboundCapacity = DefaultQueueCapacity
	}
	if c.PlotBatchSize == 0 {
		c.PlotBatchSize = plot.DefaultBatchSize
	}
	if c.PlotFlushInterval == 0 {
		c.PlotFlushInterval = plot.DefaultFlushInterval
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = framing.DefaultMaxFrameSize
	}
	if c.AcceptPollInterval == 0 {
		c.AcceptPollInterval = DefaultAcceptPollInterval
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Level == nil {
		c.Level = logging.DefaultLevel
	}
	if c.LocalHandler == nil {
		c.LocalHandler = logging.NewLocalHandler(os.Stderr, c.Level)
	}
	if c.DefaultTarget == "" {
		c.DefaultTarget = DefaultTarget
	}
	return c
}

// Validate reports every setting that cannot be used, after defaults
// are applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	var errs []error
	if c.OutboundCapacity < 1 {
		errs = append(errs, fmt.Errorf("outbound capacity must be at least 1, got %d", c.OutboundCapacity))
	}
	if c.InboundCapacity < 1 {
		errs = append(errs, fmt.Errorf("inbound capacity must be at least 1, got %d", c.InboundCapacity))
	}
	if c.PlotBatchSize < 1 {
		errs = append(errs, fmt.Errorf("plot batch size must be at least 1, got %d", c.PlotBatchSize))
	}
	if c.PlotFlushInterval < 0 {
		errs = append(errs, fmt.Errorf("plot flush interval must not be negative, got %v", c.PlotFlushInterval))
	}
	if c.MaxFrameSize < 1 || uint64(c.MaxFrameSize) > math.MaxUint32 {
		errs = append(errs, fmt.Errorf("max frame size must be between 1 and %d, got %d", uint64(math.MaxUint32), c.MaxFrameSize))
	}
	if c.AcceptPollInterval < 0 {
		errs = append(errs, fmt.Errorf("accept poll interval must not be negative, got %v", c.AcceptPollInterval))
	}
	return errors.Join(errs...)
}
