// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/robolink/lib/bridge"
	"github.com/bureau-foundation/robolink/lib/clock"
	"github.com/bureau-foundation/robolink/lib/path"
)

const statusInterval = time.Second

// controller is the robot's control loop. Each tick it handles what
// the monitor sent, advances the simulated drivetrain, and plots the
// resulting state.
type controller struct {
	mediator   *bridge.Mediator
	logger     *slog.Logger
	clock      clock.Clock
	tick       time.Duration
	driver     driver
	lastStatus time.Time
}

func newController(mediator *bridge.Mediator, clk clock.Clock, tick time.Duration) *controller {
	return &controller{
		mediator: mediator,
		logger:   mediator.Logger().With(bridge.TargetKey, "controller"),
		clock:    clk,
		tick:     tick,
	}
}

// run ticks until ctx is cancelled or the bridge stops.
func (c *controller) run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.mediator.Done():
			return c.mediator.Wait()
		case <-ticker.C:
			c.step()
		}
	}
}

func (c *controller) step() {
	for _, event := range c.mediator.PollEvents() {
		c.handle(event)
	}

	linear, angular := c.driver.step(c.tick)
	current := c.driver.pose
	plot(c, "pose", "position", [2]float64{current.x, current.y})
	plot(c, "pose", "heading", current.heading)
	plot(c, "pose", "state", [3]float64{current.x, current.y, current.heading})
	plot(c, "velocity", "linear", linear)
	plot(c, "velocity", "angular", angular)

	if now := c.clock.Now(); now.Sub(c.lastStatus) >= statusInterval {
		c.lastStatus = now
		c.logger.Debug("drivetrain status",
			"x", current.x,
			"y", current.y,
			"heading", current.heading,
			"idle", c.driver.idle(),
		)
	}
}

func (c *controller) handle(event bridge.InboundEvent) {
	switch event := event.(type) {
	case bridge.PingEvent:
		if err := c.mediator.SendEvent(bridge.PongEvent{}); err != nil {
			c.logger.Warn("could not answer ping", "error", err)
		}
	case bridge.PathEvent:
		actions, err := path.Decode(event.Payload)
		if err != nil {
			c.logger.Warn("rejecting path upload", "error", err)
			return
		}
		c.driver.load(actions)
		c.logger.Info("following new path", "actions", len(actions))
		// Echo the accepted path so the monitor can draw it.
		if err := c.mediator.SendEvent(bridge.PathEvent{Payload: event.Payload}); err != nil {
			c.logger.Warn("could not report path", "error", err)
		}
	}
}

// plot drops the sample when the queue is full; the bridge counts the
// rejection.
func plot[V bridge.Shape](c *controller, series, subseries string, value V) {
	_ = bridge.PlotTo(c.mediator, series, subseries, value)
}
