// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"math"
	"time"

	"github.com/bureau-foundation/robolink/lib/path"
)

// Simulated drivetrain limits.
const (
	driveSpeed = 0.5 // metres per second
	turnSpeed  = 1.0 // radians per second
)

// pose is the simulated robot's position and heading (radians, CCW
// from +x).
type pose struct {
	x, y    float64
	heading float64
}

type motionKind int

const (
	motionDrive motionKind = iota
	motionTurn
)

// motion is a primitive the drivetrain executes: drive a signed
// distance along the heading, or turn a signed angle.
type motion struct {
	kind      motionKind
	remaining float64
}

// driver follows a path by expanding each action into motions when
// the action starts, so relative and absolute actions resolve against
// the pose at that moment.
type driver struct {
	pose    pose
	actions []path.Action
	motions []motion
}

// load replaces the path being followed.
func (d *driver) load(actions []path.Action) {
	d.actions = append([]path.Action(nil), actions...)
	d.motions = nil
}

// idle reports whether the current path is finished.
func (d *driver) idle() bool {
	return len(d.actions) == 0 && len(d.motions) == 0
}

// step advances the simulation by dt and returns the linear and
// angular speed used.
func (d *driver) step(dt time.Duration) (linear, angular float64) {
	budget := dt.Seconds()
	for budget > 0 {
		if len(d.motions) == 0 {
			if len(d.actions) == 0 {
				return linear, angular
			}
			d.motions = d.expand(d.actions[0])
			d.actions = d.actions[1:]
			continue
		}

		current := &d.motions[0]
		rate := driveSpeed
		if current.kind == motionTurn {
			rate = turnSpeed
		}
		amount := math.Abs(current.remaining)
		if needed := amount / rate; needed > budget {
			amount = rate * budget
			budget = 0
		} else {
			budget -= needed
		}
		signed := math.Copysign(amount, current.remaining)
		switch {
		case amount == 0:
		case current.kind == motionDrive:
			d.pose.x += signed * math.Cos(d.pose.heading)
			d.pose.y += signed * math.Sin(d.pose.heading)
			linear = math.Copysign(driveSpeed, signed)
		case current.kind == motionTurn:
			d.pose.heading = normalizeAngle(d.pose.heading + signed)
			angular = math.Copysign(turnSpeed, signed)
		}
		current.remaining -= signed
		if math.Abs(current.remaining) < 1e-9 {
			d.motions = d.motions[1:]
		}
	}
	return linear, angular
}

// expand turns one action into motions from the current pose.
// StartAt teleports and produces none.
func (d *driver) expand(action path.Action) []motion {
	switch a := action.(type) {
	case path.StartAt:
		d.pose = pose{x: a.Pos[0], y: a.Pos[1], heading: normalizeAngle(a.Heading)}
		return nil
	case path.MoveRel:
		return []motion{{kind: motionDrive, remaining: a.Rel}}
	case path.MoveRelAbs:
		if a.Rel < 0 {
			return []motion{{kind: motionTurn, remaining: math.Pi}, {kind: motionDrive, remaining: -a.Rel}}
		}
		return []motion{{kind: motionDrive, remaining: a.Rel}}
	case path.MoveTo:
		dx, dy := a.Pos[0]-d.pose.x, a.Pos[1]-d.pose.y
		distance := math.Hypot(dx, dy)
		if distance == 0 {
			return nil
		}
		turn := normalizeAngle(math.Atan2(dy, dx) - d.pose.heading)
		return []motion{{kind: motionTurn, remaining: turn}, {kind: motionDrive, remaining: distance}}
	case path.TurnRel:
		return []motion{{kind: motionTurn, remaining: a.Angle}}
	case path.TurnRelAbs:
		return []motion{{kind: motionTurn, remaining: normalizeAngle(a.Angle)}}
	case path.TurnTo:
		return []motion{{kind: motionTurn, remaining: normalizeAngle(a.Heading - d.pose.heading)}}
	}
	return nil
}

// normalizeAngle maps angle into (-π, π].
func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	switch {
	case angle > math.Pi:
		angle -= 2 * math.Pi
	case angle <= -math.Pi:
		angle += 2 * math.Pi
	}
	return angle
}
