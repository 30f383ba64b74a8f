// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package path defines the robot path carried by Path packets: an
// ordered list of driving actions. The bridge treats a path as opaque
// CBOR; only the robot application and the monitor decode it.
//
// Each action encodes as a two-element CBOR array [kind, body], the
// same envelope shape the packet layer uses. Kinds are stable and never
// reassigned.
package path

import (
	"errors"
	"fmt"
	"math"

	"github.com/bureau-foundation/robolink/lib/codec"
)

// Kind identifies an action variant on the wire.
type Kind uint8

const (
	KindStartAt    Kind = 0
	KindMoveRel    Kind = 1
	KindMoveRelAbs Kind = 2
	KindMoveTo     Kind = 3
	KindTurnRel    Kind = 4
	KindTurnRelAbs Kind = 5
	KindTurnTo     Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindStartAt:
		return "start_at"
	case KindMoveRel:
		return "move_rel"
	case KindMoveRelAbs:
		return "move_rel_abs"
	case KindMoveTo:
		return "move_to"
	case KindTurnRel:
		return "turn_rel"
	case KindTurnRelAbs:
		return "turn_rel_abs"
	case KindTurnTo:
		return "turn_to"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Action is one step of a path.
type Action interface {
	Kind() Kind
}

// StartAt places the robot at Pos facing Heading (radians).
type StartAt struct {
	Pos     [2]float64 `cbor:"pos"`
	Heading float64    `cbor:"heading"`
}

// MoveRel drives Rel metres along the current heading; negative
// reverses.
type MoveRel struct {
	Rel float64 `cbor:"rel"`
}

// MoveRelAbs drives Rel metres, always facing forward: a negative Rel
// turns around first instead of reversing.
type MoveRelAbs struct {
	Rel float64 `cbor:"rel"`
}

// MoveTo drives to Pos.
type MoveTo struct {
	Pos [2]float64 `cbor:"pos"`
}

// TurnRel turns Angle radians from the current heading.
type TurnRel struct {
	Angle float64 `cbor:"angle"`
}

// TurnRelAbs turns Angle radians taking the shorter direction.
type TurnRelAbs struct {
	Angle float64 `cbor:"angle"`
}

// TurnTo turns to face Heading (radians).
type TurnTo struct {
	Heading float64 `cbor:"heading"`
}

func (StartAt) Kind() Kind    { return KindStartAt }
func (MoveRel) Kind() Kind    { return KindMoveRel }
func (MoveRelAbs) Kind() Kind { return KindMoveRelAbs }
func (MoveTo) Kind() Kind     { return KindMoveTo }
func (TurnRel) Kind() Kind    { return KindTurnRel }
func (TurnRelAbs) Kind() Kind { return KindTurnRelAbs }
func (TurnTo) Kind() Kind     { return KindTurnTo }

// ErrUnknownKind is returned when decoding an action whose kind is not
// defined.
var ErrUnknownKind = errors.New("unknown path action kind")

type envelope struct {
	_    struct{} `cbor:",toarray"`
	Kind uint8
	Body codec.RawMessage
}

// Encode serializes actions into a Path payload. Every action must
// carry finite numbers.
func Encode(actions []Action) (codec.RawMessage, error) {
	envelopes := make([]envelope, 0, len(actions))
	for index, action := range actions {
		if action == nil {
			return nil, fmt.Errorf("action %d is nil", index)
		}
		if err := validate(action); err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", index, action.Kind(), err)
		}
		body, err := codec.Marshal(action)
		if err != nil {
			return nil, fmt.Errorf("encoding action %d (%s): %w", index, action.Kind(), err)
		}
		envelopes = append(envelopes, envelope{Kind: uint8(action.Kind()), Body: body})
	}
	data, err := codec.Marshal(envelopes)
	if err != nil {
		return nil, fmt.Errorf("encoding path: %w", err)
	}
	return data, nil
}

// Decode parses a Path payload.
func Decode(payload codec.RawMessage) ([]Action, error) {
	var envelopes []envelope
	if err := codec.Unmarshal(payload, &envelopes); err != nil {
		return nil, fmt.Errorf("decoding path: %w", err)
	}
	actions := make([]Action, 0, len(envelopes))
	for index, env := range envelopes {
		action, err := decodeAction(Kind(env.Kind), env.Body)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", index, err)
		}
		if err := validate(action); err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", index, action.Kind(), err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func decodeAction(kind Kind, body codec.RawMessage) (Action, error) {
	switch kind {
	case KindStartAt:
		return decodeBody[StartAt](body)
	case KindMoveRel:
		return decodeBody[MoveRel](body)
	case KindMoveRelAbs:
		return decodeBody[MoveRelAbs](body)
	case KindMoveTo:
		return decodeBody[MoveTo](body)
	case KindTurnRel:
		return decodeBody[TurnRel](body)
	case KindTurnRelAbs:
		return decodeBody[TurnRelAbs](body)
	case KindTurnTo:
		return decodeBody[TurnTo](body)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
}

func decodeBody[A Action](body codec.RawMessage) (Action, error) {
	var action A
	if err := codec.Unmarshal(body, &action); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", action.Kind(), err)
	}
	return action, nil
}

// validate rejects NaN and infinite values.
func validate(action Action) error {
	var values []float64
	switch a := action.(type) {
	case StartAt:
		values = []float64{a.Pos[0], a.Pos[1], a.Heading}
	case MoveRel:
		values = []float64{a.Rel}
	case MoveRelAbs:
		values = []float64{a.Rel}
	case MoveTo:
		values = []float64{a.Pos[0], a.Pos[1]}
	case TurnRel:
		values = []float64{a.Angle}
	case TurnRelAbs:
		values = []float64{a.Angle}
	case TurnTo:
		values = []float64{a.Heading}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownKind, action)
	}
	for _, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("non-finite value %v", value)
		}
	}
	return nil
}
