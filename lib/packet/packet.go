// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/robolink/lib/codec"
)

// OutboundTag identifies an Outbound variant on the wire.
type OutboundTag uint8

const (
	TagLog          OutboundTag = 0
	TagPong         OutboundTag = 1
	TagOutboundPath OutboundTag = 2
	TagPointBuffer  OutboundTag = 3
	// 4 carried odometry in an earlier protocol revision.
	TagRobotInfo OutboundTag = 5
)

func (t OutboundTag) String() string {
	switch t {
	case TagLog:
		return "log"
	case TagPong:
		return "pong"
	case TagOutboundPath:
		return "path"
	case TagPointBuffer:
		return "point_buffer"
	case TagRobotInfo:
		return "robot_info"
	default:
		return fmt.Sprintf("outbound(%d)", uint8(t))
	}
}

// InboundTag identifies an Inbound variant on the wire.
type InboundTag uint8

const (
	TagClientInfo  InboundTag = 0
	TagPing        InboundTag = 1
	TagInboundPath InboundTag = 2
	// 3 carried PID tuning in an earlier protocol revision.
	TagRequestLogs InboundTag = 4
)

func (t InboundTag) String() string {
	switch t {
	case TagClientInfo:
		return "client_info"
	case TagPing:
		return "ping"
	case TagInboundPath:
		return "path"
	case TagRequestLogs:
		return "request_logs"
	default:
		return fmt.Sprintf("inbound(%d)", uint8(t))
	}
}

// Outbound is a packet sent from the robot to the monitor.
type Outbound interface {
	OutboundTag() OutboundTag
}

// Inbound is a packet sent from the monitor to the robot.
type Inbound interface {
	InboundTag() InboundTag
}

// Log carries one log record.
type Log struct {
	Record LogRecord
}

// Pong answers a Ping.
type Pong struct{}

// Path carries a robot path. The payload is an opaque CBOR value that
// only the applications at either end interpret (see lib/path). Path
// travels in both directions: the monitor uploads one, the robot
// reports the one it is following.
type Path struct {
	Payload codec.RawMessage
}

// PointBuffer carries a flushed batch of samples for one
// (series, subseries) pair.
type PointBuffer struct {
	_         struct{} `cbor:",toarray"`
	Series    string
	Subseries string
	Buffer    Buffer
}

// RobotInfo is the robot's half of the connection handshake.
type RobotInfo struct {
	Name string `cbor:"name"`
}

// ClientInfo is the monitor's half of the connection handshake.
type ClientInfo struct {
	Name string `cbor:"name"`
}

// Ping asks the robot application to answer with a Pong.
type Ping struct{}

// RequestLogs asks the robot to send every log record it has not yet
// sent.
type RequestLogs struct{}

func (Log) OutboundTag() OutboundTag         { return TagLog }
func (Pong) OutboundTag() OutboundTag        { return TagPong }
func (Path) OutboundTag() OutboundTag        { return TagOutboundPath }
func (PointBuffer) OutboundTag() OutboundTag { return TagPointBuffer }
func (RobotInfo) OutboundTag() OutboundTag   { return TagRobotInfo }

func (ClientInfo) InboundTag() InboundTag  { return TagClientInfo }
func (Ping) InboundTag() InboundTag        { return TagPing }
func (Path) InboundTag() InboundTag        { return TagInboundPath }
func (RequestLogs) InboundTag() InboundTag { return TagRequestLogs }

// ErrUnknownTag is returned when decoding a packet whose tag is not
// defined for its direction.
var ErrUnknownTag = errors.New("unknown packet tag")

// envelope is the on-wire form of every packet: [tag, body].
type envelope struct {
	_    struct{} `cbor:",toarray"`
	Tag  uint8
	Body codec.RawMessage
}

// cborNull is the encoding of a bodiless variant's body.
var cborNull = []byte{0xf6}

// EncodeOutbound encodes p as a CBOR envelope.
func EncodeOutbound(p Outbound) ([]byte, error) {
	var body any
	switch p := p.(type) {
	case Log:
		body = p.Record
	case *Log:
		body = p.Record
	case Pong, *Pong:
	case Path:
		return encodeEnvelope(uint8(TagOutboundPath), p.Payload)
	case *Path:
		return encodeEnvelope(uint8(TagOutboundPath), p.Payload)
	case PointBuffer:
		body = p
	case *PointBuffer:
		body = *p
	case RobotInfo:
		body = p
	case *RobotInfo:
		body = *p
	default:
		return nil, fmt.Errorf("encode outbound %T: %w", p, ErrUnknownTag)
	}
	return encodeBody(uint8(p.OutboundTag()), body)
}

// DecodeOutbound decodes a CBOR envelope produced by EncodeOutbound.
func DecodeOutbound(data []byte) (Outbound, error) {
	var env envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode outbound envelope: %w", err)
	}

	switch OutboundTag(env.Tag) {
	case TagLog:
		var record LogRecord
		if err := codec.Unmarshal(env.Body, &record); err != nil {
			return nil, fmt.Errorf("decode log body: %w", err)
		}
		if !record.Level.Valid() {
			return nil, fmt.Errorf("decode log body: invalid level %d", record.Level)
		}
		return Log{Record: record}, nil
	case TagPong:
		return Pong{}, nil
	case TagOutboundPath:
		return Path{Payload: payloadFromBody(env.Body)}, nil
	case TagPointBuffer:
		var buffer PointBuffer
		if err := codec.Unmarshal(env.Body, &buffer); err != nil {
			return nil, fmt.Errorf("decode point buffer body: %w", err)
		}
		if err := buffer.Buffer.Validate(); err != nil {
			return nil, fmt.Errorf("decode point buffer %s/%s: %w", buffer.Series, buffer.Subseries, err)
		}
		return buffer, nil
	case TagRobotInfo:
		var info RobotInfo
		if err := codec.Unmarshal(env.Body, &info); err != nil {
			return nil, fmt.Errorf("decode robot info body: %w", err)
		}
		return info, nil
	default:
		return nil, fmt.Errorf("decode outbound tag %d: %w", env.Tag, ErrUnknownTag)
	}
}

// EncodeInbound encodes p as a CBOR envelope.
func EncodeInbound(p Inbound) ([]byte, error) {
	var body any
	switch p := p.(type) {
	case ClientInfo:
		body = p
	case *ClientInfo:
		body = *p
	case Ping, *Ping, RequestLogs, *RequestLogs:
	case Path:
		return encodeEnvelope(uint8(TagInboundPath), p.Payload)
	case *Path:
		return encodeEnvelope(uint8(TagInboundPath), p.Payload)
	default:
		return nil, fmt.Errorf("encode inbound %T: %w", p, ErrUnknownTag)
	}
	return encodeBody(uint8(p.InboundTag()), body)
}

// DecodeInbound decodes a CBOR envelope produced by EncodeInbound.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode inbound envelope: %w", err)
	}

	switch InboundTag(env.Tag) {
	case TagClientInfo:
		var info ClientInfo
		if err := codec.Unmarshal(env.Body, &info); err != nil {
			return nil, fmt.Errorf("decode client info body: %w", err)
		}
		return info, nil
	case TagPing:
		return Ping{}, nil
	case TagInboundPath:
		return Path{Payload: payloadFromBody(env.Body)}, nil
	case TagRequestLogs:
		return RequestLogs{}, nil
	default:
		return nil, fmt.Errorf("decode inbound tag %d: %w", env.Tag, ErrUnknownTag)
	}
}

// encodeBody marshals body (nil for bodiless variants) and wraps it.
func encodeBody(tag uint8, body any) ([]byte, error) {
	if body == nil {
		return encodeEnvelope(tag, nil)
	}
	raw, err := codec.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body for tag %d: %w", tag, err)
	}
	return encodeEnvelope(tag, raw)
}

func encodeEnvelope(tag uint8, body codec.RawMessage) ([]byte, error) {
	if len(body) > 0 {
		if err := codec.Valid(body); err != nil {
			return nil, fmt.Errorf("encode body for tag %d: %w", tag, err)
		}
	}
	data, err := codec.Marshal(envelope{Tag: tag, Body: body})
	if err != nil {
		return nil, fmt.Errorf("encode envelope for tag %d: %w", tag, err)
	}
	return data, nil
}

// payloadFromBody maps a null body back to an empty payload so that a
// Path with no payload round-trips.
func payloadFromBody(body codec.RawMessage) codec.RawMessage {
	if len(body) == 0 || (len(body) == 1 && body[0] == cborNull[0]) {
		return nil
	}
	return body
}
