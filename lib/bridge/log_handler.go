// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/robolink/lib/logging"
	"github.com/bureau-foundation/robolink/lib/packet"
)

// TargetKey is the attribute that sets a record's target, as in
// logger.With(bridge.TargetKey, "drive").
const TargetKey = "target"

// LogHandler is a slog.Handler that writes each record to a local
// handler and forwards it to the client as a LogEvent. Forwarding never
// blocks: when the outbound queue is full the record is dropped and
// counted.
//
// The record's target is its "target" attribute if it has one, else
// the handler's group path joined with ".", else the configured
// default. The forwarded message is the record's message followed by
// its remaining attributes as key=value pairs.
//
// Handlers derived via WithAttrs/WithGroup share the sink.
type LogHandler struct {
	local         slog.Handler
	level         slog.Leveler
	defaultTarget string
	sink          func(LogEvent)

	target string
	attrs  []string
	groups []string
}

func newLogHandler(local slog.Handler, level slog.Leveler, defaultTarget string, sink func(LogEvent)) *LogHandler {
	return &LogHandler{
		local:         local,
		level:         level,
		defaultTarget: defaultTarget,
		sink:          sink,
	}
}

// Enabled reports whether either the local handler or the client wants
// records at level.
func (handler *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= handler.level.Level() || handler.local.Enabled(ctx, level)
}

// Handle writes the record locally, then forwards it. The local
// handler's error, if any, is returned after forwarding.
func (handler *LogHandler) Handle(ctx context.Context, record slog.Record) error {
	var localErr error
	if handler.local.Enabled(ctx, record.Level) {
		localErr = handler.local.Handle(ctx, record)
	}
	if record.Level < handler.level.Level() {
		return localErr
	}

	target := handler.target
	var message strings.Builder
	message.WriteString(record.Message)
	for _, rendered := range handler.attrs {
		message.WriteByte(' ')
		message.WriteString(rendered)
	}
	record.Attrs(func(attr slog.Attr) bool {
		if len(handler.groups) == 0 && attr.Key == TargetKey {
			target = attr.Value.Resolve().String()
			return true
		}
		for _, rendered := range renderAttr(handler.prefix(), attr) {
			message.WriteByte(' ')
			message.WriteString(rendered)
		}
		return true
	})
	if target == "" {
		target = strings.Join(handler.groups, ".")
	}
	if target == "" {
		target = handler.defaultTarget
	}

	at := record.Time
	if at.IsZero() {
		at = time.Now()
	}
	handler.sink(LogEvent{Record: packet.NewLogRecord(WireLevel(record.Level), target, message.String(), at)})
	return localErr
}

// WithAttrs returns a handler that adds attrs to every record. A
// top-level "target" attribute sets the target instead of being
// rendered.
func (handler *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := handler.clone()
	derived.local = handler.local.WithAttrs(attrs)
	for _, attr := range attrs {
		if len(handler.groups) == 0 && attr.Key == TargetKey {
			derived.target = attr.Value.Resolve().String()
			continue
		}
		derived.attrs = append(derived.attrs, renderAttr(handler.prefix(), attr)...)
	}
	return derived
}

// WithGroup returns a handler that qualifies later attributes with
// name.
func (handler *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return handler
	}
	derived := handler.clone()
	derived.local = handler.local.WithGroup(name)
	derived.groups = append(derived.groups, name)
	return derived
}

func (handler *LogHandler) clone() *LogHandler {
	return &LogHandler{
		local:         handler.local,
		level:         handler.level,
		defaultTarget: handler.defaultTarget,
		sink:          handler.sink,
		target:        handler.target,
		attrs:         sliceClone(handler.attrs),
		groups:        sliceClone(handler.groups),
	}
}

func (handler *LogHandler) prefix() string {
	if len(handler.groups) == 0 {
		return ""
	}
	return strings.Join(handler.groups, ".") + "."
}

// renderAttr formats attr as key=value pairs, flattening groups into
// dotted keys.
func renderAttr(prefix string, attr slog.Attr) []string {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = prefix + attr.Key + "."
		}
		var rendered []string
		for _, member := range value.Group() {
			rendered = append(rendered, renderAttr(groupPrefix, member)...)
		}
		return rendered
	}
	if attr.Key == "" {
		return nil
	}
	text := value.String()
	if strings.ContainsAny(text, " \t\n\"=") {
		text = quote(text)
	}
	return []string{prefix + attr.Key + "=" + text}
}

func quote(text string) string {
	var quoted strings.Builder
	quoted.WriteByte('"')
	for _, r := range text {
		switch r {
		case '"', '\\':
			quoted.WriteByte('\\')
			quoted.WriteRune(r)
		case '\n':
			quoted.WriteString(`\n`)
		case '\t':
			quoted.WriteString(`\t`)
		default:
			quoted.WriteRune(r)
		}
	}
	quoted.WriteByte('"')
	return quoted.String()
}

// WireLevel maps a slog level onto the five wire levels.
func WireLevel(level slog.Level) packet.Level {
	switch {
	case level >= slog.LevelError:
		return packet.LevelError
	case level >= slog.LevelWarn:
		return packet.LevelWarn
	case level >= slog.LevelInfo:
		return packet.LevelInfo
	case level >= slog.LevelDebug:
		return packet.LevelDebug
	default:
		return packet.LevelTrace
	}
}

// SlogLevel maps a wire level back onto slog, with Trace as
// logging.LevelTrace.
func SlogLevel(level packet.Level) slog.Level {
	switch level {
	case packet.LevelError:
		return slog.LevelError
	case packet.LevelWarn:
		return slog.LevelWarn
	case packet.LevelInfo:
		return slog.LevelInfo
	case packet.LevelDebug:
		return slog.LevelDebug
	default:
		return logging.LevelTrace
	}
}

// sliceClone returns a shallow copy of a slice so derived handlers do
// not alias their parent's backing array.
func sliceClone[T any](source []T) []T {
	if source == nil {
		return nil
	}
	result := make([]T, len(source))
	copy(result, source)
	return result
}
