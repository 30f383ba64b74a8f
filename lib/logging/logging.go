// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the local slog handlers used by the robolink
// binaries and parses log verbosity strings.
//
// Robolink has five levels, Error through Trace. slog has no trace
// level, so [LevelTrace] sits one step below slog.LevelDebug and the
// handlers returned by [NewLocalHandler] print it as TRACE.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// LevelTrace is the slog level for trace records.
const LevelTrace = slog.LevelDebug - 4

// DefaultLevel is the verbosity used when none is configured.
const DefaultLevel = slog.LevelDebug

// ParseLevel parses a verbosity string: error, warn, info, debug or
// trace, in any case. "warning" is accepted for warn. An empty string
// selects DefaultLevel.
func ParseLevel(text string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "":
		return DefaultLevel, nil
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want error, warn, info, debug, or trace)", text)
	}
}

// LevelName returns the display name of level, naming LevelTrace
// TRACE instead of slog's "DEBUG-4".
func LevelName(level slog.Level) string {
	if level <= LevelTrace {
		return "TRACE"
	}
	return level.String()
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// NewLocalHandler returns the handler a binary writes its own log
// output through. When w is a terminal it uses slog.TextHandler for
// human-readable output; otherwise (pipes, files, CI) slog.JSONHandler
// for machine-parseable output.
func NewLocalHandler(w io.Writer, level slog.Leveler) slog.Handler {
	options := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}
	if IsTerminal(w) {
		return slog.NewTextHandler(w, options)
	}
	return slog.NewJSONHandler(w, options)
}

func replaceLevel(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 && attr.Key == slog.LevelKey {
		if level, ok := attr.Value.Any().(slog.Level); ok {
			attr.Value = slog.StringValue(LevelName(level))
		}
	}
	return attr
}
