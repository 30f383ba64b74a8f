// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"fmt"
	"time"
)

// Level is a log record's severity. The numbering is part of the wire
// format.
type Level uint8

const (
	LevelError Level = 1
	LevelWarn  Level = 2
	LevelInfo  Level = 3
	LevelDebug Level = 4
	LevelTrace Level = 5
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return fmt.Sprintf("LEVEL(%d)", uint8(l))
	}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= LevelError && l <= LevelTrace
}

// LogRecord is one log line produced on the robot. Records are
// immutable once created.
type LogRecord struct {
	Level   Level  `cbor:"level"`
	Target  string `cbor:"target"`
	Message string `cbor:"message"`

	// Timestamp is when the record was created, as Unix nanoseconds.
	Timestamp int64 `cbor:"timestamp"`
}

// NewLogRecord builds a record stamped with at.
func NewLogRecord(level Level, target, message string, at time.Time) LogRecord {
	return LogRecord{
		Level:     level,
		Target:    target,
		Message:   message,
		Timestamp: at.UnixNano(),
	}
}

// Time returns the record's timestamp as a time.Time.
func (r LogRecord) Time() time.Time {
	return time.Unix(0, r.Timestamp)
}
