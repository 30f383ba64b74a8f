// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecorder is a slog.Handler that keeps every record it handles.
// Handlers derived through WithAttrs and WithGroup record into the
// same store, with their attributes folded into each record.
//
//	recorder := testutil.NewLogRecorder()
//	logger := slog.New(recorder)
//	...
//	if n := recorder.Count(slog.LevelWarn); n != 1 { ... }
type LogRecorder struct {
	store *recordStore
	attrs []slog.Attr
}

type recordStore struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewLogRecorder returns an empty recorder that accepts every level.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{store: &recordStore{}}
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	record = record.Clone()
	record.AddAttrs(r.attrs...)
	r.store.mu.Lock()
	r.store.records = append(r.store.records, record)
	r.store.mu.Unlock()
	return nil
}

func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogRecorder{store: r.store, attrs: append(append([]slog.Attr(nil), r.attrs...), attrs...)}
}

// WithGroup ignores the group name; tests look attributes up by key.
func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Records returns a copy of everything recorded so far.
func (r *LogRecorder) Records() []slog.Record {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]slog.Record(nil), r.store.records...)
}

// Count returns how many records were logged at exactly level.
func (r *LogRecorder) Count(level slog.Level) int {
	count := 0
	for _, record := range r.Records() {
		if record.Level == level {
			count++
		}
	}
	return count
}

// Find returns the first record whose message is message.
func (r *LogRecorder) Find(message string) (slog.Record, bool) {
	for _, record := range r.Records() {
		if record.Message == message {
			return record, true
		}
	}
	return slog.Record{}, false
}

// Attr returns the value of the first attribute named key on record.
func Attr(record slog.Record, key string) (slog.Value, bool) {
	var (
		value slog.Value
		found bool
	)
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			value, found = attr.Value, true
			return false
		}
		return true
	})
	return value, found
}
