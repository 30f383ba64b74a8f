// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plot

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bureau-foundation/robolink/lib/clock"
	"github.com/bureau-foundation/robolink/lib/packet"
)

// Flush thresholds used when Options leaves them zero.
const (
	DefaultBatchSize     = 50
	DefaultFlushInterval = 100 * time.Millisecond
)

// Key identifies one SubPlot.
type Key struct {
	Series    string
	Subseries string
}

func (k Key) String() string {
	return k.Series + "/" + k.Subseries
}

// SubPlot accumulates the samples of one key.
type SubPlot struct {
	buffer    packet.Buffer
	start     time.Time
	lastFlush time.Time
}

// Shape returns the shape fixed by the first sample.
func (s *SubPlot) Shape() packet.Shape { return s.buffer.Shape }

// Len returns the number of samples waiting to be flushed.
func (s *SubPlot) Len() int { return s.buffer.Len() }

// Start returns the instant of the first sample. Elapsed times in
// flushed buffers are relative to it.
func (s *SubPlot) Start() time.Time { return s.start }

// Batch is one flushed SubPlot buffer.
type Batch struct {
	Series    string
	Subseries string
	Buffer    packet.Buffer
}

// Options configures a Manager.
type Options struct {
	// Clock supplies sample instants when none is given and the
	// current time for the flush interval. Default clock.Real().
	Clock clock.Clock

	// Logger receives shape mismatch warnings. Default slog.Default().
	Logger *slog.Logger

	// BatchSize is the sample count that forces a flush. Default
	// DefaultBatchSize.
	BatchSize int

	// FlushInterval is how long a non-empty SubPlot may go without a
	// flush. Default DefaultFlushInterval.
	FlushInterval time.Duration
}

// Manager owns the SubPlots. It is not safe for concurrent use.
type Manager struct {
	clock         clock.Clock
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration
	subplots      map[Key]*SubPlot
}

// NewManager returns an empty Manager.
func NewManager(options Options) *Manager {
	manager := &Manager{
		clock:         options.Clock,
		logger:        options.Logger,
		batchSize:     options.BatchSize,
		flushInterval: options.FlushInterval,
		subplots:      make(map[Key]*SubPlot),
	}
	if manager.clock == nil {
		manager.clock = clock.Real()
	}
	if manager.logger == nil {
		manager.logger = slog.Default()
	}
	if manager.batchSize <= 0 {
		manager.batchSize = DefaultBatchSize
	}
	if manager.flushInterval <= 0 {
		manager.flushInterval = DefaultFlushInterval
	}
	return manager
}

// AddPoint records sample, taken at the instant at, under
// (series, subseries). A zero at means now. The first sample for a key
// creates its SubPlot and fixes its shape. A sample whose shape
// differs from the key's is dropped and logged; the returned error
// wraps packet.ErrShapeMismatch. A sample with no valid shape is
// dropped before any SubPlot exists for it and the error wraps
// packet.ErrUnknownShape.
func (m *Manager) AddPoint(series, subseries string, sample packet.Sample, at time.Time) error {
	key := Key{Series: series, Subseries: subseries}
	if !sample.Shape().Valid() {
		m.logger.Warn("dropping plot sample with unknown shape",
			"series", series,
			"subseries", subseries,
			"sample_shape", sample.Shape().String(),
		)
		return fmt.Errorf("plot %s: %w: %s", key, packet.ErrUnknownShape, sample.Shape())
	}
	if at.IsZero() {
		at = m.clock.Now()
	}

	subplot, exists := m.subplots[key]
	if !exists {
		subplot = &SubPlot{
			buffer:    packet.NewBuffer(sample.Shape()),
			start:     at,
			lastFlush: at,
		}
		m.subplots[key] = subplot
	}

	// Samples can be stamped slightly before the SubPlot's first one
	// when producers race on the outbound queue.
	elapsed := max(at.Sub(subplot.start), 0)
	if err := subplot.buffer.Append(elapsed, sample); err != nil {
		m.logger.Warn("dropping plot sample with mismatched shape",
			"series", series,
			"subseries", subseries,
			"expected_shape", subplot.Shape().String(),
			"sample_shape", sample.Shape().String(),
		)
		return fmt.Errorf("plot %s: %w", key, err)
	}
	return nil
}

// BuffersToSend drains every SubPlot that holds at least BatchSize
// samples, or that holds any samples and was last flushed at least
// FlushInterval ago. Drained SubPlots restart their flush interval.
// Batches are ordered by series, then subseries.
func (m *Manager) BuffersToSend() []Batch {
	now := m.clock.Now()
	var batches []Batch
	for key, subplot := range m.subplots {
		length := subplot.Len()
		if length == 0 {
			continue
		}
		if length < m.batchSize && now.Sub(subplot.lastFlush) < m.flushInterval {
			continue
		}
		batches = append(batches, Batch{
			Series:    key.Series,
			Subseries: key.Subseries,
			Buffer:    subplot.buffer.Take(),
		})
		subplot.lastFlush = now
	}
	slices.SortFunc(batches, func(a, b Batch) int {
		return cmp.Or(cmp.Compare(a.Series, b.Series), cmp.Compare(a.Subseries, b.Subseries))
	})
	return batches
}

// SubPlot returns the SubPlot for a key, or nil if no sample has been
// recorded under it.
func (m *Manager) SubPlot(series, subseries string) *SubPlot {
	return m.subplots[Key{Series: series, Subseries: subseries}]
}

// Pending returns the total number of samples waiting across all
// SubPlots.
func (m *Manager) Pending() int {
	total := 0
	for _, subplot := range m.subplots {
		total += subplot.Len()
	}
	return total
}
