// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Reasons recorded on the dropped-events counter.
const (
	dropLogHandler = "log_handler"
	dropPlotHelper = "plot_helper"
	dropInbound    = "inbound_full"
	dropNoClient   = "no_client"
	dropPollTick   = "poll_tick"
)

// Metrics holds the bridge's Prometheus collectors. All of them are
// safe to update from any goroutine.
type Metrics struct {
	packetsSent       *prometheus.CounterVec
	packetsReceived   *prometheus.CounterVec
	sessions          prometheus.Counter
	disconnects       prometheus.Counter
	connected         prometheus.Gauge
	queueRejections   prometheus.Counter
	droppedEvents     *prometheus.CounterVec
	rejectedSamples   prometheus.Counter
	backlogRecords    prometheus.Gauge
	backlogUnsent     prometheus.Gauge
	inboundQueueDepth prometheus.GaugeFunc
}

func newMetrics(registerer prometheus.Registerer, inboundDepth func() float64) (*Metrics, error) {
	m := &Metrics{
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "packets_sent_total",
			Help:      "Packets written to the client, by kind",
		}, []string{"kind"}),

		packetsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "packets_received_total",
			Help:      "Packets read from the client, by kind",
		}, []string{"kind"}),

		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "sessions_total",
			Help:      "Client connections accepted",
		}),

		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "disconnects_total",
			Help:      "Client sessions ended by an I/O or decode failure",
		}),

		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "client_connected",
			Help:      "1 while a client session is active",
		}),

		queueRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "outbound_queue_full_total",
			Help:      "SendEvent calls rejected because the outbound queue was full",
		}),

		droppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "events_dropped_total",
			Help:      "Events discarded without reaching their destination, by reason",
		}, []string{"reason"}),

		rejectedSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "plot_samples_rejected_total",
			Help:      "Plot samples dropped because their shape was unknown or differed from their series",
		}),

		backlogRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "backlog_records",
			Help:      "Log records held in the backlog",
		}),

		backlogUnsent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "robolink",
			Subsystem: "bridge",
			Name:      "backlog_unsent_records",
			Help:      "Backlog records no client has received yet",
		}),
	}
	m.inboundQueueDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "robolink",
		Subsystem: "bridge",
		Name:      "inbound_queue_depth",
		Help:      "Events waiting for PollEvents",
	}, inboundDepth)

	if registerer == nil {
		return m, nil
	}
	var errs []error
	for _, collector := range m.collectors() {
		if err := registerer.Register(collector); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		m.unregister(registerer)
		return nil, err
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.packetsSent,
		m.packetsReceived,
		m.sessions,
		m.disconnects,
		m.connected,
		m.queueRejections,
		m.droppedEvents,
		m.rejectedSamples,
		m.backlogRecords,
		m.backlogUnsent,
		m.inboundQueueDepth,
	}
}

func (m *Metrics) unregister(registerer prometheus.Registerer) {
	if registerer == nil {
		return
	}
	for _, collector := range m.collectors() {
		registerer.Unregister(collector)
	}
}

func (m *Metrics) dropped(reason string) {
	m.droppedEvents.WithLabelValues(reason).Inc()
}
