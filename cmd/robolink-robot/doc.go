// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Robolink-robot is a simulated robot controller built on lib/bridge.
// It accepts one monitor at a time on the bridge port, forwards its
// logs, plots its pose and velocity, answers pings, and follows paths
// uploaded by the monitor (echoing each accepted path back).
//
// Configuration comes from --config, else $ROBOLINK_CONFIG, else
// built-in defaults; flags override the file. With --metrics-address
// the bridge's Prometheus metrics are served at /metrics.
package main
