// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Robolink-monitor connects to a robot's bridge and prints what it
// sends: log records, pongs with their round-trip time, paths, and a
// summary line per plot batch. It pings the robot and requests unsent
// logs on the configured intervals, and reconnects with backoff when
// the robot goes away.
//
// With --path, a YAML path file is uploaded after every connect; see
// loadPathFile for the format.
package main
