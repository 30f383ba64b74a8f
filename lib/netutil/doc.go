// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies connection errors. A monitor that closes
// its window, loses Wi-Fi, or is killed mid-frame produces one of a
// small set of errors on the robot side; IsExpectedCloseError tells
// those apart from failures worth reporting in full.
package netutil
