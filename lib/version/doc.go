// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the robolink binaries.
//
// Three variables are injected at build time via -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// They default to "unknown" / "0.1.0-dev" in development builds and
// test runs. [Info] formats them for --version; [Full] adds the Go
// toolchain and platform. [Protocol] is the wire protocol revision the
// binaries speak, reported alongside so that a monitor and robot from
// different builds can be matched up.
package version
