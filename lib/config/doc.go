// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the robolink
// binaries.
//
// Configuration is loaded from a single file specified by either the
// ROBOLINK_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search. A binary
// started with neither uses [Resolved], the defaults.
//
// The file may carry development and production sections that
// override base values when [Config].Environment matches. Production
// without its own section forwards logs at info instead of debug.
//
// Address, name, and target fields expand ${VAR} and ${VAR:-default}
// after loading; ${HOSTNAME} falls back to the host name when the
// variable is unset. Durations are Go duration strings ("250ms").
//
// [Config.BridgeConfig] and [Config.MonitorOptions] convert the file
// sections into the settings of lib/bridge and lib/monitor.
package config
