// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides robolink's standard CBOR encoding configuration.
//
// Every packet that crosses the robot↔monitor TCP connection is a CBOR
// value wrapped in a length-prefixed frame (see lib/framing). This
// package holds the shared encoding and decoding modes so that the
// robot side (lib/bridge) and the monitor side (lib/monitor) encode
// identically without duplicating configuration. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items.
//
// For buffer-oriented operations (one frame payload at a time):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Opaque application payloads (robot paths) travel as [RawMessage]:
// the bridge forwards the bytes without decoding them, and only the
// application at either end interprets them.
//
// # Struct Tag Rules
//
// Wire types use `cbor` tags with short, stable key names. Keys are
// part of the protocol: renaming one is a breaking change for every
// deployed monitor.
package codec
