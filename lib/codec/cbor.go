// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding. Same logical packet always produces identical bytes, which
// keeps frame lengths stable for a given value.
var encMode cbor.EncMode

// decMode is the CBOR decoder. Unknown map keys are ignored so that a
// newer robot can add fields without breaking an older monitor.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Plot samples are float64. Shortest-float encoding would turn 0.5
	// into a half-precision value, which decodes back to the same
	// float64 but makes frame sizes data-dependent. Keep full width.
	encOptions.ShortestFloat = cbor.ShortestFloatNone
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Monitors decoding into any (diagnostic tooling) get
		// map[string]any rather than map[interface{}]interface{}.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// A single frame is bounded by the framing layer, but a
		// hostile payload could still nest deeply. Cap it.
		MaxNestedLevels: 32,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Valid reports whether data is exactly one well-formed CBOR item.
func Valid(data []byte) error {
	return decMode.Wellformed(data)
}

// RawMessage is a raw encoded CBOR value. The bridge uses it for
// payloads it carries without interpreting (robot paths).
type RawMessage = cbor.RawMessage

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for
// data. The monitor prints this for payloads it has no decoder for.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
