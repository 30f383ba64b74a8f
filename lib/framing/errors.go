// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framing

import (
	"errors"
	"fmt"
)

// ErrFrameTooLarge is wrapped by EncodeError when a payload does not
// fit a 32-bit length, and by DecodeError when an announced length
// exceeds the reader's maximum.
var ErrFrameTooLarge = errors.New("frame too large")

// EncodeError reports that a value could not be turned into a frame.
// Nothing was written to the stream.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode frame: %v", e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports that a frame was read but its contents were
// unusable. The stream is positioned after the frame (or, for an
// oversize length, after the header) and should be abandoned.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode frame: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// IOError reports a failure of the underlying connection. Op names the
// step that failed.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }
