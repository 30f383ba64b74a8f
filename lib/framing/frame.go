// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framing

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// HeaderSize is the size of the length prefix.
const HeaderSize = 4

// DefaultMaxFrameSize bounds the payload a reader will accept. A 1000
// sample vec3 buffer is well under 64 KB; 16 MB leaves room for large
// path uploads while still refusing a corrupt length.
const DefaultMaxFrameSize = 16 * 1024 * 1024

// Encoder serializes a value into a frame payload.
type Encoder[T any] func(T) ([]byte, error)

// Decoder parses a frame payload into a value.
type Decoder[T any] func([]byte) (T, error)

// Send encodes value and writes it to w as a single frame.
func Send[T any](w io.Writer, value T, encode Encoder[T]) error {
	payload, err := encode(value)
	if err != nil {
		return &EncodeError{Err: err}
	}
	return WriteFrame(w, payload)
}

// WriteFrame writes payload to w behind its length prefix. Header and
// payload go out in one Write.
func WriteFrame(w io.Writer, payload []byte) error {
	if err := checkLength(uint64(len(payload))); err != nil {
		return &EncodeError{Err: err}
	}
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[:HeaderSize], uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	if _, err := w.Write(frame); err != nil {
		return &IOError{Op: "write frame", Err: err}
	}
	return nil
}

func checkLength(length uint64) error {
	if length > math.MaxUint32 {
		return fmt.Errorf("%w: payload is %d bytes, limit is %d", ErrFrameTooLarge, length, uint64(math.MaxUint32))
	}
	return nil
}

// ReadFrame reads one frame from r and returns its payload. It blocks
// until the whole frame has arrived. A maxSize of 0 or less means
// DefaultMaxFrameSize.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, &IOError{Op: "read frame header", Err: err}
	}

	length := binary.BigEndian.Uint32(header[:])
	if uint64(length) > uint64(maxSize) {
		return nil, &DecodeError{Err: fmt.Errorf("%w: announced %d bytes, limit is %d", ErrFrameTooLarge, length, maxSize)}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, &IOError{Op: "read frame payload", Err: err}
	}
	return payload, nil
}

// Receive reads one frame from r and decodes it.
func Receive[T any](r io.Reader, maxSize int, decode Decoder[T]) (T, error) {
	payload, err := ReadFrame(r, maxSize)
	if err != nil {
		var zero T
		return zero, err
	}
	value, err := decode(payload)
	if err != nil {
		var zero T
		return zero, &DecodeError{Err: err}
	}
	return value, nil
}
