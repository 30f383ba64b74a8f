// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"errors"
	"fmt"
	"time"
)

// Shape identifies the dimensionality of a plot sample. The numbering
// is part of the wire format.
type Shape uint8

const (
	ShapeScalar Shape = 1
	ShapeVec2   Shape = 2
	ShapeVec3   Shape = 3
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeVec2:
		return "vec2"
	case ShapeVec3:
		return "vec3"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the defined shapes.
func (s Shape) Valid() bool {
	return s >= ShapeScalar && s <= ShapeVec3
}

// ErrUnknownShape is returned for samples and buffers whose shape is
// not a defined Shape, such as the zero Sample.
var ErrUnknownShape = errors.New("unknown sample shape")

// ErrShapeMismatch is returned when a sample is appended to a buffer
// of a different shape.
var ErrShapeMismatch = errors.New("sample shape does not match buffer shape")

// Sample is a single plot value: a scalar, a 2-vector, or a 3-vector.
// The zero Sample is invalid.
type Sample struct {
	shape  Shape
	values [3]float64
}

// Scalar returns a one-dimensional sample.
func Scalar(value float64) Sample {
	return Sample{shape: ShapeScalar, values: [3]float64{value}}
}

// Vec2 returns a two-dimensional sample.
func Vec2(value [2]float64) Sample {
	return Sample{shape: ShapeVec2, values: [3]float64{value[0], value[1]}}
}

// Vec3 returns a three-dimensional sample.
func Vec3(value [3]float64) Sample {
	return Sample{shape: ShapeVec3, values: value}
}

// Shape returns the sample's dimensionality.
func (s Sample) Shape() Shape { return s.shape }

// ScalarValue returns the value of a scalar sample.
func (s Sample) ScalarValue() float64 { return s.values[0] }

// Vec2Value returns the value of a 2-vector sample.
func (s Sample) Vec2Value() [2]float64 { return [2]float64{s.values[0], s.values[1]} }

// Vec3Value returns the value of a 3-vector sample.
func (s Sample) Vec3Value() [3]float64 { return s.values }

func (s Sample) String() string {
	switch s.shape {
	case ShapeScalar:
		return fmt.Sprintf("scalar(%g)", s.values[0])
	case ShapeVec2:
		return fmt.Sprintf("vec2(%g, %g)", s.values[0], s.values[1])
	case ShapeVec3:
		return fmt.Sprintf("vec3(%g, %g, %g)", s.values[0], s.values[1], s.values[2])
	default:
		return "invalid sample"
	}
}

// ScalarPoint is a scalar sample and the time it was taken, relative
// to the start of its series.
type ScalarPoint struct {
	_       struct{} `cbor:",toarray"`
	Elapsed time.Duration
	Value   float64
}

// Vec2Point is a 2-vector sample with its relative time.
type Vec2Point struct {
	_       struct{} `cbor:",toarray"`
	Elapsed time.Duration
	Value   [2]float64
}

// Vec3Point is a 3-vector sample with its relative time.
type Vec3Point struct {
	_       struct{} `cbor:",toarray"`
	Elapsed time.Duration
	Value   [3]float64
}

// Buffer is a batch of timed samples that all share one shape. Only
// the slice matching Shape is populated.
type Buffer struct {
	Shape  Shape         `cbor:"shape"`
	Scalar []ScalarPoint `cbor:"scalar,omitempty"`
	Vec2   []Vec2Point   `cbor:"vec2,omitempty"`
	Vec3   []Vec3Point   `cbor:"vec3,omitempty"`
}

// NewBuffer returns an empty buffer of the given shape.
func NewBuffer(shape Shape) Buffer {
	return Buffer{Shape: shape}
}

// Len returns the number of samples in the buffer.
func (b *Buffer) Len() int {
	switch b.Shape {
	case ShapeScalar:
		return len(b.Scalar)
	case ShapeVec2:
		return len(b.Vec2)
	case ShapeVec3:
		return len(b.Vec3)
	default:
		return 0
	}
}

// Append adds sample at elapsed. It returns ErrUnknownShape for an
// invalid sample, or ErrShapeMismatch if the sample's shape differs
// from the buffer's. Either way the buffer is unchanged.
func (b *Buffer) Append(elapsed time.Duration, sample Sample) error {
	if !sample.Shape().Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownShape, sample.Shape())
	}
	if sample.Shape() != b.Shape {
		return fmt.Errorf("%w: buffer is %s, sample is %s", ErrShapeMismatch, b.Shape, sample.Shape())
	}
	switch b.Shape {
	case ShapeScalar:
		b.Scalar = append(b.Scalar, ScalarPoint{Elapsed: elapsed, Value: sample.ScalarValue()})
	case ShapeVec2:
		b.Vec2 = append(b.Vec2, Vec2Point{Elapsed: elapsed, Value: sample.Vec2Value()})
	case ShapeVec3:
		b.Vec3 = append(b.Vec3, Vec3Point{Elapsed: elapsed, Value: sample.Vec3Value()})
	}
	return nil
}

// Take returns the buffer's contents and leaves it empty with the same
// shape. The returned Buffer does not share storage with b.
func (b *Buffer) Take() Buffer {
	taken := *b
	b.Scalar = nil
	b.Vec2 = nil
	b.Vec3 = nil
	return taken
}

// Validate checks that the shape is known and that no slice other than
// the one matching the shape holds samples.
func (b *Buffer) Validate() error {
	switch b.Shape {
	case ShapeScalar:
		if len(b.Vec2) > 0 || len(b.Vec3) > 0 {
			return fmt.Errorf("scalar buffer carries vector samples")
		}
	case ShapeVec2:
		if len(b.Scalar) > 0 || len(b.Vec3) > 0 {
			return fmt.Errorf("vec2 buffer carries samples of another shape")
		}
	case ShapeVec3:
		if len(b.Scalar) > 0 || len(b.Vec2) > 0 {
			return fmt.Errorf("vec3 buffer carries samples of another shape")
		}
	default:
		return fmt.Errorf("unknown buffer %s", b.Shape)
	}
	return nil
}
