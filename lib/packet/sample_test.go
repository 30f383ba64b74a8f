// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"errors"
	"testing"
	"time"
)

func TestSampleAccessors(t *testing.T) {
	if got := Scalar(2.5); got.Shape() != ShapeScalar || got.ScalarValue() != 2.5 {
		t.Errorf("Scalar(2.5) = %v", got)
	}
	if got := Vec2([2]float64{1, 2}); got.Shape() != ShapeVec2 || got.Vec2Value() != [2]float64{1, 2} {
		t.Errorf("Vec2 = %v", got)
	}
	if got := Vec3([3]float64{1, 2, 3}); got.Shape() != ShapeVec3 || got.Vec3Value() != [3]float64{1, 2, 3} {
		t.Errorf("Vec3 = %v", got)
	}
	var zero Sample
	if zero.String() != "invalid sample" {
		t.Errorf("zero Sample String() = %q", zero.String())
	}
}

func TestBufferAppendAndTake(t *testing.T) {
	buffer := NewBuffer(ShapeVec2)
	for i := range 3 {
		if err := buffer.Append(time.Duration(i)*time.Millisecond, Vec2([2]float64{float64(i), 0})); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if buffer.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", buffer.Len())
	}

	taken := buffer.Take()
	if taken.Len() != 3 {
		t.Errorf("taken Len() = %d, want 3", taken.Len())
	}
	if buffer.Len() != 0 {
		t.Errorf("Len() after Take = %d, want 0", buffer.Len())
	}
	if buffer.Shape != ShapeVec2 {
		t.Errorf("Take changed shape to %s", buffer.Shape)
	}

	// Appending after Take must not write into the taken batch.
	buffer.Append(5*time.Millisecond, Vec2([2]float64{9, 9}))
	if taken.Vec2[0].Value != [2]float64{0, 0} {
		t.Errorf("taken batch mutated: %v", taken.Vec2)
	}
}

func TestBufferRejectsShapeMismatch(t *testing.T) {
	buffer := NewBuffer(ShapeScalar)
	buffer.Append(0, Scalar(1))

	err := buffer.Append(time.Millisecond, Vec3([3]float64{1, 2, 3}))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("Append(vec3) error = %v, want ErrShapeMismatch", err)
	}
	if buffer.Len() != 1 {
		t.Errorf("Len() = %d after rejected append, want 1", buffer.Len())
	}
}

func TestLevelStrings(t *testing.T) {
	tests := map[Level]string{
		LevelError: "ERROR",
		LevelWarn:  "WARN",
		LevelInfo:  "INFO",
		LevelDebug: "DEBUG",
		LevelTrace: "TRACE",
		Level(0):   "LEVEL(0)",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
	if Level(0).Valid() || Level(6).Valid() {
		t.Error("out-of-range levels reported valid")
	}
}

func TestLogRecordTime(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 123, time.UTC)
	record := NewLogRecord(LevelInfo, "main", "hello", at)
	if !record.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", record.Time(), at)
	}
}

func TestBufferRejectsZeroSample(t *testing.T) {
	buffer := NewBuffer(ShapeScalar)

	err := buffer.Append(0, Sample{})
	if !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("Append(Sample{}) error = %v, want ErrUnknownShape", err)
	}
	if buffer.Len() != 0 {
		t.Errorf("Len() = %d after rejected append, want 0", buffer.Len())
	}
	if (Sample{}).Shape().Valid() {
		t.Error("zero Sample reports a valid shape")
	}
	for _, shape := range []Shape{ShapeScalar, ShapeVec2, ShapeVec3} {
		if !shape.Valid() {
			t.Errorf("%s.Valid() = false", shape)
		}
	}
}
