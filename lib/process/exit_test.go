// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestSucceeded(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"canceled", context.Canceled, true},
		{"wrapped canceled", fmt.Errorf("listener: %w", context.Canceled), true},
		{"deadline", context.DeadlineExceeded, false},
		{"failure", errors.New("bind: address in use"), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Succeeded(test.err); got != test.want {
				t.Errorf("Succeeded(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestReportFormat(t *testing.T) {
	var out bytes.Buffer
	report(&out, errors.New("boom"))
	if got := out.String(); got != "error: boom\n" {
		t.Errorf("report wrote %q, want %q", got, "error: boom\n")
	}
}
