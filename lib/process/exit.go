// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run().
func Fatal(err error) {
	report(os.Stderr, err)
	os.Exit(1)
}

// Exit ends the process with the outcome of run(). A nil error or a
// context cancellation (the usual result of SIGINT) exits 0; anything
// else goes through Fatal.
func Exit(err error) {
	if Succeeded(err) {
		os.Exit(0)
	}
	Fatal(err)
}

// Succeeded reports whether err counts as a clean shutdown.
func Succeeded(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
