// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by the robolink
// binaries. They cover the one place raw stderr output is legitimate:
// reporting an error from run() when the structured logger may not
// exist yet, then exiting.
package process
