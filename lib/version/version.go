// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time:
//
//	go build -ldflags "-X github.com/bureau-foundation/robolink/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version.
	Version = "0.1.0-dev"
)

// Protocol is the wire protocol revision. It changes only when a
// packet tag is added; tags are never reassigned.
const Protocol = 3

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s%s, %s, protocol %d)", Version, commit(), dirtySuffix(), BuildTime, Protocol)
}

// Full returns Info plus the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// commit prefers the injected commit and falls back to the VCS
// revision the Go toolchain stamps into module builds.
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if revision, ok := buildSetting("vcs.revision"); ok && len(revision) >= 7 {
		return revision[:7]
	}
	return GitCommit
}

func dirtySuffix() string {
	if modified, ok := buildSetting("vcs.modified"); ok && modified == "true" {
		return "-dirty"
	}
	return ""
}

func buildSetting(key string) (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value, true
		}
	}
	return "", false
}
