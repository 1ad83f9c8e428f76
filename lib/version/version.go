// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the reliquery build.
//
// Version can be overridden at link time:
//
//	go build -ldflags "-X github.com/The-Dev-Effect/reliquery/lib/version.Version=1.2.0" ./cmd/reliquery
//
// The commit comes from the VCS stamp the go command embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the release version.
var Version = "0.1.0-dev"

// Commit returns the short VCS revision, with a "-dirty" suffix for
// builds from a modified tree, or "unknown".
func Commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return commitFrom(info.Settings)
}

func commitFrom(settings []debug.BuildSetting) string {
	revision, modified := "", false
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return "unknown"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified {
		revision += "-dirty"
	}
	return revision
}

// Info returns "<version> (<commit>)".
func Info() string {
	return fmt.Sprintf("%s (%s)", Version, Commit())
}

// Full adds the Go toolchain and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s", Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
