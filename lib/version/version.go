// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for cdr-server and
// cdr-client.
//
// Release builds set the variables with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/cdrbill/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/cdr-server
//
// Builds without ldflags fall back to the VCS stamp the Go toolchain
// embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the release version.
	Version = "0.1.0-dev"

	// GitCommit is the short commit hash.
	GitCommit = "unknown"

	// GitDirty is "true" for a build from a modified tree.
	GitDirty = "false"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Info returns "<version> (<commit>[-dirty], <build time>)".
func Info() string {
	commit, dirty, built := GitCommit, GitDirty == "true", BuildTime
	if commit == "unknown" {
		commit, dirty, built = fromBuildInfo(built)
	}
	suffix := ""
	if dirty {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, suffix, built)
}

// fromBuildInfo reads the toolchain's vcs settings.
func fromBuildInfo(built string) (commit string, dirty bool, buildTime string) {
	commit, buildTime = "unknown", built
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, false, buildTime
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		case "vcs.time":
			if buildTime == "unknown" {
				buildTime = setting.Value
			}
		}
	}
	return commit, dirty, buildTime
}

// Banner is the --version line: binary name, Info, toolchain and
// platform.
func Banner(binary string) string {
	return fmt.Sprintf("%s %s %s %s/%s", binary, Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
