// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags -X. Empty values fall back to the VCS stamp the Go
// toolchain embeds in the binary, then to "unknown".
var (
	GitCommit string
	GitDirty  string
	BuildTime string

	// Version is bumped by hand for releases.
	Version = "0.1.0-dev"
)

// ManifestVersion is the schema manifest layout this build writes.
// It is reported by Full so mismatched endpoints are easy to spot.
const ManifestVersion = 1

// build is what the binary knows about its own checkout.
type build struct {
	commit string
	dirty  bool
	time   string
}

func current() build {
	b := build{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	if b.commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			b = fromSettings(b, info.Settings)
		}
	}
	if b.commit == "" {
		b.commit = "unknown"
	}
	if b.time == "" {
		b.time = "unknown"
	}
	return b
}

func fromSettings(b build, settings []debug.BuildSetting) build {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			b.commit = setting.Value
			if len(b.commit) > 12 {
				b.commit = b.commit[:12]
			}
		case "vcs.modified":
			b.dirty = setting.Value == "true"
		case "vcs.time":
			if b.time == "" {
				b.time = setting.Value
			}
		}
	}
	return b
}

func (b build) String() string {
	dirty := ""
	if b.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, b.commit, dirty, b.time)
}

// Info returns the one-line version answer.
func Info() string {
	return current().String()
}

// Full adds the manifest layout, Go version and platform to [Info].
func Full() string {
	return fmt.Sprintf("%s\n  Manifest: v%d\n  Go: %s\n  Platform: %s/%s",
		Info(), ManifestVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}
