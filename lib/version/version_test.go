// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	savedCommit, savedDirty, savedTime := GitCommit, GitDirty, BuildTime
	t.Cleanup(func() { GitCommit, GitDirty, BuildTime = savedCommit, savedDirty, savedTime })

	GitCommit, GitDirty, BuildTime = "abc1234", "true", "2026-10-16T00:00:00Z"
	if got, want := Info(), Version+" (abc1234-dirty, 2026-10-16T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	GitDirty = "false"
	if got := Info(); strings.Contains(got, "dirty") {
		t.Errorf("Info() = %q for a clean build", got)
	}
}

func TestFromSettings(t *testing.T) {
	b := fromSettings(build{}, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		{Key: "GOOS", Value: "linux"},
	})
	if got, want := b.String(), Version+" (0123456789ab-dirty, 2026-10-01T12:00:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	// An injected build time wins over the VCS time.
	b = fromSettings(build{time: "injected"}, []debug.BuildSetting{{Key: "vcs.time", Value: "vcs"}})
	if b.time != "injected" {
		t.Errorf("time = %q, want injected", b.time)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) || !strings.Contains(full, "Manifest: v1") {
		t.Errorf("Full() = %q", full)
	}
	if Short() != Version {
		t.Errorf("Short() = %q", Short())
	}
}
