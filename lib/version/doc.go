// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the codec
// tools.
//
// [GitCommit], [GitDirty] and [BuildTime] may be injected with
// -ldflags -X. Builds that skip the injection report the VCS stamp the
// Go toolchain embeds instead.
//
//	go build -ldflags "-X github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// [Info] formats the one-line --version answer; [Full] adds the
// manifest layout version, the Go version and GOOS/GOARCH.
package version
