// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind dtinspect: a tree
// of [Command] values with pflag-parsed flags, typo suggestions for
// unknown commands and flags, structured help output, and a logger
// that matches the output stream it writes to.
package cli
