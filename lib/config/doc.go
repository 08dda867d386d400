// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for codec
// endpoints and tools.
//
// Configuration is loaded from a single file specified by either the
// DT_CONFIG environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There are no fallbacks and no automatic file search.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults are stricter: the
// decode policy is strict, so a receiver refuses a sender schema it
// cannot fully store instead of skipping props.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${DT_ROOT}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Codec, Baseline, Paths, Logging
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.EncoderConfig], [Config.DecodePolicy] and
//     [Config.Compression] -- typed views used to build encoders,
//     decoders and baseline stores
package config
