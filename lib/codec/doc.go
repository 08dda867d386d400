// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the module's CBOR encoding configuration.
//
// CBOR carries everything this module persists or exchanges outside
// the bit stream itself: schema manifests sent from sender to receiver,
// serialized entities, and exported baselines. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2), so the same manifest always
// produces identical bytes and manifest fingerprints can hash the
// encoding directly. The decoder rejects duplicate map keys and bounds
// nesting and collection sizes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types stored only as CBOR use `cbor` struct tags. Types that also
// appear in JSON use `json` tags, which fxamacker/cbor reads as a
// fallback. Never put both on one field.
package codec
