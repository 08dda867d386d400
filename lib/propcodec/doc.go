// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package propcodec encodes and decodes individual property values on
// a [bitbuf] stream.
//
// Every wire type has one [Codec], found with [For]. A codec writes the
// payload of one prop, reads it back, skips it without materializing a
// value, compares two encoded payloads, and recognizes zero values so
// the pipelines can omit them. Skip always consumes exactly as many
// bits as Decode, which is what lets [Codec.CompareDeltas] and the
// delta calculator treat encoded props as opaque bit ranges.
//
// Float encodings are selected by flags in this order: Coord, the
// CoordMP tiers, NoScale, Normal, the CellCoord tiers, and finally
// quantization of [Low, High] into Bits bits. A quantized prop with no
// usable range or width falls back to NoScale.
//
// Out-of-range values are clamped and logged at warn level unless the
// prop sets RoundDown or RoundUp. Oversized strings and arrays are
// truncated with a warning. Codecs never fail: stream overflow is
// recorded on the reader or writer.
package propcodec
