// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bitbuf implements the bit-granular stream that every datatable
// payload is written to and read from.
//
// Bits are packed least-significant first: bit N of the stream is bit
// N%8 of byte N/8. Reading the stream as little-endian 32-bit words
// therefore places bit N at bit N%32 of word N/32, which the fast delta
// comparison relies on.
//
// Besides fixed-width signed and unsigned fields the package provides
// the specialized numeric encodings used by property codecs:
//
//   - Coord: 14 integer bits + 5 fraction bits with presence flags.
//   - CoordMP: multiplayer coordinates with an 11-bit in-bounds tier and
//     low-precision (3 fraction bits) and integral variants.
//   - CellCoord: unsigned cell-relative coordinates of caller-supplied
//     integer width.
//   - Normal: a sign bit and 11 fraction bits for values in [-1, 1].
//   - VarInt: 7-bit groups with continuation, zig-zag for signed values.
//   - UBitVar: 2 tier bits selecting a 4, 8, 12 or 32 bit payload.
//
// A [Writer] either grows on demand or is bounded by a caller buffer.
// Writing or reading past the end never panics: the stream records an
// overflow, further operations are ignored (reads return zero), and
// [Writer.Err] / [Reader.Err] report [ErrOverflow]. Neither type is safe
// for concurrent use.
package bitbuf
