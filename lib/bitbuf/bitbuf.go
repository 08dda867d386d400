// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bitbuf

import (
	"errors"
	"math"
)

// ErrOverflow is reported when a write or read crosses the end of the
// stream.
var ErrOverflow = errors.New("bitbuf: stream overflow")

// Fixed-point encoding constants. These are wire constants: changing any
// of them breaks compatibility with every recorded or in-flight stream.
const (
	CoordIntegerBits    = 14
	CoordFractionalBits = 5
	CoordDenominator    = 1 << CoordFractionalBits
	CoordResolution     = 1.0 / CoordDenominator

	// CoordMax is the largest magnitude a Coord or CoordMP value can
	// carry.
	CoordMax = 1 << CoordIntegerBits

	CoordIntegerBitsMP                = 11
	CoordFractionalBitsMPLowPrecision = 3
	CoordDenominatorLowPrecision      = 1 << CoordFractionalBitsMPLowPrecision
	CoordResolutionLowPrecision       = 1.0 / CoordDenominatorLowPrecision

	NormalFractionalBits = 11
	NormalDenominator    = (1 << NormalFractionalBits) - 1
	NormalResolution     = 1.0 / NormalDenominator
)

// CoordType selects the precision tier for CoordMP and CellCoord
// encodings.
type CoordType uint8

const (
	// CoordFull carries 5 fraction bits.
	CoordFull CoordType = iota

	// CoordLowPrecision carries 3 fraction bits.
	CoordLowPrecision

	// CoordIntegral carries no fraction bits.
	CoordIntegral
)

// String returns the tier name.
func (t CoordType) String() string {
	switch t {
	case CoordFull:
		return "full"
	case CoordLowPrecision:
		return "low_precision"
	case CoordIntegral:
		return "integral"
	default:
		return "unknown"
	}
}

func (t CoordType) fractionalBits() int {
	if t == CoordLowPrecision {
		return CoordFractionalBitsMPLowPrecision
	}
	return CoordFractionalBits
}

func (t CoordType) resolution() float32 {
	if t == CoordLowPrecision {
		return CoordResolutionLowPrecision
	}
	return CoordResolution
}

func (t CoordType) denominator() int {
	if t == CoordLowPrecision {
		return CoordDenominatorLowPrecision
	}
	return CoordDenominator
}

func abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}

// BitsForVarInt32 returns the encoded size of v as an unsigned varint.
func BitsForVarInt32(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n * 8
}

// ZigZag32 maps signed values onto unsigned ones so small magnitudes of
// either sign stay short.
func ZigZag32(n int32) uint32 {
	return uint32(n<<1) ^ uint32(n>>31)
}

// UnZigZag32 reverses [ZigZag32].
func UnZigZag32(n uint32) int32 {
	return int32(n>>1) ^ -int32(n&1)
}

// ZigZag64 is the 64-bit form of [ZigZag32].
func ZigZag64(n int64) uint64 {
	return uint64(n<<1) ^ uint64(n>>63)
}

// UnZigZag64 reverses [ZigZag64].
func UnZigZag64(n uint64) int64 {
	return int64(n>>1) ^ -int64(n&1)
}
