// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bitbuf

import (
	"math"
)

// Reader consumes bits from a byte buffer.
type Reader struct {
	data     []byte
	bits     int
	position int
	overflow bool
}

// NewReader returns a reader over the first bits bits of data. A
// negative bits reads the whole buffer.
func NewReader(data []byte, bits int) *Reader {
	if bits < 0 || bits > len(data)*8 {
		bits = len(data) * 8
	}
	return &Reader{data: data, bits: bits}
}

// Tell returns the read cursor in bits.
func (r *Reader) Tell() int {
	return r.position
}

// Len returns the stream length in bits.
func (r *Reader) Len() int {
	return r.bits
}

// BitsLeft returns the number of unread bits.
func (r *Reader) BitsLeft() int {
	return r.bits - r.position
}

// Overflowed reports whether any read crossed the end of the stream.
func (r *Reader) Overflowed() bool {
	return r.overflow
}

// Err returns [ErrOverflow] once the reader has overflowed.
func (r *Reader) Err() error {
	if r.overflow {
		return ErrOverflow
	}
	return nil
}

// SeekToBit moves the read cursor to an absolute position.
func (r *Reader) SeekToBit(bit int) bool {
	if bit < 0 || bit > r.bits {
		r.overflow = true
		r.position = r.bits
		return false
	}
	r.position = bit
	return true
}

// SeekRelative moves the read cursor by delta bits.
func (r *Reader) SeekRelative(delta int) bool {
	return r.SeekToBit(r.position + delta)
}

func (r *Reader) take(count int) bool {
	if r.overflow {
		return false
	}
	if r.position+count > r.bits {
		r.overflow = true
		r.position = r.bits
		return false
	}
	return true
}

// ReadUBit64 reads an unsigned field of count bits, 0 <= count <= 64.
func (r *Reader) ReadUBit64(count int) uint64 {
	if count <= 0 || !r.take(count) {
		return 0
	}
	var value uint64
	got := 0
	for got < count {
		byteIndex := r.position >> 3
		bitOffset := r.position & 7
		take := min(8-bitOffset, count-got)
		chunk := uint64(r.data[byteIndex]>>bitOffset) & ((1 << take) - 1)
		value |= chunk << got
		got += take
		r.position += take
	}
	return value
}

// ReadUBitLong reads an unsigned field of count bits, 0 <= count <= 32.
func (r *Reader) ReadUBitLong(count int) uint32 {
	return uint32(r.ReadUBit64(count))
}

// ReadSBitLong reads a two's complement field of count bits.
func (r *Reader) ReadSBitLong(count int) int32 {
	return int32(r.ReadSBit64(count))
}

// ReadSBit64 reads a two's complement field of count bits and sign
// extends it.
func (r *Reader) ReadSBit64(count int) int64 {
	if count <= 0 {
		return 0
	}
	value := r.ReadUBit64(count)
	if count < 64 {
		shift := 64 - count
		return int64(value<<shift) >> shift
	}
	return int64(value)
}

// ReadOneBit reads a single flag bit.
func (r *Reader) ReadOneBit() bool {
	return r.ReadUBit64(1) != 0
}

// ReadBytes reads count whole bytes at the current bit position.
func (r *Reader) ReadBytes(count int) []byte {
	if count < 0 || !r.take(count*8) {
		return nil
	}
	out := make([]byte, count)
	if r.position&7 == 0 {
		start := r.position >> 3
		copy(out, r.data[start:start+count])
		r.position += count * 8
		return out
	}
	for i := range out {
		out[i] = byte(r.ReadUBit64(8))
	}
	return out
}

// CompareBits consumes count bits from both readers and reports
// whether they differ.
func (r *Reader) CompareBits(other *Reader, count int) bool {
	differ := false
	for count > 0 {
		take := min(count, 64)
		if r.ReadUBit64(take) != other.ReadUBit64(take) {
			differ = true
		}
		count -= take
	}
	return differ || r.overflow != other.overflow
}

// ReadBitFloat reads raw IEEE-754 bits.
func (r *Reader) ReadBitFloat() float32 {
	return math.Float32frombits(r.ReadUBitLong(32))
}

// ReadVarInt32 reads a varint written by [Writer.WriteVarInt32]. At
// most five bytes are consumed.
func (r *Reader) ReadVarInt32() uint32 {
	var value uint32
	for shift := 0; shift < 35; shift += 7 {
		b := r.ReadUBitLong(8)
		value |= (b & 0x7f) << shift
		if b&0x80 == 0 || r.overflow {
			break
		}
	}
	return value
}

// ReadVarInt64 reads a varint written by [Writer.WriteVarInt64]. At
// most ten bytes are consumed.
func (r *Reader) ReadVarInt64() uint64 {
	var value uint64
	for shift := 0; shift < 70; shift += 7 {
		b := r.ReadUBit64(8)
		value |= (b & 0x7f) << shift
		if b&0x80 == 0 || r.overflow {
			break
		}
	}
	return value
}

// ReadSignedVarInt32 reads a zig-zag encoded varint.
func (r *Reader) ReadSignedVarInt32() int32 {
	return UnZigZag32(r.ReadVarInt32())
}

// ReadSignedVarInt64 reads a zig-zag encoded varint.
func (r *Reader) ReadSignedVarInt64() int64 {
	return UnZigZag64(r.ReadVarInt64())
}

// ReadUBitVar reads a value written by [Writer.WriteUBitVar].
func (r *Reader) ReadUBitVar() uint32 {
	switch r.ReadUBitLong(2) {
	case 0:
		return r.ReadUBitLong(4)
	case 1:
		return r.ReadUBitLong(8)
	case 2:
		return r.ReadUBitLong(12)
	default:
		return r.ReadUBitLong(32)
	}
}

// ReadBitCoord reads a value written by [Writer.WriteBitCoord].
func (r *Reader) ReadBitCoord() float32 {
	hasInteger := r.ReadOneBit()
	hasFraction := r.ReadOneBit()
	if !hasInteger && !hasFraction {
		return 0
	}
	negative := r.ReadOneBit()
	var integer, fraction uint32
	if hasInteger {
		integer = r.ReadUBitLong(CoordIntegerBits) + 1
	}
	if hasFraction {
		fraction = r.ReadUBitLong(CoordFractionalBits)
	}
	value := float32(integer) + float32(fraction)*CoordResolution
	if negative {
		value = -value
	}
	return value
}

// ReadBitCoordMP reads a value written by [Writer.WriteBitCoordMP].
func (r *Reader) ReadBitCoordMP(coordType CoordType) float32 {
	inBounds := r.ReadOneBit()
	hasInteger := r.ReadOneBit()
	integerBits := CoordIntegerBits
	if inBounds {
		integerBits = CoordIntegerBitsMP
	}

	if coordType == CoordIntegral {
		if !hasInteger {
			return 0
		}
		negative := r.ReadOneBit()
		value := float32(r.ReadUBitLong(integerBits) + 1)
		if negative {
			value = -value
		}
		return value
	}

	negative := r.ReadOneBit()
	var integer uint32
	if hasInteger {
		integer = r.ReadUBitLong(integerBits) + 1
	}
	fraction := r.ReadUBitLong(coordType.fractionalBits())
	value := float32(integer) + float32(fraction)*coordType.resolution()
	if negative {
		value = -value
	}
	return value
}

// ReadBitCellCoord reads a value written by [Writer.WriteBitCellCoord].
func (r *Reader) ReadBitCellCoord(integerBits int, coordType CoordType) float32 {
	integer := r.ReadUBitLong(integerBits)
	if coordType == CoordIntegral {
		return float32(integer)
	}
	fraction := r.ReadUBitLong(coordType.fractionalBits())
	return float32(integer) + float32(fraction)*coordType.resolution()
}

// ReadBitNormal reads a value written by [Writer.WriteBitNormal].
func (r *Reader) ReadBitNormal() float32 {
	negative := r.ReadOneBit()
	fraction := r.ReadUBitLong(NormalFractionalBits)
	value := float32(fraction) * NormalResolution
	if negative {
		value = -value
	}
	return value
}
