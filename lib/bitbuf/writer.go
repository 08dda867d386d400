// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bitbuf

import (
	"math"
)

// Writer appends bits to a byte buffer.
type Writer struct {
	data []byte

	// position is the current write cursor in bits. end is the high-water
	// mark: seeking backwards and overwriting does not shrink the stream.
	position int
	end      int

	// maxBits bounds the stream for fixed writers. Negative means the
	// buffer grows on demand.
	maxBits int

	overflow bool
}

// NewWriter returns a growable writer with room for sizeHint bytes
// before its first reallocation.
func NewWriter(sizeHint int) *Writer {
	return &Writer{
		data:    make([]byte, 0, sizeHint),
		maxBits: -1,
	}
}

// NewFixedWriter returns a writer bounded by buffer. Existing contents
// are preserved so that a caller can seek into the buffer and overwrite
// a bit range in place; the high-water mark starts at the end of the
// buffer.
func NewFixedWriter(buffer []byte) *Writer {
	return &Writer{
		data:    buffer,
		end:     len(buffer) * 8,
		maxBits: len(buffer) * 8,
	}
}

// Reset empties the writer, keeping its allocation.
func (w *Writer) Reset() {
	if w.maxBits < 0 {
		w.data = w.data[:0]
		w.end = 0
	}
	w.position = 0
	w.overflow = false
}

// Tell returns the write cursor in bits.
func (w *Writer) Tell() int {
	return w.position
}

// BitsWritten returns the stream length in bits (the high-water mark).
func (w *Writer) BitsWritten() int {
	return w.end
}

// BytesWritten returns the stream length rounded up to whole bytes.
func (w *Writer) BytesWritten() int {
	return (w.end + 7) >> 3
}

// Bytes returns the written stream. The final byte is zero-padded.
// The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.data[:w.BytesWritten()]
}

// Overflowed reports whether any write crossed the end of a fixed
// buffer.
func (w *Writer) Overflowed() bool {
	return w.overflow
}

// Err returns [ErrOverflow] once the writer has overflowed.
func (w *Writer) Err() error {
	if w.overflow {
		return ErrOverflow
	}
	return nil
}

// SeekToBit moves the write cursor. Seeking past the high-water mark of
// a growable writer extends the stream with zero bits.
func (w *Writer) SeekToBit(bit int) {
	if bit < 0 {
		w.overflow = true
		return
	}
	if !w.reserve(bit - w.position) {
		return
	}
	w.position = bit
	if w.position > w.end {
		w.end = w.position
	}
}

// reserve ensures count more bits fit after the cursor.
func (w *Writer) reserve(count int) bool {
	if w.overflow {
		return false
	}
	need := w.position + count
	if w.maxBits >= 0 {
		if need > w.maxBits {
			w.overflow = true
			return false
		}
		return true
	}
	needBytes := (need + 7) >> 3
	if needBytes > len(w.data) {
		if needBytes > cap(w.data) {
			grown := make([]byte, len(w.data), max(needBytes, 2*cap(w.data), 64))
			copy(grown, w.data)
			w.data = grown
		}
		w.data = w.data[:needBytes]
	}
	return true
}

// WriteUBit64 writes the low count bits of value, 0 <= count <= 64.
func (w *Writer) WriteUBit64(value uint64, count int) {
	if count <= 0 {
		return
	}
	if count < 64 {
		value &= (uint64(1) << count) - 1
	}
	if !w.reserve(count) {
		return
	}
	for count > 0 {
		byteIndex := w.position >> 3
		bitOffset := w.position & 7
		take := min(8-bitOffset, count)
		mask := byte(((1 << take) - 1) << bitOffset)
		w.data[byteIndex] = w.data[byteIndex]&^mask | byte(value<<bitOffset)&mask
		value >>= take
		count -= take
		w.position += take
	}
	if w.position > w.end {
		w.end = w.position
	}
}

// WriteUBitLong writes the low count bits of value, 0 <= count <= 32.
func (w *Writer) WriteUBitLong(value uint32, count int) {
	w.WriteUBit64(uint64(value), count)
}

// WriteSBitLong writes value as a two's complement field of count bits.
func (w *Writer) WriteSBitLong(value int32, count int) {
	w.WriteUBit64(uint64(uint32(value)), count)
}

// WriteSBit64 writes value as a two's complement field of count bits.
func (w *Writer) WriteSBit64(value int64, count int) {
	w.WriteUBit64(uint64(value), count)
}

// WriteOneBit writes a single flag bit.
func (w *Writer) WriteOneBit(set bool) {
	if set {
		w.WriteUBit64(1, 1)
	} else {
		w.WriteUBit64(0, 1)
	}
}

// WriteBytes writes whole bytes at the current bit position.
func (w *Writer) WriteBytes(data []byte) {
	if !w.reserve(len(data) * 8) {
		return
	}
	if w.position&7 == 0 {
		start := w.position >> 3
		copy(w.data[start:], data)
		w.position += len(data) * 8
		if w.position > w.end {
			w.end = w.position
		}
		return
	}
	for _, b := range data {
		w.WriteUBit64(uint64(b), 8)
	}
}

// WriteBitsFrom copies count bits starting at bit start of source.
func (w *Writer) WriteBitsFrom(source []byte, start, count int) {
	if count <= 0 {
		return
	}
	if start < 0 || start+count > len(source)*8 {
		w.overflow = true
		return
	}
	reader := NewReader(source, start+count)
	reader.SeekToBit(start)
	w.CopyBits(reader, count)
}

// CopyBits moves count bits from reader into the writer.
func (w *Writer) CopyBits(reader *Reader, count int) {
	if !w.reserve(count) {
		return
	}
	for count > 0 {
		take := min(count, 32)
		w.WriteUBitLong(reader.ReadUBitLong(take), take)
		count -= take
	}
	if reader.Overflowed() {
		w.overflow = true
	}
}

// WriteBitFloat writes the raw IEEE-754 bits of f.
func (w *Writer) WriteBitFloat(f float32) {
	w.WriteUBitLong(math.Float32bits(f), 32)
}

// WriteVarInt32 writes value in 7-bit groups, low group first, with a
// continuation bit in the high bit of each byte.
func (w *Writer) WriteVarInt32(value uint32) {
	for value >= 0x80 {
		w.WriteUBitLong(value&0x7f|0x80, 8)
		value >>= 7
	}
	w.WriteUBitLong(value, 8)
}

// WriteVarInt64 is the 64-bit form of [Writer.WriteVarInt32].
func (w *Writer) WriteVarInt64(value uint64) {
	for value >= 0x80 {
		w.WriteUBit64(value&0x7f|0x80, 8)
		value >>= 7
	}
	w.WriteUBit64(value, 8)
}

// WriteSignedVarInt32 zig-zag encodes value before writing it as a
// varint.
func (w *Writer) WriteSignedVarInt32(value int32) {
	w.WriteVarInt32(ZigZag32(value))
}

// WriteSignedVarInt64 zig-zag encodes value before writing it as a
// varint.
func (w *Writer) WriteSignedVarInt64(value int64) {
	w.WriteVarInt64(ZigZag64(value))
}

// WriteUBitVar writes value with 2 tier bits selecting a 4, 8, 12 or
// 32 bit payload.
func (w *Writer) WriteUBitVar(value uint32) {
	switch {
	case value < 1<<4:
		w.WriteUBitLong(0, 2)
		w.WriteUBitLong(value, 4)
	case value < 1<<8:
		w.WriteUBitLong(1, 2)
		w.WriteUBitLong(value, 8)
	case value < 1<<12:
		w.WriteUBitLong(2, 2)
		w.WriteUBitLong(value, 12)
	default:
		w.WriteUBitLong(3, 2)
		w.WriteUBitLong(value, 32)
	}
}

// WriteBitCoord writes f as a Coord: integer-present and
// fraction-present flags, then (if either is set) a sign bit, the
// integer part minus one in 14 bits, and the fraction in 5 bits. The
// caller keeps |f| within [CoordMax].
func (w *Writer) WriteBitCoord(f float32) {
	negative := f <= -CoordResolution
	integer := int(abs32(f))
	fraction := int(abs32(f*CoordDenominator)) & (CoordDenominator - 1)

	w.WriteOneBit(integer != 0)
	w.WriteOneBit(fraction != 0)
	if integer == 0 && fraction == 0 {
		return
	}
	w.WriteOneBit(negative)
	if integer != 0 {
		w.WriteUBitLong(uint32(integer-1), CoordIntegerBits)
	}
	if fraction != 0 {
		w.WriteUBitLong(uint32(fraction), CoordFractionalBits)
	}
}

// WriteBitCoordMP writes f as a multiplayer coordinate. Layout: in-bounds
// flag, integer-present flag, then for integral coordinates (when the
// integer is present) a sign bit and the integer minus one; for the
// other tiers a sign bit, the optional integer minus one, and the
// fraction. The integer field is 11 bits when in bounds, else 14.
func (w *Writer) WriteBitCoordMP(f float32, coordType CoordType) {
	resolution := coordType.resolution()
	negative := f <= -resolution
	integer := int(abs32(f))
	fraction := int(abs32(f*float32(coordType.denominator()))) & (coordType.denominator() - 1)
	inBounds := integer < 1<<CoordIntegerBitsMP
	integerBits := CoordIntegerBits
	if inBounds {
		integerBits = CoordIntegerBitsMP
	}

	w.WriteOneBit(inBounds)
	w.WriteOneBit(integer != 0)
	if coordType == CoordIntegral {
		if integer != 0 {
			w.WriteOneBit(negative)
			w.WriteUBitLong(uint32(integer-1), integerBits)
		}
		return
	}
	w.WriteOneBit(negative)
	if integer != 0 {
		w.WriteUBitLong(uint32(integer-1), integerBits)
	}
	w.WriteUBitLong(uint32(fraction), coordType.fractionalBits())
}

// WriteBitCellCoord writes a non-negative cell-relative coordinate: the
// integer part in integerBits bits followed, unless integral, by the
// fraction.
func (w *Writer) WriteBitCellCoord(f float32, integerBits int, coordType CoordType) {
	integer := uint32(abs32(f))
	w.WriteUBitLong(integer, integerBits)
	if coordType == CoordIntegral {
		return
	}
	fraction := int(abs32(f*float32(coordType.denominator()))) & (coordType.denominator() - 1)
	w.WriteUBitLong(uint32(fraction), coordType.fractionalBits())
}

// WriteBitNormal writes f, expected in [-1, 1], as a sign bit and an
// 11-bit fraction.
func (w *Writer) WriteBitNormal(f float32) {
	// Rounded, so a unit vector's quantized x and y never leave a
	// spurious remainder for the rebuilt z.
	fraction := uint32(abs32(f)*NormalDenominator + 0.5)
	if fraction > NormalDenominator {
		fraction = NormalDenominator
	}
	w.WriteOneBit(f < 0 && fraction != 0)
	w.WriteUBitLong(fraction, NormalFractionalBits)
}
