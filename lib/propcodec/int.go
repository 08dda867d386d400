// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package propcodec

import (
	"log/slog"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

var intCodec = newIntCodec(datatable.TypeInt, 32)

var intCodec64 = newIntCodec(datatable.TypeInt64, 64)

// newIntCodec builds the codec for integers of at most width bits. Fixed
// width values are masked (unsigned) or sign-truncated (signed) to
// prop.Bits; VarInt values are sent as unsigned varints or zig-zagged
// signed varints.
func newIntCodec(t datatable.PropType, width int) *Codec {
	return &Codec{
		Type: t,
		encode: func(w *bitbuf.Writer, prop *datatable.Prop, v datatable.Value, logger *slog.Logger) {
			unsigned := prop.Flags.Has(datatable.Unsigned)
			switch {
			case prop.Flags.Has(datatable.VarInt) && width == 32 && unsigned:
				w.WriteVarInt32(uint32(v.Int))
			case prop.Flags.Has(datatable.VarInt) && width == 32:
				w.WriteSignedVarInt32(int32(v.Int))
			case prop.Flags.Has(datatable.VarInt) && unsigned:
				w.WriteVarInt64(uint64(v.Int))
			case prop.Flags.Has(datatable.VarInt):
				w.WriteSignedVarInt64(v.Int)
			case unsigned:
				w.WriteUBit64(uint64(v.Int), intBits(prop, width))
			default:
				w.WriteSBit64(v.Int, intBits(prop, width))
			}
		},
		decode: func(r *bitbuf.Reader, prop *datatable.Prop, logger *slog.Logger) datatable.Value {
			return datatable.Value{Type: t, Int: readInt(r, prop, width)}
		},
		skip: func(r *bitbuf.Reader, prop *datatable.Prop) {
			readInt(r, prop, width)
		},
		fixedWidth: func(prop *datatable.Prop) int {
			if prop.Flags.Has(datatable.VarInt) {
				return -1
			}
			return intBits(prop, width)
		},
		isZero: func(prop *datatable.Prop, v datatable.Value) bool {
			return v.Int == 0
		},
		fastCopy: func(prop *datatable.Prop, v datatable.Value) datatable.Value {
			if prop.Flags.Has(datatable.VarInt) {
				if width == 32 && prop.Flags.Has(datatable.Unsigned) {
					v.Int = int64(uint32(v.Int))
				} else if width == 32 {
					v.Int = int64(int32(v.Int))
				}
				return v
			}
			bits := intBits(prop, width)
			if bits >= 64 {
				return v
			}
			if prop.Flags.Has(datatable.Unsigned) {
				v.Int = int64(uint64(v.Int) & (1<<bits - 1))
			} else {
				shift := 64 - bits
				v.Int = v.Int << shift >> shift
			}
			return v
		},
	}
}

func intBits(prop *datatable.Prop, width int) int {
	if prop.Bits <= 0 || prop.Bits > width {
		return width
	}
	return prop.Bits
}

func readInt(r *bitbuf.Reader, prop *datatable.Prop, width int) int64 {
	unsigned := prop.Flags.Has(datatable.Unsigned)
	switch {
	case prop.Flags.Has(datatable.VarInt) && width == 32 && unsigned:
		return int64(r.ReadVarInt32())
	case prop.Flags.Has(datatable.VarInt) && width == 32:
		return int64(r.ReadSignedVarInt32())
	case prop.Flags.Has(datatable.VarInt) && unsigned:
		return int64(r.ReadVarInt64())
	case prop.Flags.Has(datatable.VarInt):
		return r.ReadSignedVarInt64()
	case unsigned:
		return int64(r.ReadUBit64(intBits(prop, width)))
	default:
		return r.ReadSBit64(intBits(prop, width))
	}
}
