// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package propcodec

import (
	"log/slog"
	"math"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

// FloatEncoding is the wire layout selected for a float prop.
type FloatEncoding uint8

const (
	FloatQuantized FloatEncoding = iota
	FloatCoord
	FloatCoordMP
	FloatNoScale
	FloatNormal
	FloatCellCoord
)

// String returns the encoding name.
func (e FloatEncoding) String() string {
	switch e {
	case FloatQuantized:
		return "quantized"
	case FloatCoord:
		return "coord"
	case FloatCoordMP:
		return "coordmp"
	case FloatNoScale:
		return "noscale"
	case FloatNormal:
		return "normal"
	case FloatCellCoord:
		return "cellcoord"
	default:
		return "unknown"
	}
}

// FloatEncodingOf returns the layout prop's floats use and, for the
// CoordMP and CellCoord layouts, the precision tier.
func FloatEncodingOf(prop *datatable.Prop) (FloatEncoding, bitbuf.CoordType) {
	flags := prop.Flags
	switch {
	case flags.Has(datatable.Coord):
		return FloatCoord, bitbuf.CoordFull
	case flags.Has(datatable.CoordMP):
		return FloatCoordMP, bitbuf.CoordFull
	case flags.Has(datatable.CoordMPLowPrecision):
		return FloatCoordMP, bitbuf.CoordLowPrecision
	case flags.Has(datatable.CoordMPIntegral):
		return FloatCoordMP, bitbuf.CoordIntegral
	case flags.Has(datatable.NoScale):
		return FloatNoScale, bitbuf.CoordFull
	case flags.Has(datatable.Normal):
		return FloatNormal, bitbuf.CoordFull
	case flags.Has(datatable.CellCoord):
		return FloatCellCoord, bitbuf.CoordFull
	case flags.Has(datatable.CellCoordLowPrecision):
		return FloatCellCoord, bitbuf.CoordLowPrecision
	case flags.Has(datatable.CellCoordIntegral):
		return FloatCellCoord, bitbuf.CoordIntegral
	case prop.Bits <= 0 || prop.Bits >= 32 || prop.High <= prop.Low:
		return FloatNoScale, bitbuf.CoordFull
	default:
		return FloatQuantized, bitbuf.CoordFull
	}
}

// coordLimit is the largest magnitude a Coord or CoordMP field carries:
// the integer part is sent minus one in CoordIntegerBits bits.
const coordLimit = bitbuf.CoordMax + 1 - bitbuf.CoordResolution

func cellCoordLimit(prop *datatable.Prop, coordType bitbuf.CoordType) float32 {
	integer := float32(math.Ldexp(1, prop.Bits))
	switch coordType {
	case bitbuf.CoordIntegral:
		return integer - 1
	case bitbuf.CoordLowPrecision:
		return integer - bitbuf.CoordResolutionLowPrecision
	default:
		return integer - bitbuf.CoordResolution
	}
}

// clamp bounds f to [low, high], warning unless the prop rounds.
func clamp(prop *datatable.Prop, f, low, high float32, logger *slog.Logger) float32 {
	if f >= low && f <= high {
		return f
	}
	clamped := min(max(f, low), high)
	if math.IsNaN(float64(f)) {
		clamped = low
	}
	if !prop.Flags.Any(datatable.RoundDown | datatable.RoundUp) {
		logger.Warn("clamping out-of-range property value",
			"prop", prop.Name,
			"value", f,
			"low", low,
			"high", high,
		)
	}
	return clamped
}

func encodeFloat(w *bitbuf.Writer, prop *datatable.Prop, f float32, logger *slog.Logger) {
	encoding, coordType := FloatEncodingOf(prop)
	switch encoding {
	case FloatCoord:
		w.WriteBitCoord(clamp(prop, f, -coordLimit, coordLimit, logger))
	case FloatCoordMP:
		w.WriteBitCoordMP(clamp(prop, f, -coordLimit, coordLimit, logger), coordType)
	case FloatNoScale:
		w.WriteBitFloat(f)
	case FloatNormal:
		w.WriteBitNormal(clamp(prop, f, -1, 1, logger))
	case FloatCellCoord:
		w.WriteBitCellCoord(clamp(prop, f, 0, cellCoordLimit(prop, coordType), logger), prop.Bits, coordType)
	default:
		w.WriteUBitLong(quantize(prop, clamp(prop, f, prop.Low, prop.High, logger)), prop.Bits)
	}
}

func decodeFloat(r *bitbuf.Reader, prop *datatable.Prop) float32 {
	encoding, coordType := FloatEncodingOf(prop)
	switch encoding {
	case FloatCoord:
		return r.ReadBitCoord()
	case FloatCoordMP:
		return r.ReadBitCoordMP(coordType)
	case FloatNoScale:
		return r.ReadBitFloat()
	case FloatNormal:
		return r.ReadBitNormal()
	case FloatCellCoord:
		return r.ReadBitCellCoord(prop.Bits, coordType)
	default:
		return dequantize(prop, r.ReadUBitLong(prop.Bits))
	}
}

// floatWidth returns the encoded width of prop's floats, or -1 when the
// width depends on the value.
func floatWidth(prop *datatable.Prop) int {
	encoding, coordType := FloatEncodingOf(prop)
	switch encoding {
	case FloatNoScale:
		return 32
	case FloatNormal:
		return 1 + bitbuf.NormalFractionalBits
	case FloatCellCoord:
		switch coordType {
		case bitbuf.CoordIntegral:
			return prop.Bits
		case bitbuf.CoordLowPrecision:
			return prop.Bits + bitbuf.CoordFractionalBitsMPLowPrecision
		default:
			return prop.Bits + bitbuf.CoordFractionalBits
		}
	case FloatQuantized:
		return prop.Bits
	default:
		return -1
	}
}

func quantize(prop *datatable.Prop, f float32) uint32 {
	steps := float64(uint32(1)<<prop.Bits - 1)
	scaled := math.Round(float64(f-prop.Low) / float64(prop.High-prop.Low) * steps)
	return uint32(min(max(scaled, 0), steps))
}

func dequantize(prop *datatable.Prop, value uint32) float32 {
	steps := uint32(1)<<prop.Bits - 1
	switch value {
	case 0:
		return prop.Low
	case steps:
		return prop.High
	}
	return prop.Low + float32(float64(value)/float64(steps)*float64(prop.High-prop.Low))
}

var floatCodec = &Codec{
	Type: datatable.TypeFloat,
	encode: func(w *bitbuf.Writer, prop *datatable.Prop, v datatable.Value, logger *slog.Logger) {
		encodeFloat(w, prop, v.Float, logger)
	},
	decode: func(r *bitbuf.Reader, prop *datatable.Prop, logger *slog.Logger) datatable.Value {
		return datatable.FloatValue(decodeFloat(r, prop))
	},
	skip: func(r *bitbuf.Reader, prop *datatable.Prop) {
		decodeFloat(r, prop)
	},
	fixedWidth: floatWidth,
	isZero: func(prop *datatable.Prop, v datatable.Value) bool {
		return v.Float == 0
	},
}

var vectorCodec = &Codec{
	Type: datatable.TypeVector,
	encode: func(w *bitbuf.Writer, prop *datatable.Prop, v datatable.Value, logger *slog.Logger) {
		encodeFloat(w, prop, v.Vector[0], logger)
		encodeFloat(w, prop, v.Vector[1], logger)
		if prop.Flags.Has(datatable.Normal) {
			w.WriteOneBit(v.Vector[2] <= -bitbuf.NormalResolution)
			return
		}
		encodeFloat(w, prop, v.Vector[2], logger)
	},
	decode: func(r *bitbuf.Reader, prop *datatable.Prop, logger *slog.Logger) datatable.Value {
		x := decodeFloat(r, prop)
		y := decodeFloat(r, prop)
		var z float32
		if prop.Flags.Has(datatable.Normal) {
			z = normalZ(x, y, r.ReadOneBit())
		} else {
			z = decodeFloat(r, prop)
		}
		return datatable.VectorValue(x, y, z)
	},
	skip: func(r *bitbuf.Reader, prop *datatable.Prop) {
		decodeFloat(r, prop)
		decodeFloat(r, prop)
		if prop.Flags.Has(datatable.Normal) {
			r.ReadOneBit()
		} else {
			decodeFloat(r, prop)
		}
	},
	fixedWidth: func(prop *datatable.Prop) int {
		width := floatWidth(prop)
		switch {
		case width < 0:
			return -1
		case prop.Flags.Has(datatable.Normal):
			return 2*width + 1
		default:
			return 3 * width
		}
	},
	isZero: func(prop *datatable.Prop, v datatable.Value) bool {
		return v.Vector == [3]float32{}
	},
	fastCopy: func(prop *datatable.Prop, v datatable.Value) datatable.Value {
		if prop.Flags.Has(datatable.Normal) {
			v.Vector[2] = normalZ(v.Vector[0], v.Vector[1], v.Vector[2] <= -bitbuf.NormalResolution)
		}
		return v
	},
}

// normalZ rebuilds the z component of a unit vector.
func normalZ(x, y float32, negative bool) float32 {
	xx := float32(x * x)
	yy := float32(y * y)
	remainder := float32(1 - xx)
	remainder = float32(remainder - yy)
	var z float32
	if remainder > 0 {
		z = float32(math.Sqrt(float64(remainder)))
	}
	if negative {
		z = -z
	}
	return z
}

var vectorXYCodec = &Codec{
	Type: datatable.TypeVectorXY,
	encode: func(w *bitbuf.Writer, prop *datatable.Prop, v datatable.Value, logger *slog.Logger) {
		encodeFloat(w, prop, v.Vector[0], logger)
		encodeFloat(w, prop, v.Vector[1], logger)
	},
	decode: func(r *bitbuf.Reader, prop *datatable.Prop, logger *slog.Logger) datatable.Value {
		x := decodeFloat(r, prop)
		y := decodeFloat(r, prop)
		return datatable.VectorXYValue(x, y)
	},
	skip: func(r *bitbuf.Reader, prop *datatable.Prop) {
		decodeFloat(r, prop)
		decodeFloat(r, prop)
	},
	fixedWidth: func(prop *datatable.Prop) int {
		width := floatWidth(prop)
		if width < 0 {
			return -1
		}
		return 2 * width
	},
	isZero: func(prop *datatable.Prop, v datatable.Value) bool {
		return v.Vector[0] == 0 && v.Vector[1] == 0
	},
	fastCopy: func(prop *datatable.Prop, v datatable.Value) datatable.Value {
		v.Vector[2] = 0
		return v
	},
}
