// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package propcodec

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

// ErrUnknownType is returned by [For] for a type with no codec.
var ErrUnknownType = errors.New("propcodec: unknown property type")

// Codec implements the wire format of one property type.
type Codec struct {
	Type datatable.PropType

	encode     func(w *bitbuf.Writer, prop *datatable.Prop, v datatable.Value, logger *slog.Logger)
	decode     func(r *bitbuf.Reader, prop *datatable.Prop, logger *slog.Logger) datatable.Value
	skip       func(r *bitbuf.Reader, prop *datatable.Prop)
	isZero     func(prop *datatable.Prop, v datatable.Value) bool
	fastCopy   func(prop *datatable.Prop, v datatable.Value) datatable.Value
	fixedWidth func(prop *datatable.Prop) int
}

var codecs map[datatable.PropType]*Codec

func init() {
	// Populated in init: the array codec dispatches back through For.
	codecs = map[datatable.PropType]*Codec{
		datatable.TypeInt:       intCodec,
		datatable.TypeInt64:     intCodec64,
		datatable.TypeFloat:     floatCodec,
		datatable.TypeVector:    vectorCodec,
		datatable.TypeVectorXY:  vectorXYCodec,
		datatable.TypeString:    stringCodec,
		datatable.TypeArray:     arrayCodec,
		datatable.TypeDataTable: dataTableCodec,
	}
}

// For returns the codec of t.
func For(t datatable.PropType) (*Codec, error) {
	codec, ok := codecs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return codec, nil
}

// MustFor is like [For] but panics on an unknown type. Use it only for
// props that passed [datatable.Precalculate].
func MustFor(t datatable.PropType) *Codec {
	codec, err := For(t)
	if err != nil {
		panic(err)
	}
	return codec
}

// Encode writes v as prop's payload.
func (c *Codec) Encode(w *bitbuf.Writer, prop *datatable.Prop, v datatable.Value, logger *slog.Logger) {
	c.encode(w, prop, v, orDiscard(logger))
}

// Decode reads prop's payload.
func (c *Codec) Decode(r *bitbuf.Reader, prop *datatable.Prop, logger *slog.Logger) datatable.Value {
	return c.decode(r, prop, orDiscard(logger))
}

// Skip advances r past prop's payload.
func (c *Codec) Skip(r *bitbuf.Reader, prop *datatable.Prop) {
	if width, ok := c.FixedWidth(prop); ok {
		r.SeekRelative(width)
		return
	}
	c.skip(r, prop)
}

// FixedWidth returns the payload width of prop when it does not depend
// on the value.
func (c *Codec) FixedWidth(prop *datatable.Prop) (int, bool) {
	if c.fixedWidth == nil {
		return 0, false
	}
	width := c.fixedWidth(prop)
	return width, width >= 0
}

// IsZero reports whether v is the zero value of prop. Zero values are
// omitted from serialized entities.
func (c *Codec) IsZero(prop *datatable.Prop, v datatable.Value) bool {
	return c.isZero(prop, v)
}

// DecodeZero returns the value a receiver stores for an omitted prop.
func (c *Codec) DecodeZero(prop *datatable.Prop) datatable.Value {
	return datatable.Zero(prop.Type)
}

// FastCopy returns v as a receiver would observe it after an encode
// and decode within the same process, without touching a stream.
func (c *Codec) FastCopy(prop *datatable.Prop, v datatable.Value) datatable.Value {
	v.Type = prop.Type
	if c.fastCopy == nil {
		return v
	}
	return c.fastCopy(prop, v)
}

// CompareDeltas consumes prop's payload from both readers and reports
// whether the payloads differ.
func (c *Codec) CompareDeltas(prop *datatable.Prop, a, b *bitbuf.Reader) bool {
	startA, startB := a.Tell(), b.Tell()
	c.Skip(a, prop)
	c.Skip(b, prop)
	lengthA, lengthB := a.Tell()-startA, b.Tell()-startB
	if lengthA != lengthB {
		return true
	}
	a.SeekToBit(startA)
	b.SeekToBit(startB)
	return a.CompareBits(b, lengthA)
}

// IsEncodedZero consumes prop's payload from r and reports whether it
// is the encoding of prop's zero value.
func (c *Codec) IsEncodedZero(prop *datatable.Prop, r *bitbuf.Reader) bool {
	start := r.Tell()
	c.Skip(r, prop)
	length := r.Tell() - start

	zero := bitbuf.NewWriter(8)
	c.Encode(zero, prop, c.DecodeZero(prop), nil)
	if zero.BitsWritten() != length {
		return false
	}
	end := r.Tell()
	r.SeekToBit(start)
	differ := r.CompareBits(bitbuf.NewReader(zero.Bytes(), zero.BitsWritten()), length)
	r.SeekToBit(end)
	return !differ
}

var discard = slog.New(slog.DiscardHandler)

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return discard
	}
	return logger
}
