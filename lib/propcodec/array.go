// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package propcodec

import (
	"log/slog"
	"math/bits"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

// CountBits returns the width of an array's element count field.
func CountBits(prop *datatable.Prop) int {
	return bits.Len(uint(prop.MaxElements))
}

// arrayCodec sends the element count in CountBits bits followed by each
// element encoded with the element template's codec.
var arrayCodec = &Codec{
	Type: datatable.TypeArray,
	encode: func(w *bitbuf.Writer, prop *datatable.Prop, v datatable.Value, logger *slog.Logger) {
		elements := v.Elements
		if len(elements) > prop.MaxElements {
			logger.Warn("truncating array property",
				"prop", prop.Name,
				"length", len(elements),
				"limit", prop.MaxElements,
			)
			elements = elements[:prop.MaxElements]
		}
		w.WriteUBitLong(uint32(len(elements)), CountBits(prop))
		element := MustFor(prop.Element.Type)
		for _, value := range elements {
			element.Encode(w, prop.Element, value, logger)
		}
	},
	decode: func(r *bitbuf.Reader, prop *datatable.Prop, logger *slog.Logger) datatable.Value {
		count := int(r.ReadUBitLong(CountBits(prop)))
		if count == 0 {
			return datatable.ArrayValue()
		}
		element := MustFor(prop.Element.Type)
		elements := make([]datatable.Value, count)
		for i := range elements {
			elements[i] = element.Decode(r, prop.Element, logger)
		}
		if count > prop.MaxElements {
			logger.Warn("truncating received array property",
				"prop", prop.Name,
				"length", count,
				"limit", prop.MaxElements,
			)
			elements = elements[:prop.MaxElements]
		}
		return datatable.ArrayValue(elements...)
	},
	skip: func(r *bitbuf.Reader, prop *datatable.Prop) {
		count := int(r.ReadUBitLong(CountBits(prop)))
		if count == 0 {
			return
		}
		element := MustFor(prop.Element.Type)
		for range count {
			element.Skip(r, prop.Element)
		}
	},
	isZero: func(prop *datatable.Prop, v datatable.Value) bool {
		return len(v.Elements) == 0
	},
	fastCopy: func(prop *datatable.Prop, v datatable.Value) datatable.Value {
		n := min(len(v.Elements), prop.MaxElements)
		if n == 0 {
			v.Elements = nil
			return v
		}
		element := MustFor(prop.Element.Type)
		elements := make([]datatable.Value, n)
		for i := range elements {
			elements[i] = element.FastCopy(prop.Element, v.Elements[i])
		}
		v.Elements = elements
		return v
	},
}
