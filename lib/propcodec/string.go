// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package propcodec

import (
	"log/slog"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

// stringCodec sends a MaxStringBits-bit length followed by raw bytes.
// The sender truncates to its own limit; the receiver reads every byte
// on the wire and truncates to its limit.
var stringCodec = &Codec{
	Type: datatable.TypeString,
	encode: func(w *bitbuf.Writer, prop *datatable.Prop, v datatable.Value, logger *slog.Logger) {
		s := v.String
		if limit := prop.StringLimit(); len(s) > limit {
			logger.Warn("truncating string property",
				"prop", prop.Name,
				"length", len(s),
				"limit", limit,
			)
			s = s[:limit]
		}
		w.WriteUBitLong(uint32(len(s)), datatable.MaxStringBits)
		w.WriteBytes([]byte(s))
	},
	decode: func(r *bitbuf.Reader, prop *datatable.Prop, logger *slog.Logger) datatable.Value {
		length := int(r.ReadUBitLong(datatable.MaxStringBits))
		data := r.ReadBytes(length)
		if limit := prop.StringLimit(); len(data) > limit {
			logger.Warn("truncating received string property",
				"prop", prop.Name,
				"length", len(data),
				"limit", limit,
			)
			data = data[:limit]
		}
		return datatable.StringValue(string(data))
	},
	skip: func(r *bitbuf.Reader, prop *datatable.Prop) {
		length := int(r.ReadUBitLong(datatable.MaxStringBits))
		r.SeekRelative(length * 8)
	},
	isZero: func(prop *datatable.Prop, v datatable.Value) bool {
		return v.String == ""
	},
	fastCopy: func(prop *datatable.Prop, v datatable.Value) datatable.Value {
		if limit := prop.StringLimit(); len(v.String) > limit {
			v.String = v.String[:limit]
		}
		return v
	},
}

var dataTableCodec = &Codec{
	Type:   datatable.TypeDataTable,
	encode: func(*bitbuf.Writer, *datatable.Prop, datatable.Value, *slog.Logger) {},
	decode: func(r *bitbuf.Reader, prop *datatable.Prop, logger *slog.Logger) datatable.Value {
		return datatable.Zero(datatable.TypeDataTable)
	},
	skip:   func(*bitbuf.Reader, *datatable.Prop) {},
	isZero: func(*datatable.Prop, datatable.Value) bool { return true },
}
