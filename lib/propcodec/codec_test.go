// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package propcodec

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

func encode(t *testing.T, prop *datatable.Prop, v datatable.Value, logger *slog.Logger) *bitbuf.Writer {
	t.Helper()
	codec, err := For(prop.Type)
	if err != nil {
		t.Fatalf("For(%s): %v", prop.Type, err)
	}
	w := bitbuf.NewWriter(16)
	codec.Encode(w, prop, v, logger)
	if err := w.Err(); err != nil {
		t.Fatalf("Encode(%s): %v", prop.Name, err)
	}
	return w
}

func roundTrip(t *testing.T, prop *datatable.Prop, v datatable.Value) datatable.Value {
	t.Helper()
	w := encode(t, prop, v, nil)
	codec := MustFor(prop.Type)

	r := bitbuf.NewReader(w.Bytes(), w.BitsWritten())
	got := codec.Decode(r, prop, nil)
	if r.Tell() != w.BitsWritten() {
		t.Errorf("%s: Decode consumed %d of %d bits", prop.Name, r.Tell(), w.BitsWritten())
	}

	r = bitbuf.NewReader(w.Bytes(), w.BitsWritten())
	codec.Skip(r, prop)
	if r.Tell() != w.BitsWritten() {
		t.Errorf("%s: Skip consumed %d of %d bits", prop.Name, r.Tell(), w.BitsWritten())
	}
	if err := r.Err(); err != nil {
		t.Errorf("%s: reader: %v", prop.Name, err)
	}
	return got
}

func TestRoundTripExact(t *testing.T) {
	tests := []struct {
		name  string
		prop  datatable.Prop
		value datatable.Value
	}{
		{"uint8", datatable.Int("health", 8, datatable.Unsigned), datatable.IntValue(42)},
		{"int signed", datatable.Int("delta", 12, 0), datatable.IntValue(-2000)},
		{"int full width", datatable.Int("id", 32, 0), datatable.IntValue(math.MinInt32)},
		{"uint full width", datatable.Int("mask", 32, datatable.Unsigned), datatable.IntValue(math.MaxUint32)},
		{"varint unsigned", datatable.Int("tick", 32, datatable.VarInt|datatable.Unsigned), datatable.IntValue(300000)},
		{"varint signed", datatable.Int("offset", 32, datatable.VarInt), datatable.IntValue(-77)},
		{"int64", datatable.Int64("steam", 64, 0), datatable.Int64Value(-1 << 50)},
		{"int64 varint", datatable.Int64("xp", 64, datatable.VarInt), datatable.Int64Value(math.MinInt64)},
		{"int64 narrow unsigned", datatable.Int64("flags", 40, datatable.Unsigned), datatable.Int64Value(1<<40 - 1)},
		{"coord", datatable.Float("x", 0, 0, 0, datatable.Coord), datatable.FloatValue(-1234.5)},
		{"coordmp", datatable.Float("x", 0, 0, 0, datatable.CoordMP), datatable.FloatValue(100.25)},
		{"coordmp low precision", datatable.Float("x", 0, 0, 0, datatable.CoordMPLowPrecision), datatable.FloatValue(-5.125)},
		{"coordmp integral", datatable.Float("x", 0, 0, 0, datatable.CoordMPIntegral), datatable.FloatValue(4000)},
		{"noscale", datatable.Float("angle", 32, 0, 360, datatable.NoScale), datatable.FloatValue(123.456)},
		{"unquantizable", datatable.Float("f", 0, 1, 0, 0), datatable.FloatValue(float32(math.Pi))},
		{"cellcoord", datatable.Float("cx", 6, 0, 0, datatable.CellCoord), datatable.FloatValue(33.5)},
		{"cellcoord integral", datatable.Float("cx", 6, 0, 0, datatable.CellCoordIntegral), datatable.FloatValue(63)},
		{"quantized endpoint", datatable.Float("q", 10, -8, 8, 0), datatable.FloatValue(8)},
		{"vector coord", datatable.Vector("pos", 0, 0, 0, datatable.Coord), datatable.VectorValue(1, 2, 3)},
		{"vectorxy", datatable.VectorXY("uv", 0, 0, 0, datatable.NoScale), datatable.VectorXYValue(0.25, -7)},
		{"string", datatable.String("name", 0), datatable.StringValue("bot")},
		{"empty string", datatable.String("name", 0), datatable.StringValue("")},
		{"array", datatable.Array("ammo", datatable.Int("", 10, datatable.Unsigned), 5), datatable.ArrayValue(
			datatable.IntValue(1), datatable.IntValue(0), datatable.IntValue(1023),
		)},
		{"array of strings", datatable.Array("tags", datatable.String("", 0), 3), datatable.ArrayValue(
			datatable.StringValue("a"), datatable.StringValue("bc"),
		)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := roundTrip(t, &test.prop, test.value)
			if !got.Equal(test.value) {
				t.Fatalf("round trip %s = %s, want %s", test.prop.Name, got.Format(), test.value.Format())
			}
		})
	}
}

func TestRoundTripQuantized(t *testing.T) {
	prop := datatable.Float("health", 8, 0, 100, 0)
	step := float32(100.0 / 255)
	for _, value := range []float32{0, 12.5, 50, 99.9, 100} {
		got := roundTrip(t, &prop, datatable.FloatValue(value))
		if math.Abs(float64(got.Float-value)) > float64(step)/2+1e-4 {
			t.Errorf("quantized %v decoded %v, more than half a step away", value, got.Float)
		}
	}

	normal := datatable.Float("n", 0, 0, 0, datatable.Normal)
	for _, value := range []float32{-1, -0.3, 0, 0.7071, 1} {
		got := roundTrip(t, &normal, datatable.FloatValue(value))
		if math.Abs(float64(got.Float-value)) > bitbuf.NormalResolution {
			t.Errorf("normal %v decoded %v", value, got.Float)
		}
	}
}

func TestRoundDownKeepsRangeExact(t *testing.T) {
	prop := datatable.Float("pitch", 8, 0, 256, datatable.RoundDown)
	for _, value := range []float32{0, 1, 128, 255} {
		got := roundTrip(t, &prop, datatable.FloatValue(value))
		if got.Float != value {
			t.Errorf("RoundDown %v decoded %v", value, got.Float)
		}
	}
}

func TestZeroIdempotence(t *testing.T) {
	props := []datatable.Prop{
		datatable.Int("i", 7, 0),
		datatable.Int("v", 32, datatable.VarInt),
		datatable.Int64("l", 33, datatable.Unsigned),
		datatable.Float("c", 0, 0, 0, datatable.Coord),
		datatable.Float("mp", 0, 0, 0, datatable.CoordMPIntegral),
		datatable.Float("q", 8, -1, 1, 0),
		datatable.Float("n", 0, 0, 0, datatable.Normal),
		datatable.Vector("v", 0, 0, 0, datatable.Normal),
		datatable.VectorXY("xy", 10, 0, 10, 0),
		datatable.String("s", 0),
		datatable.Array("a", datatable.Float("", 0, 0, 0, datatable.NoScale), 9),
	}
	for i := range props {
		prop := &props[i]
		codec := MustFor(prop.Type)
		zero := codec.DecodeZero(prop)
		if !codec.IsZero(prop, zero) {
			t.Errorf("%s: IsZero(DecodeZero) = false", prop.Name)
		}
		if zero.Type != prop.Type {
			t.Errorf("%s: DecodeZero has type %s", prop.Name, zero.Type)
		}
		w := encode(t, prop, zero, nil)
		r := bitbuf.NewReader(w.Bytes(), w.BitsWritten())
		if !codec.IsEncodedZero(prop, r) {
			t.Errorf("%s: IsEncodedZero(Encode(zero)) = false", prop.Name)
		}
		if r.Tell() != w.BitsWritten() {
			t.Errorf("%s: IsEncodedZero consumed %d of %d bits", prop.Name, r.Tell(), w.BitsWritten())
		}
	}

	prop := datatable.Int("i", 7, 0)
	w := encode(t, &prop, datatable.IntValue(3), nil)
	if MustFor(prop.Type).IsEncodedZero(&prop, bitbuf.NewReader(w.Bytes(), w.BitsWritten())) {
		t.Error("IsEncodedZero(Encode(3)) = true")
	}
}

func TestEmptyArrayEncodesCountOnly(t *testing.T) {
	prop := datatable.Array("inventory", datatable.Int("", 16, 0), 12)
	codec := MustFor(prop.Type)
	empty := datatable.ArrayValue()

	if !codec.IsZero(&prop, empty) {
		t.Fatal("IsZero(empty array) = false")
	}
	w := encode(t, &prop, empty, nil)
	if w.BitsWritten() != 4 {
		t.Fatalf("empty array wrote %d bits, want the 4-bit count", w.BitsWritten())
	}
	if got := bitbuf.NewReader(w.Bytes(), 4).ReadUBitLong(4); got != 0 {
		t.Fatalf("count field = %d, want 0", got)
	}
}

func TestNormalVectorRebuildsZ(t *testing.T) {
	prop := datatable.Vector("dir", 0, 0, 0, datatable.Normal|datatable.NoScale)
	got := roundTrip(t, &prop, datatable.VectorValue(0.6, 0.8, 0))
	if got.Vector[0] != 0.6 || got.Vector[1] != 0.8 {
		t.Fatalf("x, y = %v, %v; want 0.6, 0.8", got.Vector[0], got.Vector[1])
	}
	if got.Vector[2] != 0 {
		t.Fatalf("z = %v, want 0", got.Vector[2])
	}

	// x and y quantized to 11-bit normals.
	quantized := datatable.Vector("dir", 0, 0, 0, datatable.Normal)
	got = roundTrip(t, &quantized, datatable.VectorValue(0.6, 0.8, 0))
	if got.Vector[2] != 0 {
		t.Fatalf("quantized normal (0.6, 0.8) decoded %v, want z == 0", got.Vector)
	}
	for i, want := range []float32{0.6, 0.8} {
		if math.Abs(float64(got.Vector[i]-want)) > bitbuf.NormalResolution {
			t.Errorf("component %d = %v, want %v within one step", i, got.Vector[i], want)
		}
	}

	w := encode(t, &prop, datatable.VectorValue(0, 0.6, -0.8), nil)
	if w.BitsWritten() != 65 {
		t.Fatalf("normal vector wrote %d bits, want 65", w.BitsWritten())
	}
	decoded := MustFor(prop.Type).Decode(bitbuf.NewReader(w.Bytes(), w.BitsWritten()), &prop, nil)
	if math.Abs(float64(decoded.Vector[2]+0.8)) > 1e-6 {
		t.Fatalf("negative z decoded as %v, want -0.8", decoded.Vector[2])
	}
}

func TestClampWarning(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	prop := datatable.Float("speed", 8, 0, 10, 0)
	w := encode(t, &prop, datatable.FloatValue(50), logger)
	got := MustFor(prop.Type).Decode(bitbuf.NewReader(w.Bytes(), w.BitsWritten()), &prop, nil)
	if got.Float != 10 {
		t.Fatalf("clamped value decoded %v, want 10", got.Float)
	}
	if !strings.Contains(logs.String(), "clamping out-of-range") {
		t.Fatalf("no clamp warning logged: %q", logs.String())
	}

	logs.Reset()
	rounded := datatable.Float("speed", 8, 0, 10, datatable.RoundUp)
	encode(t, &rounded, datatable.FloatValue(-3), logger)
	if logs.Len() != 0 {
		t.Fatalf("RoundUp prop logged a clamp warning: %q", logs.String())
	}
}

func TestStringTruncation(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	sender := datatable.String("motd", 0)
	long := strings.Repeat("x", 600)
	w := encode(t, &sender, datatable.StringValue(long), logger)
	if w.BitsWritten() != datatable.MaxStringBits+8*datatable.MaxStringLength {
		t.Fatalf("oversized string wrote %d bits", w.BitsWritten())
	}
	if !strings.Contains(logs.String(), "truncating string") {
		t.Errorf("no send-side truncation warning: %q", logs.String())
	}

	receiver := datatable.String("motd", 16)
	r := bitbuf.NewReader(w.Bytes(), w.BitsWritten())
	got := MustFor(receiver.Type).Decode(r, &receiver, logger)
	if got.String != strings.Repeat("x", 16) {
		t.Fatalf("received %d bytes, want 16", len(got.String))
	}
	if r.Tell() != w.BitsWritten() {
		t.Fatalf("truncated decode consumed %d of %d bits", r.Tell(), w.BitsWritten())
	}
	if !strings.Contains(logs.String(), "truncating received string") {
		t.Errorf("no receive-side truncation warning: %q", logs.String())
	}
}

func TestArrayTruncation(t *testing.T) {
	sender := datatable.Array("ids", datatable.Int("", 8, datatable.Unsigned), 7)
	elements := []datatable.Value{
		datatable.IntValue(1), datatable.IntValue(2), datatable.IntValue(3),
		datatable.IntValue(4), datatable.IntValue(5),
	}
	w := encode(t, &sender, datatable.ArrayValue(elements...), nil)

	// Same count width on both sides, smaller receive capacity.
	receiver := sender
	receiver.MaxElements = 4
	r := bitbuf.NewReader(w.Bytes(), w.BitsWritten())
	got := MustFor(sender.Type).Decode(r, &receiver, nil)
	if len(got.Elements) != 4 {
		t.Fatalf("decoded %d elements, want 4", len(got.Elements))
	}
	if r.Tell() != w.BitsWritten() {
		t.Fatalf("truncated decode consumed %d of %d bits", r.Tell(), w.BitsWritten())
	}

	receiver.MaxElements = 3
	capped := MustFor(sender.Type).FastCopy(&receiver, datatable.ArrayValue(elements...))
	if len(capped.Elements) != 3 {
		t.Fatalf("FastCopy kept %d elements, want 3", len(capped.Elements))
	}
}

func TestCompareDeltas(t *testing.T) {
	prop := datatable.String("name", 0)
	codec := MustFor(prop.Type)
	a := encode(t, &prop, datatable.StringValue("abc"), nil)
	same := encode(t, &prop, datatable.StringValue("abc"), nil)
	other := encode(t, &prop, datatable.StringValue("abd"), nil)
	longer := encode(t, &prop, datatable.StringValue("abcd"), nil)

	reader := func(w *bitbuf.Writer) *bitbuf.Reader { return bitbuf.NewReader(w.Bytes(), w.BitsWritten()) }
	if codec.CompareDeltas(&prop, reader(a), reader(same)) {
		t.Error("identical payloads compared changed")
	}
	if !codec.CompareDeltas(&prop, reader(a), reader(other)) {
		t.Error("differing payloads compared unchanged")
	}
	if !codec.CompareDeltas(&prop, reader(a), reader(longer)) {
		t.Error("payloads of different length compared unchanged")
	}

	ra, rb := reader(a), reader(longer)
	codec.CompareDeltas(&prop, ra, rb)
	if ra.Tell() != a.BitsWritten() || rb.Tell() != longer.BitsWritten() {
		t.Errorf("CompareDeltas left cursors at %d/%d, want %d/%d", ra.Tell(), rb.Tell(), a.BitsWritten(), longer.BitsWritten())
	}
}

func TestFastCopyMatchesWire(t *testing.T) {
	tests := []struct {
		prop  datatable.Prop
		value datatable.Value
	}{
		{datatable.Int("small", 4, datatable.Unsigned), datatable.IntValue(0x1f)},
		{datatable.Int("signed", 4, 0), datatable.IntValue(9)},
		{datatable.String("short", 2), datatable.StringValue("abc")},
		{datatable.Vector("dir", 0, 0, 0, datatable.Normal|datatable.NoScale), datatable.VectorValue(0.6, 0.8, 5)},
	}
	for _, test := range tests {
		codec := MustFor(test.prop.Type)
		wire := roundTrip(t, &test.prop, test.value)
		copied := codec.FastCopy(&test.prop, test.value)
		if !copied.Equal(wire) {
			t.Errorf("%s: FastCopy = %s, wire = %s", test.prop.Name, copied.Format(), wire.Format())
		}
	}
}

func TestForUnknownType(t *testing.T) {
	if _, err := For(datatable.PropType(99)); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("For(99) = %v, want ErrUnknownType", err)
	}
}

func TestFloatEncodingPrecedence(t *testing.T) {
	tests := []struct {
		flags datatable.Flags
		bits  int
		want  FloatEncoding
	}{
		{datatable.Coord | datatable.NoScale, 8, FloatCoord},
		{datatable.CoordMPIntegral | datatable.Normal, 8, FloatCoordMP},
		{datatable.NoScale | datatable.Normal, 8, FloatNoScale},
		{datatable.Normal | datatable.CellCoord, 8, FloatNormal},
		{datatable.CellCoordLowPrecision, 8, FloatCellCoord},
		{0, 8, FloatQuantized},
		{0, 32, FloatNoScale},
	}
	for _, test := range tests {
		prop := datatable.Float("f", test.bits, 0, 1, test.flags)
		if got, _ := FloatEncodingOf(&prop); got != test.want {
			t.Errorf("FloatEncodingOf(%s, %d bits) = %s, want %s", test.flags, test.bits, got, test.want)
		}
	}
}
