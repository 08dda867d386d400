// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datatable

import (
	"errors"
	"slices"
	"testing"
)

type vec3 struct {
	X, Y, Z float32
}

type kitchenSink struct {
	Count    int16
	Big      uint64
	Enabled  bool
	Speed    float64
	Velocity vec3
	Plane    []float32
	Label    []byte
	Scores   []int32
	Slots    [4]uint8
	Owner    *vec3
}

func TestDefaultAccessorsRoundTrip(t *testing.T) {
	props := []Prop{
		Int("count", 16, 0),
		Int64("big", 64, Unsigned),
		Int("enabled", 1, Unsigned),
		Float("speed", 0, 0, 0, NoScale),
		Vector("velocity", 0, 0, 0, NoScale),
		VectorXY("plane", 0, 0, 0, NoScale),
		String("label", 16),
		Array("scores", Int("", 16, 0), 4),
		Array("slots", Int("", 8, Unsigned), 4),
	}
	values := []Value{
		IntValue(-12),
		Int64Value(1 << 40),
		IntValue(1),
		FloatValue(2.5),
		VectorValue(1, -2, 3),
		VectorXYValue(4, 5),
		StringValue("crate"),
		ArrayValue(IntValue(3), IntValue(-4)),
		ArrayValue(IntValue(9), IntValue(8)),
	}

	var object kitchenSink
	for i := range props {
		if err := setField(&props[i], &object, values[i]); err != nil {
			t.Fatalf("setField(%s): %v", props[i].Name, err)
		}
	}
	if object.Count != -12 || object.Big != 1<<40 || !object.Enabled || object.Speed != 2.5 {
		t.Fatalf("scalars not stored: %+v", object)
	}
	if object.Velocity != (vec3{1, -2, 3}) {
		t.Errorf("Velocity = %+v", object.Velocity)
	}
	if !slices.Equal(object.Plane, []float32{4, 5}) {
		t.Errorf("Plane = %v", object.Plane)
	}
	if object.Slots != [4]uint8{9, 8, 0, 0} {
		t.Errorf("Slots = %v", object.Slots)
	}

	for i := range props {
		got, err := getField(&props[i], &object)
		if err != nil {
			t.Fatalf("getField(%s): %v", props[i].Name, err)
		}
		want := values[i]
		if props[i].Name == "slots" {
			want = ArrayValue(IntValue(9), IntValue(8), IntValue(0), IntValue(0))
		}
		if !got.Equal(want) {
			t.Errorf("%s = %s, want %s", props[i].Name, got.Format(), want.Format())
		}
	}
}

type fixedLength struct {
	n int
}

func (l *fixedLength) Len(owner any) int       { return l.n }
func (l *fixedLength) SetLen(owner any, n int) { l.n = n }

func TestArrayLengthProxy(t *testing.T) {
	length := &fixedLength{n: 1}
	prop := Array("slots", Int("", 8, Unsigned), 4).WithLength(length)
	object := kitchenSink{Slots: [4]uint8{5, 6, 7, 8}}

	got, err := getField(&prop, &object)
	if err != nil {
		t.Fatalf("getField: %v", err)
	}
	if len(got.Elements) != 1 || got.Elements[0].Int != 5 {
		t.Fatalf("slots = %s, want [5]", got.Format())
	}

	if err := setField(&prop, &object, ArrayValue(IntValue(1), IntValue(2), IntValue(3))); err != nil {
		t.Fatalf("setField: %v", err)
	}
	if length.n != 3 {
		t.Errorf("SetLen stored %d, want 3", length.n)
	}
}

func TestArrayLengthCapsCustomAccessors(t *testing.T) {
	length := &fixedLength{n: 2}
	var stored Value
	table := NewTable("DT_Loadout",
		Array("ammo", Int("", 8, Unsigned), 4).
			WithGet(func(any) Value { return ArrayValue(IntValue(9), IntValue(8), IntValue(7)) }).
			WithSet(func(_ any, v Value) { stored = v }).
			WithLength(length))
	precalc, err := Precalculate(table)
	if err != nil {
		t.Fatalf("Precalculate: %v", err)
	}
	leaf := precalc.Leaf(0)
	owner := &struct{}{}

	got, err := leaf.Get(owner)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Elements) != 2 || got.Elements[1].Int != 8 {
		t.Fatalf("ammo = %s, want the first 2 elements", got.Format())
	}

	if err := leaf.Set(owner, ArrayValue(IntValue(1))); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if length.n != 1 || len(stored.Elements) != 1 {
		t.Errorf("after Set: length %d, stored %s; want 1 element", length.n, stored.Format())
	}
}

func TestMapOwner(t *testing.T) {
	object := map[string]any{
		"health": float64(42),
		"pos":    []any{1.0, 2.0, 3.0},
		"name":   "bot",
		"inner":  map[string]any{"x": float64(7)},
	}

	health := Int("health", 8, Unsigned)
	value, err := getField(&health, object)
	if err != nil || value.Int != 42 {
		t.Fatalf("health = %v, %v", value.Int, err)
	}
	pos := Vector("pos", 0, 0, 0, Coord)
	value, err = getField(&pos, object)
	if err != nil || value.Vector != [3]float32{1, 2, 3} {
		t.Fatalf("pos = %v, %v", value.Vector, err)
	}

	missing := String("missing", 0)
	value, err = getField(&missing, object)
	if err != nil || value.String != "" {
		t.Fatalf("missing key = %q, %v; want zero value", value.String, err)
	}

	inner, ok := descend(object, "inner")
	if !ok {
		t.Fatal("descend(inner) failed")
	}
	x := Int("x", 8, 0)
	if err := setField(&x, inner, IntValue(-3)); err != nil {
		t.Fatalf("setField(x): %v", err)
	}
	if got := object["inner"].(map[string]any)["x"]; got != int64(-3) {
		t.Errorf("inner.x = %#v, want int64(-3)", got)
	}
	if _, ok := descend(object, "absent"); ok {
		t.Error("descend(absent) reported a base")
	}
}

func TestBindingErrors(t *testing.T) {
	var object kitchenSink
	unknown := Int("nothing", 8, 0)
	if _, err := getField(&unknown, &object); !errors.Is(err, ErrBinding) {
		t.Errorf("getField(unknown) = %v, want ErrBinding", err)
	}
	mistyped := Int("label", 8, 0)
	if _, err := getField(&mistyped, &object); !errors.Is(err, ErrBinding) {
		t.Errorf("getField(mistyped) = %v, want ErrBinding", err)
	}
	count := Int("count", 8, 0)
	if err := setField(&count, object, IntValue(1)); !errors.Is(err, ErrBinding) {
		t.Errorf("setField(non-pointer) = %v, want ErrBinding", err)
	}
}

func TestDescendPointerField(t *testing.T) {
	object := &kitchenSink{}
	if _, ok := descend(object, "owner"); ok {
		t.Fatal("nil pointer field resolved")
	}
	object.Owner = &vec3{X: 1}
	base, ok := descend(object, "owner")
	if !ok || base != object.Owner {
		t.Fatalf("descend(owner) = %v, %v", base, ok)
	}
	velocity, ok := descend(object, "velocity")
	if !ok || velocity != &object.Velocity {
		t.Fatalf("descend(velocity) = %v, %v", velocity, ok)
	}
}

func TestFlagsParse(t *testing.T) {
	flags := Unsigned | CoordMPLowPrecision | ChangesOften | VarInt
	parsed, err := ParseFlags(flags.Names())
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if parsed != flags {
		t.Fatalf("ParseFlags(%v) = %v", flags.Names(), parsed)
	}
	if _, err := ParseFlags([]string{"sideways"}); err == nil {
		t.Fatal("ParseFlags accepted an unknown flag")
	}
	if got := (Flags(0)).String(); got != "none" {
		t.Errorf("Flags(0).String() = %q", got)
	}
	for typ := TypeInt; typ <= TypeInt64; typ++ {
		parsed, err := ParsePropType(typ.String())
		if err != nil || parsed != typ {
			t.Errorf("ParsePropType(%s) = %v, %v", typ, parsed, err)
		}
	}
}

func TestFloatRoundingAdjustsRange(t *testing.T) {
	down := Float("down", 4, 0, 16, RoundDown)
	if down.Low != 0 || down.High != 15 {
		t.Errorf("RoundDown range = [%v, %v], want [0, 15]", down.Low, down.High)
	}
	up := Float("up", 4, 0, 16, RoundUp)
	if up.Low != 1 || up.High != 16 {
		t.Errorf("RoundUp range = [%v, %v], want [1, 16]", up.Low, up.High)
	}
	raw := Float("raw", 0, 0, 16, RoundDown)
	if raw.High != 16 {
		t.Errorf("unquantized range adjusted to %v", raw.High)
	}
}

func TestRecipients(t *testing.T) {
	var r Recipients
	if !r.Empty() {
		t.Fatal("zero Recipients not empty")
	}
	r.Add(0)
	r.Add(63)
	r.Add(64)
	r.Add(255)
	r.Add(256)
	r.Add(-1)
	if r.Count() != 4 {
		t.Fatalf("Count = %d, want 4", r.Count())
	}
	for _, client := range []int{0, 63, 64, 255} {
		if !r.Has(client) {
			t.Errorf("Has(%d) = false", client)
		}
	}
	if r.Has(1) || r.Has(256) {
		t.Error("Has reports clients never added")
	}

	all := AllRecipients()
	all.Remove(64)
	r.Intersect(all)
	if r.Has(64) || r.Count() != 3 {
		t.Errorf("Intersect left %d clients, has(64)=%v", r.Count(), r.Has(64))
	}
	r.Clear()
	if !r.Empty() {
		t.Error("Clear left clients behind")
	}
}

func TestValueHelpers(t *testing.T) {
	a := ArrayValue(StringValue("x"), StringValue("y"))
	b := a.Clone()
	b.Elements[0].String = "z"
	if a.Elements[0].String != "x" {
		t.Fatal("Clone shares element storage")
	}
	if a.Equal(b) {
		t.Fatal("Equal ignored differing elements")
	}
	if !VectorXYValue(1, 2).Equal(Value{Type: TypeVectorXY, Vector: [3]float32{1, 2, 9}}) {
		t.Error("VectorXY equality compared z")
	}
	if got := VectorValue(1, 0.5, -2).Format(); got != "(1, 0.5, -2)" {
		t.Errorf("Format = %q", got)
	}
}
