// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"slices"
	"testing"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

type Base struct {
	Health uint8
	Armor  uint8
	Origin [3]float32
}

type weapon struct {
	Clip int32
}

type player struct {
	Base
	Name   string
	Weapon weapon
	Scores []int32
	Pitch  float32
}

func playerTable() *datatable.Table {
	baseTable := datatable.TableFor[Base]("DT_Base",
		datatable.Int("health", 8, datatable.Unsigned),
		datatable.Int("armor", 8, datatable.Unsigned),
		datatable.Vector("origin", 0, 0, 0, datatable.CoordMP|datatable.ChangesOften),
	)
	weaponTable := datatable.TableFor[weapon]("DT_Weapon",
		datatable.Int("clip", 8, 0).WithPriority(10),
	)
	return datatable.TableFor[player]("DT_Player",
		datatable.DataTable("baseclass", baseTable, datatable.Collapsible).WithField("Base"),
		datatable.ExcludeProp("DT_Base", "armor"),
		datatable.String("name", 24),
		datatable.DataTable("weapon", weaponTable, 0),
		datatable.Array("scores", datatable.Int("", 16, datatable.VarInt), 10),
		datatable.Float("pitch", 8, -90, 90, datatable.RoundDown),
	)
}

func TestRebuildFlattensIdentically(t *testing.T) {
	original := playerTable()
	m, err := Build(original)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	rebuilt, err := decoded.Root("DT_Player")
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	want, err := datatable.Precalculate(original)
	if err != nil {
		t.Fatalf("Precalculate original: %v", err)
	}
	got, err := datatable.Precalculate(rebuilt)
	if err != nil {
		t.Fatalf("Precalculate rebuilt: %v", err)
	}
	if got.Len() != want.Len() || got.NumNodes() != want.NumNodes() {
		t.Fatalf("rebuilt flattens to %d leaves and %d nodes, want %d and %d",
			got.Len(), got.NumNodes(), want.Len(), want.NumNodes())
	}
	for i := range want.Len() {
		a, b := want.Leaf(i), got.Leaf(i)
		if a.Path != b.Path || a.Prop.Type != b.Prop.Type || a.Prop.Bits != b.Prop.Bits ||
			a.Prop.Low != b.Prop.Low || a.Prop.High != b.Prop.High || a.Prop.Flags != b.Prop.Flags ||
			a.Prop.MaxElements != b.Prop.MaxElements || a.Prop.MaxLength != b.Prop.MaxLength {
			t.Errorf("leaf %d: rebuilt %s %+v, want %s %+v", i, b.Path, *b.Prop, a.Path, *a.Prop)
		}
	}
	if _, ok := got.Lookup("armor"); ok {
		t.Error("excluded prop survived the rebuild")
	}
	pitch, _ := got.Lookup("pitch")
	if high := got.Leaf(pitch).Prop.High; high != want.Leaf(pitch).Prop.High || high >= 90 {
		t.Errorf("pitch high = %v, want the adjusted range end", high)
	}
}

func TestFingerprint(t *testing.T) {
	first, err := Build(playerTable())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(playerTable())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	hash, err := first.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if err := second.Verify(hash); err != nil {
		t.Fatalf("Verify identical schema: %v", err)
	}

	changed := playerTable()
	changed.Props[2] = datatable.String("name", 25)
	third, err := Build(changed)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := third.Verify(hash); !errors.Is(err, ErrFingerprintMismatch) {
		t.Fatalf("Verify changed schema = %v, want ErrFingerprintMismatch", err)
	}
}

func TestBuildRejectsDuplicateNames(t *testing.T) {
	one := datatable.NewTable("DT_Same", datatable.Int("a", 4, 0))
	two := datatable.NewTable("DT_Same", datatable.Int("b", 4, 0))
	root := datatable.NewTable("DT_Root",
		datatable.DataTable("one", one, 0),
		datatable.DataTable("two", two, 0),
	)
	if _, err := Build(root); err == nil {
		t.Fatal("Build accepted two tables with one name")
	}
}

func TestMultipleRoots(t *testing.T) {
	shared := datatable.NewTable("DT_Shared", datatable.Int("x", 4, 0))
	a := datatable.NewTable("DT_A", datatable.DataTable("s", shared, 0))
	b := datatable.NewTable("DT_B", datatable.DataTable("s", shared, 0))
	m, err := Build(b, a)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Roots) != 2 || m.Roots[0] != "DT_A" || len(m.Tables) != 3 {
		t.Fatalf("roots %v, %d tables", m.Roots, len(m.Tables))
	}
	tables, err := m.Schema()
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if tables["DT_A"].Props[0].Table != tables["DT_B"].Props[0].Table {
		t.Fatal("shared table rebuilt twice")
	}
	if _, err := m.Root("DT_Shared"); err == nil {
		t.Fatal("Root accepted a non-root table")
	}
}

func TestTablesRejectsDanglingReference(t *testing.T) {
	m := &Manifest{
		Version: Version,
		Roots:   []string{"DT_Root"},
		Tables: []TableInfo{{
			Name:  "DT_Root",
			Props: []PropInfo{{Name: "child", Type: datatable.TypeDataTable, Table: "DT_Missing"}},
		}},
	}
	if _, err := m.Schema(); err == nil {
		t.Fatal("Tables accepted a reference to an undescribed table")
	}
}

func TestUnmarshalRejectsVersion(t *testing.T) {
	m := &Manifest{Version: Version + 1}
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := Unmarshal(data); err == nil {
		t.Fatal("Unmarshal accepted a future version")
	}
}

func TestCompare(t *testing.T) {
	current, err := Build(playerTable())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	same, err := Build(playerTable())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	diff, err := Compare(current, same)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !diff.Empty() {
		t.Fatalf("identical manifests differ: %s", diff)
	}

	desiredRoot := playerTable()
	// Drop the weapon table and add a door.
	desiredRoot.Props = slices.DeleteFunc(desiredRoot.Props, func(p datatable.Prop) bool { return p.Name == "weapon" })
	door := datatable.NewTable("DT_Door", datatable.Float("angle", 10, 0, 360, 0))
	desired, err := Build(desiredRoot, door)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	diff, err = Compare(current, desired)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !slices.Equal(diff.Added, []string{"DT_Door"}) ||
		!slices.Equal(diff.Removed, []string{"DT_Weapon"}) ||
		!slices.Equal(diff.Changed, []string{"DT_Player"}) {
		t.Fatalf("Compare = %s", diff)
	}
}
