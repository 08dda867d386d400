// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package baseline

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/sendeng"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/serialized"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/testutil"
)

// uniformEntity builds an entity of 16-bit fields all holding
// value, which compresses well.
func uniformEntity(t *testing.T, fields int, value uint32) *serialized.Entity {
	t.Helper()
	builder := serialized.NewBuilder(fields * 2)
	for path := range fields {
		builder.Begin(path).WriteUBitLong(value, 16)
	}
	entity, err := builder.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return entity
}

func sameEntity(a, b *serialized.Entity) bool {
	return slices.Equal(a.Paths, b.Paths) && slices.Equal(a.Offsets, b.Offsets) &&
		a.Bits == b.Bits && bytes.Equal(a.Data, b.Data)
}

func TestPutGetRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			store := NewStore(Config{Compression: compression})
			entity := uniformEntity(t, 400, 0x0505)
			hash, changed, err := store.Put("DT_Player", entity)
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			if !changed || hash.IsZero() {
				t.Fatalf("first Put: changed %v, hash %s", changed, hash)
			}

			got, err := store.Get("DT_Player")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !sameEntity(got, entity) {
				t.Fatal("Get returned a different entity")
			}

			infos := store.List()
			if len(infos) != 1 || infos[0].Compression != compression || infos[0].Hash != hash {
				t.Fatalf("List = %+v", infos)
			}
			if compression != CompressionNone && infos[0].StoredSize >= infos[0].Size {
				t.Errorf("stored %d bytes of %d", infos[0].StoredSize, infos[0].Size)
			}
		})
	}
}

func TestPutReportsChange(t *testing.T) {
	store := NewStore(Config{Compression: CompressionLZ4})
	first, _, err := store.Put("DT_Door", uniformEntity(t, 8, 1))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	again, changed, err := store.Put("DT_Door", uniformEntity(t, 8, 1))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if changed || again != first {
		t.Fatalf("identical Put: changed %v, hash %s want %s", changed, again, first)
	}
	other, changed, err := store.Put("DT_Door", uniformEntity(t, 8, 2))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !changed || other == first {
		t.Fatalf("different Put: changed %v, hash %s", changed, other)
	}
	if hash, ok := store.Hash("DT_Door"); !ok || hash != other {
		t.Fatalf("Hash = %s, %v", hash, ok)
	}
}

func TestSmallBaselineStoredUncompressed(t *testing.T) {
	store := NewStore(Config{Compression: CompressionZstd})
	if _, _, err := store.Put("DT_Tiny", uniformEntity(t, 1, 3)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if infos := store.List(); infos[0].Compression != CompressionNone {
		t.Fatalf("tiny baseline stored with %s", infos[0].Compression)
	}
}

func TestRemove(t *testing.T) {
	store := NewStore(Config{})
	classes := []string{testutil.UniqueID("DT_Door"), testutil.UniqueID("DT_Door")}
	for _, class := range classes {
		_, _, err := store.Put(class, uniformEntity(t, 2, 1))
		testutil.RequireNoError(t, err, "Put %s", class)
	}
	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}
	if !store.Remove(classes[0]) || store.Remove(classes[0]) {
		t.Fatal("Remove did not report the stored baseline exactly once")
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d after Remove", store.Len())
	}
	_, err := store.Get(classes[0])
	testutil.RequireErrorIs(t, err, ErrNotFound, "Get after Remove")
	_, err = store.Export(classes[0])
	testutil.RequireErrorIs(t, err, ErrNotFound, "Export after Remove")
	if _, err := store.Get(classes[1]); err != nil {
		t.Fatalf("Get %s: %v", classes[1], err)
	}
}

func TestExportImport(t *testing.T) {
	sender := NewStore(Config{Compression: CompressionZstd})
	entity := uniformEntity(t, 300, 0x0a0a)
	hash, _, err := sender.Put("DT_Player", entity)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	exported, err := sender.Export("DT_Player")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if Compression(exported[0]) != CompressionZstd {
		t.Fatalf("exported compression byte %d", exported[0])
	}

	receiver := NewStore(Config{Compression: CompressionNone})
	imported, changed, err := receiver.Import("DT_Player", exported)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !changed || imported != hash {
		t.Fatalf("Import: changed %v, hash %s want %s", changed, imported, hash)
	}
	if _, changed, _ := receiver.Import("DT_Player", exported); changed {
		t.Fatal("importing the same baseline twice reported a change")
	}
	got, err := receiver.Get("DT_Player")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !sameEntity(got, entity) {
		t.Fatal("imported baseline differs")
	}
}

func TestImportRejectsCorrupt(t *testing.T) {
	sender := NewStore(Config{Compression: CompressionLZ4})
	if _, _, err := sender.Put("DT_Player", uniformEntity(t, 300, 0x0a0a)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	exported, err := sender.Export("DT_Player")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", exported[:1]},
		{"truncated", exported[:len(exported)/2]},
		{"unknown compression", append([]byte{9}, exported[1:]...)},
		{"wrong size", append([]byte{exported[0], 1}, exported[3:]...)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			receiver := NewStore(Config{})
			if _, _, err := receiver.Import("DT_Player", test.data); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("Import = %v, want ErrCorrupt", err)
			}
			if receiver.Len() != 0 {
				t.Fatal("corrupt import was stored")
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		compression, err := ParseCompression(name)
		if err != nil {
			t.Fatalf("ParseCompression(%q): %v", name, err)
		}
		if compression.String() != name {
			t.Errorf("ParseCompression(%q).String() = %q", name, compression.String())
		}
	}
	if compression, err := ParseCompression(""); err != nil || compression != CompressionLZ4 {
		t.Errorf("ParseCompression(\"\") = %s, %v", compression, err)
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression accepted gzip")
	}
}

type door struct {
	Angle  uint16
	Locked bool
	Owner  string
}

// Sending against a baseline writes only the props that differ from it.
func TestDeltaAgainstBaseline(t *testing.T) {
	table := datatable.TableFor[door]("DT_Door",
		datatable.Int("angle", 9, datatable.Unsigned),
		datatable.Int("locked", 1, datatable.Unsigned),
		datatable.String("owner", 16),
	)
	precalc, err := datatable.Precalculate(table)
	if err != nil {
		t.Fatalf("Precalculate: %v", err)
	}
	encoder := sendeng.New(precalc, sendeng.Config{FastDelta: true})

	typical, _, err := encoder.Encode(&door{Angle: 90, Locked: true, Owner: "map"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	store := NewStore(Config{Compression: CompressionLZ4})
	if _, _, err := store.Put("DT_Door", typical); err != nil {
		t.Fatalf("Put: %v", err)
	}
	base, err := store.Get("DT_Door")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	current, _, err := encoder.Encode(&door{Angle: 180, Locked: true, Owner: "map"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := bitbuf.NewWriter(16)
	changed, err := encoder.WriteDelta(out, base, current)
	if err != nil {
		t.Fatalf("WriteDelta: %v", err)
	}
	angle, _ := precalc.Lookup("angle")
	if !slices.Equal(changed, []int{angle}) {
		t.Fatalf("changed = %v, want [%d]", changed, angle)
	}
}
