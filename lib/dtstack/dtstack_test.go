// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dtstack

import (
	"testing"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

type gun struct {
	Ammo int32
}

type intel struct {
	Code  int32
	Notes gun
}

type soldier struct {
	Health uint8
	Team   int
	Hidden bool
	Gun    gun
	Secret *gun
	Intel  intel
}

// Nodes in recursive order: root, gun, secret, intel, intel.notes.
func soldierPrecalc(t *testing.T) *datatable.Precalc {
	t.Helper()
	gunTable := datatable.TableFor[gun]("DT_Gun", datatable.Int("ammo", 16, 0))
	intelTable := datatable.TableFor[intel]("DT_Intel",
		datatable.Int("code", 16, 0),
		datatable.DataTable("notes", gunTable, 0),
	)
	teamOnly := datatable.VisibleTo(
		datatable.ResolverFunc(func(owner any) (any, bool) {
			s := owner.(*soldier)
			return &s.Intel, !s.Hidden
		}),
		func(owner any) datatable.Recipients {
			var r datatable.Recipients
			r.Add(owner.(*soldier).Team)
			return r
		},
	)
	root := datatable.TableFor[soldier]("DT_Soldier",
		datatable.Int("health", 8, datatable.Unsigned),
		datatable.DataTable("gun", gunTable, 0),
		datatable.DataTable("secret", gunTable, 0),
		datatable.DataTable("intel", intelTable, 0).WithResolver(teamOnly),
	)
	precalc, err := datatable.Precalculate(root)
	if err != nil {
		t.Fatalf("Precalculate: %v", err)
	}
	if precalc.NumNodes() != 5 || precalc.NumTableProxies() != 1 {
		t.Fatalf("schema has %d nodes and %d table proxies, want 5 and 1", precalc.NumNodes(), precalc.NumTableProxies())
	}
	return precalc
}

func TestStackResolve(t *testing.T) {
	precalc := soldierPrecalc(t)
	object := &soldier{Health: 90}
	stack := New(precalc)
	stack.Resolve(object)

	if base, ok := stack.Base(0); !ok || base != object {
		t.Errorf("root base = %v, %v; want the object", base, ok)
	}
	if base, ok := stack.Base(1); !ok || base != &object.Gun {
		t.Errorf("gun base = %v, %v; want &object.Gun", base, ok)
	}
	if _, ok := stack.Base(2); ok {
		t.Error("nil pointer table resolved")
	}
	if base, ok := stack.Base(4); !ok || base != &object.Intel.Notes {
		t.Errorf("notes base = %v, %v; want &object.Intel.Notes", base, ok)
	}

	index, ok := precalc.Lookup("secret.ammo")
	if !ok {
		t.Fatal("Lookup(secret.ammo) failed")
	}
	if _, ok := stack.LeafBase(index); ok {
		t.Error("leaf under an invalid node has a base")
	}

	// Reusing the stack picks up the new pointer.
	object.Secret = &gun{Ammo: 3}
	stack.Resolve(object)
	if base, ok := stack.Base(2); !ok || base != object.Secret {
		t.Errorf("secret base after assignment = %v, %v", base, ok)
	}
}

func TestInvalidNodeDisablesSubtree(t *testing.T) {
	precalc := soldierPrecalc(t)
	stack := NewSendStack(precalc)
	stack.Resolve(&soldier{Hidden: true, Team: 2})

	for _, node := range []int{3, 4} {
		if stack.Valid(node) {
			t.Errorf("node %d valid under a failed resolver", node)
		}
		if !stack.Recipients(node).Empty() {
			t.Errorf("node %d has recipients under a failed resolver", node)
		}
	}
	if !stack.Valid(1) {
		t.Error("sibling node invalidated")
	}
	results := stack.Results()
	if results[0].Valid || !results[0].Recipients.Empty() {
		t.Errorf("filtering node result = %+v, want invalid", results[0])
	}
}

func TestSendStackRecipients(t *testing.T) {
	precalc := soldierPrecalc(t)
	stack := NewSendStack(precalc)
	stack.Resolve(&soldier{Team: 7})

	if got := stack.Recipients(0).Count(); got != datatable.MaxClients {
		t.Errorf("root recipients = %d, want every client", got)
	}
	if got := stack.Recipients(1).Count(); got != datatable.MaxClients {
		t.Errorf("unfiltered child recipients = %d, want every client", got)
	}
	for _, node := range []int{3, 4} {
		recipients := stack.Recipients(node)
		if !recipients.Has(7) || recipients.Has(6) || recipients.Count() != 1 {
			t.Errorf("node %d recipients = %v, want only client 7", node, recipients)
		}
	}

	results := stack.Results()
	if len(results) != 1 || !results[0].Valid || !results[0].Recipients.Has(7) {
		t.Fatalf("Results = %+v", results)
	}
	results[0].Valid = false
	if !stack.Results()[0].Valid {
		t.Error("Results returned the stack's own slice")
	}
}

func TestNilObject(t *testing.T) {
	precalc := soldierPrecalc(t)
	stack := NewRecvStack(precalc)
	stack.Resolve(nil)
	for node := range precalc.NumNodes() {
		if stack.Valid(node) {
			t.Errorf("node %d valid for a nil object", node)
		}
	}
}
