// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sendeng

import (
	"slices"
	"testing"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/dtstack"
)

type orders struct {
	Code int32
	Rank int32
}

type squad struct {
	Health uint8
	Team   int
	Orders orders
}

// Flat order: health 0, orders.code 1, orders.rank 2. The orders table
// is visible only to clients on the squad's team.
func squadEncoder(t *testing.T) *Encoder {
	t.Helper()
	ordersTable := datatable.TableFor[orders]("DT_Orders",
		datatable.Int("code", 16, 0),
		datatable.Int("rank", 4, 0),
	)
	teamOnly := datatable.VisibleTo(
		datatable.ResolverFunc(func(owner any) (any, bool) { return &owner.(*squad).Orders, true }),
		func(owner any) datatable.Recipients {
			var r datatable.Recipients
			r.Add(owner.(*squad).Team)
			return r
		},
	)
	table := datatable.TableFor[squad]("DT_Squad",
		datatable.Int("health", 8, datatable.Unsigned),
		datatable.DataTable("orders", ordersTable, 0).WithResolver(teamOnly),
	)
	precalc, err := datatable.Precalculate(table)
	if err != nil {
		t.Fatalf("Precalculate: %v", err)
	}
	return New(precalc, Config{})
}

func proxies(t *testing.T, encoder *Encoder, object *squad) []dtstack.ProxyResult {
	t.Helper()
	_, results, err := encoder.Encode(object)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return results
}

func TestCullProps(t *testing.T) {
	encoder := squadEncoder(t)
	precalc := encoder.Precalc()
	onTeam3 := proxies(t, encoder, &squad{Health: 1, Team: 3, Orders: orders{Code: 9}})
	onTeam4 := proxies(t, encoder, &squad{Health: 1, Team: 4, Orders: orders{Code: 9}})

	tests := []struct {
		name    string
		indices []int
		client  int
		old     []dtstack.ProxyResult
		current []dtstack.ProxyResult
		want    []int
	}{
		{"visible", []int{0, 1}, 3, onTeam3, onTeam3, []int{0, 1}},
		{"hidden", []int{0, 1}, 4, onTeam3, onTeam3, []int{0}},
		{"first send", []int{0, 1}, 3, nil, onTeam3, []int{0, 1}},
		{"became visible", []int{0}, 3, onTeam4, onTeam3, []int{0, 1, 2}},
		{"became hidden", []int{0, 2}, 3, onTeam3, onTeam4, []int{0}},
		{"other client unaffected", []int{0}, 5, onTeam4, onTeam3, []int{0}},
	}
	for _, test := range tests {
		got := CullProps(precalc, test.indices, test.client, test.old, test.current)
		if !slices.Equal(got, test.want) {
			t.Errorf("%s: CullProps = %v, want %v", test.name, got, test.want)
		}
	}
}
