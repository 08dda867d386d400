// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sendeng

import (
	"slices"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/dtstack"
)

// CullProps tailors indices to one client. Props under a filtering
// nested table the client cannot see in current are dropped. Every prop
// under a nested table that was hidden from the client in old and is
// visible in current is added, so the client receives the whole
// subtree at once. A nil old means the client has no prior state.
func CullProps(precalc *datatable.Precalc, indices []int, client int, old, current []dtstack.ProxyResult) []int {
	culled := make([]int, 0, len(indices))
	for _, index := range indices {
		if visible(precalc, precalc.Leaf(index).Node, client, current) {
			culled = append(culled, index)
		}
	}

	if old != nil {
		for node := range precalc.NumNodes() {
			if precalc.Node(node).TableProxyIndex == datatable.NoProxy {
				continue
			}
			if visible(precalc, node, client, old) || !visible(precalc, node, client, current) {
				continue
			}
			for _, index := range precalc.SubtreeLeaves(node) {
				if visible(precalc, precalc.Leaf(index).Node, client, current) {
					culled = append(culled, index)
				}
			}
		}
	}

	slices.Sort(culled)
	return slices.Compact(culled)
}

// visible reports whether every filtering node from the root down to
// node admits client.
func visible(precalc *datatable.Precalc, node, client int, results []dtstack.ProxyResult) bool {
	for _, ancestor := range precalc.Node(node).Path {
		proxy := precalc.Node(ancestor).TableProxyIndex
		if proxy == datatable.NoProxy {
			continue
		}
		result := results[proxy]
		if !result.Valid || !result.Recipients.Has(client) {
			return false
		}
	}
	return true
}
