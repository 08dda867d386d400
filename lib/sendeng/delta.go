// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sendeng

import (
	"math/bits"
	"sort"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/serialized"
)

// CalcDelta returns the ascending flat indices whose payload differs
// between old and current. A prop present in only one of them counts as
// changed, so a prop that returned to zero is resent. A nil old
// reports every prop present in current.
func (e *Encoder) CalcDelta(old, current *serialized.Entity) []int {
	if old == nil {
		return allPaths(current)
	}
	if e.fastDelta {
		return e.CalcDeltaFast(old, current)
	}
	return e.CalcDeltaSlow(old, current)
}

// CalcDeltaSlow merge-walks both entities, comparing shared props with
// their codec.
func (e *Encoder) CalcDeltaSlow(old, current *serialized.Entity) []int {
	return e.mergeDelta(old, current, 0, nil)
}

func (e *Encoder) mergeDelta(old, current *serialized.Entity, from int, changed []int) []int {
	i, j := from, from
	for i < old.Len() || j < current.Len() {
		switch {
		case j >= current.Len() || (i < old.Len() && old.Paths[i] < current.Paths[j]):
			changed = append(changed, int(old.Paths[i]))
			i++
		case i >= old.Len() || current.Paths[j] < old.Paths[i]:
			changed = append(changed, int(current.Paths[j]))
			j++
		default:
			index := int(current.Paths[j])
			if e.codecs[index].CompareDeltas(e.precalc.Leaf(index).Prop, old.FieldReader(i), current.FieldReader(j)) {
				changed = append(changed, index)
			}
			i++
			j++
		}
	}
	return changed
}

// CalcDeltaFast compares the leading fields whose index and bit span
// agree in both entities a word at a time, jumping to the end of each
// changed field. The rest is merge-walked as in [Encoder.CalcDeltaSlow].
// Both produce the same indices.
func (e *Encoder) CalcDeltaFast(old, current *serialized.Entity) []int {
	shared := 0
	for shared < old.Len() && shared < current.Len() {
		oldStart, oldEnd := old.BitRange(shared)
		start, end := current.BitRange(shared)
		if old.Paths[shared] != current.Paths[shared] || oldStart != start || oldEnd != end {
			break
		}
		shared++
	}

	var changed []int
	if shared > 0 {
		_, prefixEnd := current.BitRange(shared - 1)
		for bit := 0; bit < prefixEnd; {
			word := bit >> 5
			diff := old.Word(word) ^ current.Word(word)
			diff &= ^uint32(0) << (bit & 31)
			if remaining := prefixEnd - word*32; remaining < 32 {
				diff &= uint32(1)<<remaining - 1
			}
			if diff == 0 {
				bit = (word + 1) * 32
				continue
			}
			first := word*32 + bits.TrailingZeros32(diff)
			field := sort.Search(shared, func(k int) bool { return int(current.Offsets[k]) > first }) - 1
			changed = append(changed, int(current.Paths[field]))
			_, bit = current.BitRange(field)
		}
	}
	return e.mergeDelta(old, current, shared, changed)
}
