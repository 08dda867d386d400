// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datatable

import (
	"math/bits"
)

// Recipients is a set of client indices in [0, MaxClients).
type Recipients [MaxClients / 64]uint64

// AllRecipients returns a set containing every client.
func AllRecipients() Recipients {
	var r Recipients
	for i := range r {
		r[i] = ^uint64(0)
	}
	return r
}

// Add inserts client into the set. Out of range clients are ignored.
func (r *Recipients) Add(client int) {
	if client < 0 || client >= MaxClients {
		return
	}
	r[client>>6] |= 1 << (client & 63)
}

// Remove deletes client from the set.
func (r *Recipients) Remove(client int) {
	if client < 0 || client >= MaxClients {
		return
	}
	r[client>>6] &^= 1 << (client & 63)
}

// Has reports whether client is in the set.
func (r Recipients) Has(client int) bool {
	if client < 0 || client >= MaxClients {
		return false
	}
	return r[client>>6]&(1<<(client&63)) != 0
}

// Clear empties the set.
func (r *Recipients) Clear() {
	*r = Recipients{}
}

// Intersect keeps only clients also present in other.
func (r *Recipients) Intersect(other Recipients) {
	for i := range r {
		r[i] &= other[i]
	}
}

// Empty reports whether the set has no clients.
func (r Recipients) Empty() bool {
	return r == Recipients{}
}

// Count returns the number of clients in the set.
func (r Recipients) Count() int {
	n := 0
	for _, word := range r {
		n += bits.OnesCount64(word)
	}
	return n
}
