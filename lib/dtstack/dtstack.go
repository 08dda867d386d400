// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dtstack resolves the proxy tree of a flattened schema against
// one object. The encoder and decoder resolve every nested table base
// once per object and then look bases up by recursive proxy index while
// walking the flat property list.
//
// A node whose resolver fails, or whose parent failed, is invalid: none
// of the props beneath it are read or written for that object. A
// [SendStack] also narrows the recipient set at each filtering node so
// the caller can cull props a client must not see.
//
// Stacks hold per-call state. Allocate one per goroutine and reuse it
// across objects of the same schema.
package dtstack

import (
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

// ProxyResult is the outcome of one filtering node for one object.
type ProxyResult struct {
	// Valid is false when the node or one of its ancestors failed to
	// resolve.
	Valid bool

	// Recipients is the set of clients that may see the node's props.
	// Empty when Valid is false.
	Recipients datatable.Recipients
}

// Stack caches resolved bases by recursive proxy index.
type Stack struct {
	precalc *datatable.Precalc
	bases   []any
	valid   []bool
}

// New returns a stack for precalc.
func New(precalc *datatable.Precalc) *Stack {
	return &Stack{
		precalc: precalc,
		bases:   make([]any, precalc.NumNodes()),
		valid:   make([]bool, precalc.NumNodes()),
	}
}

// Precalc returns the schema the stack resolves.
func (s *Stack) Precalc() *datatable.Precalc { return s.precalc }

// Resolve walks the proxy tree from object. Parents precede children in
// recursive index order, so a single pass suffices.
func (s *Stack) Resolve(object any) {
	for i := range s.bases {
		s.resolveNode(i, object)
	}
}

func (s *Stack) resolveNode(i int, object any) {
	node := s.precalc.Node(i)
	parentBase := object
	if node.Parent >= 0 {
		if !s.valid[node.Parent] {
			s.bases[i], s.valid[i] = nil, false
			return
		}
		parentBase = s.bases[node.Parent]
	}
	base, ok := node.Resolve(parentBase)
	ok = ok && base != nil
	if !ok {
		base = nil
	}
	s.bases[i], s.valid[i] = base, ok
}

// Base returns the resolved base of node, or false when the node is
// invalid for the current object.
func (s *Stack) Base(node int) (any, bool) {
	return s.bases[node], s.valid[node]
}

// Valid reports whether node resolved.
func (s *Stack) Valid(node int) bool {
	return s.valid[node]
}

// LeafBase returns the base of the node owning flat index leaf.
func (s *Stack) LeafBase(leaf int) (any, bool) {
	return s.Base(s.precalc.Leaf(leaf).Node)
}

// RecvStack gates decoded writes: a prop is stored only when its node
// resolved on the receiving object.
type RecvStack struct {
	Stack
}

// NewRecvStack returns a receive-side stack for precalc.
func NewRecvStack(precalc *datatable.Precalc) *RecvStack {
	return &RecvStack{Stack: *New(precalc)}
}

// SendStack additionally tracks which clients can see each node.
type SendStack struct {
	Stack
	recipients []datatable.Recipients
	results    []ProxyResult
}

// NewSendStack returns a send-side stack for precalc.
func NewSendStack(precalc *datatable.Precalc) *SendStack {
	return &SendStack{
		Stack:      *New(precalc),
		recipients: make([]datatable.Recipients, precalc.NumNodes()),
		results:    make([]ProxyResult, precalc.NumTableProxies()),
	}
}

// Resolve walks the proxy tree from object, narrowing recipients at
// every filtering node. The root is visible to every client.
func (s *SendStack) Resolve(object any) {
	for i := range s.bases {
		s.resolveNode(i, object)

		node := s.precalc.Node(i)
		switch {
		case !s.valid[i]:
			s.recipients[i].Clear()
		case node.Parent < 0:
			s.recipients[i] = datatable.AllRecipients()
		default:
			s.recipients[i] = s.recipients[node.Parent]
			if node.Filters() {
				node.FilterRecipients(s.bases[node.Parent], &s.recipients[i])
			}
		}
		if node.TableProxyIndex != datatable.NoProxy {
			s.results[node.TableProxyIndex] = ProxyResult{
				Valid:      s.valid[i],
				Recipients: s.recipients[i],
			}
		}
	}
}

// Recipients returns the clients that can see node.
func (s *SendStack) Recipients(node int) datatable.Recipients {
	return s.recipients[node]
}

// Results returns a copy of the per-filtering-node results, indexed by
// table proxy index.
func (s *SendStack) Results() []ProxyResult {
	return append([]ProxyResult(nil), s.results...)
}
