// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recveng

import (
	"fmt"
	"log/slog"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

type tablePair struct {
	send, recv *datatable.Table
}

// mergeBuilder builds the table tree a decoder flattens: the sender's
// props, carrying the receiver's bindings.
type mergeBuilder struct {
	recvTables map[string]*datatable.Table
	policy     Policy
	logger     *slog.Logger
	merged     map[tablePair]*datatable.Table
	unmapped   map[*datatable.Prop]bool
}

func (b *mergeBuilder) mismatch(table, prop, reason string) error {
	if b.policy == PolicyStrict {
		if prop == "" {
			return fmt.Errorf("%w: %s: %s", ErrSchemaMismatch, table, reason)
		}
		return fmt.Errorf("%w: %s.%s: %s", ErrSchemaMismatch, table, prop, reason)
	}
	b.logger.Warn("dropping sent property the receiver cannot store",
		"sent_table", table,
		"prop", prop,
		"reason", reason,
	)
	return nil
}

func (b *mergeBuilder) merge(send, recv *datatable.Table) (*datatable.Table, error) {
	key := tablePair{send, recv}
	if merged, ok := b.merged[key]; ok {
		return merged, nil
	}
	merged := &datatable.Table{
		Name:  send.Name,
		Props: make([]datatable.Prop, len(send.Props)),
	}
	if recv != nil {
		merged.Type = recv.Type
	}
	b.merged[key] = merged

	for i := range send.Props {
		sent := &send.Props[i]
		prop := *sent.Clone()
		prop.Get, prop.Set, prop.Length, prop.Resolver = nil, nil, nil, nil
		if sent.Flags.Has(datatable.Exclude) {
			merged.Props[i] = prop
			continue
		}

		var received *datatable.Prop
		if recv != nil {
			received, _ = recv.Prop(sent.Name)
		}
		mapped := false
		switch {
		case recv == nil:
			// Reported once for the whole table.
		case received == nil:
			if err := b.mismatch(send.Name, sent.Name, "receiver has no such property"); err != nil {
				return nil, err
			}
		case received.Type != sent.Type:
			reason := fmt.Sprintf("sent as %s, received as %s", sent.Type, received.Type)
			if err := b.mismatch(send.Name, sent.Name, reason); err != nil {
				return nil, err
			}
		default:
			bind(&prop, received)
			mapped = true
		}

		if sent.Type == datatable.TypeDataTable && sent.Table != nil {
			var childRecv *datatable.Table
			if mapped {
				childRecv = received.Table
			}
			if childRecv == nil && mapped {
				childRecv = b.recvTables[sent.Table.Name]
			}
			if mapped && childRecv == nil {
				if err := b.mismatch(sent.Table.Name, "", "receiver has no table of this name"); err != nil {
					return nil, err
				}
			}
			child, err := b.merge(sent.Table, childRecv)
			if err != nil {
				return nil, err
			}
			prop.Table = child
		}

		if !mapped {
			unbind(&prop)
		}
		merged.Props[i] = prop
		if !mapped {
			b.unmapped[&merged.Props[i]] = true
		}
	}
	return merged, nil
}

// bind copies the receiver's storage bindings onto a sent prop. Wire
// attributes stay the sender's; string limits become the receiver's.
func bind(prop, received *datatable.Prop) {
	prop.Get = received.Get
	prop.Set = received.Set
	prop.Length = received.Length
	prop.Resolver = received.Resolver
	prop.Field = received.Field
	prop.Offset = received.Offset
	if received.MaxLength > 0 {
		prop.MaxLength = received.MaxLength
	}
	if prop.Element != nil && received.Element != nil && received.Element.MaxLength > 0 {
		prop.Element.MaxLength = received.Element.MaxLength
	}
}

// unbind gives a prop with no receiver inert accessors, so flattening
// needs no storage for it and its subtree never resolves.
func unbind(prop *datatable.Prop) {
	if prop.Type == datatable.TypeDataTable {
		prop.Resolver = datatable.ResolverFunc(func(any) (any, bool) { return nil, false })
		return
	}
	zero := datatable.Zero(prop.Type)
	prop.Get = func(any) datatable.Value { return zero }
	prop.Set = func(any, datatable.Value) {}
}
