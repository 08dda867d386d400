// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datatable

import (
	"reflect"
)

// Table is a named, ordered list of props.
type Table struct {
	Name  string
	Props []Prop

	// Type is the Go struct the table describes. When set, prop offsets
	// are computed from the struct layout and default-bound fields are
	// checked at precalculation.
	Type reflect.Type
}

// NewTable returns a table with no associated Go type.
func NewTable(name string, props ...Prop) *Table {
	return &Table{Name: name, Props: props}
}

// TableFor returns a table describing the struct type T.
func TableFor[T any](name string, props ...Prop) *Table {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return &Table{Name: name, Props: props, Type: t}
}

// Prop returns the first prop named name.
func (t *Table) Prop(name string) (*Prop, bool) {
	for i := range t.Props {
		if t.Props[i].Name == name {
			return &t.Props[i], true
		}
	}
	return nil, false
}

// Walk calls fn for t and every table nested beneath it, parents before
// children, visiting each table once.
func (t *Table) Walk(fn func(*Table) error) error {
	return t.walk(fn, make(map[*Table]bool))
}

func (t *Table) walk(fn func(*Table) error, seen map[*Table]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true
	if err := fn(t); err != nil {
		return err
	}
	for i := range t.Props {
		if nested := t.Props[i].Table; nested != nil {
			if err := nested.walk(fn, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
