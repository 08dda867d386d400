// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package datatable defines replicated object schemas and flattens them
// into the ordered property list every other codec package works from.
//
// A [Table] is a named, ordered list of [Prop] descriptors. Props are
// leaves (Int, Int64, Float, Vector, VectorXY, String, Array) or
// references to nested tables (DataTable). [Precalculate] walks a table
// tree once and produces an immutable [Precalc]:
//
//   - the flat leaf list, stably sorted by priority with every
//     ChangesOften prop coalesced into [ChangesOftenPriority];
//   - a proxy tree with one [Node] per non-collapsible nested table,
//     numbered densely in pre-order;
//   - table-proxy indices for nodes whose resolver filters recipients;
//   - a sorted offset table for reverse lookups from struct offsets.
//
// The flat index of a leaf is its field path on the wire. Two endpoints
// that precalculate structurally identical tables agree on every field
// path.
//
// Props without explicit proxies bind to Go values by reflection: a
// leaf reads and writes the exported struct field matching its name (or
// [Prop.Field]), and a nested table resolves to the address of its
// field. map[string]any bases are supported for schema-driven tools
// that have no Go type.
//
// Tables and Precalc values are immutable after construction and safe
// for concurrent use.
package datatable
