// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datatable

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sort"
)

var (
	// ErrSchemaOverflow reports a table tree exceeding a schema limit.
	ErrSchemaOverflow = errors.New("datatable: schema overflow")

	// ErrInvalidSchema reports a malformed prop or table.
	ErrInvalidSchema = errors.New("datatable: invalid schema")
)

// NoProxy is the table-proxy index of a node that cannot filter
// recipients.
const NoProxy = -1

// Node is one level of indirection in the proxy tree. The root node
// (index 0) is the object itself.
type Node struct {
	// Parent is the recursive index of the parent node, -1 at the root.
	Parent int

	// Prop is the nested table prop that created the node; nil at the
	// root.
	Prop  *Prop
	Table *Table

	// Name is the dotted path of the node, empty at the root.
	Name string

	RecursiveIndex  int
	TableProxyIndex int

	// Path holds the recursive indices from the root to this node,
	// inclusive.
	Path []int

	Children []int

	// Leaves holds the flat indices of the leaves owned directly by this
	// node, ascending.
	Leaves []int

	// Offset is the accumulated byte offset of the nested table.
	Offset uintptr

	prefix   []string
	resolver Resolver
	filter   RecipientFilter
}

// Resolve maps the parent node's base to this node's base.
func (n *Node) Resolve(parentBase any) (any, bool) {
	if n.resolver == nil {
		return parentBase, parentBase != nil
	}
	owner, ok := follow(parentBase, n.prefix)
	if !ok {
		return nil, false
	}
	return n.resolver.Resolve(owner)
}

// Filters reports whether the node limits its recipients.
func (n *Node) Filters() bool {
	return n.filter != nil
}

// FilterRecipients narrows recipients to the clients that can see this
// node, given the parent node's base.
func (n *Node) FilterRecipients(parentBase any, recipients *Recipients) {
	if n.filter == nil {
		return
	}
	owner, ok := follow(parentBase, n.prefix)
	if !ok {
		recipients.Clear()
		return
	}
	n.filter.FilterRecipients(owner, recipients)
}

// Leaf is one entry of the flat property list.
type Leaf struct {
	Prop *Prop

	// Path is the dotted name of the leaf through non-collapsible
	// nested tables.
	Path string

	// Table is the name of the table declaring the prop.
	Table string

	// Node is the recursive index of the proxy node owning the leaf.
	Node int

	// Offset is the accumulated byte offset of the prop.
	Offset uintptr

	prefix []string
}

// Owner returns the struct holding the prop, given its node's base.
// Collapsed tables are stepped through here.
func (l *Leaf) Owner(base any) (any, bool) {
	return follow(base, l.prefix)
}

// Get reads the prop's current value from its node's base.
func (l *Leaf) Get(base any) (Value, error) {
	owner, ok := l.Owner(base)
	if !ok {
		return Zero(l.Prop.Type), fmt.Errorf("%w: %s: collapsed owner unavailable", ErrBinding, l.Path)
	}
	if l.Prop.Get != nil {
		value := l.Prop.Get(owner)
		if l.Prop.Type == TypeArray && l.Prop.Length != nil {
			n := max(0, min(len(value.Elements), l.Prop.Length.Len(owner)))
			value.Elements = value.Elements[:n]
		}
		return value, nil
	}
	return getField(l.Prop, owner)
}

// Set stores value into the prop given its node's base.
func (l *Leaf) Set(base any, value Value) error {
	owner, ok := l.Owner(base)
	if !ok {
		return fmt.Errorf("%w: %s: collapsed owner unavailable", ErrBinding, l.Path)
	}
	if l.Prop.Set != nil {
		l.Prop.Set(owner, value)
		if l.Prop.Type == TypeArray && l.Prop.Length != nil {
			l.Prop.Length.SetLen(owner, len(value.Elements))
		}
		return nil
	}
	return setField(l.Prop, owner, value)
}

func follow(base any, steps []string) (any, bool) {
	if base == nil {
		return nil, false
	}
	for _, step := range steps {
		next, ok := descend(base, step)
		if !ok {
			return nil, false
		}
		base = next
	}
	return base, true
}

type offsetEntry struct {
	offset uintptr
	index  int
}

// Precalc is the flattened form of a table tree.
type Precalc struct {
	table        *Table
	leaves       []Leaf
	nodes        []Node
	tableProxies int
	offsets      []offsetEntry
	paths        map[string]int
}

// Table returns the root table.
func (p *Precalc) Table() *Table { return p.table }

// Len returns the number of leaves.
func (p *Precalc) Len() int { return len(p.leaves) }

// Leaf returns the leaf with flat index i.
func (p *Precalc) Leaf(i int) *Leaf { return &p.leaves[i] }

// NumNodes returns the number of proxy tree nodes, root included.
func (p *Precalc) NumNodes() int { return len(p.nodes) }

// Node returns the node with recursive index i.
func (p *Precalc) Node(i int) *Node { return &p.nodes[i] }

// NumTableProxies returns the number of nodes that filter recipients.
func (p *Precalc) NumTableProxies() int { return p.tableProxies }

// Lookup returns the flat index of the leaf with the given dotted path.
func (p *Precalc) Lookup(path string) (int, bool) {
	i, ok := p.paths[path]
	return i, ok
}

// PropsAtOffset returns the flat indices of every leaf whose
// accumulated offset equals offset, ascending.
func (p *Precalc) PropsAtOffset(offset uintptr) []int {
	start := sort.Search(len(p.offsets), func(i int) bool {
		return p.offsets[i].offset >= offset
	})
	var indices []int
	for i := start; i < len(p.offsets) && p.offsets[i].offset == offset; i++ {
		indices = append(indices, p.offsets[i].index)
	}
	return indices
}

// InSubtree reports whether leaf is owned by node or one of its
// descendants.
func (p *Precalc) InSubtree(leaf, node int) bool {
	return slices.Contains(p.nodes[p.leaves[leaf].Node].Path, node)
}

// SubtreeLeaves returns every flat index owned by node or its
// descendants, ascending.
func (p *Precalc) SubtreeLeaves(node int) []int {
	var indices []int
	for i := range p.leaves {
		if p.InSubtree(i, node) {
			indices = append(indices, i)
		}
	}
	return indices
}

type excludeKey struct {
	table string
	prop  string
}

type precalcBuilder struct {
	excludes     map[excludeKey]struct{}
	leaves       []Leaf
	nodes        []Node
	tableProxies int
}

// Precalculate flattens root. The result depends only on the structure
// of the tree, so running it twice over the same tables yields the same
// flat order.
func Precalculate(root *Table) (*Precalc, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil table", ErrInvalidSchema)
	}
	b := &precalcBuilder{excludes: make(map[excludeKey]struct{})}
	if err := b.collectExcludes(root, 0, make(map[*Table]bool)); err != nil {
		return nil, err
	}

	b.nodes = append(b.nodes, Node{
		Parent:          -1,
		Table:           root,
		TableProxyIndex: NoProxy,
		Path:            []int{0},
	})
	if err := b.walk(root, 0, nil, "", 0, 0); err != nil {
		return nil, err
	}

	slices.SortStableFunc(b.leaves, func(x, y Leaf) int {
		return cmp.Compare(x.Prop.EffectivePriority(), y.Prop.EffectivePriority())
	})

	p := &Precalc{
		table:        root,
		leaves:       b.leaves,
		nodes:        b.nodes,
		tableProxies: b.tableProxies,
		offsets:      make([]offsetEntry, len(b.leaves)),
		paths:        make(map[string]int, len(b.leaves)),
	}
	for i := range p.leaves {
		leaf := &p.leaves[i]
		node := &p.nodes[leaf.Node]
		node.Leaves = append(node.Leaves, i)
		p.offsets[i] = offsetEntry{offset: leaf.Offset, index: i}
		if _, exists := p.paths[leaf.Path]; !exists {
			p.paths[leaf.Path] = i
		}
	}
	slices.SortFunc(p.offsets, func(x, y offsetEntry) int {
		if c := cmp.Compare(x.offset, y.offset); c != 0 {
			return c
		}
		return cmp.Compare(x.index, y.index)
	})
	return p, nil
}

func (b *precalcBuilder) collectExcludes(table *Table, depth int, seen map[*Table]bool) error {
	if depth > MaxNestingDepth {
		return fmt.Errorf("%w: %s nests deeper than %d tables", ErrSchemaOverflow, table.Name, MaxNestingDepth)
	}
	if seen[table] {
		return nil
	}
	seen[table] = true
	for i := range table.Props {
		prop := &table.Props[i]
		if prop.Flags.Has(Exclude) {
			b.excludes[excludeKey{prop.ExcludeTable, prop.Name}] = struct{}{}
			if len(b.excludes) > MaxExcludes {
				return fmt.Errorf("%w: more than %d excludes", ErrSchemaOverflow, MaxExcludes)
			}
			continue
		}
		if prop.Type == TypeDataTable && prop.Table != nil {
			if err := b.collectExcludes(prop.Table, depth+1, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *precalcBuilder) walk(table *Table, node int, prefix []string, path string, offset uintptr, depth int) error {
	if depth > MaxNestingDepth {
		return fmt.Errorf("%w: %s nests deeper than %d tables", ErrSchemaOverflow, table.Name, MaxNestingDepth)
	}
	for i := range table.Props {
		prop := &table.Props[i]
		if prop.Flags.Any(Exclude | InsideArray) {
			continue
		}
		if _, excluded := b.excludes[excludeKey{table.Name, prop.Name}]; excluded {
			continue
		}
		if !prop.Type.Valid() {
			return fmt.Errorf("%w: %s.%s has type %s", ErrInvalidSchema, table.Name, prop.Name, prop.Type)
		}
		own := propOffset(table, prop)

		if prop.Type == TypeDataTable {
			if prop.Table == nil {
				return fmt.Errorf("%w: %s.%s references no table", ErrInvalidSchema, table.Name, prop.Name)
			}
			if prop.Flags.Has(Collapsible) {
				steps := append(slices.Clone(prefix), prop.FieldName())
				if err := b.walk(prop.Table, node, steps, path, offset+own, depth+1); err != nil {
					return err
				}
				continue
			}
			child, err := b.addNode(node, prop, prefix, joinPath(path, prop.Name), offset+own)
			if err != nil {
				return err
			}
			if err := b.walk(prop.Table, child, nil, b.nodes[child].Name, offset+own, depth+1); err != nil {
				return err
			}
			continue
		}

		if err := checkLeaf(table, prop); err != nil {
			return err
		}
		if len(b.leaves) >= MaxProps {
			return fmt.Errorf("%w: more than %d properties under %s", ErrSchemaOverflow, MaxProps, table.Name)
		}
		b.leaves = append(b.leaves, Leaf{
			Prop:   prop,
			Path:   joinPath(path, prop.Name),
			Table:  table.Name,
			Node:   node,
			Offset: offset + own,
			prefix: slices.Clone(prefix),
		})
	}
	return nil
}

func (b *precalcBuilder) addNode(parent int, prop *Prop, prefix []string, name string, offset uintptr) (int, error) {
	index := len(b.nodes)
	if index >= MaxRecursiveProxies {
		return 0, fmt.Errorf("%w: more than %d nested tables", ErrSchemaOverflow, MaxRecursiveProxies)
	}

	var resolver Resolver = fieldResolver{name: prop.FieldName()}
	if prop.Resolver != nil {
		resolver = prop.Resolver
	}
	tableProxy := NoProxy
	filter, filters := prop.Resolver.(RecipientFilter)
	if filters && !prop.Flags.Has(ProxyAlwaysYes) {
		if b.tableProxies >= MaxTableProxies {
			return 0, fmt.Errorf("%w: more than %d filtering table proxies", ErrSchemaOverflow, MaxTableProxies)
		}
		tableProxy = b.tableProxies
		b.tableProxies++
	} else {
		filter = nil
	}

	b.nodes = append(b.nodes, Node{
		Parent:          parent,
		Prop:            prop,
		Table:           prop.Table,
		Name:            name,
		RecursiveIndex:  index,
		TableProxyIndex: tableProxy,
		Path:            append(slices.Clone(b.nodes[parent].Path), index),
		Offset:          offset,
		prefix:          slices.Clone(prefix),
		resolver:        resolver,
		filter:          filter,
	})
	b.nodes[parent].Children = append(b.nodes[parent].Children, index)
	return index, nil
}

func checkLeaf(table *Table, prop *Prop) error {
	switch prop.Type {
	case TypeArray:
		if prop.Element == nil {
			return fmt.Errorf("%w: array %s.%s has no element template", ErrInvalidSchema, table.Name, prop.Name)
		}
		if prop.Element.Type == TypeArray || prop.Element.Type == TypeDataTable {
			return fmt.Errorf("%w: array %s.%s has %s elements", ErrInvalidSchema, table.Name, prop.Name, prop.Element.Type)
		}
		if prop.MaxElements <= 0 {
			return fmt.Errorf("%w: array %s.%s has no element capacity", ErrInvalidSchema, table.Name, prop.Name)
		}
	case TypeInt:
		if prop.Bits <= 0 || prop.Bits > 32 {
			return fmt.Errorf("%w: %s.%s is %d bits wide", ErrInvalidSchema, table.Name, prop.Name, prop.Bits)
		}
	case TypeInt64:
		if prop.Bits <= 0 || prop.Bits > 64 {
			return fmt.Errorf("%w: %s.%s is %d bits wide", ErrInvalidSchema, table.Name, prop.Name, prop.Bits)
		}
	}
	if table.Type != nil && prop.Get == nil && prop.Set == nil {
		if _, ok := fieldType(table.Type, prop.FieldName()); !ok {
			return fmt.Errorf("%w: %s has no field for %s.%s", ErrInvalidSchema, table.Type, table.Name, prop.Name)
		}
	}
	return nil
}

func propOffset(table *Table, prop *Prop) uintptr {
	if table.Type != nil {
		if offset, ok := fieldOffset(table.Type, prop.FieldName()); ok {
			return offset
		}
	}
	return prop.Offset
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
