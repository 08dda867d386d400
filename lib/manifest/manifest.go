// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest describes a sender's table trees in a form the
// receiver can rebuild. A receiver flattens the rebuilt tables with
// [datatable.Precalculate] and gets exactly the sender's flat order,
// then pairs them with its own storage in recveng.
//
// Manifests are deterministic CBOR. Their [Fingerprint] identifies a
// schema: two endpoints with equal fingerprints agree on every wire
// detail.
package manifest

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/codec"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/digest"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/version"
)

// Version is the manifest layout version written by [Build].
const Version = version.ManifestVersion

// ErrFingerprintMismatch reports manifests describing different
// schemas.
var ErrFingerprintMismatch = errors.New("manifest: fingerprint mismatch")

// PropInfo is the wire description of one prop. Ranges are stored
// after RoundDown/RoundUp adjustment and are used as is.
type PropInfo struct {
	Name         string             `cbor:"name"`
	Type         datatable.PropType `cbor:"type"`
	Bits         int                `cbor:"bits,omitempty"`
	Low          float32            `cbor:"low,omitempty"`
	High         float32            `cbor:"high,omitempty"`
	Flags        []string           `cbor:"flags,omitempty"`
	Priority     uint8              `cbor:"priority,omitempty"`
	MaxElements  int                `cbor:"max_elements,omitempty"`
	MaxLength    int                `cbor:"max_length,omitempty"`
	Element      *PropInfo          `cbor:"element,omitempty"`
	Table        string             `cbor:"table,omitempty"`
	ExcludeTable string             `cbor:"exclude_table,omitempty"`
}

// TableInfo describes one table.
type TableInfo struct {
	Name  string     `cbor:"name"`
	Props []PropInfo `cbor:"props"`
}

// Manifest describes every table reachable from a set of roots.
type Manifest struct {
	Version int         `cbor:"version"`
	Roots   []string    `cbor:"roots"`
	Tables  []TableInfo `cbor:"tables"`
}

// Build describes roots and every table they reach. Table names must be
// unique across the whole set.
func Build(roots ...*datatable.Table) (*Manifest, error) {
	m := &Manifest{Version: Version}
	seen := make(map[string]*datatable.Table)
	for _, root := range roots {
		m.Roots = append(m.Roots, root.Name)
		err := root.Walk(func(table *datatable.Table) error {
			if other, ok := seen[table.Name]; ok {
				if other != table {
					return fmt.Errorf("manifest: two tables named %s", table.Name)
				}
				return nil
			}
			seen[table.Name] = table
			info := TableInfo{Name: table.Name, Props: make([]PropInfo, len(table.Props))}
			for i := range table.Props {
				info.Props[i] = describe(&table.Props[i])
			}
			m.Tables = append(m.Tables, info)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(m.Roots)
	m.Roots = slices.Compact(m.Roots)
	slices.SortFunc(m.Tables, func(a, b TableInfo) int { return cmp.Compare(a.Name, b.Name) })
	return m, nil
}

func describe(prop *datatable.Prop) PropInfo {
	info := PropInfo{
		Name:         prop.Name,
		Type:         prop.Type,
		Bits:         prop.Bits,
		Low:          prop.Low,
		High:         prop.High,
		Flags:        prop.Flags.Names(),
		Priority:     prop.Priority,
		MaxElements:  prop.MaxElements,
		MaxLength:    prop.MaxLength,
		ExcludeTable: prop.ExcludeTable,
	}
	if prop.Element != nil {
		element := describe(prop.Element)
		info.Element = &element
	}
	if prop.Table != nil {
		info.Table = prop.Table.Name
	}
	return info
}

// Schema rebuilds the described tables, keyed by name, with nested
// table references linked. The props carry no accessors.
func (m *Manifest) Schema() (map[string]*datatable.Table, error) {
	tables := make(map[string]*datatable.Table, len(m.Tables))
	for _, info := range m.Tables {
		if _, ok := tables[info.Name]; ok {
			return nil, fmt.Errorf("manifest: table %s described twice", info.Name)
		}
		tables[info.Name] = &datatable.Table{Name: info.Name}
	}
	for _, info := range m.Tables {
		table := tables[info.Name]
		table.Props = make([]datatable.Prop, len(info.Props))
		for i := range info.Props {
			prop, err := rebuild(&info.Props[i], tables)
			if err != nil {
				return nil, fmt.Errorf("manifest: %s.%s: %w", info.Name, info.Props[i].Name, err)
			}
			table.Props[i] = prop
		}
	}
	return tables, nil
}

func rebuild(info *PropInfo, tables map[string]*datatable.Table) (datatable.Prop, error) {
	flags, err := datatable.ParseFlags(info.Flags)
	if err != nil {
		return datatable.Prop{}, err
	}
	prop := datatable.Prop{
		Name:         info.Name,
		Type:         info.Type,
		Bits:         info.Bits,
		Low:          info.Low,
		High:         info.High,
		Flags:        flags,
		Priority:     info.Priority,
		MaxElements:  info.MaxElements,
		MaxLength:    info.MaxLength,
		ExcludeTable: info.ExcludeTable,
	}
	if info.Element != nil {
		element, err := rebuild(info.Element, tables)
		if err != nil {
			return datatable.Prop{}, fmt.Errorf("element: %w", err)
		}
		prop.Element = &element
	}
	if info.Table != "" {
		table, ok := tables[info.Table]
		if !ok {
			return datatable.Prop{}, fmt.Errorf("references undescribed table %s", info.Table)
		}
		prop.Table = table
	}
	return prop, nil
}

// Root rebuilds the tables and returns the root named name.
func (m *Manifest) Root(name string) (*datatable.Table, error) {
	if !slices.Contains(m.Roots, name) {
		return nil, fmt.Errorf("manifest: %s is not a root", name)
	}
	tables, err := m.Schema()
	if err != nil {
		return nil, err
	}
	return tables[name], nil
}

// Marshal encodes m as deterministic CBOR.
func (m *Manifest) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

// Unmarshal decodes a CBOR manifest.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decoding: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("manifest: version %d, want %d", m.Version, Version)
	}
	return &m, nil
}

// Fingerprint hashes the manifest's deterministic encoding.
func (m *Manifest) Fingerprint() (digest.Hash, error) {
	data, err := m.Marshal()
	if err != nil {
		return digest.Hash{}, fmt.Errorf("manifest: encoding: %w", err)
	}
	return digest.Sum(digest.ManifestDomain, data), nil
}

// Verify checks that m has the expected fingerprint.
func (m *Manifest) Verify(want digest.Hash) error {
	got, err := m.Fingerprint()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: have %s, want %s", ErrFingerprintMismatch, got.Short(), want.Short())
	}
	return nil
}
