// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schemafile reads table definitions authored on disk. Files
// are JSONC (JSON with comments and trailing commas) or YAML, chosen by
// extension, and describe the same structure:
//
//	tables:
//	  - name: DT_Player
//	    props:
//	      - {name: health, type: int, bits: 8, flags: [unsigned]}
//	      - {name: weapon, type: datatable, table: DT_Weapon}
//	      - {name: armor, type: exclude, table: DT_Base}
//
// [File.Build] turns the definitions into [datatable.Table] values,
// linking nested tables by name and binding tables to Go struct types
// when the caller supplies them. Tables without a Go type bind their
// props to map keys.
package schemafile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

// Format is the syntax of a schema file.
type Format uint8

const (
	FormatJSONC Format = iota
	FormatYAML
)

// FormatFromPath picks the format from a file extension: .yaml and .yml
// are YAML, everything else is JSONC.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSONC
	}
}

// typeExclude is the schema file spelling of an exclude entry.
const typeExclude = "exclude"

// PropDef is one authored prop.
type PropDef struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Bits        int      `json:"bits,omitempty" yaml:"bits,omitempty"`
	Low         float32  `json:"low,omitempty" yaml:"low,omitempty"`
	High        float32  `json:"high,omitempty" yaml:"high,omitempty"`
	Flags       []string `json:"flags,omitempty" yaml:"flags,omitempty"`
	Priority    uint8    `json:"priority,omitempty" yaml:"priority,omitempty"`
	MaxElements int      `json:"max_elements,omitempty" yaml:"max_elements,omitempty"`
	MaxLength   int      `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Element     *PropDef `json:"element,omitempty" yaml:"element,omitempty"`

	// Table names the nested table of a datatable prop, or the table an
	// exclude entry removes Name from.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`

	// Field overrides the Go field or map key the prop binds to.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
}

// TableDef is one authored table.
type TableDef struct {
	Name  string    `json:"name" yaml:"name"`
	Props []PropDef `json:"props" yaml:"props"`
}

// File is a parsed schema file.
type File struct {
	// Roots lists the tables that describe whole entities. When empty,
	// every table no other table nests is a root.
	Roots  []string   `json:"roots,omitempty" yaml:"roots,omitempty"`
	Tables []TableDef `json:"tables" yaml:"tables"`
}

// Parse decodes a schema file.
func Parse(data []byte, format Format) (*File, error) {
	var file File
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing schema: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
			return nil, fmt.Errorf("parsing schema: %w", err)
		}
	}
	return &file, nil
}

// ReadFile reads and parses the schema file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	file, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// RootNames returns the root table names, sorted.
func (f *File) RootNames() []string {
	if len(f.Roots) > 0 {
		roots := slices.Clone(f.Roots)
		slices.Sort(roots)
		return slices.Compact(roots)
	}
	nested := make(map[string]bool)
	for _, table := range f.Tables {
		for _, prop := range table.Props {
			if prop.Type != typeExclude && prop.Table != "" {
				nested[prop.Table] = true
			}
		}
	}
	var roots []string
	for _, table := range f.Tables {
		if !nested[table.Name] {
			roots = append(roots, table.Name)
		}
	}
	slices.Sort(roots)
	return roots
}

// Build creates the described tables, keyed by name. types binds table
// names to the Go struct types they describe; it may be nil.
func (f *File) Build(types map[string]reflect.Type) (map[string]*datatable.Table, error) {
	tables := make(map[string]*datatable.Table, len(f.Tables))
	for _, def := range f.Tables {
		if def.Name == "" {
			return nil, fmt.Errorf("schema: table with no name")
		}
		if _, exists := tables[def.Name]; exists {
			return nil, fmt.Errorf("schema: table %s defined twice", def.Name)
		}
		table := &datatable.Table{Name: def.Name}
		if t, ok := types[def.Name]; ok {
			for t.Kind() == reflect.Pointer {
				t = t.Elem()
			}
			table.Type = t
		}
		tables[def.Name] = table
	}
	for name := range types {
		if _, ok := tables[name]; !ok {
			return nil, fmt.Errorf("schema: type bound to undefined table %s", name)
		}
	}

	for _, def := range f.Tables {
		table := tables[def.Name]
		table.Props = make([]datatable.Prop, 0, len(def.Props))
		for i := range def.Props {
			prop, err := buildProp(&def.Props[i], tables)
			if err != nil {
				return nil, fmt.Errorf("schema: %s.%s: %w", def.Name, def.Props[i].Name, err)
			}
			table.Props = append(table.Props, prop)
		}
	}
	for _, root := range f.RootNames() {
		if _, ok := tables[root]; !ok {
			return nil, fmt.Errorf("schema: root %s is not defined", root)
		}
	}
	return tables, nil
}

func buildProp(def *PropDef, tables map[string]*datatable.Table) (datatable.Prop, error) {
	if def.Type == typeExclude {
		if def.Table == "" || def.Name == "" {
			return datatable.Prop{}, fmt.Errorf("exclude needs a table and a prop name")
		}
		return datatable.ExcludeProp(def.Table, def.Name), nil
	}
	propType, err := datatable.ParsePropType(def.Type)
	if err != nil {
		return datatable.Prop{}, err
	}
	flags, err := datatable.ParseFlags(def.Flags)
	if err != nil {
		return datatable.Prop{}, err
	}

	var prop datatable.Prop
	switch propType {
	case datatable.TypeInt:
		prop = datatable.Int(def.Name, def.Bits, flags)
	case datatable.TypeInt64:
		prop = datatable.Int64(def.Name, def.Bits, flags)
	case datatable.TypeFloat:
		prop = datatable.Float(def.Name, def.Bits, def.Low, def.High, flags)
	case datatable.TypeVector:
		prop = datatable.Vector(def.Name, def.Bits, def.Low, def.High, flags)
	case datatable.TypeVectorXY:
		prop = datatable.VectorXY(def.Name, def.Bits, def.Low, def.High, flags)
	case datatable.TypeString:
		prop = datatable.String(def.Name, def.MaxLength)
		prop.Flags = flags
	case datatable.TypeArray:
		if def.Element == nil {
			return datatable.Prop{}, fmt.Errorf("array has no element")
		}
		if def.Element.Type == typeExclude {
			return datatable.Prop{}, fmt.Errorf("array element cannot be an exclude")
		}
		element, err := buildProp(def.Element, tables)
		if err != nil {
			return datatable.Prop{}, fmt.Errorf("element: %w", err)
		}
		prop = datatable.Array(def.Name, element, def.MaxElements)
		prop.Flags |= flags
	case datatable.TypeDataTable:
		nested, ok := tables[def.Table]
		if !ok {
			return datatable.Prop{}, fmt.Errorf("references undefined table %q", def.Table)
		}
		prop = datatable.DataTable(def.Name, nested, flags)
	}
	if def.Priority != 0 {
		prop = prop.WithPriority(def.Priority)
	}
	if def.Field != "" {
		prop = prop.WithField(def.Field)
	}
	return prop, nil
}
