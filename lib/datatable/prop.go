// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datatable

import (
	"fmt"
	"math"
	"strings"
)

// Schema limits. Exceeding any of them is a schema defect reported by
// [Precalculate] as [ErrSchemaOverflow].
const (
	// MaxProps is the largest number of leaves one flattened table may
	// carry. It doubles as the delta-bits sentinel index.
	MaxProps = 4096

	MaxTableProxies     = 256
	MaxRecursiveProxies = 1024
	MaxExcludes         = 512
	MaxNestingDepth     = 64

	// MaxStringBits is the width of a string's length prefix.
	MaxStringBits   = 9
	MaxStringLength = 1<<MaxStringBits - 1

	// MaxClients is the number of recipients a [Recipients] set holds.
	MaxClients = 256
)

// Priorities order the flat property list. Lower values are sent first.
const (
	DefaultPriority      uint8 = 128
	ChangesOftenPriority uint8 = 64
)

// PropType is the wire type of a property.
type PropType uint8

const (
	TypeInt PropType = iota
	TypeFloat
	TypeVector
	TypeVectorXY
	TypeString
	TypeArray
	TypeDataTable
	TypeInt64

	numPropTypes
)

var propTypeNames = [numPropTypes]string{
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeVector:    "vector",
	TypeVectorXY:  "vectorxy",
	TypeString:    "string",
	TypeArray:     "array",
	TypeDataTable: "datatable",
	TypeInt64:     "int64",
}

// String returns the lower-case type name used in schema files.
func (t PropType) String() string {
	if t < numPropTypes {
		return propTypeNames[t]
	}
	return fmt.Sprintf("PropType(%d)", uint8(t))
}

// Valid reports whether t names a known wire type.
func (t PropType) Valid() bool {
	return t < numPropTypes
}

// ParsePropType is the inverse of [PropType.String].
func ParsePropType(name string) (PropType, error) {
	for t, candidate := range propTypeNames {
		if strings.EqualFold(candidate, name) {
			return PropType(t), nil
		}
	}
	return 0, fmt.Errorf("unknown property type %q", name)
}

// MarshalText encodes t by name, so manifests and schema files read the
// same.
func (t PropType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText is the inverse of [PropType.MarshalText].
func (t *PropType) UnmarshalText(text []byte) error {
	parsed, err := ParsePropType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Flags modify how a property is encoded and flattened.
type Flags uint32

const (
	Unsigned Flags = 1 << iota
	// Coord encodes a float as 14.5 fixed point with presence flags.
	Coord
	// NoScale sends a float as raw IEEE-754 bits.
	NoScale
	// RoundDown and RoundUp shrink a quantized range by one step so the
	// endpoint is exactly representable. They also silence clamp
	// warnings.
	RoundDown
	RoundUp
	// Normal encodes a float in [-1, 1]; on a Vector it also drops z.
	Normal
	// Exclude removes a prop of another table from the flattened list.
	Exclude
	// InsideArray marks an array element template.
	InsideArray
	// ProxyAlwaysYes declares that a nested table is visible to every
	// recipient, so it never takes a table-proxy index.
	ProxyAlwaysYes
	// ChangesOften moves the prop into the ChangesOftenPriority bucket.
	ChangesOften
	// Collapsible merges a nested table into its parent's proxy node.
	Collapsible
	CoordMP
	CoordMPLowPrecision
	CoordMPIntegral
	CellCoord
	CellCoordLowPrecision
	CellCoordIntegral
	// VarInt encodes integers as 7-bit groups, zig-zagged when signed.
	VarInt

	numFlags = iota
)

var flagNames = [numFlags]string{
	"unsigned",
	"coord",
	"noscale",
	"rounddown",
	"roundup",
	"normal",
	"exclude",
	"insidearray",
	"proxyalwaysyes",
	"changesoften",
	"collapsible",
	"coordmp",
	"coordmp_lowprecision",
	"coordmp_integral",
	"cellcoord",
	"cellcoord_lowprecision",
	"cellcoord_integral",
	"varint",
}

// Has reports whether every flag in mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Any reports whether at least one flag in mask is set.
func (f Flags) Any(mask Flags) bool {
	return f&mask != 0
}

// Names returns the set flag names in bit order.
func (f Flags) Names() []string {
	var names []string
	for bit := 0; bit < numFlags; bit++ {
		if f&(1<<bit) != 0 {
			names = append(names, flagNames[bit])
		}
	}
	return names
}

// String joins the flag names with "|".
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// ParseFlags converts flag names back into a flag set.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, name := range names {
		found := false
		for bit, candidate := range flagNames {
			if strings.EqualFold(candidate, name) {
				f |= 1 << bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown property flag %q", name)
		}
	}
	return f, nil
}

// SendProxy reads a property value from its owner.
type SendProxy func(owner any) Value

// RecvProxy stores a decoded value into its owner.
type RecvProxy func(owner any, v Value)

// ArrayLength queries and sets element counts for an array property
// whose storage is not a Go slice.
type ArrayLength interface {
	Len(owner any) int
	SetLen(owner any, n int)
}

// Prop describes one property of a [Table].
type Prop struct {
	Name string
	Type PropType

	// Bits is the encoded width of Int, Int64 and quantized Float
	// values, and the integer width of CellCoord floats.
	Bits int

	// Low and High bound quantized floats.
	Low  float32
	High float32

	Flags    Flags
	Priority uint8

	// Offset is the byte offset of the backing field within its owner.
	// Tables built with [TableFor] compute it by reflection.
	Offset uintptr

	// Field overrides the Go field (or map key) the default accessors
	// bind to. Empty means Name.
	Field string

	// MaxElements and Element describe an Array.
	MaxElements int
	Element     *Prop

	// MaxLength caps decoded string lengths. Zero means MaxStringLength.
	MaxLength int

	// Table is the nested table of a DataTable prop.
	Table *Table

	// ExcludeTable names the table whose prop Name an Exclude removes.
	ExcludeTable string

	Get      SendProxy
	Set      RecvProxy
	Length   ArrayLength
	Resolver Resolver
}

// FieldName returns the Go field or map key the default accessors use.
func (p *Prop) FieldName() string {
	if p.Field != "" {
		return p.Field
	}
	return p.Name
}

// EffectivePriority returns the sort bucket of the prop.
func (p *Prop) EffectivePriority() uint8 {
	if p.Flags.Has(ChangesOften) {
		return ChangesOftenPriority
	}
	if p.Priority == 0 {
		return DefaultPriority
	}
	return p.Priority
}

// StringLimit returns the largest string length the prop accepts.
func (p *Prop) StringLimit() int {
	if p.MaxLength <= 0 || p.MaxLength > MaxStringLength {
		return MaxStringLength
	}
	return p.MaxLength
}

// IsLeaf reports whether the prop contributes a flat list entry.
func (p *Prop) IsLeaf() bool {
	return p.Type != TypeDataTable && !p.Flags.Any(Exclude|InsideArray)
}

// Clone returns a copy of p with its element template copied too.
func (p *Prop) Clone() *Prop {
	clone := *p
	if p.Element != nil {
		clone.Element = p.Element.Clone()
	}
	return &clone
}

// WithGet returns p with an explicit send proxy.
func (p Prop) WithGet(get SendProxy) Prop {
	p.Get = get
	return p
}

// WithSet returns p with an explicit receive proxy.
func (p Prop) WithSet(set RecvProxy) Prop {
	p.Set = set
	return p
}

// WithLength returns p with an explicit array length proxy. The count
// it reports caps the elements read, through the default field binding
// or a custom Get, and every store reports the new count to it.
func (p Prop) WithLength(length ArrayLength) Prop {
	p.Length = length
	return p
}

// WithResolver returns p with an explicit nested-table resolver.
func (p Prop) WithResolver(resolver Resolver) Prop {
	p.Resolver = resolver
	return p
}

// WithPriority returns p with an explicit priority.
func (p Prop) WithPriority(priority uint8) Prop {
	p.Priority = priority
	return p
}

// WithField returns p bound to a differently named Go field.
func (p Prop) WithField(field string) Prop {
	p.Field = field
	return p
}

// WithOffset returns p with an authored byte offset.
func (p Prop) WithOffset(offset uintptr) Prop {
	p.Offset = offset
	return p
}

// Int describes a 32-bit integer sent in bits bits.
func Int(name string, bits int, flags Flags) Prop {
	return Prop{Name: name, Type: TypeInt, Bits: clampBits(bits, 32), Flags: flags}
}

// Int64 describes a 64-bit integer sent in bits bits.
func Int64(name string, bits int, flags Flags) Prop {
	return Prop{Name: name, Type: TypeInt64, Bits: clampBits(bits, 64), Flags: flags}
}

func clampBits(bits, limit int) int {
	if bits <= 0 || bits > limit {
		return limit
	}
	return bits
}

// Float describes a float. A quantized range is narrowed by one step
// when RoundDown or RoundUp is set.
func Float(name string, bits int, low, high float32, flags Flags) Prop {
	low, high = adjustRange(bits, low, high, flags)
	return Prop{Name: name, Type: TypeFloat, Bits: bits, Low: low, High: high, Flags: flags}
}

// Vector describes three floats sharing one encoding.
func Vector(name string, bits int, low, high float32, flags Flags) Prop {
	low, high = adjustRange(bits, low, high, flags)
	return Prop{Name: name, Type: TypeVector, Bits: bits, Low: low, High: high, Flags: flags}
}

// VectorXY describes two floats sharing one encoding.
func VectorXY(name string, bits int, low, high float32, flags Flags) Prop {
	low, high = adjustRange(bits, low, high, flags)
	return Prop{Name: name, Type: TypeVectorXY, Bits: bits, Low: low, High: high, Flags: flags}
}

func adjustRange(bits int, low, high float32, flags Flags) (float32, float32) {
	if bits <= 0 || bits >= 32 || high <= low {
		return low, high
	}
	step := (high - low) / float32(math.Ldexp(1, bits))
	switch {
	case flags.Has(RoundDown):
		high -= step
	case flags.Has(RoundUp):
		low += step
	}
	return low, high
}

// String describes a length-prefixed string of at most maxLength bytes.
func String(name string, maxLength int) Prop {
	return Prop{Name: name, Type: TypeString, MaxLength: maxLength}
}

// Array describes up to maxElements values of element's type.
func Array(name string, element Prop, maxElements int) Prop {
	element.Flags |= InsideArray
	if element.Name == "" {
		element.Name = name
	}
	return Prop{Name: name, Type: TypeArray, MaxElements: maxElements, Element: &element}
}

// DataTable describes a nested table reached through the field name.
func DataTable(name string, table *Table, flags Flags) Prop {
	return Prop{Name: name, Type: TypeDataTable, Table: table, Flags: flags}
}

// ExcludeProp removes prop name of table tableName from every flattened
// tree it appears in.
func ExcludeProp(tableName, name string) Prop {
	return Prop{Name: name, Type: TypeDataTable, Flags: Exclude, ExcludeTable: tableName}
}
