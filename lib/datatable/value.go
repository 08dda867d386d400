// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datatable

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a decoded property value. Only the field matching Type is
// meaningful.
type Value struct {
	Type     PropType
	Int      int64
	Float    float32
	Vector   [3]float32
	String   string
	Elements []Value
}

// IntValue returns an Int value.
func IntValue(v int64) Value {
	return Value{Type: TypeInt, Int: v}
}

// Int64Value returns an Int64 value.
func Int64Value(v int64) Value {
	return Value{Type: TypeInt64, Int: v}
}

// FloatValue returns a Float value.
func FloatValue(v float32) Value {
	return Value{Type: TypeFloat, Float: v}
}

// VectorValue returns a Vector value.
func VectorValue(x, y, z float32) Value {
	return Value{Type: TypeVector, Vector: [3]float32{x, y, z}}
}

// VectorXYValue returns a VectorXY value.
func VectorXYValue(x, y float32) Value {
	return Value{Type: TypeVectorXY, Vector: [3]float32{x, y, 0}}
}

// StringValue returns a String value.
func StringValue(v string) Value {
	return Value{Type: TypeString, String: v}
}

// ArrayValue returns an Array value holding elements.
func ArrayValue(elements ...Value) Value {
	return Value{Type: TypeArray, Elements: elements}
}

// Zero returns the zero value of t.
func Zero(t PropType) Value {
	return Value{Type: t}
}

// Equal reports whether v and other hold the same typed value.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case TypeInt, TypeInt64:
		return v.Int == other.Int
	case TypeFloat:
		return v.Float == other.Float
	case TypeVector:
		return v.Vector == other.Vector
	case TypeVectorXY:
		return v.Vector[0] == other.Vector[0] && v.Vector[1] == other.Vector[1]
	case TypeString:
		return v.String == other.String
	case TypeArray:
		if len(v.Elements) != len(other.Elements) {
			return false
		}
		for i := range v.Elements {
			if !v.Elements[i].Equal(other.Elements[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	if v.Elements != nil {
		elements := make([]Value, len(v.Elements))
		for i, element := range v.Elements {
			elements[i] = element.Clone()
		}
		v.Elements = elements
	}
	return v
}

// Format renders v for logs and listings.
func (v Value) Format() string {
	switch v.Type {
	case TypeInt, TypeInt64:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat:
		return formatFloat(v.Float)
	case TypeVector:
		return fmt.Sprintf("(%s, %s, %s)", formatFloat(v.Vector[0]), formatFloat(v.Vector[1]), formatFloat(v.Vector[2]))
	case TypeVectorXY:
		return fmt.Sprintf("(%s, %s)", formatFloat(v.Vector[0]), formatFloat(v.Vector[1]))
	case TypeString:
		return strconv.Quote(v.String)
	case TypeArray:
		parts := make([]string, len(v.Elements))
		for i, element := range v.Elements {
			parts[i] = element.Format()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "-"
	}
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
