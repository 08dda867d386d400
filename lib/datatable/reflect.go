// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datatable

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ErrBinding is returned when a default accessor cannot find or convert
// the Go value behind a prop.
var ErrBinding = errors.New("datatable: property binding failed")

type fieldKey struct {
	typ  reflect.Type
	name string
}

// fieldIndexes caches struct field lookups: fieldKey -> []int (nil when
// the struct has no such field).
var fieldIndexes sync.Map

func lookupField(t reflect.Type, name string) []int {
	key := fieldKey{t, name}
	if cached, ok := fieldIndexes.Load(key); ok {
		return cached.([]int)
	}
	var index []int
	if field, ok := t.FieldByName(name); ok && field.IsExported() {
		index = field.Index
	} else if field, ok := t.FieldByNameFunc(func(candidate string) bool {
		return strings.EqualFold(candidate, name)
	}); ok && field.IsExported() {
		index = field.Index
	}
	fieldIndexes.Store(key, index)
	return index
}

// fieldOffset returns the byte offset of the named field within t,
// following promoted fields through embedded structs.
func fieldOffset(t reflect.Type, name string) (uintptr, bool) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return 0, false
	}
	index := lookupField(t, name)
	if index == nil {
		return 0, false
	}
	var offset uintptr
	current := t
	for _, i := range index {
		if current.Kind() == reflect.Pointer {
			return 0, false
		}
		field := current.Field(i)
		offset += field.Offset
		current = field.Type
	}
	return offset, true
}

// fieldType returns the Go type of the named field of t.
func fieldType(t reflect.Type, name string) (reflect.Type, bool) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, false
	}
	index := lookupField(t, name)
	if index == nil {
		return nil, false
	}
	return t.FieldByIndex(index).Type, true
}

// member locates a named member of owner. Structs must be reached
// through a pointer so the member is addressable.
func member(owner any, name string) (reflect.Value, error) {
	v := reflect.ValueOf(owner)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: %s: nil owner", ErrBinding, name)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		index := lookupField(v.Type(), name)
		if index == nil {
			return reflect.Value{}, fmt.Errorf("%w: %s has no field %q", ErrBinding, v.Type(), name)
		}
		field, err := v.FieldByIndexErr(index)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %s.%s: %v", ErrBinding, v.Type(), name, err)
		}
		return field, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("%w: %s: map keys are not strings", ErrBinding, name)
		}
		return v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key())), nil
	default:
		return reflect.Value{}, fmt.Errorf("%w: %s: owner is %s", ErrBinding, name, v.Kind())
	}
}

// descend returns the base of a nested table stored under name: the
// address of a struct field, the target of a pointer field, or a nested
// map. A nil pointer or missing map entry reports false.
func descend(owner any, name string) (any, bool) {
	v := reflect.ValueOf(owner)
	for v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() == reflect.Map {
		if v.IsNil() || v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		nested := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		for nested.IsValid() && nested.Kind() == reflect.Interface {
			nested = nested.Elem()
		}
		if !nested.IsValid() || nested.Kind() != reflect.Map || nested.IsNil() {
			return nil, false
		}
		return nested.Interface(), true
	}

	field, err := member(owner, name)
	if err != nil || !field.IsValid() {
		return nil, false
	}
	switch field.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		if field.IsNil() {
			return nil, false
		}
		return field.Interface(), true
	case reflect.Struct:
		if !field.CanAddr() {
			return nil, false
		}
		return field.Addr().Interface(), true
	default:
		return nil, false
	}
}

// fieldResolver is the default resolver of a nested table prop.
type fieldResolver struct {
	name string
}

func (r fieldResolver) Resolve(owner any) (any, bool) {
	return descend(owner, r.name)
}

// readValue converts the Go value behind a prop into a Value.
func readValue(prop *Prop, owner any, v reflect.Value) (Value, error) {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return Zero(prop.Type), nil
		}
		v = v.Elem()
	}
	out := Value{Type: prop.Type}
	if !v.IsValid() {
		return out, nil
	}

	switch prop.Type {
	case TypeInt, TypeInt64:
		switch {
		case v.CanInt():
			out.Int = v.Int()
		case v.CanUint():
			out.Int = int64(v.Uint())
		case v.CanFloat():
			out.Int = int64(v.Float())
		case v.Kind() == reflect.Bool:
			if v.Bool() {
				out.Int = 1
			}
		default:
			return out, fmt.Errorf("%w: %s: cannot read %s as integer", ErrBinding, prop.Name, v.Type())
		}

	case TypeFloat:
		switch {
		case v.CanFloat():
			out.Float = float32(v.Float())
		case v.CanInt():
			out.Float = float32(v.Int())
		case v.CanUint():
			out.Float = float32(v.Uint())
		default:
			return out, fmt.Errorf("%w: %s: cannot read %s as float", ErrBinding, prop.Name, v.Type())
		}

	case TypeVector, TypeVectorXY:
		components := 3
		if prop.Type == TypeVectorXY {
			components = 2
		}
		if err := readVector(v, out.Vector[:components]); err != nil {
			return out, fmt.Errorf("%w: %s: %v", ErrBinding, prop.Name, err)
		}

	case TypeString:
		switch {
		case v.Kind() == reflect.String:
			out.String = v.String()
		case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
			out.String = string(v.Bytes())
		default:
			return out, fmt.Errorf("%w: %s: cannot read %s as string", ErrBinding, prop.Name, v.Type())
		}

	case TypeArray:
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			return out, fmt.Errorf("%w: %s: cannot read %s as array", ErrBinding, prop.Name, v.Type())
		}
		n := v.Len()
		if prop.Length != nil {
			n = min(n, prop.Length.Len(owner))
		}
		if n == 0 {
			return out, nil
		}
		out.Elements = make([]Value, n)
		for i := range n {
			element, err := readValue(prop.Element, owner, v.Index(i))
			if err != nil {
				return out, err
			}
			out.Elements[i] = element
		}

	default:
		return out, fmt.Errorf("%w: %s: %s has no value", ErrBinding, prop.Name, prop.Type)
	}
	return out, nil
}

var vectorFields = [3]string{"X", "Y", "Z"}

func readVector(v reflect.Value, dst []float32) error {
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		for i := range dst {
			if i >= v.Len() {
				break
			}
			element := v.Index(i)
			for element.Kind() == reflect.Interface {
				element = element.Elem()
			}
			switch {
			case element.CanFloat():
				dst[i] = float32(element.Float())
			case element.CanInt():
				dst[i] = float32(element.Int())
			default:
				return fmt.Errorf("vector component is %s", element.Kind())
			}
		}
		return nil
	case reflect.Struct:
		for i, name := range vectorFields[:len(dst)] {
			index := lookupField(v.Type(), name)
			if index == nil {
				return fmt.Errorf("%s has no field %s", v.Type(), name)
			}
			component := v.FieldByIndex(index)
			if !component.CanFloat() {
				return fmt.Errorf("%s.%s is not a float", v.Type(), name)
			}
			dst[i] = float32(component.Float())
		}
		return nil
	default:
		return fmt.Errorf("cannot read %s as a vector", v.Type())
	}
}

// writeValue stores value into the settable Go value dst.
func writeValue(prop *Prop, owner any, dst reflect.Value, value Value) error {
	if dst.Kind() == reflect.Pointer {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		dst = dst.Elem()
	}
	if dst.Kind() == reflect.Interface {
		dst.Set(reflect.ValueOf(naturalValue(value)))
		return nil
	}

	switch prop.Type {
	case TypeInt, TypeInt64:
		switch {
		case dst.CanInt():
			dst.SetInt(value.Int)
		case dst.CanUint():
			dst.SetUint(uint64(value.Int))
		case dst.CanFloat():
			dst.SetFloat(float64(value.Int))
		case dst.Kind() == reflect.Bool:
			dst.SetBool(value.Int != 0)
		default:
			return fmt.Errorf("%w: %s: cannot store integer in %s", ErrBinding, prop.Name, dst.Type())
		}

	case TypeFloat:
		switch {
		case dst.CanFloat():
			dst.SetFloat(float64(value.Float))
		case dst.CanInt():
			dst.SetInt(int64(value.Float))
		default:
			return fmt.Errorf("%w: %s: cannot store float in %s", ErrBinding, prop.Name, dst.Type())
		}

	case TypeVector, TypeVectorXY:
		components := 3
		if prop.Type == TypeVectorXY {
			components = 2
		}
		if err := writeVector(dst, value.Vector[:components]); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBinding, prop.Name, err)
		}

	case TypeString:
		switch {
		case dst.Kind() == reflect.String:
			dst.SetString(value.String)
		case dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8:
			dst.SetBytes([]byte(value.String))
		default:
			return fmt.Errorf("%w: %s: cannot store string in %s", ErrBinding, prop.Name, dst.Type())
		}

	case TypeArray:
		n := len(value.Elements)
		switch dst.Kind() {
		case reflect.Slice:
			if dst.Len() != n {
				dst.Set(reflect.MakeSlice(dst.Type(), n, n))
			}
		case reflect.Array:
			n = min(n, dst.Len())
			dst.SetZero()
		default:
			return fmt.Errorf("%w: %s: cannot store array in %s", ErrBinding, prop.Name, dst.Type())
		}
		for i := range n {
			if err := writeValue(prop.Element, owner, dst.Index(i), value.Elements[i]); err != nil {
				return err
			}
		}
		if prop.Length != nil {
			prop.Length.SetLen(owner, n)
		}

	default:
		return fmt.Errorf("%w: %s: %s has no value", ErrBinding, prop.Name, prop.Type)
	}
	return nil
}

func writeVector(dst reflect.Value, src []float32) error {
	switch dst.Kind() {
	case reflect.Slice:
		if dst.Len() < len(src) {
			dst.Set(reflect.MakeSlice(dst.Type(), len(src), len(src)))
		}
		fallthrough
	case reflect.Array:
		for i := range min(len(src), dst.Len()) {
			element := dst.Index(i)
			switch {
			case element.CanFloat():
				element.SetFloat(float64(src[i]))
			case element.Kind() == reflect.Interface:
				element.Set(reflect.ValueOf(float64(src[i])))
			default:
				return fmt.Errorf("vector component is %s", element.Kind())
			}
		}
		return nil
	case reflect.Struct:
		for i, name := range vectorFields[:len(src)] {
			index := lookupField(dst.Type(), name)
			if index == nil {
				return fmt.Errorf("%s has no field %s", dst.Type(), name)
			}
			component := dst.FieldByIndex(index)
			if !component.CanFloat() {
				return fmt.Errorf("%s.%s is not a float", dst.Type(), name)
			}
			component.SetFloat(float64(src[i]))
		}
		return nil
	default:
		return fmt.Errorf("cannot store a vector in %s", dst.Type())
	}
}

// naturalValue converts a Value into the plain Go value stored in
// map[string]any owners.
func naturalValue(value Value) any {
	switch value.Type {
	case TypeInt, TypeInt64:
		return value.Int
	case TypeFloat:
		return float64(value.Float)
	case TypeVector:
		return []float64{float64(value.Vector[0]), float64(value.Vector[1]), float64(value.Vector[2])}
	case TypeVectorXY:
		return []float64{float64(value.Vector[0]), float64(value.Vector[1])}
	case TypeString:
		return value.String
	case TypeArray:
		elements := make([]any, len(value.Elements))
		for i, element := range value.Elements {
			elements[i] = naturalValue(element)
		}
		return elements
	default:
		return nil
	}
}

// getField reads prop from owner through the default binding.
func getField(prop *Prop, owner any) (Value, error) {
	field, err := member(owner, prop.FieldName())
	if err != nil {
		return Zero(prop.Type), err
	}
	return readValue(prop, owner, field)
}

// setField stores value into owner through the default binding.
func setField(prop *Prop, owner any, value Value) error {
	v := reflect.ValueOf(owner)
	for v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() == reflect.Map {
		if v.IsNil() {
			return fmt.Errorf("%w: %s: nil map owner", ErrBinding, prop.Name)
		}
		key := reflect.ValueOf(prop.FieldName()).Convert(v.Type().Key())
		natural := reflect.ValueOf(naturalValue(value))
		if !natural.Type().AssignableTo(v.Type().Elem()) {
			return fmt.Errorf("%w: %s: cannot store %s in %s", ErrBinding, prop.Name, natural.Type(), v.Type().Elem())
		}
		v.SetMapIndex(key, natural)
		return nil
	}

	field, err := member(owner, prop.FieldName())
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("%w: %s is not settable (owner must be a pointer)", ErrBinding, prop.Name)
	}
	return writeValue(prop, owner, field, value)
}
