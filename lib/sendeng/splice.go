// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sendeng

import (
	"errors"
	"fmt"
	"slices"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/dtstack"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/serialized"
)

// SpliceDirty re-encodes only the props stored at dirtyOffsets (byte
// offsets as reported by [datatable.Precalc.PropsAtOffset]) and splices
// them into a copy of old. It returns the new entity and the indices
// whose payload changed.
//
// Splicing requires every dirty prop to keep its presence and encoded
// width; otherwise it returns [ErrSpliceMismatch] and the caller must
// run [Encoder.Encode] and [Encoder.CalcDelta] instead.
func (e *Encoder) SpliceDirty(old *serialized.Entity, object any, dirtyOffsets []uintptr) (*serialized.Entity, []int, error) {
	stack := dtstack.New(e.precalc)
	stack.Resolve(object)
	return e.splice(stack, old, dirtyOffsets)
}

func (e *Encoder) splice(stack *dtstack.Stack, old *serialized.Entity, dirtyOffsets []uintptr) (*serialized.Entity, []int, error) {
	var candidates []int
	for _, offset := range dirtyOffsets {
		candidates = append(candidates, e.precalc.PropsAtOffset(offset)...)
	}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	spliced := old.Clone()
	var changed []int
	scratch := bitbuf.NewWriter(16)
	for _, index := range candidates {
		leaf := e.precalc.Leaf(index)
		codec := e.codecs[index]
		base, ok := stack.Base(leaf.Node)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s has no resolved base", ErrSpliceMismatch, leaf.Path)
		}
		value, err := leaf.Get(base)
		if err != nil {
			return nil, nil, fmt.Errorf("sendeng: encoding %s: %w", leaf.Path, err)
		}

		position, present := old.Find(index)
		zero := codec.IsZero(leaf.Prop, value)
		if zero != !present {
			return nil, nil, fmt.Errorf("%w: %s changed presence", ErrSpliceMismatch, leaf.Path)
		}
		if zero {
			continue
		}

		scratch.Reset()
		codec.Encode(scratch, leaf.Prop, value, e.codecLogger)
		start, end := old.BitRange(position)
		if scratch.BitsWritten() != end-start {
			return nil, nil, fmt.Errorf("%w: %s changed width from %d to %d bits",
				ErrSpliceMismatch, leaf.Path, end-start, scratch.BitsWritten())
		}
		fresh := bitbuf.NewReader(scratch.Bytes(), scratch.BitsWritten())
		if !fresh.CompareBits(old.FieldReader(position), end-start) {
			continue
		}

		writer := bitbuf.NewFixedWriter(spliced.Data)
		writer.SeekToBit(start)
		writer.WriteBitsFrom(scratch.Bytes(), 0, end-start)
		if err := writer.Err(); err != nil {
			return nil, nil, fmt.Errorf("sendeng: splicing %s: %w", leaf.Path, err)
		}
		changed = append(changed, index)
	}
	return spliced, changed, nil
}

// Snapshot is the result of one [Encoder.Update].
type Snapshot struct {
	Entity  *serialized.Entity
	Changed []int
	Proxies []dtstack.ProxyResult
}

// Update produces the next entity for object. With a previous entity
// and a dirty offset list it splices; when splicing is impossible, or
// dirtyOffsets is nil, it encodes in full and diffs against old.
func (e *Encoder) Update(old *serialized.Entity, object any, dirtyOffsets []uintptr) (Snapshot, error) {
	stack := dtstack.NewSendStack(e.precalc)
	stack.Resolve(object)

	if old != nil && dirtyOffsets != nil {
		entity, changed, err := e.splice(&stack.Stack, old, dirtyOffsets)
		if err == nil {
			return Snapshot{Entity: entity, Changed: changed, Proxies: stack.Results()}, nil
		}
		if !errors.Is(err, ErrSpliceMismatch) {
			return Snapshot{}, err
		}
		e.logger.Debug("splice fallback to full encode", "error", err)
	}

	entity, err := e.encode(&stack.Stack)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Entity:  entity,
		Changed: e.CalcDelta(old, entity),
		Proxies: stack.Results(),
	}, nil
}
