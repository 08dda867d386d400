// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sendeng is the sending half of the codec. An [Encoder] turns
// an object into a [serialized.Entity], diffs two entities into the
// ascending list of changed flat indices, and writes delta updates: a
// delta-bits index stream with each index followed by its payload.
//
// Encoders are immutable after [New] and safe for concurrent use; all
// per-object state lives on the stack of each call.
package sendeng

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/deltabits"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/dtstack"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/propcodec"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/serialized"
)

// ErrSpliceMismatch reports a dirty prop whose new encoding cannot
// replace the old one in place. Callers fall back to a full encode.
var ErrSpliceMismatch = errors.New("sendeng: dirty prop cannot be spliced")

// Config controls an Encoder.
type Config struct {
	// Logger receives encode warnings and splice fallbacks. Nil
	// discards them.
	Logger *slog.Logger

	// FastDelta selects the word-scanning delta calculator.
	FastDelta bool

	// WarnClamp logs every out-of-range value clamped during encode.
	WarnClamp bool

	// Scheme is the delta-bits scheme used by [Encoder.WriteDelta] and
	// [Encoder.WriteFull].
	Scheme deltabits.Scheme
}

// Encoder encodes objects of one schema.
type Encoder struct {
	precalc     *datatable.Precalc
	codecs      []*propcodec.Codec
	logger      *slog.Logger
	codecLogger *slog.Logger
	fastDelta   bool
	scheme      deltabits.Scheme
}

// New returns an encoder for precalc.
func New(precalc *datatable.Precalc, config Config) *Encoder {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	codecLogger := logger
	if !config.WarnClamp {
		codecLogger = slog.New(slog.DiscardHandler)
	}
	codecs := make([]*propcodec.Codec, precalc.Len())
	for i := range codecs {
		codecs[i] = propcodec.MustFor(precalc.Leaf(i).Prop.Type)
	}
	return &Encoder{
		precalc:     precalc,
		codecs:      codecs,
		logger:      logger.With("table", precalc.Table().Name),
		codecLogger: codecLogger,
		fastDelta:   config.FastDelta,
		scheme:      config.Scheme,
	}
}

// Precalc returns the encoder's schema.
func (e *Encoder) Precalc() *datatable.Precalc { return e.precalc }

// Encode fully encodes object. Props under unresolved nested tables and
// props holding their zero value are omitted. The proxy results report
// which clients may see each filtering nested table.
func (e *Encoder) Encode(object any) (*serialized.Entity, []dtstack.ProxyResult, error) {
	stack := dtstack.NewSendStack(e.precalc)
	stack.Resolve(object)
	entity, err := e.encode(&stack.Stack)
	if err != nil {
		return nil, nil, err
	}
	return entity, stack.Results(), nil
}

func (e *Encoder) encode(stack *dtstack.Stack) (*serialized.Entity, error) {
	builder := serialized.NewBuilder(64)
	for i, codec := range e.codecs {
		leaf := e.precalc.Leaf(i)
		base, ok := stack.Base(leaf.Node)
		if !ok {
			continue
		}
		value, err := leaf.Get(base)
		if err != nil {
			return nil, fmt.Errorf("sendeng: encoding %s: %w", leaf.Path, err)
		}
		if codec.IsZero(leaf.Prop, value) {
			continue
		}
		codec.Encode(builder.Begin(i), leaf.Prop, value, e.codecLogger)
	}
	entity, err := builder.Finish()
	if err != nil {
		return nil, fmt.Errorf("sendeng: encoding %s: %w", e.precalc.Table().Name, err)
	}
	return entity, nil
}

// WriteProps writes the delta-bits stream for indices, each index
// followed by its payload copied from entity. Indices absent from
// entity are written as the encoded zero value.
func (e *Encoder) WriteProps(out *bitbuf.Writer, entity *serialized.Entity, indices []int, scheme deltabits.Scheme) error {
	last := -1
	for _, index := range indices {
		if index <= last || index >= e.precalc.Len() {
			return fmt.Errorf("sendeng: index %d out of order or range (previous %d, %d props)", index, last, e.precalc.Len())
		}
		last = index
	}

	writer := deltabits.NewWriter(out, scheme)
	position := 0
	for _, index := range indices {
		writer.WriteIndex(index)
		for position < entity.Len() && int(entity.Paths[position]) < index {
			position++
		}
		if position < entity.Len() && int(entity.Paths[position]) == index {
			start, end := entity.BitRange(position)
			out.WriteBitsFrom(entity.Data, start, end-start)
			continue
		}
		prop := e.precalc.Leaf(index).Prop
		codec := e.codecs[index]
		codec.Encode(out, prop, codec.DecodeZero(prop), e.codecLogger)
	}
	writer.Finish()
	if err := out.Err(); err != nil {
		return fmt.Errorf("sendeng: writing %d props: %w", len(indices), err)
	}
	return nil
}

// WriteDelta writes the props that differ between old and current and
// returns their indices. A nil old writes every prop present in
// current.
func (e *Encoder) WriteDelta(out *bitbuf.Writer, old, current *serialized.Entity) ([]int, error) {
	indices := e.CalcDelta(old, current)
	if err := e.WriteProps(out, current, indices, e.scheme); err != nil {
		return nil, err
	}
	return indices, nil
}

// WriteFull writes every prop present in entity.
func (e *Encoder) WriteFull(out *bitbuf.Writer, entity *serialized.Entity) error {
	return e.WriteProps(out, entity, allPaths(entity), e.scheme)
}

func allPaths(entity *serialized.Entity) []int {
	indices := make([]int, entity.Len())
	for i := range indices {
		indices[i] = int(entity.Paths[i])
	}
	return indices
}
