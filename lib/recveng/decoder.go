// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recveng is the receiving half of the codec. A [Decoder] pairs
// the sender's table tree (usually rebuilt from a manifest) with the
// receiver's own tables, matched by table and prop name, so both ends
// flatten to the same order while values land in the receiver's
// storage.
//
// A prop the receiver cannot store is a schema mismatch. Under
// [PolicyStrict] building the decoder fails; under [PolicyCompatible]
// the prop is still decoded, to stay aligned with the stream, and its
// value dropped.
package recveng

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

// ErrSchemaMismatch reports a sent prop the receiver has no matching
// prop for.
var ErrSchemaMismatch = errors.New("recveng: schema mismatch")

// Policy decides how a decoder treats schema mismatches.
type Policy uint8

const (
	PolicyStrict Policy = iota
	PolicyCompatible
)

// String returns the policy name used in configuration.
func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyCompatible:
		return "compatible"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// ParsePolicy is the inverse of [Policy.String].
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "strict":
		return PolicyStrict, nil
	case "compatible":
		return PolicyCompatible, nil
	default:
		return 0, fmt.Errorf("recveng: unknown decode policy %q", name)
	}
}

// Decoder decodes updates of one sent table into receiver objects.
// Decoders are immutable and safe for concurrent use.
type Decoder struct {
	precalc *datatable.Precalc
	codecs  []*propcodec.Codec
	mapped  []bool
	logger  *slog.Logger
}

// New builds a decoder for sendTable. recvTables holds the receiver's
// tables by name; the root is the one named like sendTable. Nested
// tables are matched through the receiver's DataTable props, falling
// back to recvTables by name.
func New(sendTable *datatable.Table, recvTables map[string]*datatable.Table, policy Policy, logger *slog.Logger) (*Decoder, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("table", sendTable.Name)

	b := &mergeBuilder{
		recvTables: recvTables,
		policy:     policy,
		logger:     logger,
		merged:     make(map[tablePair]*datatable.Table),
		unmapped:   make(map[*datatable.Prop]bool),
	}
	recvRoot := recvTables[sendTable.Name]
	if recvRoot == nil {
		if err := b.mismatch(sendTable.Name, "", "receiver has no table of this name"); err != nil {
			return nil, err
		}
	}
	root, err := b.merge(sendTable, recvRoot)
	if err != nil {
		return nil, err
	}
	precalc, err := datatable.Precalculate(root)
	if err != nil {
		return nil, fmt.Errorf("recveng: flattening %s: %w", sendTable.Name, err)
	}

	decoder := &Decoder{
		precalc: precalc,
		codecs:  make([]*propcodec.Codec, precalc.Len()),
		mapped:  make([]bool, precalc.Len()),
		logger:  logger,
	}
	for i := range decoder.codecs {
		leaf := precalc.Leaf(i)
		decoder.codecs[i] = propcodec.MustFor(leaf.Prop.Type)
		decoder.mapped[i] = !b.unmapped[leaf.Prop]
	}
	return decoder, nil
}

// Precalc returns the flattened schema the decoder reads.
func (d *Decoder) Precalc() *datatable.Precalc { return d.precalc }

// Mapped reports whether flat index i has a receiver.
func (d *Decoder) Mapped(i int) bool { return d.mapped[i] }

// Decode reads one update (a delta-bits stream with payloads) from in
// and stores each value into object. It returns the indices read.
func (d *Decoder) Decode(in *bitbuf.Reader, object any) ([]int, error) {
	stack := dtstack.NewRecvStack(d.precalc)
	stack.Resolve(object)

	reader := deltabits.NewReader(in)
	var indices []int
	for {
		index, ok := reader.ReadNextIndex()
		if !ok {
			break
		}
		if index >= d.precalc.Len() {
			reader.ForceFinished()
			return indices, fmt.Errorf("recveng: index %d beyond the %d props of %s", index, d.precalc.Len(), d.precalc.Table().Name)
		}
		leaf := d.precalc.Leaf(index)
		value := d.codecs[index].Decode(in, leaf.Prop, d.logger)
		if err := in.Err(); err != nil {
			reader.ForceFinished()
			return indices, fmt.Errorf("recveng: decoding %s: %w", leaf.Path, err)
		}
		indices = append(indices, index)
		if err := d.store(&stack.Stack, index, value); err != nil {
			reader.ForceFinished()
			return indices, err
		}
	}
	reader.Close()
	if err := reader.Err(); err != nil {
		return indices, fmt.Errorf("recveng: %w", err)
	}
	return indices, nil
}

func (d *Decoder) store(stack *dtstack.Stack, index int, value datatable.Value) error {
	if !d.mapped[index] {
		return nil
	}
	leaf := d.precalc.Leaf(index)
	base, ok := stack.Base(leaf.Node)
	if !ok {
		return nil
	}
	if err := leaf.Set(base, value); err != nil {
		return fmt.Errorf("recveng: storing %s: %w", leaf.Path, err)
	}
	return nil
}

// DecodeZero stores the zero value of every mapped prop into object,
// as if a full update omitted all of them.
func (d *Decoder) DecodeZero(object any) error {
	stack := dtstack.NewRecvStack(d.precalc)
	stack.Resolve(object)
	for i, codec := range d.codecs {
		if err := d.store(&stack.Stack, i, codec.DecodeZero(d.precalc.Leaf(i).Prop)); err != nil {
			return err
		}
	}
	return nil
}

// DecodeEntity stores every prop present in entity into object. Props
// absent from entity are left untouched; call [Decoder.DecodeZero]
// first to apply an entity as complete state.
func (d *Decoder) DecodeEntity(entity *serialized.Entity, object any) ([]int, error) {
	stack := dtstack.NewRecvStack(d.precalc)
	stack.Resolve(object)
	indices := make([]int, 0, entity.Len())
	for i := range entity.Len() {
		index := int(entity.Paths[i])
		if index >= d.precalc.Len() {
			return indices, fmt.Errorf("recveng: entity index %d beyond the %d props of %s", index, d.precalc.Len(), d.precalc.Table().Name)
		}
		leaf := d.precalc.Leaf(index)
		in := entity.FieldReader(i)
		value := d.codecs[index].Decode(in, leaf.Prop, d.logger)
		if err := in.Err(); err != nil {
			return indices, fmt.Errorf("recveng: decoding %s: %w", leaf.Path, err)
		}
		indices = append(indices, index)
		if err := d.store(&stack.Stack, index, value); err != nil {
			return indices, err
		}
	}
	return indices, nil
}

// LocalTransfer copies props from a sender object to a receiver object
// in the same process without a bit stream. Each value passes through
// its codec's FastCopy, so dst observes what a decode would produce.
// Only props whose nested tables are visible to client are copied. A
// nil indices copies every prop.
func (d *Decoder) LocalTransfer(sender *datatable.Precalc, src, dst any, client int, indices []int) error {
	if sender.Len() != d.precalc.Len() {
		return fmt.Errorf("%w: sender flattens %s to %d props, receiver to %d",
			ErrSchemaMismatch, sender.Table().Name, sender.Len(), d.precalc.Len())
	}
	sendStack := dtstack.NewSendStack(sender)
	sendStack.Resolve(src)
	recvStack := dtstack.NewRecvStack(d.precalc)
	recvStack.Resolve(dst)

	copyProp := func(index int) error {
		sendLeaf := sender.Leaf(index)
		base, ok := sendStack.Base(sendLeaf.Node)
		if !ok || !sendStack.Recipients(sendLeaf.Node).Has(client) {
			return nil
		}
		value, err := sendLeaf.Get(base)
		if err != nil {
			return fmt.Errorf("recveng: reading %s: %w", sendLeaf.Path, err)
		}
		value = d.codecs[index].FastCopy(d.precalc.Leaf(index).Prop, value)
		return d.store(&recvStack.Stack, index, value)
	}

	if indices == nil {
		for i := range d.precalc.Len() {
			if err := copyProp(i); err != nil {
				return err
			}
		}
		return nil
	}
	for _, index := range indices {
		if index < 0 || index >= d.precalc.Len() {
			return fmt.Errorf("recveng: index %d out of range", index)
		}
		if err := copyProp(index); err != nil {
			return err
		}
	}
	return nil
}
