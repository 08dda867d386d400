// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package serialized holds the full encoding of one object: every
// non-zero prop's payload, packed back to back in flat index order, and
// a table locating each payload by bit offset.
//
// An Entity is what the delta calculator compares and what the encode
// pipeline copies payloads from when writing a delta. Entities are
// immutable once built; [Entity.Clone] before modifying one in place.
package serialized

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/codec"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

// ErrMalformed reports an entity whose tables disagree with its data.
var ErrMalformed = errors.New("serialized: malformed entity")

// Entity is the packed encoding of one object.
type Entity struct {
	// Paths holds the flat index of each present field, strictly
	// increasing.
	Paths []uint16 `cbor:"paths"`

	// Offsets holds the bit offset into Data of each field's payload.
	// A payload ends where the next one starts, the last at Bits.
	Offsets []uint32 `cbor:"offsets"`

	// Bits is the number of meaningful bits in Data.
	Bits int `cbor:"bits"`

	// Data is padded with zeros to a multiple of four bytes so it can
	// be scanned a word at a time.
	Data []byte `cbor:"data"`
}

// Len returns the number of fields present.
func (e *Entity) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Paths)
}

// Find returns the position of flat index path in e.
func (e *Entity) Find(path int) (int, bool) {
	i := sort.Search(len(e.Paths), func(i int) bool { return int(e.Paths[i]) >= path })
	return i, i < len(e.Paths) && int(e.Paths[i]) == path
}

// BitRange returns the bit span of field i.
func (e *Entity) BitRange(i int) (start, end int) {
	start = int(e.Offsets[i])
	if i+1 < len(e.Offsets) {
		return start, int(e.Offsets[i+1])
	}
	return start, e.Bits
}

// Reader returns a reader over every payload.
func (e *Entity) Reader() *bitbuf.Reader {
	return bitbuf.NewReader(e.Data, e.Bits)
}

// FieldReader returns a reader positioned at field i's payload and
// bounded by the end of the entity.
func (e *Entity) FieldReader(i int) *bitbuf.Reader {
	r := e.Reader()
	start, _ := e.BitRange(i)
	r.SeekToBit(start)
	return r
}

// Word returns the i'th little-endian 32-bit word of Data. Words past
// the end read as zero.
func (e *Entity) Word(i int) uint32 {
	offset := i * 4
	if offset+4 <= len(e.Data) {
		return binary.LittleEndian.Uint32(e.Data[offset:])
	}
	var word [4]byte
	if offset < len(e.Data) {
		copy(word[:], e.Data[offset:])
	}
	return binary.LittleEndian.Uint32(word[:])
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	return &Entity{
		Paths:   slices.Clone(e.Paths),
		Offsets: slices.Clone(e.Offsets),
		Bits:    e.Bits,
		Data:    slices.Clone(e.Data),
	}
}

// Validate checks the invariants a decoder relies on: paths strictly
// increasing and below [datatable.MaxProps], offsets non-decreasing and
// within Bits, and Bits within Data.
func (e *Entity) Validate() error {
	if len(e.Paths) != len(e.Offsets) {
		return fmt.Errorf("%w: %d paths but %d offsets", ErrMalformed, len(e.Paths), len(e.Offsets))
	}
	if e.Bits < 0 || e.Bits > len(e.Data)*8 {
		return fmt.Errorf("%w: %d bits in %d bytes", ErrMalformed, e.Bits, len(e.Data))
	}
	for i, path := range e.Paths {
		if int(path) >= datatable.MaxProps {
			return fmt.Errorf("%w: path %d out of range", ErrMalformed, path)
		}
		if i > 0 && path <= e.Paths[i-1] {
			return fmt.Errorf("%w: path %d follows %d", ErrMalformed, path, e.Paths[i-1])
		}
		start, end := e.BitRange(i)
		if start > end || end > e.Bits {
			return fmt.Errorf("%w: field %d spans bits [%d, %d) of %d", ErrMalformed, path, start, end, e.Bits)
		}
	}
	return nil
}

// Marshal encodes e as CBOR.
func (e *Entity) Marshal() ([]byte, error) {
	return codec.Marshal(e)
}

// Unmarshal decodes and validates a CBOR entity.
func Unmarshal(data []byte) (*Entity, error) {
	var e Entity
	if err := codec.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("serialized: decoding entity: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Builder assembles an Entity one field at a time.
type Builder struct {
	writer  *bitbuf.Writer
	paths   []uint16
	offsets []uint32
}

// NewBuilder returns a builder with room for about sizeHint bytes.
func NewBuilder(sizeHint int) *Builder {
	return &Builder{writer: bitbuf.NewWriter(sizeHint)}
}

// Begin records the start of path's payload and returns the writer to
// encode it into. Paths must be strictly increasing.
func (b *Builder) Begin(path int) *bitbuf.Writer {
	if n := len(b.paths); n > 0 && path <= int(b.paths[n-1]) {
		panic(fmt.Sprintf("serialized: path %d after %d", path, b.paths[n-1]))
	}
	b.paths = append(b.paths, uint16(path))
	b.offsets = append(b.offsets, uint32(b.writer.Tell()))
	return b.writer
}

// Finish returns the built entity.
func (b *Builder) Finish() (*Entity, error) {
	if err := b.writer.Err(); err != nil {
		return nil, fmt.Errorf("serialized: %w", err)
	}
	bits := b.writer.BitsWritten()
	data := make([]byte, (b.writer.BytesWritten()+3)&^3)
	copy(data, b.writer.Bytes())
	return &Entity{
		Paths:   b.paths,
		Offsets: b.offsets,
		Bits:    bits,
		Data:    data,
	}, nil
}
