// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package deltabits encodes the ascending list of flat property indices
// that precede each payload in a delta update.
//
// A stream starts with one scheme bit and ends with the [Sentinel]
// index. Each index is sent as its distance from the previous one
// (the first from -1):
//
//   - [SchemeCompact]: a distance of one is a single set bit. Anything
//     else is a clear bit, two tier bits, and the distance minus two in
//     5, 7, 9 or 12 bits.
//   - [SchemeLegacy]: the distance minus one as a tiered varbit (two
//     tier bits and a 4, 8, 12 or 32 bit payload).
//
// Writers and readers are single use and never shared.
package deltabits

import (
	"fmt"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
)

// Sentinel terminates every stream. It is one past the largest flat
// index a schema can hold.
const Sentinel = datatable.MaxProps

// Scheme selects the distance encoding.
type Scheme uint8

const (
	SchemeCompact Scheme = iota
	SchemeLegacy
)

// String returns the scheme name used in configuration.
func (s Scheme) String() string {
	switch s {
	case SchemeCompact:
		return "compact"
	case SchemeLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("Scheme(%d)", uint8(s))
	}
}

// ParseScheme converts a configuration name into a Scheme.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "compact", "":
		return SchemeCompact, nil
	case "legacy":
		return SchemeLegacy, nil
	default:
		return 0, fmt.Errorf("deltabits: unknown scheme %q", name)
	}
}

// compactTiers are the payload widths of the four compact tiers.
var compactTiers = [4]int{5, 7, 9, 12}

func writeCompact(w *bitbuf.Writer, distance int) {
	if distance == 1 {
		w.WriteOneBit(true)
		return
	}
	w.WriteOneBit(false)
	value := uint32(distance - 2)
	for tier, width := range compactTiers {
		if value < 1<<width || tier == len(compactTiers)-1 {
			w.WriteUBitLong(uint32(tier), 2)
			w.WriteUBitLong(value, width)
			return
		}
	}
}

func readCompact(r *bitbuf.Reader) int {
	if r.ReadOneBit() {
		return 1
	}
	width := compactTiers[r.ReadUBitLong(2)]
	return int(r.ReadUBitLong(width)) + 2
}

// Writer encodes an index stream.
type Writer struct {
	out      *bitbuf.Writer
	scheme   Scheme
	last     int
	finished bool
}

// NewWriter writes the scheme bit to out and returns a Writer for the
// indices that follow.
func NewWriter(out *bitbuf.Writer, scheme Scheme) *Writer {
	out.WriteOneBit(scheme == SchemeCompact)
	return &Writer{out: out, scheme: scheme, last: -1}
}

// Scheme returns the writer's distance encoding.
func (w *Writer) Scheme() Scheme { return w.scheme }

// WriteIndex appends index. Indices must be strictly increasing and
// below [Sentinel].
func (w *Writer) WriteIndex(index int) {
	if w.finished {
		panic("deltabits: WriteIndex after Finish")
	}
	if index <= w.last || index >= Sentinel {
		panic(fmt.Sprintf("deltabits: index %d out of order (previous %d)", index, w.last))
	}
	w.write(index)
}

func (w *Writer) write(index int) {
	distance := index - w.last
	w.last = index
	if w.scheme == SchemeCompact {
		writeCompact(w.out, distance)
		return
	}
	w.out.WriteUBitVar(uint32(distance - 1))
}

// Finish writes the sentinel. It must be called exactly once.
func (w *Writer) Finish() {
	if w.finished {
		panic("deltabits: Finish called twice")
	}
	w.write(Sentinel)
	w.finished = true
}

// Reader decodes an index stream.
type Reader struct {
	in       *bitbuf.Reader
	scheme   Scheme
	last     int
	finished bool
	forced   bool
}

// NewReader reads the scheme bit from in.
func NewReader(in *bitbuf.Reader) *Reader {
	scheme := SchemeLegacy
	if in.ReadOneBit() {
		scheme = SchemeCompact
	}
	return &Reader{in: in, scheme: scheme, last: -1}
}

// Scheme returns the scheme announced by the stream.
func (r *Reader) Scheme() Scheme { return r.scheme }

// ReadNextIndex returns the next index, or false once the sentinel has
// been read. A distance that overshoots the sentinel or an exhausted
// input also ends the stream; [Reader.Err] reports why.
func (r *Reader) ReadNextIndex() (int, bool) {
	if r.finished {
		return Sentinel, false
	}
	var distance int
	if r.scheme == SchemeCompact {
		distance = readCompact(r.in)
	} else {
		distance = int(r.in.ReadUBitVar()) + 1
	}
	index := r.last + distance
	if r.in.Overflowed() || index >= Sentinel {
		r.finished = true
		r.last = index
		return Sentinel, false
	}
	r.last = index
	return index, true
}

// ForceFinished marks the stream as abandoned before its sentinel, for
// callers that stop reading on an error.
func (r *Reader) ForceFinished() {
	r.forced = true
}

// Err reports a stream that ended without a well-formed sentinel.
func (r *Reader) Err() error {
	if err := r.in.Err(); err != nil {
		return fmt.Errorf("deltabits: %w", err)
	}
	if r.finished && r.last != Sentinel {
		return fmt.Errorf("deltabits: stream ended at index %d", r.last)
	}
	return nil
}

// Close checks that the sentinel was consumed. Stopping early without
// [Reader.ForceFinished] is a programming error and panics.
func (r *Reader) Close() {
	if !r.finished && !r.forced {
		panic(fmt.Sprintf("deltabits: reader closed at index %d before the sentinel", r.last))
	}
}

// ReadAll reads every index up to the sentinel.
func ReadAll(in *bitbuf.Reader) ([]int, error) {
	r := NewReader(in)
	var indices []int
	for {
		index, ok := r.ReadNextIndex()
		if !ok {
			break
		}
		indices = append(indices, index)
	}
	r.Close()
	if err := r.Err(); err != nil {
		return indices, err
	}
	return indices, nil
}

// WriteAll writes indices followed by the sentinel.
func WriteAll(out *bitbuf.Writer, scheme Scheme, indices []int) {
	w := NewWriter(out, scheme)
	for _, index := range indices {
		w.WriteIndex(index)
	}
	w.Finish()
}
