// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deltabits

import (
	"slices"
	"strings"
	"testing"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
)

func encodeIndices(scheme Scheme, indices []int) *bitbuf.Writer {
	w := bitbuf.NewWriter(16)
	WriteAll(w, scheme, indices)
	return w
}

func TestRoundTrip(t *testing.T) {
	cases := [][]int{
		nil,
		{0},
		{0, 1, 2, 3},
		{5, 40, 41, 200, 1000, 4095},
		{4095},
		{1, 33, 34, 160, 700, 2000},
	}
	for _, scheme := range []Scheme{SchemeCompact, SchemeLegacy} {
		for _, indices := range cases {
			w := encodeIndices(scheme, indices)
			got, err := ReadAll(bitbuf.NewReader(w.Bytes(), w.BitsWritten()))
			if err != nil {
				t.Fatalf("%s %v: ReadAll: %v", scheme, indices, err)
			}
			if !slices.Equal(got, indices) {
				t.Errorf("%s: round trip %v = %v", scheme, indices, got)
			}
		}
	}
}

func TestStreamLengths(t *testing.T) {
	tests := []struct {
		scheme  Scheme
		indices []int
		bits    int
	}{
		// Scheme bit, then the sentinel at distance 4097: 3 + 12 bits.
		{SchemeCompact, nil, 1 + 15},
		// Three unit steps, then the sentinel at distance 4094.
		{SchemeCompact, []int{0, 1, 2}, 1 + 3 + 15},
		// Distance 7 fits the 5-bit tier.
		{SchemeCompact, []int{6}, 1 + 8 + 15},
		// Legacy sends the sentinel distance 4096 in the 32-bit tier.
		{SchemeLegacy, nil, 1 + 34},
		// From index 1 the sentinel distance 4095 fits the 12-bit tier.
		{SchemeLegacy, []int{0, 1}, 1 + 6 + 6 + 14},
	}
	for _, test := range tests {
		w := encodeIndices(test.scheme, test.indices)
		if w.BitsWritten() != test.bits {
			t.Errorf("%s %v: wrote %d bits, want %d", test.scheme, test.indices, w.BitsWritten(), test.bits)
		}
	}
}

func TestSchemeBit(t *testing.T) {
	for _, scheme := range []Scheme{SchemeCompact, SchemeLegacy} {
		w := encodeIndices(scheme, []int{3})
		r := NewReader(bitbuf.NewReader(w.Bytes(), w.BitsWritten()))
		if r.Scheme() != scheme {
			t.Errorf("reader scheme = %s, want %s", r.Scheme(), scheme)
		}
		r.ForceFinished()
		r.Close()
	}
}

func TestReaderAfterSentinel(t *testing.T) {
	w := encodeIndices(SchemeCompact, []int{2})
	r := NewReader(bitbuf.NewReader(w.Bytes(), w.BitsWritten()))
	if index, ok := r.ReadNextIndex(); !ok || index != 2 {
		t.Fatalf("ReadNextIndex = %d, %v; want 2, true", index, ok)
	}
	for range 2 {
		if index, ok := r.ReadNextIndex(); ok || index != Sentinel {
			t.Fatalf("ReadNextIndex after sentinel = %d, %v", index, ok)
		}
	}
	r.Close()
	if err := r.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
}

func TestTruncatedStream(t *testing.T) {
	w := encodeIndices(SchemeLegacy, []int{10, 20})
	r := NewReader(bitbuf.NewReader(w.Bytes(), 1+6+6))
	r.ReadNextIndex()
	r.ReadNextIndex()
	if _, ok := r.ReadNextIndex(); ok {
		t.Fatal("ReadNextIndex past the end returned ok")
	}
	if r.Err() == nil {
		t.Fatal("Err = nil for a truncated stream")
	}
}

func TestCloseBeforeSentinelPanics(t *testing.T) {
	w := encodeIndices(SchemeCompact, []int{1, 2})
	r := NewReader(bitbuf.NewReader(w.Bytes(), w.BitsWritten()))
	r.ReadNextIndex()
	defer func() {
		recovered := recover()
		if recovered == nil {
			t.Fatal("Close before the sentinel did not panic")
		}
		if !strings.Contains(recovered.(string), "before the sentinel") {
			t.Fatalf("unexpected panic %v", recovered)
		}
	}()
	r.Close()
}

func TestWriterContract(t *testing.T) {
	expectPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		fn()
	}

	expectPanic("repeated index", func() {
		w := NewWriter(bitbuf.NewWriter(4), SchemeCompact)
		w.WriteIndex(4)
		w.WriteIndex(4)
	})
	expectPanic("sentinel index", func() {
		NewWriter(bitbuf.NewWriter(4), SchemeCompact).WriteIndex(Sentinel)
	})
	expectPanic("write after finish", func() {
		w := NewWriter(bitbuf.NewWriter(4), SchemeLegacy)
		w.Finish()
		w.WriteIndex(1)
	})
	expectPanic("double finish", func() {
		w := NewWriter(bitbuf.NewWriter(4), SchemeLegacy)
		w.Finish()
		w.Finish()
	})
}

func TestParseScheme(t *testing.T) {
	for _, scheme := range []Scheme{SchemeCompact, SchemeLegacy} {
		parsed, err := ParseScheme(scheme.String())
		if err != nil || parsed != scheme {
			t.Errorf("ParseScheme(%q) = %s, %v", scheme, parsed, err)
		}
	}
	if _, err := ParseScheme("huffman"); err == nil {
		t.Error("ParseScheme(huffman) succeeded")
	}
}
