// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package baseline keeps one instance baseline per entity class: the
// encoded entity most clients already hold. Sending an entity against
// its baseline costs only the props that differ from it:
//
//	base, _ := store.Get("DT_Player")
//	changed, err := encoder.WriteDelta(out, base, current)
//
// Baselines are stored as compressed CBOR and identified by a BLAKE3
// hash of the uncompressed encoding. [Store.Put] reports whether the
// stored baseline changed, which tells the caller to resend it.
package baseline

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/digest"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/serialized"
)

// ErrNotFound reports a class with no stored baseline.
var ErrNotFound = errors.New("baseline: not found")

// ErrCorrupt reports stored or imported bytes that do not match their
// hash or do not decode.
var ErrCorrupt = errors.New("baseline: corrupt")

// maxSize bounds the uncompressed size an imported header may claim.
const maxSize = 1 << 24

// Config configures a [Store].
type Config struct {
	// Compression is applied to every baseline. Baselines that do not
	// shrink are stored uncompressed.
	Compression Compression

	// Logger receives baseline changes. Nil discards.
	Logger *slog.Logger
}

// Info describes one stored baseline.
type Info struct {
	Class       string
	Hash        digest.Hash
	Compression Compression
	Size        int
	StoredSize  int
}

type record struct {
	hash        digest.Hash
	compression Compression
	size        int
	data        []byte
}

// Store holds baselines by class name. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	compression Compression
	logger      *slog.Logger
	records     map[string]record
}

// NewStore returns an empty store.
func NewStore(config Config) *Store {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		compression: config.Compression,
		logger:      logger,
		records:     make(map[string]record),
	}
}

// Put stores entity as the baseline of class. changed is false when the
// stored baseline already had the same content.
func (s *Store) Put(class string, entity *serialized.Entity) (hash digest.Hash, changed bool, err error) {
	data, err := entity.Marshal()
	if err != nil {
		return digest.Hash{}, false, fmt.Errorf("baseline: encoding %s: %w", class, err)
	}
	hash = digest.Sum(digest.BaselineDomain, data)

	s.mu.RLock()
	existing, ok := s.records[class]
	s.mu.RUnlock()
	if ok && existing.hash == hash {
		return hash, false, nil
	}

	stored, compression, err := compress(data, s.compression)
	if err != nil {
		return digest.Hash{}, false, err
	}
	s.mu.Lock()
	s.records[class] = record{hash: hash, compression: compression, size: len(data), data: stored}
	s.mu.Unlock()

	s.logger.Debug("baseline changed",
		"class", class,
		"hash", hash.Short(),
		"size", len(data),
		"stored_size", len(stored),
		"compression", compression.String(),
	)
	return hash, true, nil
}

// Get decodes the baseline of class.
func (s *Store) Get(class string) (*serialized.Entity, error) {
	s.mu.RLock()
	rec, ok := s.records[class]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, class)
	}
	return rec.decode(class)
}

func (rec record) decode(class string) (*serialized.Entity, error) {
	data, err := decompress(rec.data, rec.compression, rec.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, class, err)
	}
	if digest.Sum(digest.BaselineDomain, data) != rec.hash {
		return nil, fmt.Errorf("%w: %s: hash mismatch", ErrCorrupt, class)
	}
	entity, err := serialized.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, class, err)
	}
	return entity, nil
}

// Hash returns the hash of the baseline of class.
func (s *Store) Hash(class string) (digest.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[class]
	return rec.hash, ok
}

// Remove drops the baseline of class and reports whether one existed.
func (s *Store) Remove(class string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[class]
	delete(s.records, class)
	return ok
}

// Len returns the number of stored baselines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// List describes every stored baseline, sorted by class.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]Info, 0, len(s.records))
	for class, rec := range s.records {
		infos = append(infos, Info{
			Class:       class,
			Hash:        rec.hash,
			Compression: rec.compression,
			Size:        rec.size,
			StoredSize:  len(rec.data),
		})
	}
	slices.SortFunc(infos, func(a, b Info) int { return cmp.Compare(a.Class, b.Class) })
	return infos
}

// Export returns the stored form of the baseline of class, ready to
// send to a peer's [Store.Import]: one compression byte, the
// uncompressed size as a uvarint, then the stored bytes.
func (s *Store) Export(class string) ([]byte, error) {
	s.mu.RLock()
	rec, ok := s.records[class]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, class)
	}
	out := make([]byte, 0, 1+binary.MaxVarintLen64+len(rec.data))
	out = append(out, byte(rec.compression))
	out = binary.AppendUvarint(out, uint64(rec.size))
	return append(out, rec.data...), nil
}

// Import stores an exported baseline for class after checking that it
// decodes. The stored bytes are kept in their exported compression.
func (s *Store) Import(class string, exported []byte) (hash digest.Hash, changed bool, err error) {
	if len(exported) < 2 {
		return digest.Hash{}, false, fmt.Errorf("%w: %s: short header", ErrCorrupt, class)
	}
	compression := Compression(exported[0])
	size, n := binary.Uvarint(exported[1:])
	if n <= 0 || size > maxSize {
		return digest.Hash{}, false, fmt.Errorf("%w: %s: bad size header", ErrCorrupt, class)
	}
	stored := slices.Clone(exported[1+n:])

	data, err := decompress(stored, compression, int(size))
	if err != nil {
		return digest.Hash{}, false, fmt.Errorf("%w: %s: %w", ErrCorrupt, class, err)
	}
	if _, err := serialized.Unmarshal(data); err != nil {
		return digest.Hash{}, false, fmt.Errorf("%w: %s: %w", ErrCorrupt, class, err)
	}
	hash = digest.Sum(digest.BaselineDomain, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[class]; ok && existing.hash == hash {
		return hash, false, nil
	}
	s.records[class] = record{hash: hash, compression: compression, size: int(size), data: stored}
	return hash, true, nil
}
