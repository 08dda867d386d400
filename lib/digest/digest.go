// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes the domain-separated BLAKE3 hashes the codec
// uses to identify schemas and baselines.
package digest

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// Domain is a 32-byte key for BLAKE3 keyed hashing. The same bytes hash
// differently in different domains, so a manifest digest can never be
// mistaken for a baseline digest.
type Domain [32]byte

// Domain keys are fixed: changing one invalidates every stored hash in
// that domain. The bytes are the ASCII domain name, zero-padded, so
// the keys read plainly in hex dumps.
var (
	ManifestDomain = Domain{
		'd', 'a', 't', 'a', 't', 'a', 'b', 'l', 'e', '.', 'm', 'a', 'n', 'i', 'f', 'e',
		's', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	BaselineDomain = Domain{
		'd', 'a', 't', 'a', 't', 'a', 'b', 'l', 'e', '.', 'b', 'a', 's', 'e', 'l', 'i',
		'n', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Sum returns the keyed hash of data in domain.
func Sum(domain Domain, data []byte) Hash {
	// NewKeyed only fails for a key that is not 32 bytes long.
	hasher, err := blake3.NewKeyed(domain[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// String returns the hash in hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters, for logs and listings.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:6])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Parse parses a 64-character hex string.
func Parse(text string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return hash, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(hash))
	}
	copy(hash[:], decoded)
	return hash, nil
}
