// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"slices"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/codec"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/digest"
)

// Diff lists the tables that differ between two manifests. A table is
// Changed when both manifests describe it with different props; a
// change to a nested table does not mark the tables that nest it.
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether the manifests describe identical tables.
func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// String summarizes the diff on one line.
func (d *Diff) String() string {
	if d.Empty() {
		return "no table changes"
	}
	return fmt.Sprintf("added %v, removed %v, changed %v", d.Added, d.Removed, d.Changed)
}

// Compare reports how desired differs from current. Names in each list
// are sorted.
func Compare(current, desired *Manifest) (*Diff, error) {
	currentHashes, err := tableHashes(current)
	if err != nil {
		return nil, fmt.Errorf("manifest: hashing current tables: %w", err)
	}
	desiredHashes, err := tableHashes(desired)
	if err != nil {
		return nil, fmt.Errorf("manifest: hashing desired tables: %w", err)
	}

	diff := &Diff{}
	for name, hash := range desiredHashes {
		existing, ok := currentHashes[name]
		switch {
		case !ok:
			diff.Added = append(diff.Added, name)
		case existing != hash:
			diff.Changed = append(diff.Changed, name)
		}
	}
	for name := range currentHashes {
		if _, ok := desiredHashes[name]; !ok {
			diff.Removed = append(diff.Removed, name)
		}
	}
	slices.Sort(diff.Added)
	slices.Sort(diff.Removed)
	slices.Sort(diff.Changed)
	return diff, nil
}

func tableHashes(m *Manifest) (map[string]digest.Hash, error) {
	hashes := make(map[string]digest.Hash, len(m.Tables))
	for i := range m.Tables {
		data, err := codec.Marshal(&m.Tables[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Tables[i].Name, err)
		}
		hashes[m.Tables[i].Name] = digest.Sum(digest.ManifestDomain, data)
	}
	return hashes, nil
}
