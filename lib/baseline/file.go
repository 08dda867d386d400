// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package baseline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/digest"
)

// Extension is the file suffix of a saved baseline.
const Extension = ".baseline"

// Path returns the file the baseline of class is saved to in dir.
func Path(dir, class string) string {
	return filepath.Join(dir, class+Extension)
}

// Save writes the exported baseline of class into dir and returns the
// file path. The file is written to a temporary name, synced, and
// renamed into place, so a reader never sees a partial baseline.
func (s *Store) Save(dir, class string) (string, error) {
	exported, err := s.Export(class)
	if err != nil {
		return "", err
	}
	path := Path(dir, class)
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("baseline: creating %s: %w", temporaryPath, err)
	}
	if _, err := file.Write(exported); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("baseline: writing %s: %w", temporaryPath, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("baseline: syncing %s: %w", temporaryPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("baseline: closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("baseline: renaming %s into place: %w", path, err)
	}

	// Make the rename itself durable.
	if directory, err := os.Open(dir); err == nil {
		directory.Sync()
		directory.Close()
	}
	s.logger.Debug("baseline saved", "class", class, "path", path)
	return path, nil
}

// Load imports the baseline of class saved in dir. A missing file is
// reported with an error wrapping [os.ErrNotExist].
func (s *Store) Load(dir, class string) (hash digest.Hash, changed bool, err error) {
	exported, err := os.ReadFile(Path(dir, class))
	if err != nil {
		return digest.Hash{}, false, fmt.Errorf("baseline: %w", err)
	}
	return s.Import(class, exported)
}
