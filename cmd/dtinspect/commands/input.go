// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// readHexInput returns the bytes named by args: hex text given inline,
// the contents of a file, or stdin when args is empty. File contents
// are raw unless hexMode is set; inline arguments are always hex.
func readHexInput(args []string, stdin io.Reader, hexMode bool) ([]byte, error) {
	var data []byte
	switch {
	case len(args) == 0:
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		data = raw
	case isFile(args[0]) && len(args) == 1:
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", args[0], err)
		}
		data = raw
	default:
		data = []byte(strings.Join(args, " "))
		hexMode = true
	}
	if !hexMode {
		return data, nil
	}
	return decodeHex(data)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// decodeHex decodes hex text, ignoring whitespace between digits.
func decodeHex(data []byte) ([]byte, error) {
	cleaned := bytes.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, data)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("empty input after stripping whitespace from hex")
	}
	decoded := make([]byte, hex.DecodedLen(len(cleaned)))
	count, err := hex.Decode(decoded, cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return decoded[:count], nil
}

// readInstance reads a JSON object. Nested objects become nested maps,
// which the default accessors descend into.
func readInstance(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var instance map[string]any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%s: instance must be a JSON object", path)
	}
	return instance, nil
}
