// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/pkg/profile"
)

// startProfile starts the named profile and returns the function that
// stops it and writes the file. An empty mode profiles nothing.
func startProfile(mode, dir string) (func(), error) {
	var kind func(*profile.Profile)
	switch mode {
	case "":
		return func() {}, nil
	case "cpu":
		kind = profile.CPUProfile
	case "mem":
		kind = profile.MemProfile
	case "alloc":
		kind = profile.MemProfileAllocs
	default:
		return nil, fmt.Errorf("unknown profile %q (want cpu, mem or alloc)", mode)
	}
	options := []func(*profile.Profile){kind, profile.Quiet, profile.NoShutdownHook}
	if dir != "" {
		options = append(options, profile.ProfilePath(dir))
	}
	return profile.Start(options...).Stop, nil
}
