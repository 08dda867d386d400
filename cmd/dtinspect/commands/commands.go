// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the dtinspect command tree: schema listings,
// manifest exchange, delta-bits decoding, encode/decode round trips and
// baseline management, all driven by schema files.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/cmd/dtinspect/cli"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/version"
)

// Root returns the dtinspect command tree writing results to out.
func Root(out io.Writer) *cli.Command {
	return newApp(os.Stdin, out).root()
}

func newApp(stdin io.Reader, out io.Writer) *app {
	return &app{stdin: stdin, out: out, styled: cli.IsTerminal(out)}
}

func (a *app) root() *cli.Command {
	out := a.out
	return &cli.Command{
		Name: "dtinspect",
		Description: `dtinspect: inspect datatable schemas and replication streams.

Flattens schema files into their wire order, exchanges and compares
manifests, decodes delta-bits streams, and round-trips instances through
the encoder and decoder.`,
		Subcommands: []*cli.Command{
			a.schemaCommand(),
			a.manifestCommand(),
			a.deltabitsCommand(),
			a.roundtripCommand(),
			a.baselineCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Fprintf(out, "dtinspect %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "List the flattened props of a table",
				Command:     "dtinspect schema --schema player.yaml --table DT_Player",
			},
			{
				Description: "Write a manifest and print its fingerprint",
				Command:     "dtinspect manifest write --schema player.yaml --out player.manifest",
			},
			{
				Description: "Show what changed between two manifests",
				Command:     "dtinspect manifest diff old.manifest player.yaml",
			},
			{
				Description: "Decode a captured delta-bits stream",
				Command:     "dtinspect deltabits decode 'e5 1f 00 80'",
			},
			{
				Description: "Encode and decode an instance, reporting wire size",
				Command:     "dtinspect roundtrip --schema player.yaml instance.json",
			},
		},
	}
}
