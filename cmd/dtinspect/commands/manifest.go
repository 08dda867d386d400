// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/cmd/dtinspect/cli"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/codec"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/digest"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/manifest"
)

func (a *app) manifestCommand() *cli.Command {
	return &cli.Command{
		Name:    "manifest",
		Summary: "Write, verify and compare schema manifests",
		Description: `A manifest is the CBOR description of every table a sender registers.
Receivers rebuild the sender's tables from it and match them against
their own. Commands here accept either a manifest file (.manifest or
.cbor) or a schema file wherever a manifest is expected.`,
		Subcommands: []*cli.Command{
			a.manifestWriteCommand(),
			a.manifestVerifyCommand(),
			a.manifestDiffCommand(),
			a.manifestShowCommand(),
		},
	}
}

func (a *app) manifestWriteCommand() *cli.Command {
	var outPath string
	return &cli.Command{
		Name:    "write",
		Summary: "Build a manifest from a schema file",
		Usage:   "dtinspect manifest write --schema FILE [--out FILE]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("write", pflag.ContinueOnError)
			flagSet.StringVar(&a.schemaPath, "schema", "", "schema file")
			flagSet.StringVarP(&outPath, "out", "o", "", "write the CBOR manifest here")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			loaded, err := loadSchema(a.schemaPath)
			if err != nil {
				return err
			}
			built, err := manifest.Build(loaded.roots()...)
			if err != nil {
				return err
			}
			data, err := built.Marshal()
			if err != nil {
				return err
			}
			fingerprint, err := built.Fingerprint()
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, data, 0644); err != nil {
					return fmt.Errorf("writing manifest: %w", err)
				}
			}

			p := a.printer()
			p.title("manifest v%d: %d roots, %d tables, %d bytes", built.Version, len(built.Roots), len(built.Tables), len(data))
			p.line("fingerprint %s", fingerprint)
			for _, root := range built.Roots {
				p.line("root %s", root)
			}
			return nil
		},
	}
}

func (a *app) manifestVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:    "verify",
		Summary: "Check a manifest against an expected fingerprint",
		Usage:   "dtinspect manifest verify MANIFEST FINGERPRINT",
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: dtinspect manifest verify MANIFEST FINGERPRINT")
			}
			loaded, err := readManifest(args[0])
			if err != nil {
				return err
			}
			want, err := digest.Parse(args[1])
			if err != nil {
				return err
			}
			if err := loaded.Verify(want); err != nil {
				return err
			}
			a.printer().line("%s: fingerprint matches", args[0])
			return nil
		},
	}
}

func (a *app) manifestDiffCommand() *cli.Command {
	return &cli.Command{
		Name:    "diff",
		Summary: "List tables added, removed or changed between two manifests",
		Description: `Compare two manifests table by table. Exits 0 when they describe the
same tables and 1 when they differ.`,
		Usage: "dtinspect manifest diff CURRENT DESIRED",
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: dtinspect manifest diff CURRENT DESIRED")
			}
			current, err := readManifest(args[0])
			if err != nil {
				return err
			}
			desired, err := readManifest(args[1])
			if err != nil {
				return err
			}
			diff, err := manifest.Compare(current, desired)
			if err != nil {
				return err
			}

			p := a.printer()
			if diff.Empty() {
				p.line("no changes")
				return nil
			}
			for _, name := range diff.Added {
				p.line("%s", p.style(addedStyle, "+ "+name))
			}
			for _, name := range diff.Removed {
				p.line("%s", p.style(removedStyle, "- "+name))
			}
			for _, name := range diff.Changed {
				p.line("%s", p.style(changedStyle, "~ "+name))
			}
			return &cli.ExitError{Code: 1}
		},
	}
}

func (a *app) manifestShowCommand() *cli.Command {
	return &cli.Command{
		Name:    "show",
		Summary: "Print a manifest in CBOR diagnostic notation",
		Usage:   "dtinspect manifest show MANIFEST",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: dtinspect manifest show MANIFEST")
			}
			loaded, err := readManifest(args[0])
			if err != nil {
				return err
			}
			data, err := loaded.Marshal()
			if err != nil {
				return err
			}
			notation, err := codec.Diagnose(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			a.printer().line("%s", notation)
			return nil
		},
	}
}

// readManifest loads a CBOR manifest, or builds one from a schema file.
func readManifest(path string) (*manifest.Manifest, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".manifest", ".cbor":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		loaded, err := manifest.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return loaded, nil
	default:
		loaded, err := loadSchema(path)
		if err != nil {
			return nil, err
		}
		return manifest.Build(loaded.roots()...)
	}
}
