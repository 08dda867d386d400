// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/cmd/dtinspect/cli"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/deltabits"
)

func (a *app) deltabitsCommand() *cli.Command {
	return &cli.Command{
		Name:    "deltabits",
		Summary: "Encode and decode changed-prop index streams",
		Description: `A delta-bits stream lists the flat indices of the props an update
carries, ending in a sentinel. The first bit selects the layout:
compact distance tiers or the legacy variable-width distances.`,
		Subcommands: []*cli.Command{
			a.deltabitsDecodeCommand(),
			a.deltabitsEncodeCommand(),
		},
	}
}

func (a *app) deltabitsDecodeCommand() *cli.Command {
	var (
		bits    int
		hexFile bool
	)
	return &cli.Command{
		Name:    "decode",
		Summary: "Print the indices of a delta-bits stream",
		Usage:   "dtinspect deltabits decode [--bits N] [--hex] [HEX... | FILE]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
			flagSet.IntVar(&bits, "bits", 0, "stream length in bits (default: every input bit)")
			flagSet.BoolVarP(&hexFile, "hex", "x", false, "file or stdin input is hex text")
			return flagSet
		},
		Run: func(args []string) error {
			data, err := readHexInput(args, a.stdin, hexFile)
			if err != nil {
				return err
			}
			length := len(data) * 8
			if bits > 0 {
				if bits > length {
					return fmt.Errorf("--bits %d exceeds the %d bits of input", bits, length)
				}
				length = bits
			}

			in := bitbuf.NewReader(data, length)
			reader := deltabits.NewReader(in)
			var indices []string
			for {
				index, ok := reader.ReadNextIndex()
				if !ok {
					break
				}
				indices = append(indices, strconv.Itoa(index))
			}
			reader.Close()

			p := a.printer()
			p.title("%s stream: %d indices in %d bits", reader.Scheme(), len(indices), in.Tell())
			if len(indices) > 0 {
				p.line("%s", strings.Join(indices, " "))
			}
			if err := reader.Err(); err != nil {
				return err
			}
			if left := in.BitsLeft(); left >= 8 {
				p.faint("%d trailing bits after the sentinel", left)
			}
			return nil
		},
	}
}

func (a *app) deltabitsEncodeCommand() *cli.Command {
	var schemeName string
	return &cli.Command{
		Name:    "encode",
		Summary: "Write ascending indices as a delta-bits stream",
		Usage:   "dtinspect deltabits encode [--scheme compact|legacy] INDEX...",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("encode", pflag.ContinueOnError)
			flagSet.StringVar(&schemeName, "scheme", "compact", "stream layout: compact or legacy")
			return flagSet
		},
		Run: func(args []string) error {
			scheme, err := deltabits.ParseScheme(schemeName)
			if err != nil {
				return err
			}
			indices := make([]int, len(args))
			for i, arg := range args {
				index, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("index %q: %w", arg, err)
				}
				if index < 0 || index >= deltabits.Sentinel {
					return fmt.Errorf("index %d outside [0, %d)", index, deltabits.Sentinel)
				}
				if i > 0 && index <= indices[i-1] {
					return fmt.Errorf("indices must ascend: %d follows %d", index, indices[i-1])
				}
				indices[i] = index
			}

			out := bitbuf.NewWriter(0)
			deltabits.WriteAll(out, scheme, indices)
			if err := out.Err(); err != nil {
				return err
			}
			p := a.printer()
			p.line("%s", hex.EncodeToString(out.Bytes()))
			p.faint("%s stream: %d indices in %d bits", scheme, len(indices), out.BitsWritten())
			return nil
		},
	}
}
