// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/cmd/dtinspect/cli"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/dtstack"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/manifest"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/recveng"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/registry"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/sendeng"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/serialized"
)

func (a *app) roundtripCommand() *cli.Command {
	var (
		fromPath    string
		recvPath    string
		policyName  string
		profileMode string
		profileDir  string
		repeat      int
	)
	return &cli.Command{
		Name:    "roundtrip",
		Summary: "Encode an instance, decode it, and compare the values",
		Description: `Register the schema's tables as a sender, hand the manifest to a
receiver, then encode a JSON instance as a full update and decode it.
With --from, the update is a delta against a previous instance that the
receiver already holds. The report lists every prop on the wire with
the value sent and the value received, after quantization.

--recv-schema gives the receiver its own tables, as a client built
against an older or newer schema would have.

--repeat and --profile run the exchange in a loop under the Go
profiler and write a pprof file for the encode and decode paths.`,
		Usage: "dtinspect roundtrip --schema FILE [--table NAME] [--from FILE] INSTANCE",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("roundtrip", pflag.ContinueOnError)
			a.schemaFlags(flagSet)
			flagSet.StringVar(&fromPath, "from", "", "previous instance; send a delta against it")
			flagSet.StringVar(&recvPath, "recv-schema", "", "receiver schema file (default: --schema)")
			flagSet.StringVar(&policyName, "policy", "", "receiver policy: strict or compatible (default from config)")
			flagSet.IntVar(&repeat, "repeat", 1, "run the exchange this many times")
			flagSet.StringVar(&profileMode, "profile", "", "profile the exchange: cpu, mem or alloc")
			flagSet.StringVar(&profileDir, "profile-dir", "", "directory for the profile (default: a temporary directory)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: dtinspect roundtrip --schema FILE INSTANCE")
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger, err := a.commandLogger(cfg, "roundtrip")
			if err != nil {
				return err
			}
			encoderConfig, err := cfg.EncoderConfig(logger)
			if err != nil {
				return err
			}
			policy, err := cfg.DecodePolicy()
			if err != nil {
				return err
			}
			if policyName != "" {
				if policy, err = recveng.ParsePolicy(policyName); err != nil {
					return err
				}
			}

			loaded, root, err := a.loadRoot()
			if err != nil {
				return err
			}
			received := loaded
			if recvPath != "" {
				if received, err = loadSchema(recvPath); err != nil {
					return err
				}
			}

			tables := registry.New(registry.Config{Logger: logger, Encoder: encoderConfig})
			defer tables.Term()
			encoder, decoder, err := connect(tables, loaded, received, root.Name, policy)
			if err != nil {
				return err
			}

			current, err := readInstance(args[0])
			if err != nil {
				return err
			}

			// The receiver starts from the zero state for a full update
			// and from the previous state for a delta.
			var old *serialized.Entity
			var target map[string]any
			kind := "full"
			if fromPath == "" {
				if target, err = readInstance(args[0]); err != nil {
					return err
				}
				if err := decoder.DecodeZero(target); err != nil {
					return err
				}
			} else {
				kind = "delta"
				previous, err := readInstance(fromPath)
				if err != nil {
					return err
				}
				if old, _, err = encoder.Encode(previous); err != nil {
					return err
				}
				if target, err = readInstance(fromPath); err != nil {
					return err
				}
				if err := decoder.DecodeZero(target); err != nil {
					return err
				}
				if _, err := decoder.DecodeEntity(old, target); err != nil {
					return err
				}
			}

			stop, err := startProfile(profileMode, profileDir)
			if err != nil {
				return err
			}
			out := bitbuf.NewWriter(0)
			var indices []int
			for range max(repeat, 1) {
				if indices, err = exchange(encoder, decoder, out, old, current, target); err != nil {
					stop()
					return err
				}
			}
			stop()

			p := a.printer()
			p.title("%s: %s update, %d props in %d bits (%d bytes)",
				root.Name, kind, len(indices), out.BitsWritten(), out.BytesWritten())
			p.table([]string{"#", "PATH", "SENT", "RECEIVED"},
				compareRows(encoder, decoder, current, target, indices))
			return nil
		},
		Examples: []cli.Example{
			{
				Description: "Full update of one instance",
				Command:     "dtinspect roundtrip --schema player.yaml player.json",
			},
			{
				Description: "Delta between two snapshots",
				Command:     "dtinspect roundtrip --schema player.yaml --from before.json after.json",
			},
			{
				Description: "Profile ten thousand delta exchanges",
				Command:     "dtinspect roundtrip --schema player.yaml --from before.json --repeat 10000 --profile cpu --profile-dir /tmp/prof after.json",
			},
			{
				Description: "Decode with an older client schema",
				Command:     "dtinspect roundtrip --schema server.yaml --recv-schema client.yaml --policy compatible player.json",
			},
		},
	}
}

// exchange encodes current, writes it as a full update (old == nil) or
// as a delta against old, and decodes the result into target.
func exchange(encoder *sendeng.Encoder, decoder *recveng.Decoder, out *bitbuf.Writer, old *serialized.Entity, current, target any) ([]int, error) {
	entity, _, err := encoder.Encode(current)
	if err != nil {
		return nil, err
	}
	out.Reset()
	if old == nil {
		err = encoder.WriteFull(out, entity)
	} else {
		_, err = encoder.WriteDelta(out, old, entity)
	}
	if err != nil {
		return nil, err
	}
	if err := out.Err(); err != nil {
		return nil, err
	}
	return decoder.Decode(bitbuf.NewReader(out.Bytes(), out.BitsWritten()), target)
}

// connect registers both sides of a connection in tables and returns
// the encoder and decoder of root. The sender's manifest crosses the
// connection as CBOR, as it would between two processes.
func connect(tables *registry.Registry, sent, received *schema, root string, policy recveng.Policy) (*sendeng.Encoder, *recveng.Decoder, error) {
	if err := tables.RegisterSendTables(sent.roots()...); err != nil {
		return nil, nil, err
	}
	local, err := tables.Manifest()
	if err != nil {
		return nil, nil, err
	}
	data, err := local.Marshal()
	if err != nil {
		return nil, nil, err
	}
	remote, err := manifest.Unmarshal(data)
	if err != nil {
		return nil, nil, err
	}
	if err := tables.RegisterRecvTables(received.roots()...); err != nil {
		return nil, nil, err
	}
	if err := tables.CreateDecoders(remote, policy); err != nil {
		return nil, nil, err
	}

	encoder, ok := tables.Encoder(root)
	if !ok {
		return nil, nil, fmt.Errorf("no encoder for %s", root)
	}
	decoder, ok := tables.Decoder(root)
	if !ok {
		return nil, nil, fmt.Errorf("receiver has no table %s", root)
	}
	return encoder, decoder, nil
}

func compareRows(encoder *sendeng.Encoder, decoder *recveng.Decoder, sent, received any, indices []int) [][]string {
	sendStack := dtstack.New(encoder.Precalc())
	sendStack.Resolve(sent)
	recvStack := dtstack.New(decoder.Precalc())
	recvStack.Resolve(received)

	rows := make([][]string, 0, len(indices))
	for _, index := range indices {
		leaf := encoder.Precalc().Leaf(index)
		receivedText := "(skipped)"
		if decoder.Mapped(index) {
			receivedText = leafValue(recvStack, decoder.Precalc().Leaf(index), index)
		}
		rows = append(rows, []string{
			strconv.Itoa(index),
			leaf.Path,
			leafValue(sendStack, leaf, index),
			receivedText,
		})
	}
	return rows
}

func leafValue(stack *dtstack.Stack, leaf *datatable.Leaf, index int) string {
	base, ok := stack.LeafBase(index)
	if !ok {
		return "-"
	}
	value, err := leaf.Get(base)
	if err != nil {
		return "error: " + err.Error()
	}
	return value.Format()
}
