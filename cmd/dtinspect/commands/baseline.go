// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/cmd/dtinspect/cli"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/baseline"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/bitbuf"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/config"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/sendeng"
)

func (a *app) baselineCommand() *cli.Command {
	var dir string
	dirFlag := func(flagSet *pflag.FlagSet) {
		flagSet.StringVar(&dir, "dir", "", "baseline directory (default paths.baselines from config)")
	}
	return &cli.Command{
		Name:    "baseline",
		Summary: "Store instance baselines and measure deltas against them",
		Description: `A baseline is the encoded default state of a class. New objects are
sent as a delta against their class's baseline instead of a full
update. Baselines are stored compressed, one file per class, under the
configured baselines directory.`,
		Subcommands: []*cli.Command{
			{
				Name:    "save",
				Summary: "Encode an instance and store it as its table's baseline",
				Usage:   "dtinspect baseline save --schema FILE [--table NAME] [--dir DIR] INSTANCE",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("save", pflag.ContinueOnError)
					a.schemaFlags(flagSet)
					dirFlag(flagSet)
					return flagSet
				},
				Run: func(args []string) error {
					return a.baselineSave(args, dir)
				},
			},
			{
				Name:    "delta",
				Summary: "Show which props of an instance differ from its baseline",
				Usage:   "dtinspect baseline delta --schema FILE [--table NAME] [--dir DIR] INSTANCE",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("delta", pflag.ContinueOnError)
					a.schemaFlags(flagSet)
					dirFlag(flagSet)
					return flagSet
				},
				Run: func(args []string) error {
					return a.baselineDelta(args, dir)
				},
			},
		},
	}
}

// baselineSession is the state both baseline commands start from.
type baselineSession struct {
	table   *datatable.Table
	encoder *sendeng.Encoder
	store   *baseline.Store
	dir     string
}

func (a *app) openBaselines(command, dir string) (*baselineSession, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := a.commandLogger(cfg, command)
	if err != nil {
		return nil, err
	}
	_, root, err := a.loadRoot()
	if err != nil {
		return nil, err
	}
	precalc, err := datatable.Precalculate(root)
	if err != nil {
		return nil, err
	}
	encoderConfig, err := cfg.EncoderConfig(logger)
	if err != nil {
		return nil, err
	}
	storeConfig, err := cfg.BaselineStoreConfig(logger)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = cfg.Paths.Baselines
		if err := ensureBaselineDir(cfg); err != nil {
			return nil, err
		}
	}
	return &baselineSession{
		table:   root,
		encoder: sendeng.New(precalc, encoderConfig),
		store:   baseline.NewStore(storeConfig),
		dir:     dir,
	}, nil
}

func ensureBaselineDir(cfg *config.Config) error {
	if err := cfg.EnsurePaths(); err != nil {
		return fmt.Errorf("creating baseline directory: %w", err)
	}
	return nil
}

func (a *app) baselineSave(args []string, dir string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dtinspect baseline save --schema FILE INSTANCE")
	}
	session, err := a.openBaselines("baseline/save", dir)
	if err != nil {
		return err
	}
	instance, err := readInstance(args[0])
	if err != nil {
		return err
	}
	entity, _, err := session.encoder.Encode(instance)
	if err != nil {
		return err
	}

	class := session.table.Name
	if _, _, err := session.store.Load(session.dir, class); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	_, changed, err := session.store.Put(class, entity)
	if err != nil {
		return err
	}
	path, err := session.store.Save(session.dir, class)
	if err != nil {
		return err
	}

	p := a.printer()
	state := "unchanged"
	if changed {
		state = "saved"
	}
	p.title("%s baseline %s", class, state)
	for _, info := range session.store.List() {
		if info.Class == class {
			p.line("hash %s, %d props, %d bytes encoded, %d stored (%s)",
				info.Hash.Short(), entity.Len(), info.Size, info.StoredSize, info.Compression)
		}
	}
	p.faint("%s", path)
	return nil
}

func (a *app) baselineDelta(args []string, dir string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dtinspect baseline delta --schema FILE INSTANCE")
	}
	session, err := a.openBaselines("baseline/delta", dir)
	if err != nil {
		return err
	}
	class := session.table.Name
	if _, _, err := session.store.Load(session.dir, class); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no baseline for %s in %s", class, session.dir)
		}
		return err
	}
	base, err := session.store.Get(class)
	if err != nil {
		return err
	}

	instance, err := readInstance(args[0])
	if err != nil {
		return err
	}
	current, _, err := session.encoder.Encode(instance)
	if err != nil {
		return err
	}
	full := bitbuf.NewWriter(0)
	if err := session.encoder.WriteFull(full, current); err != nil {
		return err
	}
	delta := bitbuf.NewWriter(0)
	changed, err := session.encoder.WriteDelta(delta, base, current)
	if err != nil {
		return err
	}

	p := a.printer()
	p.title("%s: %d props differ from the baseline; delta %d bits, full update %d bits",
		class, len(changed), delta.BitsWritten(), full.BitsWritten())
	precalc := session.encoder.Precalc()
	rows := make([][]string, len(changed))
	for i, index := range changed {
		leaf := precalc.Leaf(index)
		rows[i] = []string{strconv.Itoa(index), leaf.Path, leaf.Prop.Type.String()}
	}
	if len(rows) > 0 {
		p.table([]string{"#", "PATH", "TYPE"}, rows)
	}
	return nil
}
