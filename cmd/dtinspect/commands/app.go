// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/cmd/dtinspect/cli"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/config"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/schemafile"
)

// app carries the state shared by every command: where results go and
// the flags common to schema-driven commands.
type app struct {
	stdin  io.Reader
	out    io.Writer
	styled bool

	configPath string
	schemaPath string
	tableName  string

	// logger overrides the configured command logger in tests.
	logger *slog.Logger
}

func (a *app) configFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&a.configPath, "config", "", "config file (default $DT_CONFIG, else built-in defaults)")
}

func (a *app) schemaFlags(flagSet *pflag.FlagSet) {
	a.configFlags(flagSet)
	flagSet.StringVar(&a.schemaPath, "schema", "", "schema file (.yaml, .yml, .json or .jsonc)")
	flagSet.StringVar(&a.tableName, "table", "", "root table (default: the schema's only root)")
}

// loadConfig resolves --config, then $DT_CONFIG, then the defaults.
func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = os.Getenv("DT_CONFIG")
	}
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (a *app) commandLogger(cfg *config.Config, command string) (*slog.Logger, error) {
	if a.logger != nil {
		return a.logger.With("command", command), nil
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	return cli.NewCommandLogger(level).With("command", command), nil
}

// schema is a parsed schema file with its tables built.
type schema struct {
	path   string
	file   *schemafile.File
	tables map[string]*datatable.Table
}

func loadSchema(path string) (*schema, error) {
	if path == "" {
		return nil, fmt.Errorf("--schema is required")
	}
	file, err := schemafile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tables, err := file.Build(nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &schema{path: path, file: file, tables: tables}, nil
}

// roots returns the schema's root tables in name order.
func (s *schema) roots() []*datatable.Table {
	names := s.file.RootNames()
	roots := make([]*datatable.Table, len(names))
	for i, name := range names {
		roots[i] = s.tables[name]
	}
	return roots
}

// root picks the table named by --table, or the only root.
func (s *schema) root(name string) (*datatable.Table, error) {
	if name != "" {
		table, ok := s.tables[name]
		if !ok {
			return nil, fmt.Errorf("%s defines no table %s", s.path, name)
		}
		return table, nil
	}
	names := s.file.RootNames()
	switch len(names) {
	case 0:
		return nil, fmt.Errorf("%s defines no tables", s.path)
	case 1:
		return s.tables[names[0]], nil
	default:
		return nil, fmt.Errorf("%s has roots %s; choose one with --table", s.path, strings.Join(names, ", "))
	}
}

func (a *app) loadRoot() (*schema, *datatable.Table, error) {
	loaded, err := loadSchema(a.schemaPath)
	if err != nil {
		return nil, nil, err
	}
	root, err := loaded.root(a.tableName)
	if err != nil {
		return nil, nil, err
	}
	return loaded, root, nil
}
