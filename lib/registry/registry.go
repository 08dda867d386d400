// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry owns the tables of one endpoint and the encoders and
// decoders built from them.
//
// A registry has a two-phase lifecycle. During registration the caller
// adds every send and receive table. [Registry.CreateDecoders] then pairs
// the sender's manifest with the receive tables and closes registration:
// registering afterwards, or creating decoders twice, returns
// [ErrRegistryPhase]. [Registry.Term] releases everything and ends the
// registry's life.
//
// Lookups take a read lock and may run concurrently with each other.
// The encoders and decoders they return are immutable.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/datatable"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/manifest"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/recveng"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/sendeng"
)

// ErrRegistryPhase reports an operation made in the wrong lifecycle
// phase.
var ErrRegistryPhase = errors.New("registry: operation not allowed in this phase")

// Phase is a registry lifecycle stage.
type Phase uint8

const (
	// PhaseRegistering accepts table registrations.
	PhaseRegistering Phase = iota
	// PhaseReady has decoders built and accepts no more tables.
	PhaseReady
	// PhaseTerminated has released every table.
	PhaseTerminated
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseRegistering:
		return "registering"
	case PhaseReady:
		return "ready"
	case PhaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Config configures a [Registry].
type Config struct {
	// Logger receives registration events and is passed to every
	// encoder and decoder. Nil discards.
	Logger *slog.Logger

	// Encoder configures the encoders built for send tables. Its Logger
	// is replaced by the registry's.
	Encoder sendeng.Config
}

// Registry holds the send and receive tables of one endpoint.
type Registry struct {
	mu     sync.RWMutex
	phase  Phase
	logger *slog.Logger

	encoderConfig sendeng.Config

	sendTables map[string]*datatable.Table
	encoders   map[string]*sendeng.Encoder
	recvTables map[string]*datatable.Table
	decoders   map[string]*recveng.Decoder
}

// New returns an empty registry in [PhaseRegistering].
func New(config Config) *Registry {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	encoderConfig := config.Encoder
	encoderConfig.Logger = logger
	return &Registry{
		logger:        logger,
		encoderConfig: encoderConfig,
		sendTables:    make(map[string]*datatable.Table),
		encoders:      make(map[string]*sendeng.Encoder),
		recvTables:    make(map[string]*datatable.Table),
		decoders:      make(map[string]*recveng.Decoder),
	}
}

// Phase returns the current lifecycle phase.
func (r *Registry) Phase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

func (r *Registry) requirePhase(want Phase, operation string) error {
	if r.phase != want {
		return fmt.Errorf("%w: %s while %s", ErrRegistryPhase, operation, r.phase)
	}
	return nil
}

// RegisterSendTables flattens each root table and builds its encoder.
// Either every table registers or none does.
func (r *Registry) RegisterSendTables(tables ...*datatable.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requirePhase(PhaseRegistering, "registering send tables"); err != nil {
		return err
	}

	encoders := make(map[string]*sendeng.Encoder, len(tables))
	for _, table := range tables {
		if _, exists := r.sendTables[table.Name]; exists {
			return fmt.Errorf("registry: send table %s registered twice", table.Name)
		}
		if _, exists := encoders[table.Name]; exists {
			return fmt.Errorf("registry: send table %s registered twice", table.Name)
		}
		precalc, err := datatable.Precalculate(table)
		if err != nil {
			return fmt.Errorf("registry: flattening %s: %w", table.Name, err)
		}
		encoders[table.Name] = sendeng.New(precalc, r.encoderConfig)
	}
	for _, table := range tables {
		r.sendTables[table.Name] = table
		r.encoders[table.Name] = encoders[table.Name]
		r.logger.Debug("registered send table",
			"table", table.Name,
			"props", encoders[table.Name].Precalc().Len(),
		)
	}
	return nil
}

// RegisterRecvTables adds receive tables and every table nested beneath
// them. A name may be registered again only for the same table.
func (r *Registry) RegisterRecvTables(tables ...*datatable.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requirePhase(PhaseRegistering, "registering receive tables"); err != nil {
		return err
	}

	added := make(map[string]*datatable.Table)
	for _, root := range tables {
		err := root.Walk(func(table *datatable.Table) error {
			existing, ok := r.recvTables[table.Name]
			if !ok {
				existing, ok = added[table.Name]
			}
			if ok && existing != table {
				return fmt.Errorf("registry: two receive tables named %s", table.Name)
			}
			added[table.Name] = table
			return nil
		})
		if err != nil {
			return err
		}
	}
	for name, table := range added {
		r.recvTables[name] = table
	}
	return nil
}

// Manifest describes every registered send table.
func (r *Registry) Manifest() (*manifest.Manifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.phase == PhaseTerminated {
		return nil, fmt.Errorf("%w: building a manifest while %s", ErrRegistryPhase, r.phase)
	}
	names := make([]string, 0, len(r.sendTables))
	for name := range r.sendTables {
		names = append(names, name)
	}
	slices.Sort(names)
	roots := make([]*datatable.Table, len(names))
	for i, name := range names {
		roots[i] = r.sendTables[name]
	}
	return manifest.Build(roots...)
}

// CreateDecoders builds a decoder for every root the remote sender's
// manifest describes and closes registration. On error the registry
// stays in [PhaseRegistering] with no decoders.
func (r *Registry) CreateDecoders(remote *manifest.Manifest, policy recveng.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requirePhase(PhaseRegistering, "creating decoders"); err != nil {
		return err
	}

	sent, err := remote.Schema()
	if err != nil {
		return err
	}
	decoders := make(map[string]*recveng.Decoder, len(remote.Roots))
	for _, name := range remote.Roots {
		table, ok := sent[name]
		if !ok {
			return fmt.Errorf("registry: manifest root %s is not described", name)
		}
		decoder, err := recveng.New(table, r.recvTables, policy, r.logger)
		if err != nil {
			return fmt.Errorf("registry: decoder for %s: %w", name, err)
		}
		decoders[name] = decoder
	}

	r.decoders = decoders
	r.phase = PhaseReady
	r.logger.Info("created decoders",
		"tables", len(decoders),
		"policy", policy.String(),
	)
	return nil
}

// Encoder returns the encoder of the send table named name.
func (r *Registry) Encoder(name string) (*sendeng.Encoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	encoder, ok := r.encoders[name]
	return encoder, ok
}

// Decoder returns the decoder for the remote table named name. Decoders
// exist once [Registry.CreateDecoders] has succeeded.
func (r *Registry) Decoder(name string) (*recveng.Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decoder, ok := r.decoders[name]
	return decoder, ok
}

// SendTables returns the names of the registered send tables, sorted.
func (r *Registry) SendTables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sendTables))
	for name := range r.sendTables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Term releases every table, encoder and decoder. Calling it twice
// returns [ErrRegistryPhase].
func (r *Registry) Term() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseTerminated {
		return fmt.Errorf("%w: terminating while %s", ErrRegistryPhase, r.phase)
	}
	clear(r.sendTables)
	clear(r.encoders)
	clear(r.recvTables)
	clear(r.decoders)
	r.phase = PhaseTerminated
	return nil
}
