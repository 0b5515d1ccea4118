// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/bureau-foundation/extrouter/lib/dtn"
)

// Convergence layers the registry knows how to describe.
const (
	LayerTCP    = "tcp"
	LayerUDP    = "udp"
	LayerLTPUDP = "ltpudp"
)

// Reconfigurable link parameter keys. Other keys are kept as opaque
// convergence-layer options.
const (
	ParamRemoteAddress = "remote_addr"
	ParamRemotePort    = "remote_port"
	ParamRate          = "rate"
	ParamNextHop       = "next_hop"
)

// LinkConfig describes one static link.
type LinkConfig struct {
	Name             string
	ConvergenceLayer string
	RemoteEID        string
	NextHop          string
	RemoteAddress    string
	RemotePort       uint16
	Rate             uint64

	// Open links start in the open state instead of available.
	Open bool
}

// Registry is a fixed set of links. Link state and parameters change;
// membership does not.
type Registry struct {
	mu     sync.Mutex
	order  []*link
	byName map[string]*link
}

// link is a registered link. Fields are guarded by the registry mutex.
type link struct {
	registry *Registry

	name      string
	layer     string
	remoteEID string
	nextHop   string
	address   string
	port      uint16
	rate      uint64
	state     dtn.LinkState
	options   map[string]any
}

func newRegistry(configs []LinkConfig) (*Registry, error) {
	registry := &Registry{byName: make(map[string]*link)}
	var errs []error
	for _, config := range configs {
		if config.Name == "" {
			errs = append(errs, errors.New("link name is required"))
			continue
		}
		if _, exists := registry.byName[config.Name]; exists {
			errs = append(errs, fmt.Errorf("link %q defined twice", config.Name))
			continue
		}
		switch config.ConvergenceLayer {
		case LayerTCP, LayerUDP, LayerLTPUDP:
		default:
			errs = append(errs, fmt.Errorf("link %q: unknown convergence layer %q", config.Name, config.ConvergenceLayer))
			continue
		}
		state := dtn.LinkStateAvailable
		if config.Open {
			state = dtn.LinkStateOpen
		}
		l := &link{
			registry:  registry,
			name:      config.Name,
			layer:     config.ConvergenceLayer,
			remoteEID: config.RemoteEID,
			nextHop:   config.NextHop,
			address:   config.RemoteAddress,
			port:      config.RemotePort,
			rate:      config.Rate,
			state:     state,
			options:   make(map[string]any),
		}
		registry.order = append(registry.order, l)
		registry.byName[l.name] = l
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return registry, nil
}

func (l *link) Name() string { return l.name }

func (l *link) ConvergenceLayer() string { return l.layer }

func (l *link) RemoteEID() string {
	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()
	return l.remoteEID
}

func (l *link) State() dtn.LinkState {
	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()
	return l.state
}

func (l *link) NextHop() string {
	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()
	return l.nextHop
}

// RemoteAddress is known for every IP convergence layer once an
// address is configured.
func (l *link) RemoteAddress() (string, uint16, bool) {
	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()
	return l.address, l.port, l.address != ""
}

// RateLimit applies to the datagram layers only.
func (l *link) RateLimit() (uint64, bool) {
	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()
	if l.layer == LayerTCP {
		return 0, false
	}
	return l.rate, true
}

// FindLink looks a link up by name.
func (r *Registry) FindLink(name string) (dtn.Link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return l, true
}

// Links returns every link in configuration order.
func (r *Registry) Links() []dtn.Link {
	r.mu.Lock()
	defer r.mu.Unlock()
	links := make([]dtn.Link, len(r.order))
	for i, l := range r.order {
		links[i] = l
	}
	return links
}

// setState changes a link's state and returns the previous one.
func (r *Registry) setState(name string, state dtn.LinkState) (dtn.LinkState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("memory: link %q not found", name)
	}
	previous := l.state
	l.state = state
	return previous, nil
}

// Options returns a copy of the opaque parameters set on a link.
func (r *Registry) Options(name string) (map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	options := make(map[string]any, len(l.options))
	for key, value := range l.options {
		options[key] = value
	}
	return options, true
}

// reconfigure applies parameters in order. Known keys with a value of
// the wrong type are reported and skipped; the rest still apply.
func (r *Registry) reconfigure(name string, parameters []dtn.Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("memory: link %q not found", name)
	}

	var errs []error
	for _, parameter := range parameters {
		switch parameter.Key {
		case ParamRemoteAddress:
			value, ok := parameter.Value.(string)
			if !ok {
				errs = append(errs, badParameter(parameter))
				continue
			}
			l.address = value
		case ParamRemotePort:
			value, ok := parameter.Value.(uint64)
			if !ok || value > math.MaxUint16 {
				errs = append(errs, badParameter(parameter))
				continue
			}
			l.port = uint16(value)
		case ParamRate:
			value, ok := parameter.Value.(uint64)
			if !ok {
				errs = append(errs, badParameter(parameter))
				continue
			}
			l.rate = value
		case ParamNextHop:
			value, ok := parameter.Value.(string)
			if !ok {
				errs = append(errs, badParameter(parameter))
				continue
			}
			l.nextHop = value
		default:
			l.options[parameter.Key] = parameter.Value
		}
	}
	return errors.Join(errs...)
}

func badParameter(parameter dtn.Parameter) error {
	return fmt.Errorf("memory: parameter %q: unusable value %v (%T)", parameter.Key, parameter.Value, parameter.Value)
}
