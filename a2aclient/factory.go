// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package a2aclient

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/log"
)

// TransportProtocol names a wire binding of the task protocol.
type TransportProtocol string

const (
	// TransportProtocolJSONRPC is JSON-RPC 2.0 over HTTP with SSE streaming.
	TransportProtocolJSONRPC TransportProtocol = "jsonrpc"
	// TransportProtocolGRPC is the gRPC binding.
	TransportProtocolGRPC TransportProtocol = "grpc"
)

// Factory provides an API for creating a [Connection] over one of the registered transports.
// Factory is immutable, but the configuration can be extended using [WithAdditionalOptions] call.
type Factory struct {
	transports  map[TransportProtocol]TransportFactory
	preferred   []TransportProtocol
	connOptions []ConnectionOption
}

// defaultOptions is a set of default configurations applied to every Factory unless WithDefaultsDisabled was used.
var defaultOptions = []FactoryOption{WithJSONRPCTransport()}

// NewConnectionFromCard is a [Connection] constructor which picks a transport for the card.
// It is equivalent to [Factory].Connect with an empty protocol.
func NewConnectionFromCard(ctx context.Context, card *a2a.AgentCard, opts ...FactoryOption) (*Connection, error) {
	return NewFactory(opts...).Connect(ctx, card, "")
}

// Connect returns a [Connection] to the agent described by the card. If protocol is empty,
// registered transports are attempted in the preferred order and the first one which
// can be created is used.
func (f *Factory) Connect(ctx context.Context, card *a2a.AgentCard, protocol TransportProtocol) (*Connection, error) {
	if card == nil {
		return nil, fmt.Errorf("agent card is required")
	}

	candidates := f.candidates(protocol)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no transport registered for protocol %q", protocol)
	}

	var failures []error
	for _, p := range candidates {
		transport, err := f.transports[p].Create(ctx, card)
		if err != nil {
			failures = append(failures, fmt.Errorf("failed to connect to %s over %s: %w", card.URL, p, err))
			continue
		}
		if len(failures) > 0 {
			log.Info(ctx, "some transports failed to connect", "failures", failures)
		}
		return NewConnection(card, transport, f.connOptions...), nil
	}
	return nil, fmt.Errorf("failed to open a connection: %w", errors.Join(failures...))
}

func (f *Factory) candidates(protocol TransportProtocol) []TransportProtocol {
	if protocol != "" {
		if _, ok := f.transports[protocol]; ok {
			return []TransportProtocol{protocol}
		}
		return nil
	}

	result := make([]TransportProtocol, 0, len(f.transports))
	for _, p := range f.preferred {
		if _, ok := f.transports[p]; ok && !slices.Contains(result, p) {
			result = append(result, p)
		}
	}
	rest := make([]TransportProtocol, 0, len(f.transports))
	for p := range f.transports {
		if !slices.Contains(result, p) {
			rest = append(rest, p)
		}
	}
	slices.Sort(rest)
	return append(result, rest...)
}

// FactoryOption represents a configuration for creating a [Connection].
type FactoryOption interface {
	apply(f *Factory)
}

type factoryOptionFn func(f *Factory)

func (f factoryOptionFn) apply(factory *Factory) {
	f(factory)
}

// WithTransport uses the provided factory during connection establishment for the specified transport binding.
func WithTransport(protocol TransportProtocol, factory TransportFactory) FactoryOption {
	return factoryOptionFn(func(f *Factory) {
		f.transports[protocol] = factory
	})
}

// WithPreferredTransports sets the order in which transports are attempted when no protocol is requested.
func WithPreferredTransports(protocols ...TransportProtocol) FactoryOption {
	return factoryOptionFn(func(f *Factory) {
		f.preferred = slices.Clone(protocols)
	})
}

// WithConnectionOptions applies the options to every created [Connection].
func WithConnectionOptions(opts ...ConnectionOption) FactoryOption {
	return factoryOptionFn(func(f *Factory) {
		f.connOptions = append(f.connOptions, opts...)
	})
}

// defaultsDisabledOpt is a marker for creating a Factory without any defaults set.
type defaultsDisabledOpt struct{}

func (defaultsDisabledOpt) apply(f *Factory) {}

// WithDefaultsDisabled creates a Factory without the default JSON-RPC transport.
func WithDefaultsDisabled() FactoryOption {
	return defaultsDisabledOpt{}
}

// NewFactory creates a new Factory applying the provided configurations.
func NewFactory(options ...FactoryOption) *Factory {
	f := &Factory{
		transports: make(map[TransportProtocol]TransportFactory),
		preferred:  []TransportProtocol{TransportProtocolJSONRPC, TransportProtocolGRPC},
	}

	applyDefaults := true
	for _, o := range options {
		if _, ok := o.(defaultsDisabledOpt); ok {
			applyDefaults = false
			break
		}
	}

	if applyDefaults {
		for _, o := range defaultOptions {
			o.apply(f)
		}
	}

	for _, o := range options {
		o.apply(f)
	}

	return f
}

// WithAdditionalOptions creates a new Factory with the additionally provided options.
func WithAdditionalOptions(f *Factory, opts ...FactoryOption) *Factory {
	options := []FactoryOption{
		WithDefaultsDisabled(),
		WithPreferredTransports(f.preferred...),
		WithConnectionOptions(f.connOptions...),
	}
	for k, v := range f.transports {
		options = append(options, WithTransport(k, v))
	}
	return NewFactory(append(options, opts...)...)
}
