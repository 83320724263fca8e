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

// Package orchestrator keeps the set of known remote agents and routes requests to them,
// tracking per session which agent is active and which task is in progress.
package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/mod/semver"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2aclient"
	"github.com/a2aproject/a2a-delegate/log"
)

// DefaultAcceptedOutputModes are the output modes requested from remote agents unless
// [WithAcceptedOutputModes] is used.
var DefaultAcceptedOutputModes = []string{"text", "text/plain", "image/png"}

// NoActiveAgent is reported by [Registry.ActiveAgent] when the session is not in progress.
const NoActiveAgent = "None"

// AgentInfo is the name and description of a registered agent.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// remoteAgent counts the dispatches using its connection so that a replaced or
// unregistered agent is closed only once the last of them returns.
type remoteAgent struct {
	card     *a2a.AgentCard
	conn     *a2aclient.Connection
	protocol a2aclient.TransportProtocol

	mu      sync.Mutex
	active  int
	retired bool
}

func (a *remoteAgent) acquire() {
	a.mu.Lock()
	a.active++
	a.mu.Unlock()
}

func (a *remoteAgent) release(ctx context.Context) {
	a.mu.Lock()
	a.active--
	idle := a.retired && a.active == 0
	a.mu.Unlock()
	if idle {
		closeConnection(ctx, a)
	}
}

func (a *remoteAgent) retire(ctx context.Context) {
	a.mu.Lock()
	a.retired = true
	idle := a.active == 0
	a.mu.Unlock()
	if idle {
		closeConnection(ctx, a)
	}
}

// serves reports whether the connection of a can be kept for card over protocol.
func (a *remoteAgent) serves(card *a2a.AgentCard, protocol a2aclient.TransportProtocol) bool {
	return a.protocol == protocol &&
		a.card.URL == card.URL &&
		a.card.Version == card.Version &&
		a.card.Capabilities.Streaming == card.Capabilities.Streaming
}

// Registry maps agent names to connections and capability cards.
type Registry struct {
	factory       *a2aclient.Factory
	observer      a2aclient.Observer
	artifacts     ArtifactStore
	acceptedModes []string

	mu      sync.RWMutex
	order   []string
	agents  map[string]*remoteAgent
	summary string
}

// Option configures a [Registry].
type Option func(*Registry)

// WithTransportFactory sets the factory used to open connections to registered agents.
func WithTransportFactory(factory *a2aclient.Factory) Option {
	return func(r *Registry) {
		r.factory = factory
	}
}

// WithObserver sets the observer notified about tasks and events of every connection.
func WithObserver(observer a2aclient.Observer) Option {
	return func(r *Registry) {
		r.observer = observer
	}
}

// WithArtifactStore sets where files returned by remote agents are saved.
func WithArtifactStore(store ArtifactStore) Option {
	return func(r *Registry) {
		r.artifacts = store
	}
}

// WithAcceptedOutputModes sets the output modes requested from remote agents.
func WithAcceptedOutputModes(modes ...string) Option {
	return func(r *Registry) {
		r.acceptedModes = slices.Clone(modes)
	}
}

// NewRegistry creates an empty [Registry].
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		acceptedModes: slices.Clone(DefaultAcceptedOutputModes),
		agents:        make(map[string]*remoteAgent),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.factory == nil {
		r.factory = a2aclient.NewFactory()
	}
	if r.observer != nil {
		r.factory = a2aclient.WithAdditionalOptions(r.factory, a2aclient.WithConnectionOptions(a2aclient.WithObserver(r.observer)))
	}
	if r.artifacts == nil {
		r.artifacts = NewMemoryArtifactStore()
	}
	r.summary = buildSummary(nil)
	return r
}

// Register opens a connection to the agent and adds it under the card name. A card
// registered again under the same name replaces the previous one unless its version is
// older, in which case [ErrStaleCard] is returned. A card with the same URL and version
// keeps the open connection. A replaced connection is closed once the dispatches using it return.
func (r *Registry) Register(ctx context.Context, card *a2a.AgentCard) error {
	return r.RegisterVia(ctx, card, "")
}

// RegisterVia is like [Registry.Register] but connects over the given transport protocol.
func (r *Registry) RegisterVia(ctx context.Context, card *a2a.AgentCard, protocol a2aclient.TransportProtocol) error {
	if card == nil || card.Name == "" {
		return fmt.Errorf("%w: agent card must have a name", ErrMalformedRequest)
	}

	r.mu.Lock()
	existing, ok := r.agents[card.Name]
	if ok && olderVersion(card.Version, existing.card.Version) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s %s < %s", ErrStaleCard, card.Name, card.Version, existing.card.Version)
	}
	if ok && existing.serves(card, protocol) {
		existing.card = card
		r.summary = r.buildSummaryLocked()
		r.mu.Unlock()
		log.Debug(ctx, "agent card refreshed", "agent", card.Name, "version", card.Version)
		return nil
	}
	r.mu.Unlock()

	conn, err := r.factory.Connect(ctx, card, protocol)
	if err != nil {
		return fmt.Errorf("failed to connect to agent %s: %w", card.Name, err)
	}

	r.mu.Lock()
	previous, replaced := r.agents[card.Name]
	r.agents[card.Name] = &remoteAgent{card: card, conn: conn, protocol: protocol}
	if !replaced {
		r.order = append(r.order, card.Name)
	}
	r.summary = r.buildSummaryLocked()
	r.mu.Unlock()

	if replaced {
		previous.retire(ctx)
	}
	log.Info(ctx, "agent registered", "agent", card.Name, "url", card.URL, "version", card.Version)
	return nil
}

// Unregister removes the agent and closes its connection. It reports whether the agent was registered.
func (r *Registry) Unregister(ctx context.Context, name string) bool {
	r.mu.Lock()
	agent, ok := r.agents[name]
	if ok {
		delete(r.agents, name)
		r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
		r.summary = r.buildSummaryLocked()
	}
	r.mu.Unlock()

	if ok {
		agent.retire(ctx)
		log.Info(ctx, "agent unregistered", "agent", name)
	}
	return ok
}

// ListAgents returns the registered agents in registration order.
func (r *Registry) ListAgents() []AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]AgentInfo, 0, len(r.order))
	for _, name := range r.order {
		card := r.agents[name].card
		result = append(result, AgentInfo{Name: card.Name, Description: card.Description})
	}
	return result
}

// Card returns the card of a registered agent.
func (r *Registry) Card(name string) (*a2a.AgentCard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[name]
	if !ok {
		return nil, false
	}
	return agent.card, true
}

// Summary returns the human-readable description of the registered agents and their skills.
func (r *Registry) Summary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summary
}

// ActiveAgent returns the agent the session is in progress with or [NoActiveAgent].
func (r *Registry) ActiveAgent(session *Session) string {
	if session == nil || session.ID == "" || !session.Active || session.Agent == "" {
		return NoActiveAgent
	}
	return session.Agent
}

// Close unregisters every agent. Connections are closed as soon as no dispatch uses them.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	agents := r.agents
	r.agents = make(map[string]*remoteAgent)
	r.order = nil
	r.summary = buildSummary(nil)
	r.mu.Unlock()

	for _, agent := range agents {
		agent.retire(ctx)
	}
}

// acquire returns the named agent with its connection held until release is called.
func (r *Registry) acquire(name string) (*remoteAgent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[name]
	if ok {
		agent.acquire()
	}
	return agent, ok
}

func (r *Registry) buildSummaryLocked() string {
	cards := make([]*a2a.AgentCard, 0, len(r.order))
	for _, name := range r.order {
		cards = append(cards, r.agents[name].card)
	}
	return buildSummary(cards)
}

func closeConnection(ctx context.Context, agent *remoteAgent) {
	if err := agent.conn.Close(); err != nil {
		log.Warn(ctx, "failed to close agent connection", "agent", agent.card.Name, "error", err)
	}
}

// olderVersion reports whether version is a lower semver than registered.
// Versions which are not semver are never considered older.
func olderVersion(version, registered string) bool {
	v, reg := canonicalVersion(version), canonicalVersion(registered)
	if !semver.IsValid(v) || !semver.IsValid(reg) {
		return false
	}
	return semver.Compare(v, reg) < 0
}

func canonicalVersion(v string) string {
	if v == "" {
		return ""
	}
	return "v" + strings.TrimPrefix(v, "v")
}
