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

package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2aclient/agentcard"
	"github.com/a2aproject/a2a-delegate/log"
)

// CardResolver fetches the agent card published at a base URL.
type CardResolver interface {
	Resolve(ctx context.Context, baseURL string, opts ...agentcard.ResolveOption) (*a2a.AgentCard, error)
}

// Bootstrap resolves the cards of every configured agent concurrently and registers them
// in config order. Nothing is registered when any card fails to resolve.
func Bootstrap(ctx context.Context, registry *Registry, cfg *Config, resolver CardResolver) error {
	cards, err := resolveCards(ctx, cfg, resolver)
	if err != nil {
		return err
	}
	if err := registerCards(ctx, registry, cfg, cards); err != nil {
		return err
	}
	log.Info(ctx, "agents bootstrapped", "count", len(cards))
	return nil
}

// Reload applies a changed config to a running registry. Agents are registered as by
// [Bootstrap], so unchanged agents keep their connections, and registered agents which
// the config no longer lists are unregistered. Nothing changes when any card fails to resolve.
func Reload(ctx context.Context, registry *Registry, cfg *Config, resolver CardResolver) error {
	cards, err := resolveCards(ctx, cfg, resolver)
	if err != nil {
		return err
	}
	if err := registerCards(ctx, registry, cfg, cards); err != nil {
		return err
	}

	configured := make(map[string]bool, len(cards))
	for _, card := range cards {
		configured[card.Name] = true
	}
	var removed int
	for _, agent := range registry.ListAgents() {
		if !configured[agent.Name] && registry.Unregister(ctx, agent.Name) {
			removed++
		}
	}
	log.Info(ctx, "agents reloaded", "count", len(cards), "removed", removed)
	return nil
}

func resolveCards(ctx context.Context, cfg *Config, resolver CardResolver) ([]*a2a.AgentCard, error) {
	if resolver == nil {
		resolver = agentcard.DefaultResolver
	}

	cards := make([]*a2a.AgentCard, len(cfg.Agents))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, agent := range cfg.Agents {
		group.Go(func() error {
			var opts []agentcard.ResolveOption
			if agent.CardPath != "" {
				opts = append(opts, agentcard.WithPath(agent.CardPath))
			}
			card, err := resolver.Resolve(groupCtx, agent.URL, opts...)
			if err != nil {
				return fmt.Errorf("failed to resolve agent card at %s: %w", agent.URL, err)
			}
			cards[i] = card
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return cards, nil
}

func registerCards(ctx context.Context, registry *Registry, cfg *Config, cards []*a2a.AgentCard) error {
	for i, card := range cards {
		if err := registry.RegisterVia(ctx, card, cfg.Agents[i].Transport); err != nil {
			return err
		}
	}
	return nil
}
