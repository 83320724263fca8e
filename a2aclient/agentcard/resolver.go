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

// Package agentcard provides utilities for fetching the discovery document of an agent.
package agentcard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/log"
)

const defaultAgentCardPath = "/.well-known/agent.json"

var defaultClient = &http.Client{Timeout: 30 * time.Second}

// ErrStatusNotOK is returned when the card endpoint responds with a non-2xx status.
type ErrStatusNotOK struct {
	StatusCode int
	Status     string
}

func (e *ErrStatusNotOK) Error() string {
	return fmt.Sprintf("agent card request failed: %s", e.Status)
}

// Resolver fetches agent cards over HTTP. The zero value uses a client with a 30 second timeout.
type Resolver struct {
	// Client is used for card requests. If nil, a default client is used.
	Client *http.Client
}

// DefaultResolver is a [Resolver] using the default HTTP client.
var DefaultResolver = &Resolver{}

// NewResolver creates a [Resolver] using the provided client.
func NewResolver(client *http.Client) *Resolver {
	return &Resolver{Client: client}
}

type resolveRequest struct {
	path    string
	headers http.Header
}

// ResolveOption customizes a single [Resolver].Resolve call.
type ResolveOption func(*resolveRequest)

// WithPath overrides the well-known card path.
func WithPath(path string) ResolveOption {
	return func(r *resolveRequest) {
		r.path = path
	}
}

// WithRequestHeader adds a header to the card request.
func WithRequestHeader(key, value string) ResolveOption {
	return func(r *resolveRequest) {
		r.headers.Add(key, value)
	}
}

// Resolve fetches the card published by the agent hosted at baseURL.
func (r *Resolver) Resolve(ctx context.Context, baseURL string, opts ...ResolveOption) (*a2a.AgentCard, error) {
	req := &resolveRequest{path: defaultAgentCardPath, headers: make(http.Header)}
	for _, opt := range opts {
		opt(req)
	}

	reqURL, err := url.JoinPath(strings.TrimSuffix(baseURL, "/"), req.path)
	if err != nil {
		return nil, fmt.Errorf("invalid agent card url: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header = req.headers
	httpReq.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = defaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agent card request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error(ctx, "failed to close http response body", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ErrStatusNotOK{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode agent card: %w", err)
	}
	return &card, nil
}
