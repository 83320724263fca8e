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

// Package testagent provides a mock implementation of the local agent for testing.
package testagent

import (
	"context"
	"iter"
	"sync"

	"github.com/a2aproject/a2a-delegate/a2asrv"
)

// TestAgent is a mock of [a2asrv.Agent].
type TestAgent struct {
	InvokeFn     func(context.Context, a2asrv.AgentRequest) (*a2asrv.AgentResult, error)
	StreamFn     func(context.Context, a2asrv.AgentRequest) iter.Seq2[a2asrv.AgentUpdate, error]
	ContentTypes []string

	mu       sync.Mutex
	requests []a2asrv.AgentRequest
}

var _ a2asrv.Agent = (*TestAgent)(nil)

// FromResult creates a [TestAgent] answering every invocation with result.
func FromResult(result *a2asrv.AgentResult) *TestAgent {
	return &TestAgent{
		InvokeFn: func(context.Context, a2asrv.AgentRequest) (*a2asrv.AgentResult, error) {
			return result, nil
		},
	}
}

// FromUpdates creates a [TestAgent] streaming the provided updates.
func FromUpdates(updates ...a2asrv.AgentUpdate) *TestAgent {
	return &TestAgent{
		StreamFn: func(ctx context.Context, req a2asrv.AgentRequest) iter.Seq2[a2asrv.AgentUpdate, error] {
			return func(yield func(a2asrv.AgentUpdate, error) bool) {
				for _, u := range updates {
					if !yield(u, nil) {
						return
					}
				}
			}
		},
	}
}

// Invoke implements [a2asrv.Agent] interface.
func (a *TestAgent) Invoke(ctx context.Context, req a2asrv.AgentRequest) (*a2asrv.AgentResult, error) {
	a.record(req)
	if a.InvokeFn != nil {
		return a.InvokeFn(ctx, req)
	}
	return &a2asrv.AgentResult{Text: req.Query}, nil
}

// Stream implements [a2asrv.Agent] interface.
func (a *TestAgent) Stream(ctx context.Context, req a2asrv.AgentRequest) iter.Seq2[a2asrv.AgentUpdate, error] {
	a.record(req)
	if a.StreamFn != nil {
		return a.StreamFn(ctx, req)
	}
	return func(yield func(a2asrv.AgentUpdate, error) bool) {
		yield(a2asrv.AgentUpdate{Done: true, Text: req.Query}, nil)
	}
}

// SupportedContentTypes implements [a2asrv.Agent] interface.
func (a *TestAgent) SupportedContentTypes() []string {
	return a.ContentTypes
}

// Requests returns the requests the agent received so far.
func (a *TestAgent) Requests() []a2asrv.AgentRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]a2asrv.AgentRequest(nil), a.requests...)
}

func (a *TestAgent) record(req a2asrv.AgentRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
}
