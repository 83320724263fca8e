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
	"iter"

	"github.com/a2aproject/a2a-delegate/a2a"
)

// Transport defines a transport-agnostic interface for making task protocol requests.
// Transport implementations are a translation layer between a2a core types and wire formats.
type Transport interface {
	// SendTask calls the 'tasks/send' protocol method.
	SendTask(context.Context, *a2a.TaskSendParams) (*a2a.Task, error)

	// SendTaskStreaming calls the 'tasks/sendSubscribe' protocol method.
	SendTaskStreaming(context.Context, *a2a.TaskSendParams) iter.Seq2[a2a.Event, error]

	// GetTask calls the 'tasks/get' protocol method.
	GetTask(context.Context, *a2a.TaskQueryParams) (*a2a.Task, error)

	// CancelTask calls the 'tasks/cancel' protocol method.
	CancelTask(context.Context, *a2a.TaskIDParams) (*a2a.Task, error)

	// Clean up resources associated with the transport (eg. close a gRPC channel).
	Destroy() error
}

// TransportFactory creates a connection to the agent described by the card.
type TransportFactory interface {
	Create(ctx context.Context, card *a2a.AgentCard) (Transport, error)
}

// TransportFactoryFn implements TransportFactory.
type TransportFactoryFn func(ctx context.Context, card *a2a.AgentCard) (Transport, error)

func (fn TransportFactoryFn) Create(ctx context.Context, card *a2a.AgentCard) (Transport, error) {
	return fn(ctx, card)
}
