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

package a2asrv

import (
	"context"
	"iter"
	"log/slog"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2asrv/taskstore"
)

// RequestHandler defines a transport-agnostic interface for handling incoming task requests.
type RequestHandler interface {
	// OnSendTask handles the 'tasks/send' protocol method.
	OnSendTask(context.Context, *a2a.TaskSendParams) (*a2a.Task, error)

	// OnSendTaskStream handles the 'tasks/sendSubscribe' protocol method.
	OnSendTaskStream(context.Context, *a2a.TaskSendParams) iter.Seq2[a2a.Event, error]

	// OnGetTask handles the 'tasks/get' protocol method.
	OnGetTask(context.Context, *a2a.TaskQueryParams) (*a2a.Task, error)

	// OnCancelTask handles the 'tasks/cancel' protocol method.
	OnCancelTask(context.Context, *a2a.TaskIDParams) (*a2a.Task, error)
}

// DefaultProcessingMessage is the status text used for progress updates which carry no text.
const DefaultProcessingMessage = "The agent is thinking..."

// DispatcherOption can be used to customize the [Dispatcher] behavior.
type DispatcherOption func(*Dispatcher)

// WithTaskStore overrides the task store. If not provided, defaults to an in-memory implementation.
func WithTaskStore(store taskstore.Store) DispatcherOption {
	return func(d *Dispatcher) {
		d.store = store
	}
}

// WithMetrics enables prometheus metrics collection.
func WithMetrics(metrics *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// WithProcessingMessage sets the status text used for progress updates which carry no text.
func WithProcessingMessage(msg string) DispatcherOption {
	return func(d *Dispatcher) {
		d.processingMessage = msg
	}
}

// WithLogger sets a custom logger. Request scoped attributes are attached to this logger
// on method invocations and the task store and agent can access it using
// [github.com/a2aproject/a2a-delegate/log] package-level functions.
// If not provided, defaults to slog.Default().
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}
