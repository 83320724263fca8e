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
	"maps"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/log"
)

var (
	// ErrEmptyResult is returned when the transport reported neither a task nor an error.
	ErrEmptyResult = errors.New("agent returned no result")

	// ErrStreamIncomplete is returned together with the partial task when a stream ended
	// without a final event.
	ErrStreamIncomplete = errors.New("stream ended without a final event")
)

// ConnectionOption can be used to customize the [Connection] behavior.
type ConnectionOption func(*Connection)

// WithObserver sets the observer notified about task progress.
func WithObserver(observer Observer) ConnectionOption {
	return func(c *Connection) {
		c.observer = observer
	}
}

// WithAppendOnlyArtifacts makes streamed artifacts always append to the task artifact list
// instead of being merged by index.
func WithAppendOnlyArtifacts() ConnectionOption {
	return func(c *Connection) {
		c.accumulate = func(artifacts []*a2a.Artifact, a *a2a.Artifact) []*a2a.Artifact {
			return append(artifacts, a)
		}
	}
}

// Connection is a client of one remote agent. It reconstructs a single final task
// whether the agent answers in one shot or streams its progress.
// Connection is safe for concurrent use if the transport is.
type Connection struct {
	card       *a2a.AgentCard
	transport  Transport
	observer   Observer
	accumulate func([]*a2a.Artifact, *a2a.Artifact) []*a2a.Artifact
}

// NewConnection creates a [Connection] to the agent described by card using the provided transport.
// Streaming is used when the card declares the capability.
func NewConnection(card *a2a.AgentCard, transport Transport, opts ...ConnectionOption) *Connection {
	c := &Connection{
		card:       card,
		transport:  transport,
		observer:   noopObserver{},
		accumulate: a2a.AccumulateArtifact,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Card returns the card the connection was created with.
func (c *Connection) Card() *a2a.AgentCard {
	return c.card
}

// SendTask submits the task and returns its state after the agent finished or paused.
// Cancelling ctx aborts the underlying call. Nothing is retried.
func (c *Connection) SendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	if params == nil {
		return nil, a2a.NewError(a2a.ErrInvalidParams, "Task params are missing.")
	}
	ctx = log.With(ctx, "agent", c.card.Name, "task_id", string(params.ID))

	if c.card.Capabilities.Streaming {
		return c.sendStreaming(ctx, params)
	}

	task, err := c.transport.SendTask(ctx, params)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrEmptyResult
	}

	a2a.MergeMetadata(task, params)
	a2a.MergeStatusMessage(task.Status.Message, params.Message)
	c.observer.OnTask(ctx, c.card, task)
	return task, nil
}

func (c *Connection) sendStreaming(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	task := &a2a.Task{
		ID:        params.ID,
		SessionID: params.SessionID,
		Status:    a2a.NewTaskStatus(a2a.TaskStateSubmitted, params.Message),
		Metadata:  maps.Clone(params.Metadata),
	}
	if params.Message != nil {
		task.History = []*a2a.Message{params.Message}
	}
	c.observer.OnTask(ctx, c.card, task)

	for event, err := range c.transport.SendTaskStreaming(ctx, params) {
		if err != nil {
			return nil, err
		}

		switch e := event.(type) {
		case *a2a.TaskStatusUpdateEvent:
			if err := a2a.ValidateTransition(task.Status.State, e.Status.State); err != nil {
				return nil, fmt.Errorf("invalid status update for task %s: %w", task.ID, err)
			}
			task.Status = e.Status
			a2a.MergeStatusMessage(task.Status.Message, params.Message)
		case *a2a.TaskArtifactUpdateEvent:
			if e.Artifact != nil {
				task.Artifacts = c.accumulate(task.Artifacts, e.Artifact)
			}
		default:
			return nil, fmt.Errorf("unexpected event type %T", event)
		}

		c.observer.OnEvent(ctx, c.card, event)
		if event.IsFinal() {
			return task, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Warn(ctx, "stream ended without a final event", "state", task.Status.State)
	return task, ErrStreamIncomplete
}

// GetTask fetches the current state of a task from the remote agent.
func (c *Connection) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	task, err := c.transport.GetTask(ctx, params)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrEmptyResult
	}
	return task, nil
}

// CancelTask requests cancellation of a task running on the remote agent.
func (c *Connection) CancelTask(ctx context.Context, id a2a.TaskID) (*a2a.Task, error) {
	task, err := c.transport.CancelTask(ctx, &a2a.TaskIDParams{ID: id})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrEmptyResult
	}
	return task, nil
}

// Close releases the transport resources.
func (c *Connection) Close() error {
	return c.transport.Destroy()
}
