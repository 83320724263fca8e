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

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/internal/utils"
	"github.com/a2aproject/a2a-delegate/log"
)

// Observer receives task progress reported by a [Connection]. OnTask is called with the
// initial local task of a stream and with the final task of a one-shot call. OnEvent is
// called with every raw stream event after it was applied to the local task.
// Calls happen on the goroutine running SendTask.
type Observer interface {
	OnTask(ctx context.Context, card *a2a.AgentCard, task *a2a.Task)
	OnEvent(ctx context.Context, card *a2a.AgentCard, event a2a.Event)
}

// ObserverFuncs adapts a pair of functions to the [Observer] interface. Nil fields are skipped.
type ObserverFuncs struct {
	TaskFn  func(ctx context.Context, card *a2a.AgentCard, task *a2a.Task)
	EventFn func(ctx context.Context, card *a2a.AgentCard, event a2a.Event)
}

var _ Observer = ObserverFuncs{}

// OnTask implements [Observer].
func (o ObserverFuncs) OnTask(ctx context.Context, card *a2a.AgentCard, task *a2a.Task) {
	if o.TaskFn != nil {
		o.TaskFn(ctx, card, task)
	}
}

// OnEvent implements [Observer].
func (o ObserverFuncs) OnEvent(ctx context.Context, card *a2a.AgentCard, event a2a.Event) {
	if o.EventFn != nil {
		o.EventFn(ctx, card, event)
	}
}

// Notification is a single observation published by [ChannelObserver]. Exactly one of
// Task and Event is set.
type Notification struct {
	Card  *a2a.AgentCard
	Task  *a2a.Task
	Event a2a.Event
}

// ChannelObserver publishes observations on a channel. Publishing blocks until the
// notification is received or the call context is done, so a slow consumer slows down
// the stream consumption.
type ChannelObserver struct {
	ch chan Notification
}

var _ Observer = (*ChannelObserver)(nil)

// NewChannelObserver creates a [ChannelObserver] with the provided channel buffer size.
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{ch: make(chan Notification, buffer)}
}

// Notifications returns the channel notifications are published on.
func (o *ChannelObserver) Notifications() <-chan Notification {
	return o.ch
}

// OnTask implements [Observer]. The task is copied, so later updates of the connection
// local task are not visible to receivers.
func (o *ChannelObserver) OnTask(ctx context.Context, card *a2a.AgentCard, task *a2a.Task) {
	snapshot, err := utils.DeepCopy(task)
	if err != nil {
		log.Error(ctx, "failed to copy observed task", err)
		return
	}
	o.publish(ctx, Notification{Card: card, Task: snapshot})
}

// OnEvent implements [Observer].
func (o *ChannelObserver) OnEvent(ctx context.Context, card *a2a.AgentCard, event a2a.Event) {
	o.publish(ctx, Notification{Card: card, Event: event})
}

func (o *ChannelObserver) publish(ctx context.Context, n Notification) {
	select {
	case o.ch <- n:
	case <-ctx.Done():
	}
}

type noopObserver struct{}

func (noopObserver) OnTask(context.Context, *a2a.AgentCard, *a2a.Task)  {}
func (noopObserver) OnEvent(context.Context, *a2a.AgentCard, a2a.Event) {}
