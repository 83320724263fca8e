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
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2asrv/taskstore"
	"github.com/a2aproject/a2a-delegate/log"
)

var errTaskCanceled = errors.New("task canceled by client")

// Dispatcher is the default [RequestHandler]. It validates inbound requests, invokes the
// local [Agent] and republishes its output as task updates persisted in a [taskstore.Store].
type Dispatcher struct {
	agent             Agent
	store             taskstore.Store
	metrics           *Metrics
	processingMessage string
	logger            *slog.Logger

	mu      sync.Mutex
	running map[a2a.TaskID]*invocation
}

type invocation struct {
	cancel context.CancelCauseFunc
}

var _ RequestHandler = (*Dispatcher)(nil)

// NewDispatcher creates a [Dispatcher] serving the provided agent.
func NewDispatcher(agent Agent, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		agent:             agent,
		processingMessage: DefaultProcessingMessage,
		logger:            slog.Default(),
		running:           make(map[a2a.TaskID]*invocation),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.store == nil {
		d.store = taskstore.NewInMemory()
	}
	return d
}

// OnSendTask implements [RequestHandler].
func (d *Dispatcher) OnSendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	ctx = d.attachLogger(ctx, "tasks/send", taskIDOf(params))

	task, err := d.prepare(ctx, params)
	if err != nil {
		return nil, err
	}
	query, _ := params.Message.Text()

	runCtx, done := d.track(ctx, task.ID)
	defer done()

	start := time.Now()
	result, err := d.agent.Invoke(runCtx, agentRequest(task, query))
	d.metrics.observeInvocation("invoke", start)

	if runCtx.Err() != nil {
		return d.persistCanceled(ctx, task.ID)
	}
	if err == nil && result == nil {
		err = a2a.ErrInvalidAgentResponse
	}
	if err != nil {
		log.Error(ctx, "agent invocation failed", err)
		d.persistFailed(ctx, task.ID, err)
		return nil, a2a.NewError(a2a.ErrInternalError, fmt.Sprintf("Error invoking agent: %v", err))
	}

	parts := agentParts(result.Text, result.Data)
	status := a2a.NewTaskStatus(a2a.TaskStateCompleted, a2a.NewMessage(a2a.MessageRoleAgent, parts...))
	var artifacts []*a2a.Artifact
	if result.InputRequired {
		status.State = a2a.TaskStateInputRequired
	} else {
		artifacts = []*a2a.Artifact{{Parts: parts, Index: 0}}
	}

	updated, err := d.update(ctx, task.ID, status, artifacts)
	if errors.Is(err, a2a.ErrTaskTerminal) {
		// canceled while the agent was producing the answer
		updated, err = d.store.Get(ctx, task.ID, taskstore.FullHistory)
	}
	if err != nil {
		return nil, err
	}
	trimHistory(updated, params.HistoryLength)
	return updated, nil
}

// OnSendTaskStream implements [RequestHandler].
func (d *Dispatcher) OnSendTaskStream(ctx context.Context, params *a2a.TaskSendParams) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		ctx := d.attachLogger(ctx, "tasks/sendSubscribe", taskIDOf(params))

		task, err := d.prepare(ctx, params)
		if err != nil {
			yield(nil, err)
			return
		}
		query, _ := params.Message.Text()

		runCtx, done := d.track(ctx, task.ID)
		defer done()
		defer d.metrics.observeInvocation("stream", time.Now())

		emit := func(event a2a.Event) bool {
			d.metrics.eventEmitted(event)
			return yield(event, nil)
		}
		finishCanceled := func() {
			canceled, err := d.persistCanceled(ctx, task.ID)
			if err != nil {
				yield(nil, err)
				return
			}
			emit(a2a.NewStatusUpdateEvent(task.ID, canceled.Status, true))
		}

		for update, err := range d.agent.Stream(runCtx, agentRequest(task, query)) {
			if runCtx.Err() != nil {
				finishCanceled()
				return
			}
			if err != nil {
				log.Error(ctx, "agent stream failed", err)
				yield(nil, a2a.NewError(a2a.ErrInternalError, fmt.Sprintf("An error occurred while streaming the response: %v", err)))
				return
			}

			status, artifacts := d.statusOf(update)
			if _, err := d.update(ctx, task.ID, status, artifacts); err != nil {
				if errors.Is(err, a2a.ErrTaskTerminal) && runCtx.Err() != nil {
					finishCanceled()
					return
				}
				yield(nil, err)
				return
			}

			if !emit(a2a.NewStatusUpdateEvent(task.ID, status, false)) {
				return
			}
			if !update.Done {
				continue
			}
			for _, artifact := range artifacts {
				if !emit(a2a.NewArtifactUpdateEvent(task.ID, artifact)) {
					return
				}
			}
			emit(a2a.NewStatusUpdateEvent(task.ID, status, true))
			return
		}

		if runCtx.Err() != nil {
			finishCanceled()
			return
		}
		log.Warn(ctx, "agent stream ended without a final update")
		d.persistFailed(ctx, task.ID, a2a.ErrInvalidAgentResponse)
		yield(nil, a2a.NewError(a2a.ErrInvalidAgentResponse, "Agent stream ended without a final update."))
	}
}

// OnGetTask implements [RequestHandler].
func (d *Dispatcher) OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	if params == nil || params.ID == "" {
		return nil, a2a.NewError(a2a.ErrInvalidParams, "Task id is missing.")
	}
	ctx = d.attachLogger(ctx, "tasks/get", params.ID)

	historyLength := taskstore.FullHistory
	if params.HistoryLength != nil {
		historyLength = *params.HistoryLength
	}
	return d.store.Get(ctx, params.ID, historyLength)
}

// OnCancelTask implements [RequestHandler]. Only tasks with a running invocation
// in this process can be canceled.
func (d *Dispatcher) OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	if params == nil || params.ID == "" {
		return nil, a2a.NewError(a2a.ErrInvalidParams, "Task id is missing.")
	}
	ctx = d.attachLogger(ctx, "tasks/cancel", params.ID)

	task, err := d.store.Get(ctx, params.ID, taskstore.FullHistory)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	inv, ok := d.running[params.ID]
	d.mu.Unlock()
	if !ok || task.Status.State.Terminal() {
		return nil, notCancelable(task)
	}

	log.Info(ctx, "canceling task")
	inv.cancel(errTaskCanceled)

	canceled, err := d.persistCanceled(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if canceled.Status.State != a2a.TaskStateCanceled {
		return nil, notCancelable(canceled)
	}
	return canceled, nil
}

func (d *Dispatcher) prepare(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	if err := ValidateSendParams(params, d.agent.SupportedContentTypes()); err != nil {
		d.metrics.rejected(RejectionReason(err))
		log.Warn(ctx, "request rejected", "error", err)
		return nil, err
	}

	task, created, err := d.store.Upsert(ctx, params)
	if err != nil {
		return nil, err
	}
	if !created && task.Status.State.Terminal() {
		d.metrics.rejected(reasonTerminalTask)
		return nil, rejection(a2a.ErrTaskTerminal, fmt.Sprintf("Task %s is already %s.", task.ID, task.Status.State), reasonTerminalTask)
	}
	if created {
		log.Info(ctx, "task created", "session_id", task.SessionID)
	}
	return task, nil
}

func (d *Dispatcher) statusOf(update AgentUpdate) (a2a.TaskStatus, []*a2a.Artifact) {
	if !update.Done {
		text := update.Text
		if text == "" {
			text = d.processingMessage
		}
		msg := a2a.NewMessage(a2a.MessageRoleAgent, agentParts(text, update.Data)...)
		return a2a.NewTaskStatus(a2a.TaskStateWorking, msg), nil
	}

	parts := agentParts(update.Text, update.Data)
	msg := a2a.NewMessage(a2a.MessageRoleAgent, parts...)
	if update.InputRequired {
		return a2a.NewTaskStatus(a2a.TaskStateInputRequired, msg), nil
	}
	return a2a.NewTaskStatus(a2a.TaskStateCompleted, msg), []*a2a.Artifact{{Parts: parts, Index: 0}}
}

func (d *Dispatcher) update(ctx context.Context, id a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error) {
	task, err := d.store.Update(ctx, id, status, artifacts)
	if err != nil {
		return nil, err
	}
	if status.State.Terminal() || status.State == a2a.TaskStateInputRequired {
		d.metrics.taskFinished(status.State)
		log.Info(ctx, "task finished", "state", status.State)
	}
	return task, nil
}

func (d *Dispatcher) persistFailed(ctx context.Context, id a2a.TaskID, cause error) {
	failed := a2a.NewTaskStatus(a2a.TaskStateFailed, agentMessage(fmt.Sprintf("Agent invocation failed: %v", cause)))
	if _, err := d.update(ctx, id, failed, nil); err != nil {
		log.Error(ctx, "failed to persist failed status", err)
	}
}

// persistCanceled moves the task to canceled unless it already is terminal and returns
// the stored task. It runs even when ctx was canceled by a client disconnect.
func (d *Dispatcher) persistCanceled(ctx context.Context, id a2a.TaskID) (*a2a.Task, error) {
	ctx = context.WithoutCancel(ctx)

	task, err := d.store.Get(ctx, id, taskstore.FullHistory)
	if err != nil {
		return nil, err
	}
	if task.Status.State.Terminal() {
		return task, nil
	}

	status := a2a.NewTaskStatus(a2a.TaskStateCanceled, agentMessage("Task canceled."))
	task, err = d.update(ctx, id, status, nil)
	if errors.Is(err, a2a.ErrTaskTerminal) {
		return d.store.Get(ctx, id, taskstore.FullHistory)
	}
	return task, err
}

func (d *Dispatcher) track(ctx context.Context, id a2a.TaskID) (context.Context, func()) {
	runCtx, cancel := context.WithCancelCause(ctx)
	inv := &invocation{cancel: cancel}

	d.mu.Lock()
	d.running[id] = inv
	d.mu.Unlock()

	return runCtx, func() {
		d.mu.Lock()
		if d.running[id] == inv {
			delete(d.running, id)
		}
		d.mu.Unlock()
		cancel(nil)
	}
}

func (d *Dispatcher) attachLogger(ctx context.Context, method string, id a2a.TaskID) context.Context {
	logger := d.logger.With(slog.Group("a2a", "method", method, "task_id", string(id)))
	return log.AttachLogger(ctx, logger)
}

func agentRequest(task *a2a.Task, query string) AgentRequest {
	return AgentRequest{Query: query, SessionID: task.SessionID, TaskID: task.ID}
}

func agentMessage(text string) *a2a.Message {
	return a2a.NewMessage(a2a.MessageRoleAgent, a2a.NewTextPart(text))
}

func notCancelable(task *a2a.Task) error {
	msg := fmt.Sprintf("Task %s is %s and cannot be canceled.", task.ID, task.Status.State)
	return a2a.NewError(a2a.ErrTaskNotCancelable, msg)
}

func taskIDOf(params *a2a.TaskSendParams) a2a.TaskID {
	if params == nil {
		return ""
	}
	return params.ID
}

func trimHistory(task *a2a.Task, historyLength *int) {
	if historyLength != nil {
		taskstore.TrimHistory(task, *historyLength)
	}
}
