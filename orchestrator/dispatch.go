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
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2aclient"
	"github.com/a2aproject/a2a-delegate/log"
)

// Result is the flattened outcome of a dispatch.
type Result struct {
	// Parts holds the status message parts followed by the artifact parts: text parts as
	// strings, data parts as maps, file parts as artifact references.
	Parts []any
	// Escalate is set when control should go back to the end user instead of continuing
	// automatically: the agent asked for input or returned files.
	Escalate bool
	// InputRequired is set when the remote task waits for more input.
	InputRequired bool
	// Task is the final task as reconstructed by the connection.
	Task *a2a.Task
}

// Dispatch sends message to the named agent as part of session and waits for the task to
// finish or to require input. The session is updated with the agent, the task in progress
// and whether it remains active.
func (r *Registry) Dispatch(ctx context.Context, agentName, message string, session *Session) (*Result, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: session is required", ErrMalformedRequest)
	}
	agent, ok := r.acquire(agentName)
	if !ok {
		return nil, &DispatchError{Agent: agentName}
	}
	defer agent.release(ctx)

	params := r.newSendParams(agentName, message, session)
	ctx = log.With(ctx, "agent", agentName, "task_id", params.ID, "session_id", session.ID)

	task, err := agent.conn.SendTask(ctx, params)
	if errors.Is(err, a2a.ErrTaskTerminal) {
		delete(session.TaskIDs, agentName)
		log.Warn(ctx, "remote task already finished, starting a new one on the next dispatch")
	}
	if errors.Is(err, a2aclient.ErrEmptyResult) || (err == nil && task == nil) {
		session.Active = false
		log.Warn(ctx, "agent returned no task status")
		return nil, fmt.Errorf("%w: task dispatch to agent '%s' failed to return a task status", ErrNoResult, agentName)
	}
	if err != nil {
		return nil, err
	}

	state := task.Status.State
	session.Active = !state.Terminal()
	if state.Terminal() {
		delete(session.TaskIDs, agentName)
	} else {
		session.TaskIDs[agentName] = params.ID
	}

	result := &Result{Task: task}
	switch state {
	case a2a.TaskStateInputRequired:
		result.InputRequired = true
		result.Escalate = true
	case a2a.TaskStateCanceled, a2a.TaskStateFailed:
		failure := &RemoteFailure{Agent: agentName, TaskID: task.ID, State: state}
		if task.Status.Message != nil {
			failure.Message, _ = task.Status.Message.Text()
		}
		log.Warn(ctx, "remote task did not complete", "state", state)
		return nil, failure
	}

	if task.Status.Message != nil {
		if err := r.appendParts(ctx, result, task.Status.Message.Parts); err != nil {
			return nil, err
		}
	}
	for _, artifact := range task.Artifacts {
		if err := r.appendParts(ctx, result, artifact.Parts); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *Registry) newSendParams(agentName, message string, session *Session) *a2a.TaskSendParams {
	session.Agent = agentName
	if session.ID == "" {
		session.ID = a2a.NewSessionID()
	}
	if session.TaskIDs == nil {
		session.TaskIDs = make(map[string]a2a.TaskID)
	}
	// A new id is only kept once the agent reports the task in progress.
	taskID, ok := session.TaskIDs[agentName]
	if !ok {
		taskID = a2a.NewTaskID()
	}

	metadata := maps.Clone(session.InputMetadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	messageID, _ := metadata[a2a.MetadataKeyMessageID].(string)
	if messageID == "" {
		messageID = a2a.NewMessageID()
	}
	metadata[a2a.MetadataKeyConversationID] = session.ID
	metadata[a2a.MetadataKeyMessageID] = messageID

	return &a2a.TaskSendParams{
		ID:        taskID,
		SessionID: session.ID,
		Message: &a2a.Message{
			Role:     a2a.MessageRoleUser,
			Parts:    a2a.ContentParts{a2a.NewTextPart(message)},
			Metadata: metadata,
		},
		AcceptedOutputModes: slices.Clone(r.acceptedModes),
		Metadata:            map[string]any{a2a.MetadataKeyConversationID: session.ID},
	}
}
