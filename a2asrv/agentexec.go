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

	"github.com/a2aproject/a2a-delegate/a2a"
)

// AgentRequest is the input of a single agent invocation.
type AgentRequest struct {
	// Query is the text of the first text part of the inbound message.
	Query string
	// SessionID is the session the task belongs to.
	SessionID string
	// TaskID is the task being worked on.
	TaskID a2a.TaskID
}

// AgentResult is the answer of a one-shot invocation. Data takes precedence over Text when set.
// InputRequired asks the caller for more input instead of completing the task.
type AgentResult struct {
	Text          string
	Data          map[string]any
	InputRequired bool
}

// AgentUpdate is a single step of a streaming invocation. The update with Done set
// carries the final answer and must be the last one.
type AgentUpdate struct {
	Done          bool
	Text          string
	Data          map[string]any
	InputRequired bool
}

// Agent is the local agent implementation a [Dispatcher] adapts to the task protocol.
//
// The following code can be used as a streaming implementation template with generateSteps missing:
//
//	func (a *myAgent) Stream(ctx context.Context, req AgentRequest) iter.Seq2[AgentUpdate, error] {
//		return func(yield func(AgentUpdate, error) bool) {
//			for step, err := range generateSteps(ctx, req.Query) {
//				if err != nil {
//					yield(AgentUpdate{}, err)
//					return
//				}
//				if !yield(AgentUpdate{Text: step.Progress}, nil) {
//					return
//				}
//			}
//			yield(AgentUpdate{Done: true, Text: "final answer"}, nil)
//		}
//	}
type Agent interface {
	// Invoke answers the query in one shot.
	Invoke(ctx context.Context, req AgentRequest) (*AgentResult, error)

	// Stream answers the query as a sequence of updates. Implementations must stop
	// when ctx is canceled.
	Stream(ctx context.Context, req AgentRequest) iter.Seq2[AgentUpdate, error]

	// SupportedContentTypes returns the output modes the agent can produce.
	// An empty list means any mode is accepted.
	SupportedContentTypes() []string
}

func agentParts(text string, data map[string]any) a2a.ContentParts {
	if data != nil {
		return a2a.ContentParts{a2a.NewDataPart(data)}
	}
	return a2a.ContentParts{a2a.NewTextPart(text)}
}
