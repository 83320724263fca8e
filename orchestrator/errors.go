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
	"errors"
	"fmt"

	"github.com/a2aproject/a2a-delegate/a2a"
)

var (
	// ErrUnknownAgent is returned when a dispatch names an agent which is not registered.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrRemoteFailed is returned when the remote task ended in the failed state.
	ErrRemoteFailed = errors.New("remote task failed")

	// ErrRemoteCanceled is returned when the remote task ended in the canceled state.
	ErrRemoteCanceled = errors.New("remote task canceled")

	// ErrNoResult is returned when the remote agent answered without a task status.
	ErrNoResult = errors.New("agent returned no task status")

	// ErrStaleCard is returned when a card older than the registered one is registered.
	ErrStaleCard = errors.New("agent card is older than the registered one")

	// ErrMalformedRequest is returned for invalid dispatch or registration input.
	ErrMalformedRequest = errors.New("malformed request")
)

// DispatchError reports a dispatch to an agent unknown to the registry.
// No task is created and no call is made.
type DispatchError struct {
	Agent string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("Agent %s not found", e.Agent)
}

func (e *DispatchError) Unwrap() error {
	return ErrUnknownAgent
}

// RemoteFailure reports a remote task which ended canceled or failed.
type RemoteFailure struct {
	Agent  string
	TaskID a2a.TaskID
	State  a2a.TaskState
	// Message is the text of the final status message, if any.
	Message string
}

func (e *RemoteFailure) Error() string {
	if e.State == a2a.TaskStateCanceled {
		return fmt.Sprintf("Agent %s task %s is cancelled", e.Agent, e.TaskID)
	}
	return fmt.Sprintf("Agent %s task %s failed", e.Agent, e.TaskID)
}

func (e *RemoteFailure) Unwrap() error {
	if e.State == a2a.TaskStateCanceled {
		return ErrRemoteCanceled
	}
	return ErrRemoteFailed
}

// Code classifies errors returned by the orchestrator.
type Code string

const (
	CodeMalformedRequest Code = "malformed-request"
	CodeUnknownAgent     Code = "unknown-agent"
	CodeRemoteFailed     Code = "remote-failed"
	CodeRemoteCanceled   Code = "remote-canceled"
	CodeTransport        Code = "transport"
	CodeInternal         Code = "internal"
)

var codeMappings = []struct {
	err  error
	code Code
}{
	{ErrUnknownAgent, CodeUnknownAgent},
	{ErrRemoteCanceled, CodeRemoteCanceled},
	{ErrRemoteFailed, CodeRemoteFailed},
	{ErrMalformedRequest, CodeMalformedRequest},
	{ErrStaleCard, CodeMalformedRequest},
	{a2a.ErrInvalidParams, CodeMalformedRequest},
	{a2a.ErrInvalidRequest, CodeMalformedRequest},
	{a2a.ErrUnsupportedContentType, CodeMalformedRequest},
	{a2a.ErrTaskTerminal, CodeMalformedRequest},
	{a2a.ErrInternalError, CodeInternal},
}

// ErrorCode returns the code of err. Errors not produced by the orchestrator or the
// remote agent itself are reported as transport errors. A nil error has an empty code.
func ErrorCode(err error) Code {
	if err == nil {
		return ""
	}
	for _, m := range codeMappings {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return CodeTransport
}
