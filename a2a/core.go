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

// Package a2a contains the task record model shared by clients, servers and the orchestrator:
// tasks, statuses, messages, parts, artifacts and the events used to stream task progress.
package a2a

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MetadataCarrier provides access to a free-form metadata container.
type MetadataCarrier interface {
	// Meta returns the metadata container.
	Meta() map[string]any
	// SetMeta sets the metadata value for the provided key.
	SetMeta(k string, v any)
}

// Event is a task update which can be sent over a streaming connection.
// The set of implementations is closed: *TaskStatusUpdateEvent and *TaskArtifactUpdateEvent.
type Event interface {
	MetadataCarrier

	// TaskID returns the id of the task the event belongs to.
	TaskID() TaskID
	// IsFinal reports whether the event is the last one in a stream.
	IsFinal() bool

	isEvent()
}

func (*TaskStatusUpdateEvent) isEvent()   {}
func (*TaskArtifactUpdateEvent) isEvent() {}

// StreamResponse is a wrapper around Event which decodes the concrete event type from the payload.
type StreamResponse struct {
	Event
}

// MarshalJSON implements json.Marshaler.
func (sr StreamResponse) MarshalJSON() ([]byte, error) {
	switch v := sr.Event.(type) {
	case *TaskStatusUpdateEvent:
		return json.Marshal(v)
	case *TaskArtifactUpdateEvent:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("unknown event type: %T", v)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (sr *StreamResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if _, ok := raw["status"]; ok {
		var statusUpdate TaskStatusUpdateEvent
		if err := json.Unmarshal(data, &statusUpdate); err != nil {
			return fmt.Errorf("failed to unmarshal TaskStatusUpdateEvent: %w", err)
		}
		sr.Event = &statusUpdate
	} else if _, ok := raw["artifact"]; ok {
		var artifactUpdate TaskArtifactUpdateEvent
		if err := json.Unmarshal(data, &artifactUpdate); err != nil {
			return fmt.Errorf("failed to unmarshal TaskArtifactUpdateEvent: %w", err)
		}
		sr.Event = &artifactUpdate
	} else {
		return fmt.Errorf("unknown event type: %s", data)
	}
	return nil
}

// MessageRole represents a set of possible values that identify the message sender.
type MessageRole string

const (
	// MessageRoleAgent is an agent message role.
	MessageRoleAgent MessageRole = "agent"
	// MessageRoleUser is a user message role.
	MessageRoleUser MessageRole = "user"
)

// NewMessageID generates a new random message identifier.
func NewMessageID() string {
	return newUUIDString()
}

// Message represents a single message in the conversation between a user and an agent.
// Message identity is carried in metadata under MetadataKeyMessageID.
type Message struct {
	// Role identifies the sender of the message.
	Role MessageRole `json:"role" yaml:"role"`

	// Parts form the message body.
	Parts ContentParts `json:"parts" yaml:"parts"`

	// Metadata is an optional free-form metadata container.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewMessage creates a new message with the provided parts.
func NewMessage(role MessageRole, parts ...Part) *Message {
	return &Message{Role: role, Parts: parts}
}

// Meta implements MetadataCarrier.
func (m *Message) Meta() map[string]any {
	if m == nil {
		return nil
	}
	return m.Metadata
}

// SetMeta implements MetadataCarrier.
func (m *Message) SetMeta(k string, v any) {
	if m == nil {
		return
	}
	setMeta(&m.Metadata, k, v)
}

// MessageID returns the identity stored in the message metadata or an empty string.
func (m *Message) MessageID() string {
	id, _ := m.Meta()[MetadataKeyMessageID].(string)
	return id
}

// Text returns the text of the first text part of the message.
func (m *Message) Text() (string, bool) {
	if m == nil {
		return "", false
	}
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			return tp.Text, true
		}
	}
	return "", false
}

// TaskID is a unique identifier for the task, generated by the caller which submits the task.
type TaskID string

// NewTaskID generates a new random task identifier.
func NewTaskID() TaskID {
	return TaskID(newUUIDString())
}

// NewSessionID generates a new random session identifier.
func NewSessionID() string {
	return newUUIDString()
}

// TaskState defines a set of possible task states.
type TaskState string

const (
	// TaskStateSubmitted means the task has been submitted and is awaiting execution.
	TaskStateSubmitted TaskState = "submitted"
	// TaskStateWorking means the agent is actively working on the task.
	TaskStateWorking TaskState = "working"
	// TaskStateInputRequired means the task is paused and waiting for input from the user.
	TaskStateInputRequired TaskState = "input-required"
	// TaskStateCompleted means the task has been successfully completed.
	TaskStateCompleted TaskState = "completed"
	// TaskStateCanceled means the task has been canceled.
	TaskStateCanceled TaskState = "canceled"
	// TaskStateFailed means the task failed due to an error during execution.
	TaskStateFailed TaskState = "failed"
	// TaskStateUnknown means the task is in an unknown or indeterminate state.
	TaskStateUnknown TaskState = "unknown"
)

// Terminal returns true for states in which a Task becomes immutable, i.e. no further
// status transitions are permitted.
func (ts TaskState) Terminal() bool {
	return ts == TaskStateCompleted ||
		ts == TaskStateCanceled ||
		ts == TaskStateFailed ||
		ts == TaskStateUnknown
}

// ValidateTransition returns an error wrapping ErrTaskTerminal if a task in state from
// can not move to state to. Restating the terminal state a task is already in is not a transition.
func ValidateTransition(from, to TaskState) error {
	if !from.Terminal() || from == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrTaskTerminal, from, to)
}

// Task represents a single, stateful unit of delegated work.
type Task struct {
	// ID is a unique identifier for the task.
	ID TaskID `json:"id" yaml:"id"`

	// SessionID groups tasks which belong to the same conversation.
	SessionID string `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`

	// Status is the current status of the task.
	Status TaskStatus `json:"status" yaml:"status"`

	// History is the append-only list of messages exchanged during the task.
	History []*Message `json:"history,omitempty" yaml:"history,omitempty"`

	// Artifacts is a collection of outputs produced by the agent.
	Artifacts []*Artifact `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`

	// Metadata is an optional free-form metadata container.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewSubmittedTask creates a Task in submitted state with history seeded by the request message.
func NewSubmittedTask(params *TaskSendParams) *Task {
	task := &Task{
		ID:        params.ID,
		SessionID: params.SessionID,
		Status:    TaskStatus{State: TaskStateSubmitted, Timestamp: now()},
	}
	if params.Message != nil {
		task.History = []*Message{params.Message}
	}
	return task
}

// Meta implements MetadataCarrier.
func (t *Task) Meta() map[string]any {
	if t == nil {
		return nil
	}
	return t.Metadata
}

// SetMeta implements MetadataCarrier.
func (t *Task) SetMeta(k string, v any) {
	if t == nil {
		return
	}
	setMeta(&t.Metadata, k, v)
}

// TaskStatus represents the status of a task at a specific point in time.
type TaskStatus struct {
	// State is the current state of the task's lifecycle.
	State TaskState `json:"state" yaml:"state"`

	// Message is the latest communicative content from the agent.
	Message *Message `json:"message,omitempty" yaml:"message,omitempty"`

	// Timestamp is a datetime indicating when this status was recorded.
	Timestamp *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// NewTaskStatus creates a status with the current timestamp.
func NewTaskStatus(state TaskState, msg *Message) TaskStatus {
	return TaskStatus{State: state, Message: msg, Timestamp: now()}
}

// Artifact is a durable output produced by the task. Producers can stream a single logical
// artifact in pieces using Index, Append and LastChunk.
type Artifact struct {
	// Name is an optional human-readable name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description is an optional human-readable description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Parts is the artifact content.
	Parts ContentParts `json:"parts" yaml:"parts"`

	// Index is the position of the artifact in the task artifact list.
	Index int `json:"index" yaml:"index"`

	// Append means Parts extend the artifact already stored at Index.
	Append bool `json:"append,omitempty" yaml:"append,omitempty"`

	// LastChunk marks the final piece of the artifact.
	LastChunk bool `json:"lastChunk,omitempty" yaml:"lastChunk,omitempty"`

	// Metadata is an optional free-form metadata container.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Meta implements MetadataCarrier.
func (a *Artifact) Meta() map[string]any {
	if a == nil {
		return nil
	}
	return a.Metadata
}

// SetMeta implements MetadataCarrier.
func (a *Artifact) SetMeta(k string, v any) {
	if a == nil {
		return
	}
	setMeta(&a.Metadata, k, v)
}

// AccumulateArtifact adds an artifact to the list honoring index and append semantics:
// an existing artifact at the same index is extended when Append is set and replaced otherwise.
// Artifacts with an index not present in the list are appended.
func AccumulateArtifact(artifacts []*Artifact, a *Artifact) []*Artifact {
	for i, existing := range artifacts {
		if existing.Index != a.Index {
			continue
		}
		if !a.Append {
			artifacts[i] = a
			return artifacts
		}
		merged := *existing
		merged.Parts = append(append(ContentParts{}, existing.Parts...), a.Parts...)
		merged.LastChunk = a.LastChunk
		if len(a.Metadata) > 0 {
			MergeMetadata(&merged, a)
		}
		artifacts[i] = &merged
		return artifacts
	}
	return append(artifacts, a)
}

// TaskStatusUpdateEvent is sent when the status of a task changes.
type TaskStatusUpdateEvent struct {
	// ID is the id of the task.
	ID TaskID `json:"id" yaml:"id"`

	// Status is the new status of the task.
	Status TaskStatus `json:"status" yaml:"status"`

	// Final marks the last event of a stream.
	Final bool `json:"final" yaml:"final"`

	// Metadata is an optional free-form metadata container.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewStatusUpdateEvent creates a TaskStatusUpdateEvent for the provided task.
func NewStatusUpdateEvent(id TaskID, status TaskStatus, final bool) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{ID: id, Status: status, Final: final}
}

// TaskID implements Event.
func (e *TaskStatusUpdateEvent) TaskID() TaskID { return e.ID }

// IsFinal implements Event.
func (e *TaskStatusUpdateEvent) IsFinal() bool { return e.Final }

// Meta implements MetadataCarrier.
func (e *TaskStatusUpdateEvent) Meta() map[string]any {
	return e.Metadata
}

// SetMeta implements MetadataCarrier.
func (e *TaskStatusUpdateEvent) SetMeta(k string, v any) {
	setMeta(&e.Metadata, k, v)
}

// TaskArtifactUpdateEvent is sent when an artifact is produced or extended.
type TaskArtifactUpdateEvent struct {
	// ID is the id of the task.
	ID TaskID `json:"id" yaml:"id"`

	// Artifact is the produced artifact or artifact chunk.
	Artifact *Artifact `json:"artifact" yaml:"artifact"`

	// Final marks the last event of a stream.
	Final bool `json:"final,omitempty" yaml:"final,omitempty"`

	// Metadata is an optional free-form metadata container.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewArtifactUpdateEvent creates a TaskArtifactUpdateEvent for the provided task.
func NewArtifactUpdateEvent(id TaskID, artifact *Artifact) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{ID: id, Artifact: artifact}
}

// TaskID implements Event.
func (e *TaskArtifactUpdateEvent) TaskID() TaskID { return e.ID }

// IsFinal implements Event.
func (e *TaskArtifactUpdateEvent) IsFinal() bool { return e.Final }

// Meta implements MetadataCarrier.
func (e *TaskArtifactUpdateEvent) Meta() map[string]any {
	return e.Metadata
}

// SetMeta implements MetadataCarrier.
func (e *TaskArtifactUpdateEvent) SetMeta(k string, v any) {
	setMeta(&e.Metadata, k, v)
}

// TaskSendParams defines the parameters of tasks/send and tasks/sendSubscribe.
type TaskSendParams struct {
	// ID is the id of the task. Reusing an id continues the task.
	ID TaskID `json:"id" yaml:"id"`

	// SessionID groups tasks which belong to the same conversation.
	SessionID string `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`

	// Message is the message sent to the agent.
	Message *Message `json:"message" yaml:"message"`

	// AcceptedOutputModes is the list of output content types the caller accepts.
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty" yaml:"acceptedOutputModes,omitempty"`

	// HistoryLength is the number of recent messages to be retrieved.
	HistoryLength *int `json:"historyLength,omitempty" yaml:"historyLength,omitempty"`

	// Metadata is an optional free-form metadata container.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Meta implements MetadataCarrier.
func (p *TaskSendParams) Meta() map[string]any {
	if p == nil {
		return nil
	}
	return p.Metadata
}

// SetMeta implements MetadataCarrier.
func (p *TaskSendParams) SetMeta(k string, v any) {
	if p == nil {
		return
	}
	setMeta(&p.Metadata, k, v)
}

// TaskQueryParams defines the parameters of tasks/get.
type TaskQueryParams struct {
	// ID is the id of the task.
	ID TaskID `json:"id" yaml:"id"`

	// HistoryLength is the number of recent messages to be retrieved.
	HistoryLength *int `json:"historyLength,omitempty" yaml:"historyLength,omitempty"`

	// Metadata is an optional free-form metadata container.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// TaskIDParams defines the parameters of tasks/cancel.
type TaskIDParams struct {
	// ID is the id of the task.
	ID TaskID `json:"id" yaml:"id"`

	// Metadata is an optional free-form metadata container.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func setMeta(m *map[string]any, k string, v any) {
	if *m == nil {
		*m = make(map[string]any)
	}
	(*m)[k] = v
}

func newUUIDString() string {
	return uuid.Must(uuid.NewV7()).String()
}

func now() *time.Time {
	t := time.Now().UTC()
	return &t
}
