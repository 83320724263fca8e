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

// Package taskstore defines the storage contract for server-side task records and
// provides an in-memory implementation. Persistent implementations live in subpackages.
package taskstore

import (
	"context"
	"fmt"

	"github.com/a2aproject/a2a-delegate/a2a"
)

// Store is an interface the server stack uses for storing and retrieving tasks.
// Every read-modify-write must be atomic with respect to other calls for the same task id.
type Store interface {
	// Upsert creates a submitted task from params if no task with params.ID exists.
	// An existing task is returned untouched. The returned bool reports whether the task was created.
	Upsert(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, bool, error)

	// Update replaces the task status and accumulates the provided artifacts.
	// It returns [a2a.ErrTaskNotFound] for unknown tasks and [a2a.ErrTaskTerminal] once
	// the task is in a terminal state.
	Update(ctx context.Context, taskID a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error)

	// Get retrieves a task by ID with at most historyLength recent history messages. A negative
	// historyLength means the full history. If a Task doesn't exist the method returns [a2a.ErrTaskNotFound].
	Get(ctx context.Context, taskID a2a.TaskID, historyLength int) (*a2a.Task, error)
}

// FullHistory can be passed to [Store.Get] to retrieve all history messages.
const FullHistory = -1

// ValidateParams checks that params can be used to create a task.
func ValidateParams(params *a2a.TaskSendParams) error {
	if params == nil {
		return fmt.Errorf("%w: missing params", a2a.ErrInvalidParams)
	}
	if params.ID == "" {
		return fmt.Errorf("%w: task id is required", a2a.ErrInvalidParams)
	}
	if params.Message == nil {
		return fmt.Errorf("%w: message is required", a2a.ErrInvalidParams)
	}
	return nil
}

// ApplyUpdate mutates task by replacing its status and accumulating artifacts.
// It is shared by Store implementations so that every backend enforces the same transition rules.
func ApplyUpdate(task *a2a.Task, status a2a.TaskStatus, artifacts []*a2a.Artifact) error {
	// A terminal status is final, even when restated with the same state.
	if task.Status.State.Terminal() {
		return fmt.Errorf("task %s: %w: %s -> %s", task.ID, a2a.ErrTaskTerminal, task.Status.State, status.State)
	}
	task.Status = status
	for _, artifact := range artifacts {
		task.Artifacts = a2a.AccumulateArtifact(task.Artifacts, artifact)
	}
	return nil
}

// TrimHistory keeps at most historyLength most recent messages in the task history.
func TrimHistory(task *a2a.Task, historyLength int) {
	if historyLength < 0 || len(task.History) <= historyLength {
		return
	}
	task.History = task.History[len(task.History)-historyLength:]
}
