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

// Package testutil provides fakes shared by tests of several packages.
package testutil

import (
	"context"
	"testing"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2asrv/taskstore"
)

// TestTaskStore is a mock of [taskstore.Store]. Calls without an override are
// served by the embedded in-memory store.
type TestTaskStore struct {
	*taskstore.InMemory

	UpsertFunc func(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, bool, error)
	UpdateFunc func(ctx context.Context, taskID a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error)
	GetFunc    func(ctx context.Context, taskID a2a.TaskID, historyLength int) (*a2a.Task, error)
}

var _ taskstore.Store = (*TestTaskStore)(nil)

// Upsert implements [taskstore.Store] interface.
func (m *TestTaskStore) Upsert(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, bool, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return m.InMemory.Upsert(ctx, params)
}

// Update implements [taskstore.Store] interface.
func (m *TestTaskStore) Update(ctx context.Context, taskID a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, taskID, status, artifacts)
	}
	return m.InMemory.Update(ctx, taskID, status, artifacts)
}

// Get implements [taskstore.Store] interface.
func (m *TestTaskStore) Get(ctx context.Context, taskID a2a.TaskID, historyLength int) (*a2a.Task, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, taskID, historyLength)
	}
	return m.InMemory.Get(ctx, taskID, historyLength)
}

// SetUpdateError makes every Update fail with err.
func (m *TestTaskStore) SetUpdateError(err error) *TestTaskStore {
	m.UpdateFunc = func(ctx context.Context, taskID a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error) {
		return nil, err
	}
	return m
}

// WithTasks seeds the store with tasks in their current status. Every task must have a non-empty history.
func (m *TestTaskStore) WithTasks(t *testing.T, tasks ...*a2a.Task) *TestTaskStore {
	t.Helper()
	ctx := t.Context()

	for _, task := range tasks {
		params := &a2a.TaskSendParams{ID: task.ID, SessionID: task.SessionID, Message: task.History[0]}
		if _, _, err := m.InMemory.Upsert(ctx, params); err != nil {
			t.Fatalf("failed to save task: %v", err)
		}
		if task.Status.State == a2a.TaskStateSubmitted {
			continue
		}
		if _, err := m.InMemory.Update(ctx, task.ID, task.Status, task.Artifacts); err != nil {
			t.Fatalf("failed to update task: %v", err)
		}
	}
	return m
}

// NewTestTaskStore creates a [TestTaskStore] backed by an empty in-memory store.
func NewTestTaskStore() *TestTaskStore {
	return &TestTaskStore{InMemory: taskstore.NewInMemory()}
}
