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

package taskstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/internal/utils"
)

// InMemory is an implementation of [Store] which stores tasks in memory.
// This means that store contents do not survive server restarts.
// A single lock guards every task.
type InMemory struct {
	mu    sync.RWMutex
	tasks map[a2a.TaskID]*a2a.Task
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty [InMemory] store.
func NewInMemory() *InMemory {
	return &InMemory{tasks: make(map[a2a.TaskID]*a2a.Task)}
}

// Upsert implements [Store] interface.
func (s *InMemory) Upsert(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, bool, error) {
	if err := ValidateParams(params); err != nil {
		return nil, false, err
	}

	task, err := utils.DeepCopy(a2a.NewSubmittedTask(params))
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	stored, exists := s.tasks[params.ID]
	if !exists {
		s.tasks[params.ID] = task
		stored = task
	}
	result, err := utils.DeepCopy(stored)
	s.mu.Unlock()

	if err != nil {
		return nil, false, fmt.Errorf("task copy failed: %w", err)
	}
	return result, !exists, nil
}

// Update implements [Store] interface.
func (s *InMemory) Update(ctx context.Context, taskID a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error) {
	status, err := utils.DeepCopy(status)
	if err != nil {
		return nil, err
	}
	artifacts, err = utils.DeepCopy(artifacts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok {
		return nil, a2a.ErrTaskNotFound
	}
	if err := ApplyUpdate(stored, status, artifacts); err != nil {
		return nil, err
	}

	result, err := utils.DeepCopy(stored)
	if err != nil {
		return nil, fmt.Errorf("task copy failed: %w", err)
	}
	return result, nil
}

// Get implements [Store] interface.
func (s *InMemory) Get(ctx context.Context, taskID a2a.TaskID, historyLength int) (*a2a.Task, error) {
	s.mu.RLock()
	stored, ok := s.tasks[taskID]
	if !ok {
		s.mu.RUnlock()
		return nil, a2a.ErrTaskNotFound
	}
	task, err := utils.DeepCopy(stored)
	s.mu.RUnlock()

	if err != nil {
		return nil, fmt.Errorf("task copy failed: %w", err)
	}
	TrimHistory(task, historyLength)
	return task, nil
}
