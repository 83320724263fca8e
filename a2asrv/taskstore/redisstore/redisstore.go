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

// Package redisstore provides a [taskstore.Store] backed by Redis.
// Each task is a JSON string under "<prefix><task id>". Applied updates are
// appended to the "<prefix><task id>:events" list.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2asrv/taskstore"
	"github.com/a2aproject/a2a-delegate/log"
)

// DefaultKeyPrefix is used for task keys when no [WithKeyPrefix] option is provided.
const DefaultKeyPrefix = "a2a:task:"

const defaultMaxRetries = 10

// Store is a [taskstore.Store] implementation using optimistic Redis transactions.
type Store struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	maxRetries int
}

var _ taskstore.Store = (*Store)(nil)

// Option configures a [Store].
type Option func(*Store)

// WithKeyPrefix sets the prefix prepended to every key written by the store.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL makes task keys expire ttl after the last write. Zero disables expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithMaxRetries sets how many attempts an Update gets when its transaction conflicts
// with a concurrent writer. Values below one still allow a single attempt.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		s.maxRetries = max(n, 1)
	}
}

// New creates a [Store] using the provided client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultKeyPrefix, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) taskKey(id a2a.TaskID) string {
	return s.prefix + string(id)
}

func (s *Store) eventsKey(id a2a.TaskID) string {
	return s.prefix + string(id) + ":events"
}

// Upsert implements [taskstore.Store] interface. SETNX makes the first writer win.
func (s *Store) Upsert(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, bool, error) {
	if err := taskstore.ValidateParams(params); err != nil {
		return nil, false, err
	}

	taskJSON, err := json.Marshal(a2a.NewSubmittedTask(params))
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal task: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.taskKey(params.ID), taskJSON, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to store task: %w", err)
	}

	task, err := s.Get(ctx, params.ID, taskstore.FullHistory)
	if err != nil {
		return nil, false, err
	}
	return task, created, nil
}

// Update implements [taskstore.Store] interface. The task key is watched and the write is
// retried when another client modified the task in between.
func (s *Store) Update(ctx context.Context, taskID a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error) {
	key := s.taskKey(taskID)

	var result *a2a.Task
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return a2a.ErrTaskNotFound
		}
		if err != nil {
			return err
		}

		var task a2a.Task
		if err := json.Unmarshal(data, &task); err != nil {
			return fmt.Errorf("failed to unmarshal task: %w", err)
		}
		if err := taskstore.ApplyUpdate(&task, status, artifacts); err != nil {
			return err
		}

		updated, err := json.Marshal(&task)
		if err != nil {
			return fmt.Errorf("failed to marshal task: %w", err)
		}
		events, err := encodeEvents(taskID, status, artifacts)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.ttl)
			pipe.RPush(ctx, s.eventsKey(taskID), events...)
			if s.ttl > 0 {
				pipe.Expire(ctx, s.eventsKey(taskID), s.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = &task
		return nil
	}

	for attempt := range s.maxRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		log.Debug(ctx, "task update conflict, retrying", "task_id", taskID, "attempt", attempt+1)
	}
	return nil, fmt.Errorf("task %s: update conflicted %d times", taskID, s.maxRetries)
}

// Get implements [taskstore.Store] interface.
func (s *Store) Get(ctx context.Context, taskID a2a.TaskID, historyLength int) (*a2a.Task, error) {
	data, err := s.client.Get(ctx, s.taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, a2a.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	var task a2a.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	taskstore.TrimHistory(&task, historyLength)
	return &task, nil
}

// Events returns the updates recorded for the task, oldest first.
func (s *Store) Events(ctx context.Context, taskID a2a.TaskID) ([]a2a.Event, error) {
	raw, err := s.client.LRange(ctx, s.eventsKey(taskID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]a2a.Event, 0, len(raw))
	for _, r := range raw {
		var sr a2a.StreamResponse
		if err := json.Unmarshal([]byte(r), &sr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, sr.Event)
	}
	return events, nil
}

func encodeEvents(taskID a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) ([]any, error) {
	events := []a2a.Event{a2a.NewStatusUpdateEvent(taskID, status, false)}
	for _, artifact := range artifacts {
		events = append(events, a2a.NewArtifactUpdateEvent(taskID, artifact))
	}

	result := make([]any, len(events))
	for i, event := range events {
		data, err := json.Marshal(a2a.StreamResponse{Event: event})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event: %w", err)
		}
		result[i] = data
	}
	return result, nil
}
