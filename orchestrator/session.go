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
	"sync"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/internal/utils"
)

var (
	// ErrSessionNotFound is returned by a [SessionStore] for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStoreClosed is returned by a [SessionStore] after Close.
	ErrStoreClosed = errors.New("session store is closed")
)

// Session is the caller-held continuity context spanning multiple dispatch calls.
// The orchestrator does not serialize dispatches sharing one Session.
type Session struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
	// Agent is the agent the last dispatch went to.
	Agent string `json:"agent,omitempty"`
	// TaskIDs holds the task in progress per agent. Entries are dropped once the task is terminal.
	TaskIDs map[string]a2a.TaskID `json:"taskIds,omitempty"`
	// InputMetadata is merged into the metadata of the next outgoing message.
	InputMetadata map[string]any `json:"inputMetadata,omitempty"`
}

// NewSession creates an inactive session without an id.
func NewSession() *Session {
	return &Session{TaskIDs: make(map[string]a2a.TaskID)}
}

// Begin marks the session active, minting an id for a new session.
// Calling Begin on an active session has no effect.
func (s *Session) Begin() {
	if s.Active {
		return
	}
	if s.ID == "" {
		s.ID = a2a.NewSessionID()
	}
	s.Active = true
}

// SessionStore persists sessions between dispatches. It is created and closed by
// whoever composes the orchestrator.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// InMemorySessionStore is a [SessionStore] keeping deep copies of sessions in memory.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

var _ SessionStore = (*InMemorySessionStore)(nil)

// NewInMemorySessionStore creates an empty [InMemorySessionStore].
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*Session)}
}

// Get implements [SessionStore].
func (s *InMemorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	stored, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return utils.DeepCopy(stored)
}

// Save implements [SessionStore].
func (s *InMemorySessionStore) Save(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return ErrMalformedRequest
	}
	stored, err := utils.DeepCopy(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.sessions[session.ID] = stored
	return nil
}

// Delete implements [SessionStore]. Deleting an unknown session is not an error.
func (s *InMemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.sessions, id)
	return nil
}

// Close implements [SessionStore]. Every stored session is dropped.
func (s *InMemorySessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.sessions = nil
	return nil
}
