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

// Package sqlstore provides a [taskstore.Store] backed by a MySQL database.
// Tasks are stored as JSON documents in the task table; every applied update is
// additionally recorded in the task_event table.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2asrv/taskstore"
	"github.com/a2aproject/a2a-delegate/log"
)

// MaxIDLength is the longest task or session id the task table can hold.
const MaxIDLength = 64

// Schema contains the statements creating the tables used by [Store].
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS task (
		id VARCHAR(64) PRIMARY KEY,
		session_id VARCHAR(64) NOT NULL,
		state VARCHAR(32) NOT NULL,
		last_updated BIGINT NOT NULL,
		task_json JSON NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task_event (
		id VARCHAR(64) PRIMARY KEY,
		task_id VARCHAR(64) NOT NULL,
		type VARCHAR(32) NOT NULL,
		event_json JSON NOT NULL,
		INDEX (task_id)
	)`,
}

// Store is a [taskstore.Store] implementation using database/sql.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ taskstore.Store = (*Store)(nil)

// Option configures a [Store].
type Option func(*Store)

// WithClock overrides the time source used for the last_updated column.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a [Store] using the provided database handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMySQL opens a connection pool for the provided MySQL driver config and creates a [Store] using it.
func NewMySQL(cfg *mysql.Config, opts ...Option) (*Store, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}
	return New(sql.OpenDB(connector), opts...), nil
}

// CreateSchema creates the tables used by the store if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert implements [taskstore.Store] interface. The first writer wins; a duplicate key
// leaves the row untouched and reports zero affected rows.
func (s *Store) Upsert(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, bool, error) {
	if err := taskstore.ValidateParams(params); err != nil {
		return nil, false, err
	}
	if len(params.ID) > MaxIDLength || len(params.SessionID) > MaxIDLength {
		return nil, false, fmt.Errorf("%w: task and session ids must not exceed %d bytes", a2a.ErrInvalidParams, MaxIDLength)
	}

	task := a2a.NewSubmittedTask(params)
	taskJSON, err := json.Marshal(task)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal task: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
			INSERT INTO task (id, session_id, state, last_updated, task_json)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE id = id
		`, task.ID, task.SessionID, task.Status.State, s.now().UnixNano(), string(taskJSON))
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	stored, err := s.Get(ctx, params.ID, taskstore.FullHistory)
	if err != nil {
		return nil, false, err
	}
	return stored, rows == 1, nil
}

// Update implements [taskstore.Store] interface. The task row is locked for the duration of the transaction.
func (s *Store) Update(ctx context.Context, taskID a2a.TaskID, status a2a.TaskStatus, artifacts []*a2a.Artifact) (*a2a.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer rollbackTx(ctx, tx)

	var taskJSON string
	err = tx.QueryRowContext(ctx, "SELECT task_json FROM task WHERE id = ? FOR UPDATE", taskID).Scan(&taskJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, a2a.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	var task a2a.Task
	if err := json.Unmarshal([]byte(taskJSON), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if err := taskstore.ApplyUpdate(&task, status, artifacts); err != nil {
		return nil, err
	}

	updatedJSON, err := json.Marshal(&task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
			UPDATE task SET
				state = ?,
				last_updated = ?,
				task_json = ?
			WHERE id = ?
		`, task.Status.State, s.now().UnixNano(), string(updatedJSON), taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if err := insertEvent(ctx, tx, a2a.NewStatusUpdateEvent(taskID, status, false)); err != nil {
		return nil, err
	}
	for _, artifact := range artifacts {
		if err := insertEvent(ctx, tx, a2a.NewArtifactUpdateEvent(taskID, artifact)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &task, nil
}

// Get implements [taskstore.Store] interface.
func (s *Store) Get(ctx context.Context, taskID a2a.TaskID, historyLength int) (*a2a.Task, error) {
	var taskJSON string
	err := s.db.QueryRowContext(ctx, "SELECT task_json FROM task WHERE id = ?", taskID).Scan(&taskJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, a2a.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	var task a2a.Task
	if err := json.Unmarshal([]byte(taskJSON), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	taskstore.TrimHistory(&task, historyLength)
	return &task, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, event a2a.Event) error {
	eventJSON, err := json.Marshal(a2a.StreamResponse{Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	eventID := uuid.Must(uuid.NewV7()).String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO task_event (id, task_id, type, event_json)
		VALUES (?, ?, ?, ?)
	`, eventID, event.TaskID(), eventType(event), string(eventJSON))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func eventType(e a2a.Event) string {
	switch e.(type) {
	case *a2a.TaskStatusUpdateEvent:
		return "status-update"
	case *a2a.TaskArtifactUpdateEvent:
		return "artifact-update"
	default:
		return "unknown"
	}
}

func rollbackTx(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error(ctx, "failed to rollback transaction", err)
	}
}
