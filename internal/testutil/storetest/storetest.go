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

// Package storetest contains behavior tests every [taskstore.Store] implementation must pass.
package storetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2asrv/taskstore"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/sync/errgroup"
)

// NewParams creates task send params with a single text message.
func NewParams(id a2a.TaskID, text string) *a2a.TaskSendParams {
	return &a2a.TaskSendParams{
		ID:        id,
		SessionID: "session-" + string(id),
		Message:   a2a.NewMessage(a2a.MessageRoleUser, a2a.NewTextPart(text)),
	}
}

// Run executes the store behavior tests against stores created by newStore.
func Run(t *testing.T, newStore func(t *testing.T) taskstore.Store) {
	t.Run("UpsertCreates", func(t *testing.T) { testUpsertCreates(t, newStore(t)) })
	t.Run("UpsertKeepsExisting", func(t *testing.T) { testUpsertKeepsExisting(t, newStore(t)) })
	t.Run("ConcurrentUpsert", func(t *testing.T) { testConcurrentUpsert(t, newStore(t)) })
	t.Run("UpdateStatusAndArtifacts", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateTaskNotFound", func(t *testing.T) { testUpdateNotFound(t, newStore(t)) })
	t.Run("UpdateAfterTerminal", func(t *testing.T) { testUpdateAfterTerminal(t, newStore(t)) })
	t.Run("TerminalStatusFinal", func(t *testing.T) { testTerminalStatusFinal(t, newStore(t)) })
	t.Run("GetTaskNotFound", func(t *testing.T) { testGetNotFound(t, newStore(t)) })
	t.Run("GetHistoryLength", func(t *testing.T) { testGetHistoryLength(t, newStore(t)) })
	t.Run("StoredImmutability", func(t *testing.T) { testStoredImmutability(t, newStore(t)) })
}

var ignoreTimestamps = cmpopts.IgnoreFields(a2a.TaskStatus{}, "Timestamp")

func mustUpsert(t *testing.T, store taskstore.Store, params *a2a.TaskSendParams) *a2a.Task {
	t.Helper()
	task, _, err := store.Upsert(t.Context(), params)
	if err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	return task
}

func mustUpdate(t *testing.T, store taskstore.Store, id a2a.TaskID, status a2a.TaskStatus, artifacts ...*a2a.Artifact) *a2a.Task {
	t.Helper()
	task, err := store.Update(t.Context(), id, status, artifacts)
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	return task
}

func testUpsertCreates(t *testing.T, store taskstore.Store) {
	params := NewParams("t1", "hello")

	got, created, err := store.Upsert(t.Context(), params)
	if err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if !created {
		t.Fatal("Upsert() created = false, want true")
	}

	want := &a2a.Task{
		ID:        "t1",
		SessionID: params.SessionID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted},
		History:   []*a2a.Message{params.Message},
	}
	if diff := cmp.Diff(want, got, ignoreTimestamps); diff != "" {
		t.Fatalf("Upsert() wrong result (-want +got):\n%s", diff)
	}
}

func testUpsertKeepsExisting(t *testing.T, store taskstore.Store) {
	first := NewParams("t1", "first")
	mustUpsert(t, store, first)
	mustUpdate(t, store, "t1", a2a.TaskStatus{State: a2a.TaskStateWorking})

	got, created, err := store.Upsert(t.Context(), NewParams("t1", "second"))
	if err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if created {
		t.Fatal("Upsert() created = true for an existing task")
	}
	if got.Status.State != a2a.TaskStateWorking {
		t.Fatalf("Upsert() state = %s, want %s", got.Status.State, a2a.TaskStateWorking)
	}
	if diff := cmp.Diff([]*a2a.Message{first.Message}, got.History); diff != "" {
		t.Fatalf("Upsert() modified history (-want +got):\n%s", diff)
	}
}

func testConcurrentUpsert(t *testing.T, store taskstore.Store) {
	const writers = 16

	var mu sync.Mutex
	created := 0
	var group errgroup.Group
	for i := range writers {
		group.Go(func() error {
			_, ok, err := store.Upsert(t.Context(), NewParams("shared", fmt.Sprintf("writer-%d", i)))
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
			return err
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if created != 1 {
		t.Fatalf("concurrent Upsert() created %d tasks, want 1", created)
	}

	task, err := store.Get(t.Context(), "shared", taskstore.FullHistory)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(task.History) != 1 {
		t.Fatalf("Get() history = %v, want the first writer message only", task.History)
	}
}

func testUpdate(t *testing.T, store taskstore.Store) {
	mustUpsert(t, store, NewParams("t1", "hello"))

	working := a2a.NewTaskStatus(a2a.TaskStateWorking, a2a.NewMessage(a2a.MessageRoleAgent, a2a.NewTextPart("step1")))
	mustUpdate(t, store, "t1", working)

	artifact := &a2a.Artifact{Parts: a2a.ContentParts{a2a.NewTextPart("done")}}
	completed := a2a.NewTaskStatus(a2a.TaskStateCompleted, a2a.NewMessage(a2a.MessageRoleAgent, a2a.NewTextPart("done")))
	got := mustUpdate(t, store, "t1", completed, artifact)

	if diff := cmp.Diff(completed, got.Status, ignoreTimestamps); diff != "" {
		t.Fatalf("Update() wrong status (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]*a2a.Artifact{artifact}, got.Artifacts); diff != "" {
		t.Fatalf("Update() wrong artifacts (-want +got):\n%s", diff)
	}

	stored, err := store.Get(t.Context(), "t1", taskstore.FullHistory)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if diff := cmp.Diff(got, stored, ignoreTimestamps); diff != "" {
		t.Fatalf("Get() differs from Update() result (-want +got):\n%s", diff)
	}
}

func testUpdateNotFound(t *testing.T, store taskstore.Store) {
	_, err := store.Update(t.Context(), "missing", a2a.TaskStatus{State: a2a.TaskStateWorking}, nil)
	if !errors.Is(err, a2a.ErrTaskNotFound) {
		t.Fatalf("Update() error = %v, want ErrTaskNotFound", err)
	}
}

func testUpdateAfterTerminal(t *testing.T, store taskstore.Store) {
	for _, terminal := range []a2a.TaskState{a2a.TaskStateCompleted, a2a.TaskStateCanceled, a2a.TaskStateFailed, a2a.TaskStateUnknown} {
		t.Run(string(terminal), func(t *testing.T) {
			id := a2a.TaskID("t-" + string(terminal))
			mustUpsert(t, store, NewParams(id, "hello"))
			mustUpdate(t, store, id, a2a.TaskStatus{State: terminal})

			_, err := store.Update(t.Context(), id, a2a.TaskStatus{State: a2a.TaskStateWorking}, nil)
			if !errors.Is(err, a2a.ErrTaskTerminal) {
				t.Fatalf("Update() error = %v, want ErrTaskTerminal", err)
			}

			got, err := store.Get(t.Context(), id, taskstore.FullHistory)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got.Status.State != terminal {
				t.Fatalf("Get() state = %s, want %s", got.Status.State, terminal)
			}
		})
	}
}

func testTerminalStatusFinal(t *testing.T, store taskstore.Store) {
	mustUpsert(t, store, NewParams("t1", "hello"))
	done := a2a.NewTaskStatus(a2a.TaskStateCompleted, a2a.NewMessage(a2a.MessageRoleAgent, a2a.NewTextPart("done")))
	mustUpdate(t, store, "t1", done)

	rewritten := a2a.NewTaskStatus(a2a.TaskStateCompleted, a2a.NewMessage(a2a.MessageRoleAgent, a2a.NewTextPart("rewritten")))
	if _, err := store.Update(t.Context(), "t1", rewritten, nil); !errors.Is(err, a2a.ErrTaskTerminal) {
		t.Fatalf("Update() error = %v, want ErrTaskTerminal", err)
	}

	got, err := store.Get(t.Context(), "t1", taskstore.FullHistory)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if diff := cmp.Diff(done, got.Status, ignoreTimestamps); diff != "" {
		t.Fatalf("Get() terminal status changed (-want +got):\n%s", diff)
	}
}

func testGetNotFound(t *testing.T, store taskstore.Store) {
	_, err := store.Get(t.Context(), "missing", taskstore.FullHistory)
	if !errors.Is(err, a2a.ErrTaskNotFound) {
		t.Fatalf("Get() error = %v, want ErrTaskNotFound", err)
	}
}

func testGetHistoryLength(t *testing.T, store taskstore.Store) {
	mustUpsert(t, store, NewParams("t1", "hello"))

	got, err := store.Get(t.Context(), "t1", 0)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(got.History) != 0 {
		t.Fatalf("Get(historyLength=0) history = %v, want empty", got.History)
	}
}

func testStoredImmutability(t *testing.T, store taskstore.Store) {
	task := mustUpsert(t, store, NewParams("t1", "hello"))

	task.Status.State = a2a.TaskStateFailed
	task.History[0].SetMeta("k", "v")

	got, err := store.Get(t.Context(), "t1", taskstore.FullHistory)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Status.State != a2a.TaskStateSubmitted {
		t.Fatalf("Get() state = %s, want the stored %s", got.Status.State, a2a.TaskStateSubmitted)
	}
	if got.History[0].Metadata != nil {
		t.Fatalf("Get() history metadata = %v, want unchanged", got.History[0].Metadata)
	}
}
