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

package redisstore

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2asrv/taskstore"
	"github.com/a2aproject/a2a-delegate/internal/testutil/storetest"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, opts...), mr
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) taskstore.Store {
		store, _ := newTestStore(t)
		return store
	})
}

func TestStore_KeyPrefix(t *testing.T) {
	store, mr := newTestStore(t, WithKeyPrefix("test:"))

	if _, _, err := store.Upsert(t.Context(), storetest.NewParams("t1", "hello")); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if !mr.Exists("test:t1") {
		t.Fatalf("key test:t1 not found, keys = %v", mr.Keys())
	}
}

func TestStore_TTL(t *testing.T) {
	store, mr := newTestStore(t, WithTTL(time.Minute))

	if _, _, err := store.Upsert(t.Context(), storetest.NewParams("t1", "hello")); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if ttl := mr.TTL(DefaultKeyPrefix + "t1"); ttl != time.Minute {
		t.Fatalf("TTL = %v, want %v", ttl, time.Minute)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(t.Context(), "t1", taskstore.FullHistory); err == nil {
		t.Fatal("Get() succeeded for an expired task")
	}
}

func TestStore_Events(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := t.Context()

	if _, _, err := store.Upsert(ctx, storetest.NewParams("t1", "hello")); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	working := a2a.TaskStatus{State: a2a.TaskStateWorking}
	artifact := &a2a.Artifact{Parts: a2a.ContentParts{a2a.NewTextPart("result")}}
	if _, err := store.Update(ctx, "t1", working, []*a2a.Artifact{artifact}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	got, err := store.Events(ctx, "t1")
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}
	want := []a2a.Event{
		a2a.NewStatusUpdateEvent("t1", working, false),
		a2a.NewArtifactUpdateEvent("t1", artifact),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Events() wrong result (-want +got):\n%s", diff)
	}
}

func TestStore_MaxRetries(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		store, _ := newTestStore(t, WithMaxRetries(n))
		if store.maxRetries != 1 {
			t.Fatalf("WithMaxRetries(%d) allows %d attempts, want 1", n, store.maxRetries)
		}
		if _, _, err := store.Upsert(t.Context(), storetest.NewParams("t1", "hello")); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
		if _, err := store.Update(t.Context(), "t1", a2a.TaskStatus{State: a2a.TaskStateWorking}, nil); err != nil {
			t.Fatalf("Update() with WithMaxRetries(%d) failed: %v", n, err)
		}
	}
}
