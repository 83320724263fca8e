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

package utils

import (
	"testing"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/google/go-cmp/cmp"
)

func TestDeepCopy(t *testing.T) {
	task := &a2a.Task{
		ID:      "t1",
		Status:  a2a.TaskStatus{State: a2a.TaskStateWorking},
		History: []*a2a.Message{a2a.NewMessage(a2a.MessageRoleUser, a2a.NewTextPart("hi"))},
		Artifacts: []*a2a.Artifact{
			{Parts: a2a.ContentParts{a2a.NewDataPart(map[string]any{"k": "v"})}},
		},
		Metadata: map[string]any{"a": "b"},
	}

	got, err := DeepCopy(task)
	if err != nil {
		t.Fatalf("DeepCopy() failed with: %v", err)
	}
	if diff := cmp.Diff(task, got); diff != "" {
		t.Fatalf("DeepCopy() wrong result (-want +got):\n%s", diff)
	}

	got.History[0].SetMeta("x", "y")
	got.Metadata["a"] = "c"
	if task.History[0].Metadata != nil || task.Metadata["a"] != "b" {
		t.Fatal("DeepCopy() result shares memory with the source")
	}
}

func TestPtr(t *testing.T) {
	v := 3
	p := Ptr(v)
	*p = 4
	if v != 3 {
		t.Fatalf("Ptr() aliases its argument")
	}
}
