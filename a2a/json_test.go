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

package a2a

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustMarshal(t *testing.T, data any) string {
	t.Helper()
	bytes, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Marshal() failed with: %v", err)
	}
	return string(bytes)
}

func mustUnmarshal(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("Unmarshal() failed with: %v", err)
	}
}

func TestContentPartsJSONCodec(t *testing.T) {
	parts := ContentParts{
		NewTextPart("hello, world"),
		NewDataPart(map[string]any{"foo": "bar"}),
		NewFileURIPart("cat.png", "image/png", "https://cats.com/1.png"),
		NewFileBytesPart("raw.bin", "application/octet-stream", []byte{0xFF, 0xFE}),
		TextPart{Text: "42", Metadata: map[string]any{"foo": "bar"}},
	}

	jsons := []string{
		`{"type":"text","text":"hello, world"}`,
		`{"type":"data","data":{"foo":"bar"}}`,
		`{"type":"file","file":{"name":"cat.png","mimeType":"image/png","uri":"https://cats.com/1.png"}}`,
		`{"type":"file","file":{"name":"raw.bin","mimeType":"application/octet-stream","bytes":"//4="}}`,
		`{"type":"text","text":"42","metadata":{"foo":"bar"}}`,
	}

	wantJSON := fmt.Sprintf("[%s]", strings.Join(jsons, ","))
	if got := mustMarshal(t, parts); got != wantJSON {
		t.Fatalf("Marshal() failed:\nwant %v\ngot: %s", wantJSON, got)
	}

	var got ContentParts
	mustUnmarshal(t, []byte(wantJSON), &got)
	if diff := cmp.Diff(parts, got); diff != "" {
		t.Fatalf("Unmarshal() wrong result (-want +got):\n%s", diff)
	}
}

func TestContentPartsUnknownType(t *testing.T) {
	raw := `[{"type":"video","stream":"rtsp://cam"},{"type":"text","text":"hi"}]`

	var got ContentParts
	mustUnmarshal(t, []byte(raw), &got)

	if len(got) != 2 {
		t.Fatalf("Unmarshal() got %d parts, want 2", len(got))
	}
	unknown, ok := got[0].(UnknownPart)
	if !ok {
		t.Fatalf("Unmarshal() part[0] = %T, want UnknownPart", got[0])
	}
	if unknown.Type() != "video" {
		t.Fatalf("UnknownPart.Type() = %q, want video", unknown.Type())
	}
	if encoded := mustMarshal(t, got); encoded != raw {
		t.Fatalf("Marshal() = %s, want %s", encoded, raw)
	}
}

func TestFilePartValidation(t *testing.T) {
	testCases := []struct {
		name string
		json string
	}{
		{name: "no content", json: `[{"type":"file","file":{"name":"a"}}]`},
		{name: "bytes and uri", json: `[{"type":"file","file":{"bytes":"AA==","uri":"http://x"}}]`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got ContentParts
			if err := json.Unmarshal([]byte(tc.json), &got); err == nil {
				t.Fatalf("Unmarshal() error = nil, want error for %s", tc.json)
			}
		})
	}
}

func TestFileContentDecode(t *testing.T) {
	part := NewFileBytesPart("a.txt", "text/plain", []byte("content"))
	got, err := part.File.Decode()
	if err != nil {
		t.Fatalf("Decode() failed with: %v", err)
	}
	if string(got) != "content" {
		t.Fatalf("Decode() = %q, want content", got)
	}
	if _, err := NewFileURIPart("b", "", "http://x").File.Decode(); err == nil {
		t.Fatal("Decode() error = nil for uri file, want error")
	}
}

func TestStreamResponseJSONCodec(t *testing.T) {
	events := []Event{
		NewStatusUpdateEvent("t1", TaskStatus{State: TaskStateWorking}, false),
		NewArtifactUpdateEvent("t1", &Artifact{Parts: ContentParts{NewTextPart("out")}}),
		NewStatusUpdateEvent("t1", TaskStatus{State: TaskStateCompleted}, true),
	}

	for _, event := range events {
		encoded := mustMarshal(t, StreamResponse{Event: event})

		var decoded StreamResponse
		mustUnmarshal(t, []byte(encoded), &decoded)
		if diff := cmp.Diff(event, decoded.Event); diff != "" {
			t.Fatalf("round trip of %s wrong result (-want +got):\n%s", encoded, diff)
		}
	}
}

func TestStreamResponseUnknownPayload(t *testing.T) {
	var sr StreamResponse
	if err := json.Unmarshal([]byte(`{"id":"t1","something":true}`), &sr); err == nil {
		t.Fatal("Unmarshal() error = nil, want error")
	}
}

func TestTaskJSON(t *testing.T) {
	task := &Task{
		ID:        "t1",
		SessionID: "s1",
		Status:    TaskStatus{State: TaskStateInputRequired},
		History:   []*Message{NewMessage(MessageRoleUser, NewTextPart("hi"))},
	}
	want := `{"id":"t1","sessionId":"s1","status":{"state":"input-required"},"history":[{"role":"user","parts":[{"type":"text","text":"hi"}]}]}`
	if got := mustMarshal(t, task); got != want {
		t.Fatalf("Marshal() failed:\nwant %v\ngot: %s", want, got)
	}
}
