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

package a2asrv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/internal/jsonrpc"
	"github.com/a2aproject/a2a-delegate/internal/sse"
	"github.com/a2aproject/a2a-delegate/internal/utils"
)

func newTestServer(t *testing.T, agent Agent, opts ...TransportOption) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewJSONRPCHandler(NewDispatcher(agent), opts...))
	t.Cleanup(server.Close)
	return server
}

func postRaw(t *testing.T, url, method string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("http.NewRequestWithContext() error = %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("client.Do() error = %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func call(t *testing.T, url, method string, params any) jsonrpc.ClientResponse {
	t.Helper()
	request := jsonrpc.ServerRequest{JSONRPC: jsonrpc.Version, Method: method, Params: mustMarshal(t, params), ID: "req-1"}
	resp := postRaw(t, url, http.MethodPost, mustMarshal(t, request))
	if ct := resp.Header.Get("Content-Type"); ct != jsonrpc.ContentJSON {
		t.Fatalf("Content-Type = %q, want %q", ct, jsonrpc.ContentJSON)
	}
	var payload jsonrpc.ClientResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decoder.Decode() error = %v", err)
	}
	return payload
}

func decodeTask(t *testing.T, resp jsonrpc.ClientResponse) *a2a.Task {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error response: %v", resp.Error)
	}
	var task a2a.Task
	if err := json.Unmarshal(resp.Result, &task); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return &task
}

func TestJSONRPC_SendAndGet(t *testing.T) {
	server := newTestServer(t, &fakeAgent{})

	sent := decodeTask(t, call(t, server.URL, jsonrpc.MethodTasksSend, newParams("t1", "ping")))
	if sent.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("tasks/send state = %s, want %s", sent.Status.State, a2a.TaskStateCompleted)
	}
	if got, _ := sent.Status.Message.Text(); got != "ping" {
		t.Fatalf("tasks/send answer = %q, want echo", got)
	}

	got := decodeTask(t, call(t, server.URL, jsonrpc.MethodTasksGet, &a2a.TaskQueryParams{ID: "t1", HistoryLength: utils.Ptr(0)}))
	if got.ID != "t1" || got.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("tasks/get = %+v, want the completed task", got)
	}
	if len(got.History) != 0 {
		t.Fatalf("tasks/get history = %v, want empty", got.History)
	}
}

func TestJSONRPC_ErrorCodes(t *testing.T) {
	server := newTestServer(t, &fakeAgent{contentTypes: []string{"text"}})
	decodeTask(t, call(t, server.URL, jsonrpc.MethodTasksSend, newParams("done", "hi")))

	incompatible := newParams("t2", "hi")
	incompatible.AcceptedOutputModes = []string{"audio/mp3"}

	testCases := []struct {
		name     string
		method   string
		params   any
		wantCode int
	}{
		{name: "task not found", method: jsonrpc.MethodTasksGet, params: &a2a.TaskQueryParams{ID: "missing"}, wantCode: jsonrpc.CodeTaskNotFound},
		{name: "not cancelable", method: jsonrpc.MethodTasksCancel, params: &a2a.TaskIDParams{ID: "done"}, wantCode: jsonrpc.CodeTaskNotCancelable},
		{name: "incompatible modes", method: jsonrpc.MethodTasksSend, params: incompatible, wantCode: jsonrpc.CodeUnsupportedContentType},
		{name: "terminal task", method: jsonrpc.MethodTasksSend, params: newParams("done", "again"), wantCode: jsonrpc.CodeInvalidParams},
		{name: "missing parts", method: jsonrpc.MethodTasksSend, params: &a2a.TaskSendParams{ID: "t3", Message: a2a.NewMessage(a2a.MessageRoleUser)}, wantCode: jsonrpc.CodeInvalidParams},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := call(t, server.URL, tc.method, tc.params)
			if resp.Error == nil {
				t.Fatalf("%s succeeded, want error code %d", tc.method, tc.wantCode)
			}
			if resp.Error.Code != tc.wantCode {
				t.Fatalf("error code = %d, want %d (%v)", resp.Error.Code, tc.wantCode, resp.Error)
			}
			if resp.ID != "req-1" {
				t.Fatalf("response id = %q, want req-1", resp.ID)
			}
		})
	}
}

func TestJSONRPC_IncompatibleModesDetails(t *testing.T) {
	server := newTestServer(t, &fakeAgent{contentTypes: []string{"text"}})
	params := newParams("t1", "hi")
	params.AcceptedOutputModes = []string{"audio/mp3"}

	resp := call(t, server.URL, jsonrpc.MethodTasksSend, params)
	if resp.Error == nil {
		t.Fatal("tasks/send succeeded, want error")
	}
	err := resp.Error.ToA2AError()
	if !errors.Is(err, a2a.ErrUnsupportedContentType) {
		t.Fatalf("ToA2AError() = %v, want ErrUnsupportedContentType", err)
	}
	if got := RejectionReason(err); got != reasonIncompatible {
		t.Fatalf("RejectionReason() = %q, want %q", got, reasonIncompatible)
	}
}

func TestJSONRPC_Validations(t *testing.T) {
	query := mustMarshal(t, &a2a.TaskQueryParams{ID: "t1"})
	testCases := []struct {
		name    string
		method  string
		request []byte
		wantErr error
	}{
		{
			name:    "http get",
			method:  http.MethodGet,
			request: mustMarshal(t, jsonrpc.ServerRequest{JSONRPC: "2.0", Method: jsonrpc.MethodTasksGet, Params: query}),
			wantErr: a2a.ErrInvalidRequest,
		},
		{
			name:    "http put",
			method:  http.MethodPut,
			request: mustMarshal(t, jsonrpc.ServerRequest{JSONRPC: "2.0", Method: jsonrpc.MethodTasksGet, Params: query}),
			wantErr: a2a.ErrInvalidRequest,
		},
		{
			name:    "malformed payload",
			method:  http.MethodPost,
			request: []byte(`{"jsonrpc":`),
			wantErr: a2a.ErrParseError,
		},
		{
			name:    "wrong version",
			method:  http.MethodPost,
			request: mustMarshal(t, jsonrpc.ServerRequest{JSONRPC: "1.0", Method: jsonrpc.MethodTasksGet, Params: query}),
			wantErr: a2a.ErrInvalidRequest,
		},
		{
			name:    "invalid id",
			method:  http.MethodPost,
			request: mustMarshal(t, jsonrpc.ServerRequest{JSONRPC: "2.0", Method: jsonrpc.MethodTasksGet, Params: query, ID: map[string]any{"k": 1}}),
			wantErr: a2a.ErrInvalidRequest,
		},
		{
			name:    "unknown method",
			method:  http.MethodPost,
			request: mustMarshal(t, jsonrpc.ServerRequest{JSONRPC: "2.0", Method: "message/send", Params: query}),
			wantErr: a2a.ErrMethodNotFound,
		},
		{
			name:    "missing method",
			method:  http.MethodPost,
			request: mustMarshal(t, jsonrpc.ServerRequest{JSONRPC: "2.0", Params: query}),
			wantErr: a2a.ErrInvalidRequest,
		},
		{
			name:    "params of wrong type",
			method:  http.MethodPost,
			request: mustMarshal(t, jsonrpc.ServerRequest{JSONRPC: "2.0", Method: jsonrpc.MethodTasksGet, Params: json.RawMessage("[]")}),
			wantErr: a2a.ErrInvalidParams,
		},
	}

	server := newTestServer(t, &fakeAgent{})
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postRaw(t, server.URL, tc.method, tc.request)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("resp.StatusCode = %d, want 200", resp.StatusCode)
			}
			var payload jsonrpc.ServerResponse
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				t.Fatalf("decoder.Decode() error = %v", err)
			}
			if payload.Error == nil {
				t.Fatalf("payload.Error = nil, want %v", tc.wantErr)
			}
			if err := payload.Error.ToA2AError(); !errors.Is(err, tc.wantErr) {
				t.Fatalf("payload.Error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestJSONRPC_RequestLimiter(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	server := newTestServer(t, &fakeAgent{}, WithRequestLimiter(limiter))

	decodeTask(t, call(t, server.URL, jsonrpc.MethodTasksSend, newParams("t1", "hi")))

	resp := call(t, server.URL, jsonrpc.MethodTasksGet, &a2a.TaskQueryParams{ID: "t1"})
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeServerBusy {
		t.Fatalf("second request error = %v, want code %d", resp.Error, jsonrpc.CodeServerBusy)
	}
}

func streamEvents(t *testing.T, url string, params *a2a.TaskSendParams) ([]a2a.Event, *jsonrpc.Error) {
	t.Helper()
	request := jsonrpc.ServerRequest{JSONRPC: jsonrpc.Version, Method: jsonrpc.MethodTasksSendSubscribe, Params: mustMarshal(t, params), ID: "req-1"}
	resp := postRaw(t, url, http.MethodPost, mustMarshal(t, request))
	if ct := resp.Header.Get("Content-Type"); ct != sse.ContentEventStream {
		t.Fatalf("Content-Type = %q, want %q", ct, sse.ContentEventStream)
	}

	var events []a2a.Event
	for data, err := range sse.ParseDataStream(resp.Body) {
		if err != nil {
			t.Fatalf("ParseDataStream() error = %v", err)
		}
		var payload jsonrpc.ClientResponse
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("json.Unmarshal() error = %v", err)
		}
		if payload.Error != nil {
			return events, payload.Error
		}
		var sr a2a.StreamResponse
		if err := json.Unmarshal(payload.Result, &sr); err != nil {
			t.Fatalf("json.Unmarshal() error = %v", err)
		}
		events = append(events, sr.Event)
	}
	return events, nil
}

func TestJSONRPC_SendSubscribe(t *testing.T) {
	agent := &fakeAgent{streamFn: updatesOf(
		AgentUpdate{Text: "step1"},
		AgentUpdate{Text: "step2"},
		AgentUpdate{Done: true, Text: "done"},
	)}
	server := newTestServer(t, agent)

	events, rpcErr := streamEvents(t, server.URL, newParams("t1", "work"))
	if rpcErr != nil {
		t.Fatalf("tasks/sendSubscribe error = %v", rpcErr)
	}
	if len(events) != 5 {
		t.Fatalf("tasks/sendSubscribe emitted %d events, want 5", len(events))
	}
	for i, event := range events[:4] {
		if event.IsFinal() {
			t.Fatalf("event %d is final, want only the last one", i)
		}
	}
	if _, ok := events[3].(*a2a.TaskArtifactUpdateEvent); !ok {
		t.Fatalf("event 3 = %T, want artifact update", events[3])
	}
	last, ok := events[4].(*a2a.TaskStatusUpdateEvent)
	if !ok || !last.Final || last.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("last event = %+v, want final completed status", events[4])
	}
}

func TestJSONRPC_SendSubscribeErrors(t *testing.T) {
	failing := &fakeAgent{streamFn: func(ctx context.Context, req AgentRequest) iter.Seq2[AgentUpdate, error] {
		return func(yield func(AgentUpdate, error) bool) {
			if yield(AgentUpdate{Text: "step1"}, nil) {
				yield(AgentUpdate{}, errors.New("tool crashed"))
			}
		}
	}}

	testCases := []struct {
		name       string
		agent      *fakeAgent
		params     *a2a.TaskSendParams
		wantEvents int
		wantCode   int
	}{
		{name: "agent error", agent: failing, params: newParams("t1", "hi"), wantEvents: 1, wantCode: jsonrpc.CodeInternalError},
		{
			name:     "validation error",
			agent:    &fakeAgent{streamFn: updatesOf()},
			params:   &a2a.TaskSendParams{ID: "t1", Message: a2a.NewMessage(a2a.MessageRoleUser, a2a.NewDataPart(map[string]any{}))},
			wantCode: jsonrpc.CodeInvalidParams,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(t, tc.agent)
			events, rpcErr := streamEvents(t, server.URL, tc.params)
			if len(events) != tc.wantEvents {
				t.Fatalf("events before error = %d, want %d", len(events), tc.wantEvents)
			}
			if rpcErr == nil || rpcErr.Code != tc.wantCode {
				t.Fatalf("stream error = %v, want code %d", rpcErr, tc.wantCode)
			}
		})
	}
}

func TestJSONRPC_StreamingKeepAlive(t *testing.T) {
	testCases := []struct {
		name        string
		options     []TransportOption
		wantEnabled bool
	}{
		{name: "default disabled"},
		{name: "zero for disabled", options: []TransportOption{WithTransportKeepAlive(0)}},
		{name: "positive for enabled", options: []TransportOption{WithTransportKeepAlive(5 * time.Millisecond)}, wantEnabled: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			agent := &fakeAgent{streamFn: func(ctx context.Context, req AgentRequest) iter.Seq2[AgentUpdate, error] {
				return func(yield func(AgentUpdate, error) bool) {
					time.Sleep(30 * time.Millisecond)
					yield(AgentUpdate{Done: true, Text: "done"}, nil)
				}
			}}
			server := newTestServer(t, agent, tc.options...)

			request := jsonrpc.ServerRequest{JSONRPC: "2.0", Method: jsonrpc.MethodTasksSendSubscribe, Params: mustMarshal(t, newParams("t1", "hi")), ID: 1}
			resp := postRaw(t, server.URL, http.MethodPost, mustMarshal(t, request))

			scanner := bufio.NewScanner(resp.Body)
			keepAlives := 0
			for scanner.Scan() {
				if scanner.Text() == ": keep-alive" {
					keepAlives++
				}
			}
			if tc.wantEnabled && keepAlives == 0 {
				t.Error("keep-alive enabled but none received")
			}
			if !tc.wantEnabled && keepAlives > 0 {
				t.Errorf("keep-alive disabled but received %d", keepAlives)
			}
		})
	}
}

func TestJSONRPC_PanicHandler(t *testing.T) {
	agent := &fakeAgent{invokeFn: func(ctx context.Context, req AgentRequest) (*AgentResult, error) {
		panic("agent exploded")
	}}
	server := newTestServer(t, agent, WithTransportPanicHandler(func(r any) error {
		return a2a.NewError(a2a.ErrInternalError, "recovered")
	}))

	resp := call(t, server.URL, jsonrpc.MethodTasksSend, newParams("t1", "hi"))
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeInternalError || resp.Error.Message != "recovered" {
		t.Fatalf("tasks/send error = %v, want recovered internal error", resp.Error)
	}
}

func mustMarshal(t *testing.T, data any) []byte {
	t.Helper()
	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return body
}
