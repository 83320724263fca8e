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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/internal/jsonrpc"
	"github.com/a2aproject/a2a-delegate/internal/sse"
	"github.com/a2aproject/a2a-delegate/log"
)

type jsonrpcHandler struct {
	handler RequestHandler
	cfg     *TransportConfig
}

// NewJSONRPCHandler creates an [http.Handler] serving the task protocol over JSON-RPC 2.0.
// tasks/sendSubscribe responses are streamed as Server-Sent Events.
func NewJSONRPCHandler(handler RequestHandler, options ...TransportOption) http.Handler {
	return &jsonrpcHandler{handler: handler, cfg: NewTransportConfig(options...)}
}

func (h *jsonrpcHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if req.Method != http.MethodPost {
		h.writeJSONRPCError(ctx, rw, a2a.ErrInvalidRequest, nil)
		return
	}

	defer func() {
		if err := req.Body.Close(); err != nil {
			log.Error(ctx, "failed to close request body", err)
		}
	}()

	var payload jsonrpc.ServerRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		h.writeJSONRPCError(ctx, rw, handleUnmarshalError(err), nil)
		return
	}

	if !jsonrpc.IsValidID(payload.ID) {
		h.writeJSONRPCError(ctx, rw, a2a.ErrInvalidRequest, nil)
		return
	}

	if payload.JSONRPC != jsonrpc.Version {
		h.writeJSONRPCError(ctx, rw, a2a.ErrInvalidRequest, payload.ID)
		return
	}

	if err := h.cfg.Admit(); err != nil {
		log.Warn(ctx, "request rejected by limiter", "method", payload.Method)
		h.writeJSONRPCError(ctx, rw, err, payload.ID)
		return
	}

	if payload.Method == jsonrpc.MethodTasksSendSubscribe {
		h.handleStreamingRequest(ctx, rw, &payload)
	} else {
		h.handleRequest(ctx, rw, &payload)
	}
}

func (h *jsonrpcHandler) handleRequest(ctx context.Context, rw http.ResponseWriter, req *jsonrpc.ServerRequest) {
	defer func() {
		if r := recover(); r != nil {
			if h.cfg.PanicHandler == nil {
				panic(r)
			}
			if err := h.cfg.PanicHandler(r); err != nil {
				h.writeJSONRPCError(ctx, rw, err, req.ID)
			}
		}
	}()

	var result any
	var err error
	switch req.Method {
	case jsonrpc.MethodTasksSend:
		result, err = h.onSendTask(ctx, req.Params)
	case jsonrpc.MethodTasksGet:
		result, err = h.onGetTask(ctx, req.Params)
	case jsonrpc.MethodTasksCancel:
		result, err = h.onCancelTask(ctx, req.Params)
	case "":
		err = a2a.ErrInvalidRequest
	default:
		err = a2a.ErrMethodNotFound
	}

	if err != nil {
		h.writeJSONRPCError(ctx, rw, err, req.ID)
		return
	}

	rw.Header().Set("Content-Type", jsonrpc.ContentJSON)
	if err := json.NewEncoder(rw).Encode(jsonrpc.NewResultResponse(req.ID, result)); err != nil {
		log.Error(ctx, "failed to encode response", err)
	}
}

func (h *jsonrpcHandler) handleStreamingRequest(ctx context.Context, rw http.ResponseWriter, req *jsonrpc.ServerRequest) {
	sseWriter, err := sse.NewWriter(rw)
	if err != nil {
		h.writeJSONRPCError(ctx, rw, err, req.ID)
		return
	}

	sseWriter.WriteHeaders()

	sseChan, panicChan := make(chan []byte), make(chan error)
	requestCtx, cancelExecCtx := context.WithCancel(ctx)
	defer cancelExecCtx()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicChan <- fmt.Errorf("%v\n%s", r, debug.Stack())
			} else {
				close(sseChan)
			}
		}()
		eventSeqToSSEDataStream(requestCtx, req, sseChan, h.onSendTaskStream(requestCtx, req.Params))
	}()

	var keepAliveChan <-chan time.Time
	if h.cfg.KeepAliveInterval > 0 {
		keepAliveTicker := time.NewTicker(h.cfg.KeepAliveInterval)
		defer keepAliveTicker.Stop()
		keepAliveChan = keepAliveTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-panicChan:
			if h.cfg.PanicHandler == nil {
				panic(err)
			}
			data, ok := marshalJSONRPCError(req, h.cfg.PanicHandler(err))
			if !ok {
				log.Error(ctx, "failed to marshal error response", err)
				return
			}
			if err := sseWriter.WriteData(data); err != nil {
				log.Error(ctx, "failed to write an event", err)
			}
			return
		case <-keepAliveChan:
			if err := sseWriter.WriteKeepAlive(); err != nil {
				log.Error(ctx, "failed to write keep-alive", err)
				return
			}
		case data, ok := <-sseChan:
			if !ok {
				return
			}
			if err := sseWriter.WriteData(data); err != nil {
				log.Error(ctx, "failed to write an event", err)
				return
			}
		}
	}
}

func eventSeqToSSEDataStream(ctx context.Context, req *jsonrpc.ServerRequest, sseChan chan []byte, events iter.Seq2[a2a.Event, error]) {
	send := func(data []byte) bool {
		select {
		case <-ctx.Done():
			return false
		case sseChan <- data:
			return true
		}
	}
	handleError := func(err error) {
		data, ok := marshalJSONRPCError(req, err)
		if !ok {
			log.Error(ctx, "failed to marshal error response", err)
			return
		}
		send(data)
	}

	for event, err := range events {
		if err != nil {
			handleError(err)
			return
		}

		data, err := json.Marshal(jsonrpc.NewResultResponse(req.ID, a2a.StreamResponse{Event: event}))
		if err != nil {
			handleError(err)
			return
		}
		if !send(data) {
			return
		}
	}
}

func (h *jsonrpcHandler) onSendTask(ctx context.Context, raw json.RawMessage) (*a2a.Task, error) {
	var params a2a.TaskSendParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.OnSendTask(ctx, &params)
}

func (h *jsonrpcHandler) onSendTaskStream(ctx context.Context, raw json.RawMessage) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		var params a2a.TaskSendParams
		if err := json.Unmarshal(raw, &params); err != nil {
			yield(nil, handleUnmarshalError(err))
			return
		}
		for event, err := range h.handler.OnSendTaskStream(ctx, &params) {
			if !yield(event, err) {
				return
			}
		}
	}
}

func (h *jsonrpcHandler) onGetTask(ctx context.Context, raw json.RawMessage) (*a2a.Task, error) {
	var params a2a.TaskQueryParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.OnGetTask(ctx, &params)
}

func (h *jsonrpcHandler) onCancelTask(ctx context.Context, raw json.RawMessage) (*a2a.Task, error) {
	var params a2a.TaskIDParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, handleUnmarshalError(err)
	}
	return h.handler.OnCancelTask(ctx, &params)
}

func marshalJSONRPCError(req *jsonrpc.ServerRequest, err error) ([]byte, bool) {
	data, err := json.Marshal(jsonrpc.NewErrorResponse(req.ID, err))
	if err != nil {
		return nil, false
	}
	return data, true
}

func handleUnmarshalError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", a2a.ErrInvalidParams, err)
	}
	return fmt.Errorf("%w: %w", a2a.ErrParseError, err)
}

func (h *jsonrpcHandler) writeJSONRPCError(ctx context.Context, rw http.ResponseWriter, err error, reqID any) {
	rw.Header().Set("Content-Type", jsonrpc.ContentJSON)
	if err := json.NewEncoder(rw).Encode(jsonrpc.NewErrorResponse(reqID, err)); err != nil {
		log.Error(ctx, "failed to send error response", err)
	}
}
