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

// Package jsonrpc provides the JSON-RPC 2.0 envelope and error mapping used by the
// task delegation protocol.
package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/a2aproject/a2a-delegate/a2a"
)

const (
	Version = "2.0"

	ContentJSON = "application/json"

	MethodTasksSend          = "tasks/send"
	MethodTasksSendSubscribe = "tasks/sendSubscribe"
	MethodTasksGet           = "tasks/get"
	MethodTasksCancel        = "tasks/cancel"
)

// Standard and protocol-specific error codes.
const (
	CodeParseError                   = -32700
	CodeInvalidRequest               = -32600
	CodeMethodNotFound               = -32601
	CodeInvalidParams                = -32602
	CodeInternalError                = -32603
	CodeServerBusy                   = -32000
	CodeTaskNotFound                 = -32001
	CodeTaskNotCancelable            = -32002
	CodePushNotificationNotSupported = -32003
	CodeUnsupportedOperation         = -32004
	CodeUnsupportedContentType       = -32005
	CodeInvalidAgentResponse         = -32006
)

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("jsonrpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

type codeMapping struct {
	code int
	err  error
}

// Sentinel errors are matched in order. A request for a task which already reached a
// terminal state is reported as invalid params.
var codeMappings = []codeMapping{
	{CodeParseError, a2a.ErrParseError},
	{CodeInvalidRequest, a2a.ErrInvalidRequest},
	{CodeMethodNotFound, a2a.ErrMethodNotFound},
	{CodeInvalidParams, a2a.ErrInvalidParams},
	{CodeInvalidParams, a2a.ErrTaskTerminal},
	{CodeInternalError, a2a.ErrInternalError},
	{CodeServerBusy, a2a.ErrServerBusy},
	{CodeTaskNotFound, a2a.ErrTaskNotFound},
	{CodeTaskNotCancelable, a2a.ErrTaskNotCancelable},
	{CodePushNotificationNotSupported, a2a.ErrPushNotificationNotSupported},
	{CodeUnsupportedOperation, a2a.ErrUnsupportedOperation},
	{CodeUnsupportedContentType, a2a.ErrUnsupportedContentType},
	{CodeInvalidAgentResponse, a2a.ErrInvalidAgentResponse},
}

// CodeOf returns the JSON-RPC code of the first sentinel error err matches.
func CodeOf(err error) (int, bool) {
	for _, m := range codeMappings {
		if errors.Is(err, m.err) {
			return m.code, true
		}
	}
	return 0, false
}

// ReasonTaskTerminal is the data reason which tells a task in a terminal state apart from
// other invalid params errors sharing the same code.
const ReasonTaskTerminal = "terminal_task"

func errorOf(code int, data map[string]any) error {
	if code == CodeInvalidParams && data["reason"] == ReasonTaskTerminal {
		return a2a.ErrTaskTerminal
	}
	for _, m := range codeMappings {
		if m.code == code {
			return m.err
		}
	}
	return a2a.ErrInternalError
}

// ToA2AError converts a JSON-RPC error to an [a2a.Error].
func (e *Error) ToA2AError() error {
	err := errorOf(e.Code, e.Data)

	msg := e.Message
	if len(msg) == 0 {
		msg = err.Error()
	}

	result := a2a.NewError(err, msg)
	if len(e.Data) > 0 {
		result = result.WithDetails(e.Data)
	}
	return result
}

// ToJSONRPCError converts an error to a JSON-RPC [Error].
func ToJSONRPCError(err error) *Error {
	jsonrpcErr := &Error{}
	if errors.As(err, &jsonrpcErr) {
		return jsonrpcErr
	}

	var a2aErr *a2a.Error
	if errors.As(err, &a2aErr) {
		code, ok := CodeOf(a2aErr.Err)
		if !ok {
			code = CodeInternalError
		}
		return &Error{Code: code, Message: a2aErr.Error(), Data: withReason(a2aErr.Err, a2aErr.Details)}
	}

	for _, m := range codeMappings {
		if errors.Is(err, m.err) {
			return &Error{
				Code:    m.code,
				Message: m.err.Error(),
				Data:    withReason(m.err, map[string]any{"error": err.Error()}),
			}
		}
	}
	return &Error{
		Code:    CodeInternalError,
		Message: a2a.ErrInternalError.Error(),
		Data:    map[string]any{"error": err.Error()},
	}
}

func withReason(err error, data map[string]any) map[string]any {
	if !errors.Is(err, a2a.ErrTaskTerminal) {
		return data
	}
	if _, ok := data["reason"]; ok {
		return data
	}
	result := maps.Clone(data)
	if result == nil {
		result = make(map[string]any, 1)
	}
	result["reason"] = ReasonTaskTerminal
	return result
}

// IsValidID checks if the given ID is valid for a JSON-RPC request.
func IsValidID(id any) bool {
	if id == nil {
		return true
	}
	switch id.(type) {
	case string, float64:
		return true
	default:
		return false
	}
}

// ServerRequest represents a JSON-RPC 2.0 server request.
type ServerRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

// ServerResponse represents a JSON-RPC 2.0 server response.
type ServerResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// NewResultResponse creates a successful response for the request id.
func NewResultResponse(id any, result any) ServerResponse {
	return ServerResponse{JSONRPC: Version, ID: id, Result: result}
}

// NewErrorResponse creates an error response for the request id.
func NewErrorResponse(id any, err error) ServerResponse {
	return ServerResponse{JSONRPC: Version, ID: id, Error: ToJSONRPCError(err)}
}

// ClientRequest represents a JSON-RPC 2.0 client request.
type ClientRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// ClientResponse represents a JSON-RPC 2.0 client response.
type ClientResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}
