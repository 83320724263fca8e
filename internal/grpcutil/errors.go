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

// Package grpcutil provides gRPC utility functions for A2A.
package grpcutil

import (
	"context"
	"encoding/json"
	"errors"
	"maps"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/a2aproject/a2a-delegate/a2a"
)

// ErrorDomain is the ErrorInfo domain attached to every translated a2a error.
const ErrorDomain = "a2a-delegate"

var errorMappings = []struct {
	code   codes.Code
	reason string
	err    error
}{
	// Primary mappings (used for FromGRPCError as the first match is chosen)
	{codes.NotFound, "TASK_NOT_FOUND", a2a.ErrTaskNotFound},
	{codes.FailedPrecondition, "TASK_NOT_CANCELABLE", a2a.ErrTaskNotCancelable},
	{codes.Unimplemented, "UNSUPPORTED_OPERATION", a2a.ErrUnsupportedOperation},
	{codes.InvalidArgument, "INVALID_PARAMS", a2a.ErrInvalidParams},
	{codes.Internal, "INTERNAL_ERROR", a2a.ErrInternalError},
	{codes.ResourceExhausted, "SERVER_BUSY", a2a.ErrServerBusy},
	{codes.Canceled, "CANCELED", context.Canceled},
	{codes.DeadlineExceeded, "DEADLINE_EXCEEDED", context.DeadlineExceeded},

	// Secondary mappings (only matched by reason in FromGRPCError)
	{codes.InvalidArgument, "UNSUPPORTED_CONTENT_TYPE", a2a.ErrUnsupportedContentType},
	{codes.InvalidArgument, "INVALID_REQUEST", a2a.ErrInvalidRequest},
	{codes.InvalidArgument, "PARSE_ERROR", a2a.ErrParseError},
	{codes.InvalidArgument, "TASK_TERMINAL", a2a.ErrTaskTerminal},
	{codes.Unimplemented, "PUSH_NOTIFICATION_NOT_SUPPORTED", a2a.ErrPushNotificationNotSupported},
	{codes.Unimplemented, "METHOD_NOT_FOUND", a2a.ErrMethodNotFound},
	{codes.Internal, "INVALID_AGENT_RESPONSE", a2a.ErrInvalidAgentResponse},
}

// ToGRPCError translates a2a errors into gRPC status errors. The matched a2a error is
// identified by an ErrorInfo detail, structured [a2a.Error] details are sent as a Struct.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}

	// If it's already a gRPC status error, return it.
	if _, ok := status.FromError(err); ok {
		return err
	}

	code, reason := codes.Internal, ""
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.err) {
			code, reason = mapping.code, mapping.reason
			break
		}
	}

	st := status.New(code, err.Error())
	if reason != "" {
		if withInfo, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}); err == nil {
			st = withInfo
		}
	}

	var a2aErr *a2a.Error
	if errors.As(err, &a2aErr) && len(a2aErr.Details) > 0 {
		s, err := toStruct(a2aErr.Details)
		if err != nil {
			return st.Err()
		}

		withDetails, err := st.WithDetails(s)
		if err != nil {
			return st.Err()
		}
		st = withDetails
	}

	return st.Err()
}

// FromGRPCError translates gRPC errors into a2a errors.
func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return err
	}

	var reason string
	details := make(map[string]any)
	for _, d := range s.Details() {
		switch v := d.(type) {
		case *errdetails.ErrorInfo:
			if v.GetDomain() == ErrorDomain {
				reason = v.GetReason()
			}
		case *structpb.Struct:
			maps.Copy(details, v.AsMap())
		}
	}

	errOut := a2a.NewError(baseError(s.Code(), reason), s.Message())
	if len(details) > 0 {
		errOut = errOut.WithDetails(details)
	}
	return errOut
}

func baseError(code codes.Code, reason string) error {
	if reason != "" {
		for _, mapping := range errorMappings {
			if mapping.reason == reason {
				return mapping.err
			}
		}
	}
	for _, mapping := range errorMappings {
		if code == mapping.code {
			return mapping.err
		}
	}
	return a2a.ErrInternalError
}

// toStruct converts details to a Struct. Values structpb can not represent directly,
// such as typed slices, are normalized through their JSON form.
func toStruct(details map[string]any) (*structpb.Struct, error) {
	if s, err := structpb.NewStruct(details); err == nil {
		return s, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	var normalized map[string]any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	return structpb.NewStruct(normalized)
}
