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

package grpcutil

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/a2aproject/a2a-delegate/a2a"
)

func TestToGRPCError(t *testing.T) {
	wrappedTaskNotFound := fmt.Errorf("wrapping: %w", a2a.ErrTaskNotFound)
	unknownError := errors.New("some unknown error")
	grpcError := status.Error(codes.AlreadyExists, "already there")

	tests := []struct {
		name       string
		err        error
		wantCode   codes.Code
		wantMsg    string
		wantReason string
	}{
		{name: "ErrTaskNotFound", err: a2a.ErrTaskNotFound, wantCode: codes.NotFound, wantMsg: a2a.ErrTaskNotFound.Error(), wantReason: "TASK_NOT_FOUND"},
		{name: "wrapped ErrTaskNotFound", err: wrappedTaskNotFound, wantCode: codes.NotFound, wantMsg: wrappedTaskNotFound.Error(), wantReason: "TASK_NOT_FOUND"},
		{name: "ErrTaskNotCancelable", err: a2a.ErrTaskNotCancelable, wantCode: codes.FailedPrecondition, wantMsg: a2a.ErrTaskNotCancelable.Error(), wantReason: "TASK_NOT_CANCELABLE"},
		{name: "ErrPushNotificationNotSupported", err: a2a.ErrPushNotificationNotSupported, wantCode: codes.Unimplemented, wantMsg: a2a.ErrPushNotificationNotSupported.Error(), wantReason: "PUSH_NOTIFICATION_NOT_SUPPORTED"},
		{name: "ErrUnsupportedContentType", err: a2a.ErrUnsupportedContentType, wantCode: codes.InvalidArgument, wantMsg: a2a.ErrUnsupportedContentType.Error(), wantReason: "UNSUPPORTED_CONTENT_TYPE"},
		{name: "ErrTaskTerminal", err: a2a.ErrTaskTerminal, wantCode: codes.InvalidArgument, wantMsg: a2a.ErrTaskTerminal.Error(), wantReason: "TASK_TERMINAL"},
		{name: "ErrServerBusy", err: a2a.ErrServerBusy, wantCode: codes.ResourceExhausted, wantMsg: a2a.ErrServerBusy.Error(), wantReason: "SERVER_BUSY"},
		{name: "ErrInvalidAgentResponse", err: a2a.ErrInvalidAgentResponse, wantCode: codes.Internal, wantMsg: a2a.ErrInvalidAgentResponse.Error(), wantReason: "INVALID_AGENT_RESPONSE"},
		{name: "context canceled", err: context.Canceled, wantCode: codes.Canceled, wantMsg: context.Canceled.Error(), wantReason: "CANCELED"},
		{name: "context deadline exceeded", err: context.DeadlineExceeded, wantCode: codes.DeadlineExceeded, wantMsg: context.DeadlineExceeded.Error(), wantReason: "DEADLINE_EXCEEDED"},
		{name: "unknown error", err: unknownError, wantCode: codes.Internal, wantMsg: unknownError.Error()},
		{name: "a2a error unwrapped", err: a2a.NewError(a2a.ErrInvalidParams, "custom message"), wantCode: codes.InvalidArgument, wantMsg: "custom message", wantReason: "INVALID_PARAMS"},
		{name: "structpb conversion failure", err: a2a.NewError(errors.New("bad details"), "oops").WithDetails(map[string]any{"func": func() {}}), wantCode: codes.Internal, wantMsg: "oops"},
		{name: "already a grpc error", err: grpcError, wantCode: codes.AlreadyExists, wantMsg: "already there"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(ToGRPCError(tt.err))
			if !ok {
				t.Fatalf("ToGRPCError() did not return a status error")
			}
			if st.Code() != tt.wantCode || st.Message() != tt.wantMsg {
				t.Fatalf("ToGRPCError() = %v %q, want %v %q", st.Code(), st.Message(), tt.wantCode, tt.wantMsg)
			}

			var gotReason string
			for _, d := range st.Details() {
				if info, ok := d.(*errdetails.ErrorInfo); ok {
					if info.GetDomain() != ErrorDomain {
						t.Fatalf("ToGRPCError() ErrorInfo domain = %q, want %q", info.GetDomain(), ErrorDomain)
					}
					gotReason = info.GetReason()
				}
			}
			if gotReason != tt.wantReason {
				t.Fatalf("ToGRPCError() reason = %q, want %q", gotReason, tt.wantReason)
			}
		})
	}

	if ToGRPCError(nil) != nil {
		t.Fatal("ToGRPCError(nil) != nil")
	}
}

func TestFromGRPCError(t *testing.T) {
	testDetails := map[string]any{"reason": "test"}
	stDetails, err := structpb.NewStruct(testDetails)
	if err != nil {
		t.Fatalf("Failed to create structpb: %v", err)
	}
	stWithDetails, err := status.New(codes.NotFound, "not found").WithDetails(stDetails)
	if err != nil {
		t.Fatalf("Failed to attach details: %v", err)
	}
	foreignInfo, err := status.New(codes.InvalidArgument, "bad").WithDetails(&errdetails.ErrorInfo{Reason: "TASK_TERMINAL", Domain: "example.com"})
	if err != nil {
		t.Fatalf("Failed to attach details: %v", err)
	}

	tests := []struct {
		name        string
		err         error
		wantErr     error
		wantMsg     string
		wantDetails map[string]any
	}{
		{name: "NotFound -> ErrTaskNotFound", err: status.Error(codes.NotFound, "foo"), wantErr: a2a.ErrTaskNotFound, wantMsg: "foo"},
		{name: "ResourceExhausted -> ErrServerBusy", err: status.Error(codes.ResourceExhausted, "busy"), wantErr: a2a.ErrServerBusy, wantMsg: "busy"},
		{name: "Unknown code -> ErrInternalError", err: status.Error(codes.Unknown, "unknown"), wantErr: a2a.ErrInternalError, wantMsg: "unknown"},
		{name: "with details", err: stWithDetails.Err(), wantErr: a2a.ErrTaskNotFound, wantMsg: "not found", wantDetails: testDetails},
		{name: "foreign ErrorInfo ignored", err: foreignInfo.Err(), wantErr: a2a.ErrInvalidParams, wantMsg: "bad"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FromGRPCError(tc.err)
			var a2aErr *a2a.Error
			if !errors.As(got, &a2aErr) {
				t.Fatalf("FromGRPCError() = %T, want *a2a.Error", got)
			}
			if !errors.Is(got, tc.wantErr) || a2aErr.Message != tc.wantMsg {
				t.Fatalf("FromGRPCError() = %v (%v), want %v %q", got, a2aErr.Err, tc.wantErr, tc.wantMsg)
			}
			if diff := cmp.Diff(tc.wantDetails, a2aErr.Details); diff != "" {
				t.Fatalf("FromGRPCError() wrong details (-want +got):\n%s", diff)
			}
		})
	}

	if FromGRPCError(nil) != nil {
		t.Fatal("FromGRPCError(nil) != nil")
	}
	plain := errors.New("simple error")
	if got := FromGRPCError(plain); got != plain {
		t.Fatalf("FromGRPCError(non-grpc) = %v, want it unchanged", got)
	}
}

func TestErrorRoundTrip(t *testing.T) {
	for _, mapping := range errorMappings {
		t.Run(mapping.reason, func(t *testing.T) {
			details := map[string]any{"taskId": "t1"}
			got := FromGRPCError(ToGRPCError(a2a.NewError(mapping.err, "boom").WithDetails(details)))

			if !errors.Is(got, mapping.err) {
				t.Fatalf("round trip = %v, want %v", got, mapping.err)
			}
			var a2aErr *a2a.Error
			if !errors.As(got, &a2aErr) {
				t.Fatalf("round trip = %T, want *a2a.Error", got)
			}
			if diff := cmp.Diff(details, a2aErr.Details); diff != "" {
				t.Fatalf("round trip wrong details (-want +got):\n%s", diff)
			}
		})
	}
}
