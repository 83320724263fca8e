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

package a2agrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2asrv"
	"github.com/a2aproject/a2a-delegate/internal/grpcutil"
	"github.com/a2aproject/a2a-delegate/log"
)

// Handler implements the gRPC service and delegates the actual method handling to [a2asrv.RequestHandler].
type Handler struct {
	handler a2asrv.RequestHandler
	cfg     *a2asrv.TransportConfig
}

var _ Server = (*Handler)(nil)

// NewHandler is a [Handler] constructor function. Keep-alive options are ignored, gRPC
// connections are kept alive by the transport itself.
func NewHandler(handler a2asrv.RequestHandler, opts ...a2asrv.TransportOption) *Handler {
	return &Handler{handler: handler, cfg: a2asrv.NewTransportConfig(opts...)}
}

// RegisterWith registers as an A2AService implementation with the provided [grpc.ServiceRegistrar].
func (h *Handler) RegisterWith(s grpc.ServiceRegistrar) {
	s.RegisterService(&serviceDesc, h)
}

// SendTask implements [Server].
func (h *Handler) SendTask(ctx context.Context, params *a2a.TaskSendParams) (task *a2a.Task, err error) {
	if err := h.admit(ctx, "SendTask"); err != nil {
		return nil, err
	}
	defer h.recoverPanic(&err)

	task, err = h.handler.OnSendTask(ctx, params)
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}
	return task, nil
}

// SendTaskStreaming implements [Server].
func (h *Handler) SendTaskStreaming(params *a2a.TaskSendParams, stream grpc.ServerStreamingServer[a2a.StreamResponse]) (err error) {
	ctx := stream.Context()
	if err := h.admit(ctx, "SendTaskStreaming"); err != nil {
		return err
	}
	defer h.recoverPanic(&err)

	for event, err := range h.handler.OnSendTaskStream(ctx, params) {
		if err != nil {
			return grpcutil.ToGRPCError(err)
		}
		if err := stream.Send(&a2a.StreamResponse{Event: event}); err != nil {
			return status.Errorf(codes.Aborted, "failed to send response: %v", err)
		}
	}
	return nil
}

// GetTask implements [Server].
func (h *Handler) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (task *a2a.Task, err error) {
	if err := h.admit(ctx, "GetTask"); err != nil {
		return nil, err
	}
	defer h.recoverPanic(&err)

	task, err = h.handler.OnGetTask(ctx, params)
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}
	return task, nil
}

// CancelTask implements [Server].
func (h *Handler) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (task *a2a.Task, err error) {
	if err := h.admit(ctx, "CancelTask"); err != nil {
		return nil, err
	}
	defer h.recoverPanic(&err)

	task, err = h.handler.OnCancelTask(ctx, params)
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}
	return task, nil
}

func (h *Handler) admit(ctx context.Context, method string) error {
	if err := h.cfg.Admit(); err != nil {
		log.Warn(ctx, "request rejected by limiter", "method", method)
		return grpcutil.ToGRPCError(err)
	}
	return nil
}

func (h *Handler) recoverPanic(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if h.cfg.PanicHandler == nil {
		panic(r)
	}
	if handled := h.cfg.PanicHandler(r); handled != nil {
		*err = grpcutil.ToGRPCError(handled)
		return
	}
	*err = status.Error(codes.Internal, fmt.Sprintf("panic: %v", r))
}
