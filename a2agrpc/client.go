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
	"errors"
	"io"
	"iter"

	"google.golang.org/grpc"

	"github.com/a2aproject/a2a-delegate/a2a"
	"github.com/a2aproject/a2a-delegate/a2aclient"
	"github.com/a2aproject/a2a-delegate/internal/grpcutil"
)

// WithGRPCTransport registers a gRPC transport which dials the agent card URL as the
// gRPC target using the provided [grpc.DialOption]s.
func WithGRPCTransport(opts ...grpc.DialOption) a2aclient.FactoryOption {
	return a2aclient.WithTransport(
		a2aclient.TransportProtocolGRPC,
		a2aclient.TransportFactoryFn(func(ctx context.Context, card *a2a.AgentCard) (a2aclient.Transport, error) {
			conn, err := grpc.NewClient(card.URL, opts...)
			if err != nil {
				return nil, err
			}
			return NewTransport(conn), nil
		}),
	)
}

// NewTransport creates a transport which owns the connection. Destroy closes it.
func NewTransport(conn *grpc.ClientConn) a2aclient.Transport {
	return &grpcTransport{conn: conn, closeConnFn: conn.Close}
}

// NewTransportFromConn creates a transport over a connection managed externally.
// The transport's Destroy method is a no-op.
func NewTransportFromConn(conn grpc.ClientConnInterface) a2aclient.Transport {
	return &grpcTransport{conn: conn, closeConnFn: func() error { return nil }}
}

type grpcTransport struct {
	conn        grpc.ClientConnInterface
	closeConnFn func() error
}

var _ a2aclient.Transport = (*grpcTransport)(nil)

func (t *grpcTransport) SendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	return t.invoke(ctx, sendTaskMethod, params)
}

func (t *grpcTransport) SendTaskStreaming(ctx context.Context, params *a2a.TaskSendParams) iter.Seq2[a2a.Event, error] {
	return func(yield func(a2a.Event, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := t.conn.NewStream(ctx, &sendTaskStreamingDesc, sendTaskStreamingMethod, grpc.CallContentSubtype(CodecName))
		if err != nil {
			yield(nil, grpcutil.FromGRPCError(err))
			return
		}
		if err := stream.SendMsg(params); err != nil {
			yield(nil, grpcutil.FromGRPCError(err))
			return
		}
		if err := stream.CloseSend(); err != nil {
			yield(nil, grpcutil.FromGRPCError(err))
			return
		}

		for {
			var resp a2a.StreamResponse
			err := stream.RecvMsg(&resp)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, grpcutil.FromGRPCError(err))
				return
			}
			if !yield(resp.Event, nil) {
				return
			}
		}
	}
}

func (t *grpcTransport) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	return t.invoke(ctx, getTaskMethod, params)
}

func (t *grpcTransport) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	return t.invoke(ctx, cancelTaskMethod, params)
}

func (t *grpcTransport) Destroy() error {
	return t.closeConnFn()
}

// invoke returns a nil task when the agent replied with an empty message.
func (t *grpcTransport) invoke(ctx context.Context, method string, req any) (*a2a.Task, error) {
	var task *a2a.Task
	if err := t.conn.Invoke(ctx, method, req, &task, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, grpcutil.FromGRPCError(err)
	}
	return task, nil
}
