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

	"google.golang.org/grpc"

	"github.com/a2aproject/a2a-delegate/a2a"
)

// ServiceName is the fully qualified name of the gRPC service.
const ServiceName = "a2a.v0.A2AService"

const (
	sendTaskMethod          = "/" + ServiceName + "/SendTask"
	sendTaskStreamingMethod = "/" + ServiceName + "/SendTaskStreaming"
	getTaskMethod           = "/" + ServiceName + "/GetTask"
	cancelTaskMethod        = "/" + ServiceName + "/CancelTask"
)

// Server is the server API of the A2AService.
type Server interface {
	SendTask(context.Context, *a2a.TaskSendParams) (*a2a.Task, error)
	SendTaskStreaming(*a2a.TaskSendParams, grpc.ServerStreamingServer[a2a.StreamResponse]) error
	GetTask(context.Context, *a2a.TaskQueryParams) (*a2a.Task, error)
	CancelTask(context.Context, *a2a.TaskIDParams) (*a2a.Task, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendTask", Handler: unaryHandler(sendTaskMethod, Server.SendTask)},
		{MethodName: "GetTask", Handler: unaryHandler(getTaskMethod, Server.GetTask)},
		{MethodName: "CancelTask", Handler: unaryHandler(cancelTaskMethod, Server.CancelTask)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "SendTaskStreaming", Handler: sendTaskStreamingHandler, ServerStreams: true},
	},
	Metadata: "a2a/v0/a2a.proto",
}

var sendTaskStreamingDesc = grpc.StreamDesc{StreamName: "SendTaskStreaming", ServerStreams: true}

func unaryHandler[Req any](fullMethod string, call func(Server, context.Context, *Req) (*a2a.Task, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(Server), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(Server), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func sendTaskStreamingHandler(srv any, stream grpc.ServerStream) error {
	in := new(a2a.TaskSendParams)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(Server).SendTaskStreaming(in, &grpc.GenericServerStream[a2a.TaskSendParams, a2a.StreamResponse]{ServerStream: stream})
}
