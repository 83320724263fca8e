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

package a2aclient

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/a2aproject/a2a-delegate/a2a"
)

type namedTransport struct {
	fakeTransport
	name TransportProtocol
}

func transportFactory(name TransportProtocol, err error) TransportFactory {
	return TransportFactoryFn(func(ctx context.Context, card *a2a.AgentCard) (Transport, error) {
		if err != nil {
			return nil, err
		}
		return &namedTransport{name: name}, nil
	})
}

func connectedProtocol(t *testing.T, conn *Connection) TransportProtocol {
	t.Helper()
	nt, ok := conn.transport.(*namedTransport)
	if !ok {
		t.Fatalf("Connect() transport = %T, want *namedTransport", conn.transport)
	}
	return nt.name
}

var testCard = &a2a.AgentCard{Name: "agent", URL: "https://agent.com"}

func TestFactory_Defaults(t *testing.T) {
	f := NewFactory()
	if _, ok := f.transports[TransportProtocolJSONRPC]; !ok {
		t.Fatalf("NewFactory() transports = %v, want jsonrpc registered", f.transports)
	}

	conn, err := f.Connect(t.Context(), testCard, "")
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if _, ok := conn.transport.(*jsonrpcTransport); !ok {
		t.Fatalf("Connect() transport = %T, want JSON-RPC transport", conn.transport)
	}
}

func TestFactory_DefaultsDisabled(t *testing.T) {
	f := NewFactory(WithDefaultsDisabled())
	if len(f.transports) != 0 {
		t.Fatalf("NewFactory(WithDefaultsDisabled()) transports = %v, want none", f.transports)
	}
	if _, err := f.Connect(t.Context(), testCard, ""); err == nil {
		t.Fatal("Connect() error = nil, want an error without transports")
	}
}

func TestFactory_TransportSelection(t *testing.T) {
	createErr := errors.New("dial failed")
	testCases := []struct {
		name      string
		options   []FactoryOption
		protocol  TransportProtocol
		want      TransportProtocol
		wantError bool
	}{
		{
			name: "preferred order",
			options: []FactoryOption{
				WithTransport("grpc", transportFactory("grpc", nil)),
				WithTransport("jsonrpc", transportFactory("jsonrpc", nil)),
				WithPreferredTransports("grpc", "jsonrpc"),
			},
			want: "grpc",
		},
		{
			name: "fallback when preferred fails",
			options: []FactoryOption{
				WithTransport("grpc", transportFactory("grpc", createErr)),
				WithTransport("jsonrpc", transportFactory("jsonrpc", nil)),
				WithPreferredTransports("grpc", "jsonrpc"),
			},
			want: "jsonrpc",
		},
		{
			name: "unlisted transports tried last",
			options: []FactoryOption{
				WithTransport("custom", transportFactory("custom", nil)),
				WithTransport("jsonrpc", transportFactory("jsonrpc", createErr)),
			},
			want: "custom",
		},
		{
			name: "explicit protocol",
			options: []FactoryOption{
				WithTransport("grpc", transportFactory("grpc", nil)),
				WithTransport("jsonrpc", transportFactory("jsonrpc", nil)),
			},
			protocol: "jsonrpc",
			want:     "jsonrpc",
		},
		{
			name:      "unknown protocol",
			options:   []FactoryOption{WithTransport("jsonrpc", transportFactory("jsonrpc", nil))},
			protocol:  "websocket",
			wantError: true,
		},
		{
			name: "all transports fail",
			options: []FactoryOption{
				WithTransport("grpc", transportFactory("grpc", createErr)),
				WithTransport("jsonrpc", transportFactory("jsonrpc", createErr)),
			},
			wantError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFactory(append([]FactoryOption{WithDefaultsDisabled()}, tc.options...)...)
			conn, err := f.Connect(t.Context(), testCard, tc.protocol)
			if tc.wantError {
				if err == nil {
					t.Fatalf("Connect() = %v, want an error", conn)
				}
				return
			}
			if err != nil {
				t.Fatalf("Connect() failed: %v", err)
			}
			if got := connectedProtocol(t, conn); got != tc.want {
				t.Fatalf("Connect() used %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFactory_AllFailuresReported(t *testing.T) {
	grpcErr, jsonErr := errors.New("grpc dial failed"), errors.New("http failed")
	f := NewFactory(
		WithDefaultsDisabled(),
		WithTransport("grpc", transportFactory("grpc", grpcErr)),
		WithTransport("jsonrpc", transportFactory("jsonrpc", jsonErr)),
	)

	_, err := f.Connect(t.Context(), testCard, "")
	if !errors.Is(err, grpcErr) || !errors.Is(err, jsonErr) {
		t.Fatalf("Connect() error = %v, want both transport errors", err)
	}
}

func TestFactory_NilCard(t *testing.T) {
	if _, err := NewFactory().Connect(t.Context(), nil, ""); err == nil {
		t.Fatal("Connect(nil) error = nil, want an error")
	}
}

func TestFactory_ConnectionOptions(t *testing.T) {
	observer := &recordingObserver{}
	f := NewFactory(WithDefaultsDisabled(), WithTransport("fake", transportFactory("fake", nil)), WithConnectionOptions(WithObserver(observer)))

	conn, err := f.Connect(t.Context(), testCard, "")
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if conn.observer != observer {
		t.Fatalf("Connect() observer = %v, want the configured one", conn.observer)
	}
	if conn.Card() != testCard {
		t.Fatalf("Connect() card = %v, want %v", conn.Card(), testCard)
	}
}

func TestFactory_WithAdditionalOptions(t *testing.T) {
	f1 := NewFactory(WithDefaultsDisabled(), WithTransport("jsonrpc", transportFactory("jsonrpc", nil)), WithPreferredTransports("jsonrpc"))
	f2 := WithAdditionalOptions(f1, WithTransport("grpc", transportFactory("grpc", nil)), WithPreferredTransports("grpc", "jsonrpc"))

	if len(f1.transports) != 1 {
		t.Fatalf("WithAdditionalOptions() modified the original factory transports: %v", f1.transports)
	}
	if diff := cmp.Diff([]TransportProtocol{"jsonrpc"}, f1.preferred); diff != "" {
		t.Fatalf("WithAdditionalOptions() modified the original preferred order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]TransportProtocol{"grpc", "jsonrpc"}, f2.candidates("")); diff != "" {
		t.Fatalf("extended factory candidates wrong (-want +got):\n%s", diff)
	}
}
