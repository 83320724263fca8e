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

package agentcard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/a2aproject/a2a-delegate/a2a"
)

const cardJSON = `{"name":"calc","description":"Does math","url":"http://calc","version":"1.2.0","capabilities":{"streaming":true},"defaultInputModes":["text"],"defaultOutputModes":["text"],"skills":[{"id":"add","name":"Add"}]}`

var calcCard = &a2a.AgentCard{
	Name:               "calc",
	Description:        "Does math",
	URL:                "http://calc",
	Version:            "1.2.0",
	Capabilities:       a2a.AgentCapabilities{Streaming: true},
	DefaultInputModes:  []string{"text"},
	DefaultOutputModes: []string{"text"},
	Skills:             []a2a.AgentSkill{{ID: "add", Name: "Add"}},
}

// cardServer serves body at path and records the headers of the last request.
func cardServer(t *testing.T, path string, status int, body string) (string, *http.Header) {
	t.Helper()
	var captured http.Header
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL, &captured
}

func TestResolver_Resolve(t *testing.T) {
	testCases := []struct {
		name       string
		servePath  string
		status     int
		body       string
		baseSuffix string
		opts       []ResolveOption
		want       *a2a.AgentCard
		wantStatus int
		wantErr    bool
	}{
		{
			name:      "well-known path",
			servePath: defaultAgentCardPath,
			status:    http.StatusOK,
			body:      cardJSON,
			want:      calcCard,
		},
		{
			name:       "trailing slash in base url",
			servePath:  defaultAgentCardPath,
			status:     http.StatusOK,
			body:       cardJSON,
			baseSuffix: "/",
			want:       calcCard,
		},
		{
			name:      "custom path",
			servePath: "/cards/calc.json",
			status:    http.StatusOK,
			body:      cardJSON,
			opts:      []ResolveOption{WithPath("cards/calc.json")},
			want:      calcCard,
		},
		{
			name:       "card missing at the default path",
			servePath:  "/cards/calc.json",
			status:     http.StatusOK,
			body:       cardJSON,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "server error",
			servePath:  defaultAgentCardPath,
			status:     http.StatusServiceUnavailable,
			body:       "overloaded",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:      "malformed card",
			servePath: defaultAgentCardPath,
			status:    http.StatusOK,
			body:      "}{",
			wantErr:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			url, _ := cardServer(t, tc.servePath, tc.status, tc.body)

			got, err := NewResolver(nil).Resolve(t.Context(), url+tc.baseSuffix, tc.opts...)
			if tc.wantStatus != 0 {
				var statusErr *ErrStatusNotOK
				if !errors.As(err, &statusErr) || statusErr.StatusCode != tc.wantStatus {
					t.Fatalf("Resolve() error = %v, want status %d", err, tc.wantStatus)
				}
				return
			}
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Resolve() = %+v, want an error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Resolve() wrong card (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolver_Headers(t *testing.T) {
	url, captured := cardServer(t, defaultAgentCardPath, http.StatusOK, cardJSON)

	_, err := DefaultResolver.Resolve(t.Context(), url, WithRequestHeader("Authorization", "Bearer token"))
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got := captured.Get("Authorization"); got != "Bearer token" {
		t.Errorf("Authorization header = %q, want the provided one", got)
	}
	if got := captured.Get("Accept"); got != "application/json" {
		t.Errorf("Accept header = %q, want application/json", got)
	}
}

func TestResolver_ContextCanceled(t *testing.T) {
	url, _ := cardServer(t, defaultAgentCardPath, http.StatusOK, cardJSON)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := DefaultResolver.Resolve(ctx, url); !errors.Is(err, context.Canceled) {
		t.Fatalf("Resolve() error = %v, want context.Canceled", err)
	}
}
