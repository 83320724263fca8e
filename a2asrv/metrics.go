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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/a2aproject/a2a-delegate/a2a"
)

// Metrics holds the prometheus collectors updated by a [Dispatcher].
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	tasks      *prometheus.CounterVec
	events     *prometheus.CounterVec
	rejections *prometheus.CounterVec
	invocation *prometheus.HistogramVec
}

// NewMetrics creates dispatcher collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		tasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "a2a",
				Subsystem: "dispatcher",
				Name:      "tasks_total",
				Help:      "Tasks which reached a terminal or input-required state.",
			},
			[]string{"state"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "a2a",
				Subsystem: "dispatcher",
				Name:      "events_total",
				Help:      "Stream events emitted to consumers.",
			},
			[]string{"kind"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "a2a",
				Subsystem: "dispatcher",
				Name:      "rejections_total",
				Help:      "Requests rejected before the agent was invoked.",
			},
			[]string{"reason"},
		),
		invocation: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "a2a",
				Subsystem: "dispatcher",
				Name:      "invocation_seconds",
				Help:      "Duration of local agent invocations.",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
	}
}

func (m *Metrics) taskFinished(state a2a.TaskState) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(string(state)).Inc()
}

func (m *Metrics) eventEmitted(event a2a.Event) {
	if m == nil {
		return
	}
	kind := "status"
	if _, ok := event.(*a2a.TaskArtifactUpdateEvent); ok {
		kind = "artifact"
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) rejected(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "other"
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeInvocation(mode string, start time.Time) {
	if m == nil {
		return
	}
	m.invocation.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
