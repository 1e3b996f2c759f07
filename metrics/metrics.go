/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package metrics exposes Prometheus collectors for the instrumentation
// layer. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dirpx.dev/phetio/apis"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "phetio"

// Metrics holds all collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Instance registry
	InstancesActive  prometheus.Gauge
	InstancesPending prometheus.Gauge
	Registrations    *prometheus.CounterVec

	// Event stream
	EventsStarted       *prometheus.CounterVec
	EventsSuppressed    *prometheus.CounterVec
	UnbalancedDisposals prometheus.Counter

	// Dynamic elements
	GroupElements *prometheus.GaugeVec

	// State
	RestorePasses prometheus.Histogram
	RestoreErrors *prometheus.CounterVec
}

// New creates collectors under namespace (DefaultNamespace if empty).
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		InstancesActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instances_active",
			Help:      "Number of instrumented instances currently registered",
		}),
		InstancesPending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instances_pending",
			Help:      "Number of instances waiting for launch",
		}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Instance registry transitions",
		}, []string{"op"}),

		EventsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_started_total",
			Help:      "Data stream events emitted to the sink",
		}, []string{"event_type"}),
		EventsSuppressed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_suppressed_total",
			Help:      "Events pushed as sentinel frames without reaching the sink",
		}, []string{"reason"}),
		UnbalancedDisposals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unbalanced_disposals_total",
			Help:      "Objects disposed with events still open",
		}),

		GroupElements: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "group_elements",
			Help:      "Live elements per dynamic element container",
		}, []string{"container"}),

		RestorePasses: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "restore_passes",
			Help:      "Passes needed to restore a state snapshot",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50},
		}),
		RestoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_errors_total",
			Help:      "Failed state restorations",
		}, []string{"kind"}),
	}
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetInstances records the instance registry population.
func (m *Metrics) SetInstances(active, pending int) {
	if m == nil {
		return
	}
	m.InstancesActive.Set(float64(active))
	m.InstancesPending.Set(float64(pending))
}

// Registered counts a registry transition ("pending", "added", "removed").
func (m *Metrics) Registered(op string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(op).Inc()
}

// EventStarted counts an emitted event.
func (m *Metrics) EventStarted(t apis.EventType) {
	if m == nil {
		return
	}
	m.EventsStarted.WithLabelValues(t.String()).Inc()
}

// EventSuppressed counts a sentinel frame.
func (m *Metrics) EventSuppressed(reason string) {
	if m == nil {
		return
	}
	m.EventsSuppressed.WithLabelValues(reason).Inc()
}

// UnbalancedDispose counts an object disposed with open events.
func (m *Metrics) UnbalancedDispose() {
	if m == nil {
		return
	}
	m.UnbalancedDisposals.Inc()
}

// SetGroupElements records the live element count of a container.
func (m *Metrics) SetGroupElements(container string, n int) {
	if m == nil {
		return
	}
	m.GroupElements.WithLabelValues(container).Set(float64(n))
}

// RestoreFinished records a restoration attempt. kind is empty on success.
func (m *Metrics) RestoreFinished(passes int, kind string) {
	if m == nil {
		return
	}
	m.RestorePasses.Observe(float64(passes))
	if kind != "" {
		m.RestoreErrors.WithLabelValues(kind).Inc()
	}
}
