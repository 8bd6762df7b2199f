// Copyright 2019-2025 The Liqo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the progress of a simulation run as prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/simlir/simulation"
)

var registryLabels = []string{"kind", "name"}

// Recorder collects the progress of a simulation run on its own prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	date       prometheus.Gauge
	span       *prometheus.GaugeVec
	used       *prometheus.GaugeVec
	events     *prometheus.CounterVec
	exhaustion *prometheus.GaugeVec
}

var _ simulation.Recorder = &Recorder{}

// NewRecorder returns a recorder with every metric registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		date: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simlir_simulated_date_seconds",
			Help: "The simulated date, as a unix timestamp.",
		}),
		span: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "simlir_registry_span_addresses",
			Help: "The number of addresses held by a registry.",
		}, registryLabels),
		used: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "simlir_registry_used_addresses",
			Help: "The number of addresses a registry handed out or uses.",
		}, registryLabels),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simlir_activity_events_total",
			Help: "The number of activities performed, by kind of actor.",
		}, []string{"kind"}),
		exhaustion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "simlir_registry_exhaustion_date_seconds",
			Help: "The simulated date a registry ran out of space at, as a unix timestamp.",
		}, []string{"name"}),
	}
	r.registry.MustRegister(r.date, r.span, r.used, r.events, r.exhaustion)
	return r
}

// Registry returns the registry the metrics are collected on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveDate implements simulation.Recorder.
func (r *Recorder) ObserveDate(date time.Time) {
	r.date.Set(float64(date.Unix()))
}

// ObserveRegistry implements simulation.Recorder.
func (r *Recorder) ObserveRegistry(kind, name string, span, used uint64) {
	r.span.WithLabelValues(kind, name).Set(float64(span))
	r.used.WithLabelValues(kind, name).Set(float64(used))
}

// ObserveEvent implements simulation.Recorder.
func (r *Recorder) ObserveEvent(kind string) {
	r.events.WithLabelValues(kind).Inc()
}

// ObserveExhaustion implements simulation.Recorder.
func (r *Recorder) ObserveExhaustion(name string, date time.Time) {
	r.exhaustion.WithLabelValues(name).Set(float64(date.Unix()))
}

// Handler returns the http handler exposing the metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		// Opt into OpenMetrics to support exemplars.
		EnableOpenMetrics: true,
	})
}

// Serve exposes the metrics on address under /metrics, until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			klog.Errorf("Failed to stop the metrics server: %v", err)
		}
	}()

	klog.Infof("Starting the metrics server listening on %q", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
