// Package otpmetrics exposes Prometheus counters and gauges for the
// producer and consumer engines: folio reassembly outcomes, sequence
// errors, transform datagram throughput and peer visibility. It is
// grounded on facebook-time's ptp/sptp/stats PrometheusExporter
// (registry-per-process, promhttp.HandlerFor on a dedicated listener)
// generalized from that package's single-scrape external-process model
// to counters updated directly by the engine as events occur.
package otpmetrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/gauge the producer and consumer engines
// update. A nil *Metrics is valid and every method becomes a no-op, so
// callers that don't want metrics can simply not construct one.
type Metrics struct {
	registry *prometheus.Registry

	FoliosPromoted             *prometheus.CounterVec
	FoliosFlushed              *prometheus.CounterVec
	SequenceErrors             *prometheus.CounterVec
	TransformDatagramsSent     prometheus.Counter
	TransformDatagramsReceived prometheus.Counter
	PeersOnline                *prometheus.GaugeVec
}

// New constructs a Metrics bound to a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		FoliosPromoted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otp_folios_promoted_total",
			Help: "Folios promoted into a producer's authoritative point set, by set kind.",
		}, []string{"kind"}), // "full" or "delta"
		FoliosFlushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otp_folios_flushed_total",
			Help: "Folios evicted from the reassembly window without completing.",
		}, []string{"kind"}),
		SequenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otp_sequence_errors_total",
			Help: "Folio-number sequence-window rejections, by message kind.",
		}, []string{"kind"}),
		TransformDatagramsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otp_transform_datagrams_sent_total",
			Help: "Transform datagrams emitted by a producer engine.",
		}),
		TransformDatagramsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otp_transform_datagrams_received_total",
			Help: "Transform datagrams received by a consumer engine.",
		}),
		PeersOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "otp_peers_online",
			Help: "Peers currently in the Online visibility state, by role.",
		}, []string{"role"}), // "producer" or "consumer"
	}
	registry.MustRegister(
		m.FoliosPromoted,
		m.FoliosFlushed,
		m.SequenceErrors,
		m.TransformDatagramsSent,
		m.TransformDatagramsReceived,
		m.PeersOnline,
	)
	return m
}

// IncFoliosPromoted records a folio promotion of the given kind ("full" or
// "delta").
func (m *Metrics) IncFoliosPromoted(kind string) {
	if m == nil {
		return
	}
	m.FoliosPromoted.WithLabelValues(kind).Inc()
}

// IncFoliosFlushed records a best-effort partial-folio eviction.
func (m *Metrics) IncFoliosFlushed(kind string) {
	if m == nil {
		return
	}
	m.FoliosFlushed.WithLabelValues(kind).Inc()
}

// IncSequenceErrors records a folio rejected by the sequence window.
func (m *Metrics) IncSequenceErrors(kind string) {
	if m == nil {
		return
	}
	m.SequenceErrors.WithLabelValues(kind).Inc()
}

// IncTransformDatagramsSent records one emitted transform datagram.
func (m *Metrics) IncTransformDatagramsSent() {
	if m == nil {
		return
	}
	m.TransformDatagramsSent.Inc()
}

// IncTransformDatagramsReceived records one received transform datagram.
func (m *Metrics) IncTransformDatagramsReceived() {
	if m == nil {
		return
	}
	m.TransformDatagramsReceived.Inc()
}

// SetPeersOnline sets the current count of peers in the Online state for
// role ("producer" or "consumer").
func (m *Metrics) SetPeersOnline(role string, count int) {
	if m == nil {
		return
	}
	m.PeersOnline.WithLabelValues(role).Set(float64(count))
}

// Serve starts an HTTP server exposing /metrics on port, blocking the
// calling goroutine. Callers typically invoke it via `go metrics.Serve(port)`.
func (m *Metrics) Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
