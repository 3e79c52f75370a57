// Package metrics exposes pipeline counters and timings to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ayusman/mudra/internal/binding"
)

// Metrics holds every pipeline metric. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Frames processed by the pipeline
	Frames prometheus.Counter

	// Time spent in one frame pass
	FrameDuration prometheus.Histogram

	// Hands present in the last frame, by label
	HandsTracked *prometheus.GaugeVec

	// Event binding edges by binding and edge
	Edges *prometheus.CounterVec

	// Actuator calls by binding kind
	Dispatches *prometheus.CounterVec

	// Failed actuator calls by binding
	DispatchErrors *prometheus.CounterVec

	// Frame passes aborted by a panic
	FramePanics prometheus.Counter

	// Configuration reloads by result
	Reloads *prometheus.CounterVec
}

// New registers the pipeline metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Frames: f.NewCounter(prometheus.CounterOpts{
			Name: "mudra_frames_total",
			Help: "Total frames processed by the pipeline",
		}),

		FrameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mudra_frame_duration_seconds",
			Help:    "Duration of one pipeline pass, from snapshots to actuator calls",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}),

		HandsTracked: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mudra_hands_tracked",
			Help: "Whether a hand was present in the last frame, by label",
		}, []string{"hand"}),

		Edges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_binding_edges_total",
			Help: "Event binding transitions by binding and edge",
		}, []string{"binding", "edge"}),

		Dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_actuator_dispatches_total",
			Help: "Actuator calls by binding kind",
		}, []string{"kind"}),

		DispatchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_actuator_errors_total",
			Help: "Failed actuator calls by binding",
		}, []string{"binding"}),

		FramePanics: f.NewCounter(prometheus.CounterOpts{
			Name: "mudra_frame_panics_total",
			Help: "Frame passes aborted by a recovered panic",
		}),

		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_config_reloads_total",
			Help: "Configuration reloads by result",
		}, []string{"result"}), // result: "ok", "error"
	}
}

// ObserveFrame records one completed frame pass.
func (m *Metrics) ObserveFrame(d time.Duration, left, right bool) {
	if m == nil {
		return
	}
	m.Frames.Inc()
	m.FrameDuration.Observe(d.Seconds())
	m.HandsTracked.WithLabelValues("left").Set(gauge(left))
	m.HandsTracked.WithLabelValues("right").Set(gauge(right))
}

// IncrementPanic records a frame pass that panicked.
func (m *Metrics) IncrementPanic() {
	if m != nil {
		m.FramePanics.Inc()
	}
}

// IncrementReload records a configuration reload.
func (m *Metrics) IncrementReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Reloads.WithLabelValues(result).Inc()
}

// Dispatched implements binding.Observer.
func (m *Metrics) Dispatched(id string, kind binding.Kind, err error) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(string(kind)).Inc()
	if err != nil {
		m.DispatchErrors.WithLabelValues(id).Inc()
	}
}

// Edge implements binding.Observer.
func (m *Metrics) Edge(id string, edge binding.Edge) {
	if m != nil {
		m.Edges.WithLabelValues(id, string(edge)).Inc()
	}
}

func gauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
