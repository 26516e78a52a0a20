// Package metrics exposes prometheus collectors for the pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yolotrack"

// frame results
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the pipeline collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	frames        *prometheus.CounterVec
	detections    prometheus.Counter
	tracksCreated prometheus.Counter
	tracksPruned  prometheus.Counter
	frameSeconds  prometheus.Histogram
}

// New creates a new Metrics instance with its collectors registered.
// activeTracks is sampled at scrape time for the active tracks gauge and
// may be nil.
func New(activeTracks func() int) *Metrics {

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total frames processed by result",
		}, []string{"result"}),
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Total detections surviving suppression",
		}),
		tracksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_created_total",
			Help:      "Total tracks created",
		}),
		tracksPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_pruned_total",
			Help:      "Total tracks removed after exceeding max age",
		}),
		frameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_seconds",
			Help:      "Time spent post processing and tracking a frame",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
	}

	m.registry.MustRegister(m.frames, m.detections, m.tracksCreated,
		m.tracksPruned, m.frameSeconds)

	if activeTracks != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_tracks",
				Help:      "Tracks currently held across all streams",
			},
			func() float64 { return float64(activeTracks()) },
		))
	}

	// both result labels are exported from the start
	m.frames.WithLabelValues(ResultOK)
	m.frames.WithLabelValues(ResultError)

	return m
}

// ObserveFrame records a successfully processed frame
func (m *Metrics) ObserveFrame(d time.Duration, detections, created, pruned int) {
	m.frames.WithLabelValues(ResultOK).Inc()
	m.detections.Add(float64(detections))
	m.tracksCreated.Add(float64(created))
	m.tracksPruned.Add(float64(pruned))
	m.frameSeconds.Observe(d.Seconds())
}

// FrameFailed records a frame that could not be processed
func (m *Metrics) FrameFailed() {
	m.frames.WithLabelValues(ResultError).Inc()
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
