package capture

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "xrmirror"

// Metrics groups the pipeline's Prometheus collectors. Construct with
// NewMetrics; a nil Registerer yields working but unregistered collectors.
type Metrics struct {
	FramesCaptured    prometheus.Counter
	CaptureErrors     *prometheus.CounterVec
	FramesDropped     prometheus.Counter
	FramesPresented   prometheus.Counter
	CaptureDuration   prometheus.Histogram
	SmoothingDuration prometheus.Histogram
	LoopRunning       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	buckets := []float64{.0005, .001, .002, .004, .008, .012, .016, .025, .05, .1}
	return &Metrics{
		FramesCaptured: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "frames_captured_total",
			Help: "Frames produced by the capture source.",
		}),
		CaptureErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "capture_errors_total",
			Help: "Failed capture attempts by kind.",
		}, []string{"kind"}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "frames_dropped_total",
			Help: "Frames evicted from the output queue by a slow consumer.",
		}),
		FramesPresented: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "frames_presented_total",
			Help: "Frames handed to presenters after smoothing.",
		}),
		CaptureDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Name: "capture_duration_seconds",
			Help: "Time spent in a single capture call.", Buckets: buckets,
		}),
		SmoothingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Name: "smoothing_duration_seconds",
			Help: "Time spent blending one frame.", Buckets: buckets,
		}),
		LoopRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "loop_running",
			Help: "1 while the capture loop is running.",
		}),
	}
}

func (m *Metrics) observeCapture(d time.Duration) {
	m.FramesCaptured.Inc()
	m.CaptureDuration.Observe(d.Seconds())
}

func (m *Metrics) observeError(err error) {
	m.CaptureErrors.WithLabelValues(errorKind(err)).Inc()
}

func (m *Metrics) setRunning(running bool) {
	if running {
		m.LoopRunning.Set(1)
	} else {
		m.LoopRunning.Set(0)
	}
}
