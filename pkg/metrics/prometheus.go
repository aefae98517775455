// Package metrics provides Prometheus metrics for the analysis engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultNamespace = "crux"
	defaultSubsystem = "engine"
)

// Manager owns every Prometheus collector for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Ingestion
	framesIngested  prometheus.Counter
	framesDropped   *prometheus.CounterVec
	malformedFrames prometheus.Counter

	// Session lifecycle
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionsAbandoned prometheus.Counter
	activeSessions    prometheus.Gauge

	// Analysis pipeline
	analysisDuration       prometheus.Histogram
	insufficientCategories prometheus.Counter
	analysisErrors         prometheus.Counter
	queueSize              prometheus.Gauge

	// Templates
	templateFallbacks prometheus.Counter
	renderWarnings    prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.enabled {
		return m
	}

	factory := promauto.With(m.registry)

	m.framesIngested = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "frames_ingested_total",
		Help: "Pose frames accepted into a session buffer.",
	})
	m.framesDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "frames_dropped_total",
		Help: "Pose frames rejected, by reason.",
	}, []string{"reason"})
	m.malformedFrames = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "frames_malformed_total",
		Help: "Frames with out-of-order indices or impossible coordinates.",
	})

	m.sessionsStarted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_started_total",
		Help: "Sessions opened.",
	})
	m.sessionsCompleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_completed_total",
		Help: "Sessions that reached analysis.",
	})
	m.sessionsAbandoned = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_abandoned_total",
		Help: "Sessions discarded before completion.",
	})
	m.activeSessions = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "sessions_active",
		Help: "Sessions currently accepting frames.",
	})

	m.analysisDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "analysis_duration_seconds",
		Help:    "Wall time of the extract-score-swot pipeline per session.",
		Buckets: m.histogramBuckets,
	})
	m.insufficientCategories = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "insufficient_categories_total",
		Help: "Categories excluded from aggregation for lack of valid samples.",
	})
	m.analysisErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "analysis_errors_total",
		Help: "Analysis jobs that failed outright.",
	})
	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "analysis_queue_size",
		Help: "Completed sessions waiting for a worker.",
	})

	m.templateFallbacks = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "template_fallbacks_total",
		Help: "Template entries replaced by compiled-in defaults.",
	})
	m.renderWarnings = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "render_warnings_total",
		Help: "Placeholder substitutions that found no raw value.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name:    "request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: m.histogramBuckets,
	}, []string{"route"})

	return m
}

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns the process-wide manager, creating it on first use.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// SetDefault replaces the process-wide manager. Intended for tests that need
// a disabled or privately registered manager.
func SetDefault(m *Manager) {
	defaultOnce.Do(func() {})
	defaultManager = m
}

// Package-level helpers mirroring the manager methods.

func RecordFrameIngested() { Default().RecordFrameIngested() }

func RecordFrameDropped(reason string) { Default().RecordFrameDropped(reason) }

func RecordMalformedFrame() { Default().RecordMalformedFrame() }

func RecordSessionStarted() { Default().RecordSessionStarted() }

func RecordSessionCompleted() { Default().RecordSessionCompleted() }

func RecordSessionAbandoned() { Default().RecordSessionAbandoned() }

func UpdateActiveSessions(n int) { Default().UpdateActiveSessions(n) }

func RecordAnalysisDuration(seconds float64) { Default().RecordAnalysisDuration(seconds) }

func RecordInsufficientCategory() { Default().RecordInsufficientCategory() }

func RecordAnalysisError() { Default().RecordAnalysisError() }

func UpdateQueueSize(n int) { Default().UpdateQueueSize(n) }

func RecordTemplateFallback() { Default().RecordTemplateFallback() }

func RecordRenderWarning() { Default().RecordRenderWarning() }

func RecordHTTPRequest(method, route, status string) { Default().RecordHTTPRequest(method, route, status) }

func RecordHTTPDuration(route string, seconds float64) { Default().RecordHTTPDuration(route, seconds) }

// Manager methods. Every method is a no-op on a disabled manager.

func (m *Manager) RecordFrameIngested() {
	if m.enabled {
		m.framesIngested.Inc()
	}
}

func (m *Manager) RecordFrameDropped(reason string) {
	if m.enabled {
		m.framesDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Manager) RecordMalformedFrame() {
	if m.enabled {
		m.malformedFrames.Inc()
	}
}

func (m *Manager) RecordSessionStarted() {
	if m.enabled {
		m.sessionsStarted.Inc()
	}
}

func (m *Manager) RecordSessionCompleted() {
	if m.enabled {
		m.sessionsCompleted.Inc()
	}
}

func (m *Manager) RecordSessionAbandoned() {
	if m.enabled {
		m.sessionsAbandoned.Inc()
	}
}

func (m *Manager) UpdateActiveSessions(n int) {
	if m.enabled {
		m.activeSessions.Set(float64(n))
	}
}

func (m *Manager) RecordAnalysisDuration(seconds float64) {
	if m.enabled {
		m.analysisDuration.Observe(seconds)
	}
}

func (m *Manager) RecordInsufficientCategory() {
	if m.enabled {
		m.insufficientCategories.Inc()
	}
}

func (m *Manager) RecordAnalysisError() {
	if m.enabled {
		m.analysisErrors.Inc()
	}
}

func (m *Manager) UpdateQueueSize(n int) {
	if m.enabled {
		m.queueSize.Set(float64(n))
	}
}

func (m *Manager) RecordTemplateFallback() {
	if m.enabled {
		m.templateFallbacks.Inc()
	}
}

func (m *Manager) RecordRenderWarning() {
	if m.enabled {
		m.renderWarnings.Inc()
	}
}

func (m *Manager) RecordHTTPRequest(method, route, status string) {
	if m.enabled {
		m.httpRequests.WithLabelValues(method, route, status).Inc()
	}
}

func (m *Manager) RecordHTTPDuration(route string, seconds float64) {
	if m.enabled {
		m.httpRequestDuration.WithLabelValues(route).Observe(seconds)
	}
}
