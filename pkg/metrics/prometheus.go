// Package metrics provides Prometheus metrics for the SmartShelf risk
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the pipeline metrics.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Evaluation metrics
	rowsEvaluated       prometheus.Counter
	rowsRejected        prometheus.Counter
	duplicateRows       prometheus.Counter
	fallbackEvaluations prometheus.Counter
	unseenCategories    prometheus.Counter
	evaluationDuration  prometheus.Histogram
	recommendations     *prometheus.CounterVec

	// Model metrics
	trainingDuration prometheus.Histogram
	modelLoaded      prometheus.Gauge
	modelTrainedAt   prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "smartshelf",
		subsystem:        "risk",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.rowsEvaluated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rows_evaluated_total",
		Help:      "Inventory rows assessed by the pipeline",
	})
	m.rowsRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rows_rejected_total",
		Help:      "Rows rejected at the validation boundary",
	})
	m.duplicateRows = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_rows_total",
		Help:      "Duplicate rows dropped before evaluation",
	})
	m.fallbackEvaluations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fallback_evaluations_total",
		Help:      "Evaluations that ran rule-only because no model was loaded",
	})
	m.unseenCategories = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unseen_categories_total",
		Help:      "Inference-time category values absent from the training mapping",
	})
	m.evaluationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_duration_seconds",
		Help:      "Wall time of a batch evaluation",
		Buckets:   m.histogramBuckets,
	})
	m.recommendations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommendations_total",
		Help:      "Recommended actions by urgency tier",
	}, []string{"tier"})

	m.trainingDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "training_duration_seconds",
		Help:      "Wall time of a model training run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
	m.modelLoaded = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_loaded",
		Help:      "1 when a risk model is loaded, 0 otherwise",
	})
	m.modelTrainedAt = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_trained_at_unix",
		Help:      "Training timestamp of the loaded model",
	})
}

// Handler returns the exposition handler for the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level recording helpers against the global manager.

func RecordRowsEvaluated(n int) {
	if globalManager.enabled {
		globalManager.rowsEvaluated.Add(float64(n))
	}
}

func RecordRowsRejected(n int) {
	if globalManager.enabled {
		globalManager.rowsRejected.Add(float64(n))
	}
}

func RecordDuplicateRows(n int) {
	if globalManager.enabled {
		globalManager.duplicateRows.Add(float64(n))
	}
}

func RecordFallbackEvaluation() {
	if globalManager.enabled {
		globalManager.fallbackEvaluations.Inc()
	}
}

func RecordUnseenCategories(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.unseenCategories.Add(float64(n))
	}
}

func ObserveEvaluationDuration(d time.Duration) {
	if globalManager.enabled {
		globalManager.evaluationDuration.Observe(d.Seconds())
	}
}

func RecordRecommendation(tier string) {
	if globalManager.enabled {
		globalManager.recommendations.WithLabelValues(tier).Inc()
	}
}

func ObserveTrainingDuration(d time.Duration) {
	if globalManager.enabled {
		globalManager.trainingDuration.Observe(d.Seconds())
	}
}

func SetModelLoaded(loaded bool) {
	if !globalManager.enabled {
		return
	}
	if loaded {
		globalManager.modelLoaded.Set(1)
	} else {
		globalManager.modelLoaded.Set(0)
	}
}

func SetModelTrainedAt(t time.Time) {
	if globalManager.enabled && !t.IsZero() {
		globalManager.modelTrainedAt.Set(float64(t.Unix()))
	}
}
