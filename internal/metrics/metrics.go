// Package metrics provides the centralized Prometheus metrics registry for
// the fusion engine and slate optimizer.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	FusionRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tipfusion",
		Name:      "fusion_runs_total",
		Help:      "Total number of fusion passes executed",
	})
	FusionNoPredictionTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tipfusion",
		Name:      "fusion_no_prediction_total",
		Help:      "Total number of contexts that resolved to the no-prediction sentinel",
	})
	EngineCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tipfusion",
		Name:      "engine_calls_total",
		Help:      "Total scoring engine invocations by engine and status",
	}, []string{"engine", "status"})
	NormalizationDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tipfusion",
		Name:      "normalization_drops_total",
		Help:      "Total measure keys dropped during output normalization",
	})
	SlateOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tipfusion",
		Name:      "slate_outcomes_total",
		Help:      "Slate optimizer results by outcome",
	}, []string{"outcome"})
	OutcomesRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tipfusion",
		Name:      "outcomes_recorded_total",
		Help:      "Total settled outcomes fed into the performance tracker",
	})
	WeightUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tipfusion",
		Name:      "weight_updates_total",
		Help:      "Total adaptive weight update rounds",
	})
)

// Gauge metrics
var (
	FusionCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tipfusion",
		Name:      "fusion_cache_hit_ratio",
		Help:      "Hit ratio of the fused score cache",
	})
	CategoryWeight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tipfusion",
		Name:      "category_weight",
		Help:      "Current global fusion weight per engine category",
	}, []string{"category"})
	RegisteredEngines = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tipfusion",
		Name:      "registered_engines",
		Help:      "Number of registered scoring engines",
	})
	SlateCombinedEV = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tipfusion",
		Name:      "slate_combined_ev",
		Help:      "Combined expected value of the most recently selected slate",
	})
)

// Histogram metrics
var (
	FusionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tipfusion",
		Name:      "fusion_duration_seconds",
		Help:      "Duration of one fusion pass in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	OptimizerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tipfusion",
		Name:      "optimizer_duration_seconds",
		Help:      "Duration of one slate optimization in seconds",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(FusionRunsTotal)
		registry.MustRegister(FusionNoPredictionTotal)
		registry.MustRegister(EngineCallsTotal)
		registry.MustRegister(NormalizationDropsTotal)
		registry.MustRegister(SlateOutcomesTotal)
		registry.MustRegister(OutcomesRecordedTotal)
		registry.MustRegister(WeightUpdatesTotal)

		// Register gauge metrics
		registry.MustRegister(FusionCacheHitRatio)
		registry.MustRegister(CategoryWeight)
		registry.MustRegister(RegisteredEngines)
		registry.MustRegister(SlateCombinedEV)

		// Register histogram metrics
		registry.MustRegister(FusionDuration)
		registry.MustRegister(OptimizerDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordEngineSuccess records a successful engine invocation.
func RecordEngineSuccess(engine string) {
	EngineCallsTotal.WithLabelValues(engine, "ok").Inc()
}

// RecordEngineFailure records a failed engine invocation.
func RecordEngineFailure(engine string) {
	EngineCallsTotal.WithLabelValues(engine, "error").Inc()
}

// RecordFusionRun records one completed fusion pass.
func RecordFusionRun(durationSeconds float64) {
	FusionRunsTotal.Inc()
	FusionDuration.Observe(durationSeconds)
}

// RecordNoPrediction records a context resolving to the no-prediction sentinel.
func RecordNoPrediction() {
	FusionNoPredictionTotal.Inc()
}

// RecordNormalizationDrops records keys dropped during normalization.
func RecordNormalizationDrops(count int) {
	if count > 0 {
		NormalizationDropsTotal.Add(float64(count))
	}
}

// RecordSlateOutcome records an optimizer result by outcome label.
func RecordSlateOutcome(outcome string, durationSeconds float64) {
	SlateOutcomesTotal.WithLabelValues(outcome).Inc()
	OptimizerDuration.Observe(durationSeconds)
}

// RecordOutcomeObserved records one settled outcome fed to the tracker.
func RecordOutcomeObserved() {
	OutcomesRecordedTotal.Inc()
}

// RecordWeightUpdate records one adaptive weight update round and exports
// the updated category weights.
func RecordWeightUpdate(categoryWeights map[string]float64) {
	WeightUpdatesTotal.Inc()
	for category, weight := range categoryWeights {
		CategoryWeight.WithLabelValues(category).Set(weight)
	}
}
