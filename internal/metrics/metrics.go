package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/adaptive-wheel/go-controller/internal/factor"
)

const namespace = "wheel"

// #region registry
// Registry holds the controller's Prometheus metrics on a private registry.
type Registry struct {
	registry *prometheus.Registry

	Recommendations   *prometheus.CounterVec
	RecommendDuration prometheus.Histogram
	RankedCandidates  prometheus.Histogram
	ExcludedTotal     prometheus.Counter
	SkippedTotal      prometheus.Counter
	ContextFailures   *prometheus.CounterVec
	PredictorLookups  *prometheus.CounterVec
	PredictorLatency  prometheus.Histogram
	Outcomes          *prometheus.CounterVec
	Influence         *prometheus.GaugeVec
}

// New creates the registry. withRuntime adds the Go and process collectors.
func New(withRuntime bool) *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recommendations_total",
				Help:      "Recommendation cycles by resulting signal",
			},
			[]string{"signal"},
		),
		RecommendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "recommendation_duration_seconds",
				Help:      "Time spent scoring one recommendation cycle",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		RankedCandidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ranked_candidates",
				Help:      "Candidates that qualified for ranking per cycle",
				Buckets:   prometheus.LinearBuckets(0, 1, 9),
			},
		),
		ExcludedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "excluded_candidates_total",
				Help:      "Candidates dropped for a non-finite or non-positive score",
			},
		),
		SkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_types_total",
				Help:      "Active prediction types skipped for lacking a definition",
			},
		),
		ContextFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "context_failures_total",
				Help:      "Context provider failures by source",
			},
			[]string{"source"},
		),
		PredictorLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictor_lookups_total",
				Help:      "AI predictor lookups by outcome",
			},
			[]string{"outcome"},
		),
		PredictorLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "predictor_latency_seconds",
				Help:      "AI predictor lookup latency",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
		),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Confirmed spins by status and whether the recommendation was played",
			},
			[]string{"status", "played"},
		),
		Influence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "factor_influence",
				Help:      "Current adaptive influence per factor",
			},
			[]string{"factor"},
		),
	}

	r.registry.MustRegister(
		r.Recommendations,
		r.RecommendDuration,
		r.RankedCandidates,
		r.ExcludedTotal,
		r.SkippedTotal,
		r.ContextFailures,
		r.PredictorLookups,
		r.PredictorLatency,
		r.Outcomes,
		r.Influence,
	)
	if withRuntime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// #endregion registry

// #region recorders
// RecordRecommendation implements engine.Recorder.
func (r *Registry) RecordRecommendation(signal string, ranked, excluded, skipped int, elapsed time.Duration) {
	r.Recommendations.WithLabelValues(signal).Inc()
	r.RecommendDuration.Observe(elapsed.Seconds())
	r.RankedCandidates.Observe(float64(ranked))
	r.ExcludedTotal.Add(float64(excluded))
	r.SkippedTotal.Add(float64(skipped))
}

// RecordContextFailure implements engine.Recorder.
func (r *Registry) RecordContextFailure(source string) {
	r.ContextFailures.WithLabelValues(source).Inc()
}

// RecordPredictorLookup implements codec.Observer.
func (r *Registry) RecordPredictorLookup(outcome string, elapsed time.Duration) {
	r.PredictorLookups.WithLabelValues(outcome).Inc()
	r.PredictorLatency.Observe(elapsed.Seconds())
}

// RecordOutcome counts a confirmed spin.
func (r *Registry) RecordOutcome(status string, played bool) {
	p := "false"
	if played {
		p = "true"
	}
	r.Outcomes.WithLabelValues(status, p).Inc()
}

// SetInfluence publishes the active influence map.
func (r *Registry) SetInfluence(m factor.InfluenceMap) {
	for _, k := range factor.Kinds() {
		r.Influence.WithLabelValues(k.String()).Set(m.Get(k))
	}
}

// #endregion recorders
