package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation, index and evaluation metrics.
var (
	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome",
		},
		[]string{"status"}, // "ok" / "empty" / "error"
	)

	RecommendationResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_results",
			Help:      "Number of items per recommendation set",
			Buckets:   []float64{0, 1, 3, 5, 7, 10},
		},
	)

	BalanceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_total",
			Help:      "Balance passes by outcome",
		},
		[]string{"outcome"}, // "skipped" / "balanced" / "degraded"
	)

	ExplanationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explanation_errors_total",
			Help:      "Explainer failures (sets returned without explanations)",
		},
	)

	IndexItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_items",
			Help:      "Items in the served catalog snapshot",
		},
	)

	IndexBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Catalog index builds by status",
		},
		[]string{"status"},
	)

	EvaluationRecall = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluation_mean_recall",
			Help:      "Mean Recall@K of the last evaluation run",
		},
		[]string{"k"},
	)

	EvaluationSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_skipped_records_total",
			Help:      "Labeled queries excluded from evaluation",
		},
	)
)

var recMetricsRegistered bool

// RegisterRecommendMetrics registers recommendation metrics. Must be called once from main.
func RegisterRecommendMetrics() {
	if recMetricsRegistered {
		return
	}
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(RecommendationResults)
	prometheus.MustRegister(BalanceTotal)
	prometheus.MustRegister(ExplanationErrorsTotal)
	prometheus.MustRegister(IndexItems)
	prometheus.MustRegister(IndexBuildsTotal)
	prometheus.MustRegister(EvaluationRecall)
	prometheus.MustRegister(EvaluationSkippedTotal)
	recMetricsRegistered = true
}
