package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PredictDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "course_compass_predict_duration_seconds",
			Help:    "Prediction request duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	PredictTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_compass_predict_total",
			Help: "Total prediction requests",
		},
		[]string{"status"},
	)

	SessionCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_compass_session_cache_hits_total",
			Help: "Session context lookups by source",
		},
		[]string{"source"},
	)

	FeedbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "course_compass_feedback_total",
			Help: "Total feedback submissions",
		},
	)

	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_compass_pipeline_runs_total",
			Help: "Drift pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	DriftEventsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "course_compass_drift_events_total",
			Help: "Drift events appended to the history log",
		},
	)

	SamplesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "course_compass_samples_generated_total",
			Help: "Training samples synthesized",
		},
	)

	RetrainTriggers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "course_compass_retrain_triggers_total",
			Help: "Retraining workflow triggers fired",
		},
	)

	SimilarityBandUpper = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "course_compass_similarity_band_upper",
			Help: "Upper drift threshold of the latest run",
		},
	)

	SimilarityBandLower = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "course_compass_similarity_band_lower",
			Help: "Lower drift threshold of the latest run",
		},
	)
)

func Init() {
	prometheus.MustRegister(PredictDuration)
	prometheus.MustRegister(PredictTotal)
	prometheus.MustRegister(SessionCacheHits)
	prometheus.MustRegister(FeedbackTotal)
	prometheus.MustRegister(PipelineRuns)
	prometheus.MustRegister(DriftEventsDetected)
	prometheus.MustRegister(SamplesGenerated)
	prometheus.MustRegister(RetrainTriggers)
	prometheus.MustRegister(SimilarityBandUpper)
	prometheus.MustRegister(SimilarityBandLower)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
