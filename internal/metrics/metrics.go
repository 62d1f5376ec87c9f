package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModelsTrained = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqicast_models_trained_total",
			Help: "Total per-city forecasting models trained",
		},
		[]string{"city"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aqicast_model_training_seconds",
			Help:    "Model training duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ForecastsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqicast_forecasts_generated_total",
			Help: "Total forecasts generated",
		},
		[]string{"city"},
	)

	ForecastErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqicast_forecast_errors_total",
			Help: "Total forecast requests that failed",
		},
		[]string{"reason"},
	)
)
