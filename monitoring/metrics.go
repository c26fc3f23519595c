package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	predictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mobileprice_predictions_total",
		Help: "Predictions served, by price range label",
	}, []string{"label"})

	predictionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mobileprice_prediction_errors_total",
		Help: "Rejected or failed prediction requests",
	}, []string{"reason"}) // validation, model

	predictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mobileprice_prediction_duration_seconds",
		Help:    "Encode, predict and label mapping latency",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})

	predictionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mobileprice_prediction_cache_hits_total",
		Help: "Predictions answered from the memo cache",
	})

	modelLoadSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mobileprice_model_load_seconds",
		Help: "Time taken by the one-time model load",
	})

	artifactChanged = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mobileprice_model_artifact_changed",
		Help: "1 when the artifact on disk differs from the loaded model and a restart is pending",
	})

	feedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mobileprice_feed_clients",
		Help: "Connected prediction feed websocket clients",
	})
)

func RecordPrediction(label string, cached bool, took time.Duration) {
	predictionsTotal.WithLabelValues(label).Inc()
	predictionDuration.Observe(took.Seconds())
	if cached {
		predictionCacheHits.Inc()
	}
}

func RecordPredictionError(reason string) {
	predictionErrors.WithLabelValues(reason).Inc()
}

func RecordModelLoad(took time.Duration) {
	modelLoadSeconds.Set(took.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
