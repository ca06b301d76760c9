package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	ModerationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_actions_total",
			Help: "Moderation actions applied, by action",
		},
		[]string{"action"},
	)

	AdmissionChallenges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_challenges_total",
			Help: "Admission challenges issued, by kind",
		},
		[]string{"kind"},
	)

	SpamDetections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spam_detections_total",
			Help: "Spam detections, by type",
		},
		[]string{"type"},
	)

	UpdateProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "update_processing_duration_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

// Init registers the metrics, installs a tracer provider and serves
// /metrics on addr.
func Init(addr string) {
	prometheus.MustRegister(
		ModerationActions,
		AdmissionChallenges,
		SpamDetections,
		UpdateProcessingDuration,
	)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()
}

// StartUpdateProcessing returns a func recording the update's processing
// duration under the given status.
func StartUpdateProcessing() func(status string) {
	timer := prometheus.NewTimer(nil)
	return func(status string) {
		UpdateProcessingDuration.WithLabelValues(status).Observe(timer.ObserveDuration().Seconds())
	}
}
