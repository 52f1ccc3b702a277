package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry       *prom.Registry
	stageResults   *prom.CounterVec
	phaseDurations *prom.HistogramVec
	publishResults *prom.CounterVec
}

// NewPrometheusRecorder creates a recorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prom.NewRegistry()

	r := &PrometheusRecorder{
		registry: registry,
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Name: "docship_stage_results_total",
			Help: "Stage completions by stage name and result.",
		}, []string{"stage", "result"}),
		phaseDurations: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "docship_phase_duration_seconds",
			Help:    "Wall-clock duration of pipeline phases.",
			Buckets: prom.ExponentialBuckets(0.1, 2, 12),
		}, []string{"phase"}),
		publishResults: prom.NewCounterVec(prom.CounterOpts{
			Name: "docship_publish_results_total",
			Help: "Publish attempt outcomes by provider.",
		}, []string{"provider", "result"}),
	}

	registry.MustRegister(r.stageResults, r.phaseDurations, r.publishResults)
	return r
}

func (r *PrometheusRecorder) IncStageResult(stage, result string) {
	r.stageResults.WithLabelValues(stage, result).Inc()
}

func (r *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	r.phaseDurations.WithLabelValues(phase).Observe(d.Seconds())
}

func (r *PrometheusRecorder) IncPublishResult(provider, result string) {
	r.publishResults.WithLabelValues(provider, result).Inc()
}

// Handler returns an http.Handler serving the recorder's registry, for the
// optional metrics listener during a run.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
