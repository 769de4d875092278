package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	passDuration    prom.Histogram
	queueDuration   *prom.HistogramVec
	assignments     *prom.CounterVec
	policyErrors    *prom.CounterVec
	queueErrors     *prom.CounterVec
	releaseFailed   *prom.CounterVec
	pendingBuilders prom.Gauge
}

// NewPrometheusRecorder constructs and registers the distributor metrics on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "buildmesh",
			Subsystem: "distributor",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one distributor pass over all pending builders",
			Buckets:   prom.DefBuckets,
		}),
		queueDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "buildmesh",
			Subsystem: "distributor",
			Name:      "queue_duration_seconds",
			Help:      "Duration of the assignment algorithm for one builder",
			Buckets:   prom.DefBuckets,
		}, []string{"builder"}),
		assignments: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildmesh",
			Subsystem: "distributor",
			Name:      "assignments_total",
			Help:      "Assignment attempts by outcome",
		}, []string{"builder", "result"}),
		policyErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildmesh",
			Subsystem: "distributor",
			Name:      "policy_errors_total",
			Help:      "Policy callback failures by decision point",
		}, []string{"builder", "decision"}),
		queueErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildmesh",
			Subsystem: "distributor",
			Name:      "queue_errors_total",
			Help:      "Builders whose assignment pass failed",
		}, []string{"builder"}),
		releaseFailed: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildmesh",
			Subsystem: "distributor",
			Name:      "release_failures_total",
			Help:      "Claims that could not be released after a failed build start",
		}, []string{"builder"}),
		pendingBuilders: prom.NewGauge(prom.GaugeOpts{
			Namespace: "buildmesh",
			Subsystem: "distributor",
			Name:      "pending_builders",
			Help:      "Builders waiting for the next pass",
		}),
	}
	reg.MustRegister(pr.passDuration, pr.queueDuration, pr.assignments, pr.policyErrors,
		pr.queueErrors, pr.releaseFailed, pr.pendingBuilders)
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(d time.Duration) {
	p.passDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveQueueDuration(builder string, d time.Duration) {
	p.queueDuration.WithLabelValues(builder).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncAssignment(builder string, result ResultLabel) {
	p.assignments.WithLabelValues(builder, string(result)).Inc()
}

func (p *PrometheusRecorder) IncPolicyError(builder, decision string) {
	p.policyErrors.WithLabelValues(builder, decision).Inc()
}

func (p *PrometheusRecorder) IncQueueError(builder string) {
	p.queueErrors.WithLabelValues(builder).Inc()
}

func (p *PrometheusRecorder) IncReleaseFailure(builder string) {
	p.releaseFailed.WithLabelValues(builder).Inc()
}

func (p *PrometheusRecorder) SetPendingBuilders(n int) {
	p.pendingBuilders.Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided gatherer.
func HTTPHandler(g prom.Gatherer) http.Handler {
	if g == nil {
		g = prom.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
