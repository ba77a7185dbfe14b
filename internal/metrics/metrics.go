// Package metrics exposes Prometheus instrumentation for the QA pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics is a valid no-op
// receiver so components can run uninstrumented in tests.
type Metrics struct {
	jobsAdmitted  prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	jobRetries    prometheus.Counter
	stageDegraded *prometheus.CounterVec
	queueDepth    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renderqa_jobs_admitted_total",
			Help: "Jobs admitted into the pipeline.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renderqa_jobs_completed_total",
			Help: "Jobs that reached completed status.",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renderqa_jobs_failed_total",
			Help: "Jobs that reached failed status after exhausting retries.",
		}),
		jobRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renderqa_job_retries_total",
			Help: "Job attempts requeued after a fatal stage error.",
		}),
		stageDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "renderqa_stage_degraded_total",
			Help: "Optional-stage failures absorbed without failing the job.",
		}, []string{"stage"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "renderqa_queue_depth",
			Help: "Job ids currently waiting in the FIFO queue.",
		}),
	}
	reg.MustRegister(
		m.jobsAdmitted,
		m.jobsCompleted,
		m.jobsFailed,
		m.jobRetries,
		m.stageDegraded,
		m.queueDepth,
	)
	return m
}

func (m *Metrics) JobAdmitted() {
	if m == nil {
		return
	}
	m.jobsAdmitted.Inc()
}

func (m *Metrics) JobCompleted() {
	if m == nil {
		return
	}
	m.jobsCompleted.Inc()
}

func (m *Metrics) JobFailed() {
	if m == nil {
		return
	}
	m.jobsFailed.Inc()
}

func (m *Metrics) JobRetried() {
	if m == nil {
		return
	}
	m.jobRetries.Inc()
}

func (m *Metrics) StageDegraded(stage string) {
	if m == nil {
		return
	}
	m.stageDegraded.WithLabelValues(stage).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
