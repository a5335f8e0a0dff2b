package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus. Metrics are
// registered on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	sessions        *prometheus.CounterVec
	pages           *prometheus.CounterVec
	records         *prometheus.CounterVec
	pageDuration    *prometheus.HistogramVec
	lastSuccess     *prometheus.GaugeVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a collector. reg defaults to
// prometheus.DefaultRegisterer and namespace to "campaign_sync".
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "campaign_sync"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "attempts_total",
			Help:      "Sync attempts by target and outcome.",
		}, []string{"target", "outcome"})

		p.attemptDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Duration of sync attempts in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}, []string{"target"})

		p.sessions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "session",
			Name:      "terminated_total",
			Help:      "Sync sessions by terminal state.",
		}, []string{"target", "state"})

		p.pages = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "topic",
			Name:      "pages_total",
			Help:      "Topic pages read.",
		}, []string{"target", "topic"})

		p.records = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "topic",
			Name:      "records_total",
			Help:      "Topic records read.",
		}, []string{"target", "topic"})

		p.pageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "topic",
			Name:      "page_duration_seconds",
			Help:      "Time to fetch and consume one topic page.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"})

		p.lastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful attempt.",
		}, []string{"target"})

		p.reg.MustRegister(p.attempts, p.attemptDuration, p.sessions, p.pages, p.records, p.pageDuration, p.lastSuccess)
	})
}

func (p *PrometheusCollector) RecordAttempt(target, outcome string, duration time.Duration) {
	p.ensureRegistered()
	p.attempts.WithLabelValues(target, outcome).Inc()
	p.attemptDuration.WithLabelValues(target).Observe(duration.Seconds())
	if outcome == "ok" {
		p.lastSuccess.WithLabelValues(target).SetToCurrentTime()
	}
}

func (p *PrometheusCollector) RecordSession(target, state string) {
	p.ensureRegistered()
	p.sessions.WithLabelValues(target, state).Inc()
}

func (p *PrometheusCollector) RecordPage(target, topic string, records int, duration time.Duration) {
	p.ensureRegistered()
	p.pages.WithLabelValues(target, topic).Inc()
	p.records.WithLabelValues(target, topic).Add(float64(records))
	p.pageDuration.WithLabelValues(topic).Observe(duration.Seconds())
}
