package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics は echo-form の prometheus メトリクス一式。
type Metrics struct {
	registry *prometheus.Registry

	submissions        *prometheus.CounterVec
	submissionDuration prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	staleResolutions   prometheus.Counter
}

// NewMetrics は専用 registry にメトリクスを登録する。
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "echo_submissions_total",
			Help: "Number of resolved form submissions by outcome.",
		}, []string{"outcome"}),
		submissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "echo_submission_duration_seconds",
			Help:    "Time from submit to resolution.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "echo_http_requests_total",
			Help: "Number of HTTP requests served by path and status code.",
		}, []string{"path", "code"}),
		staleResolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "echo_submissions_stale_total",
			Help: "Number of submission results discarded because a newer submission was issued.",
		}),
	}

	reg.MustRegister(
		m.submissions,
		m.submissionDuration,
		m.httpRequests,
		m.staleResolutions,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSubmission は controller から呼ばれる（outcome: success / error）。
func (m *Metrics) ObserveSubmission(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.submissionDuration.Observe(d.Seconds())
}

// ObserveStale は破棄された古い結果を数える。
func (m *Metrics) ObserveStale() {
	if m == nil {
		return
	}
	m.staleResolutions.Inc()
}

// ObserveHTTPRequest は HTTP adapter から呼ばれる。
func (m *Metrics) ObserveHTTPRequest(path string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

// Registry はテストや追加 collector 用。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler は /metrics 用のハンドラ。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
