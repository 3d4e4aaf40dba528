// Package metrics holds the Prometheus collectors of the server. A nil
// *Metrics is valid and records nothing, so services can be built without it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	SyncRecordsTotal           *prometheus.CounterVec
	RetentionDeletedTotal      *prometheus.CounterVec
	JobTransitionsTotal        *prometheus.CounterVec
	TokenValidationsTotal      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New builds the collectors and registers them with reg. Passing a
// *prometheus.Registry keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SyncRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctxvault_sync_records_total",
				Help: "Synced records by kind and outcome (inserted, updated, skipped, rejected).",
			},
			[]string{"kind", "outcome"},
		),
		RetentionDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctxvault_retention_deleted_total",
				Help: "Rows deleted by retention sweeps.",
			},
			[]string{"target"},
		),
		JobTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctxvault_write_job_transitions_total",
				Help: "Write job state transitions.",
			},
			[]string{"status"},
		),
		TokenValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctxvault_token_validations_total",
				Help: "Bearer token validations by result.",
			},
			[]string{"result"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.SyncRecordsTotal,
		m.RetentionDeletedTotal,
		m.JobTransitionsTotal,
		m.TokenValidationsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) SyncOutcome(kind string, inserted, updated, skipped, rejected int) {
	if m == nil {
		return
	}
	m.SyncRecordsTotal.WithLabelValues(kind, "inserted").Add(float64(inserted))
	m.SyncRecordsTotal.WithLabelValues(kind, "updated").Add(float64(updated))
	m.SyncRecordsTotal.WithLabelValues(kind, "skipped").Add(float64(skipped))
	m.SyncRecordsTotal.WithLabelValues(kind, "rejected").Add(float64(rejected))
}

func (m *Metrics) RetentionDeleted(target string, n int64) {
	if m == nil {
		return
	}
	m.RetentionDeletedTotal.WithLabelValues(target).Add(float64(n))
}

func (m *Metrics) JobTransition(status string) {
	if m == nil {
		return
	}
	m.JobTransitionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) TokenValidation(result string) {
	if m == nil {
		return
	}
	m.TokenValidationsTotal.WithLabelValues(result).Inc()
}
