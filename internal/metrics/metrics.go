// Package metrics exposes Prometheus counters for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services report domain outcomes through.
type Recorder interface {
	RecordBooking(bookingType, outcome string)
	RecordRecovery(outcome string)
	RecordLogin(outcome string)
}

// Outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
	OutcomeUnknown  = "unknown_identity"
)

type Collector struct {
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	bookings     *prometheus.CounterVec
	recovery     *prometheus.CounterVec
	logins       *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estates_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "estates_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estates_bookings_total",
			Help: "Booking attempts by type and outcome.",
		}, []string{"type", "outcome"}),
		recovery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estates_password_recovery_total",
			Help: "Password recovery requests by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estates_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(c.httpRequests, c.httpLatency, c.bookings, c.recovery, c.logins)
	return c
}

func (c *Collector) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) RecordBooking(bookingType, outcome string) {
	c.bookings.WithLabelValues(bookingType, outcome).Inc()
}

func (c *Collector) RecordRecovery(outcome string) {
	c.recovery.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards everything. Used by tests and tools that do not scrape.
type Noop struct{}

func (Noop) RecordBooking(string, string) {}
func (Noop) RecordRecovery(string) {}
func (Noop) RecordLogin(string) {}
