// Package metrics defines the Prometheus collectors of the auth server.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK   = "ok"
	ResultFail = "fail"
)

// Metrics groups the counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Registrations  prometheus.Counter
	Logins         *prometheus.CounterVec
	Refreshes      *prometheus.CounterVec
	OAuthCallbacks *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ergoauth_registrations_total",
			Help: "Total number of password registrations.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ergoauth_logins_total",
			Help: "Password logins by result.",
		}, []string{"result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ergoauth_refreshes_total",
			Help: "Refresh rotations by result.",
		}, []string{"result"}),
		OAuthCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ergoauth_oauth_callbacks_total",
			Help: "OAuth callbacks by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ergoauth_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Registrations, m.Logins, m.Refreshes, m.OAuthCallbacks, m.HTTPRequests,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return ResultFail
	}
	return ResultOK
}

func (m *Metrics) Registered() {
	if m != nil {
		m.Registrations.Inc()
	}
}

func (m *Metrics) Login(err error) {
	if m != nil {
		m.Logins.WithLabelValues(result(err)).Inc()
	}
}

func (m *Metrics) Refresh(err error) {
	if m != nil {
		m.Refreshes.WithLabelValues(result(err)).Inc()
	}
}

func (m *Metrics) OAuthCallback(err error) {
	if m != nil {
		m.OAuthCallbacks.WithLabelValues(result(err)).Inc()
	}
}

func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
