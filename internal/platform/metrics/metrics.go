// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus instruments for the authentication core.

All collectors are registered on a private [prometheus.Registry] owned by
[Metrics], so tests can create as many independent instances as they need and
the process never touches the global default registry.

Usage:

	m := metrics.New()
	router.Handle("/metrics", m.Handler())
	m.SessionEvents.WithLabelValues("user", "created").Inc()
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stella"

// Metrics bundles every collector the service records.
type Metrics struct {
	registry *prometheus.Registry

	// SessionEvents counts session transitions by kind and event (created, rotated, deleted).
	SessionEvents *prometheus.CounterVec

	// LoginFailures counts rejected logins by kind and error code.
	LoginFailures *prometheus.CounterVec

	// GuardDecisions counts access-guard outcomes by kind and outcome.
	GuardDecisions *prometheus.CounterVec

	// CacheLookups counts end-user session cache lookups by result (hit, miss, stale, error).
	CacheLookups *prometheus.CounterVec

	// HTTPRequests counts finished requests by method, route pattern and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes request latency by method and route pattern.
	HTTPDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "session_events_total",
			Help:      "Session lifecycle transitions.",
		}, []string{"kind", "event"}),
		LoginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_failures_total",
			Help:      "Rejected login attempts.",
		}, []string{"kind", "code"}),
		GuardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "guard_decisions_total",
			Help:      "Access guard outcomes.",
		}, []string{"kind", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "session_cache_lookups_total",
			Help:      "End-user session cache lookups.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Finished HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SessionEvents,
		m.LoginFailures,
		m.GuardDecisions,
		m.CacheLookups,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
