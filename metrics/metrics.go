// Package metrics exposes Prometheus counters for the clip session
// controller. It satisfies the autoplay.Stats interface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the session controller. An own
// registry keeps the scrape output limited to what this process reports.
type Metrics struct {
	registry           *prometheus.Registry
	pagesFetchedTotal  *prometheus.CounterVec
	fetchErrorsTotal   *prometheus.CounterVec
	advancesTotal      *prometheus.CounterVec
	playerSignalsTotal *prometheus.CounterVec
	staleDroppedTotal  *prometheus.CounterVec
}

// New creates and registers the controller metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	pagesFetchedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cliploop_pages_fetched_total",
		Help: "Catalog pages fetched and applied to the queue",
	}, []string{"kind"})
	fetchErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cliploop_fetch_errors_total",
		Help: "Catalog fetch failures by error classification",
	}, []string{"kind"})
	advancesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cliploop_advances_total",
		Help: "Clip transitions by cause",
	}, []string{"cause"})
	playerSignalsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cliploop_player_signals_total",
		Help: "Inbound player reports by handling outcome",
	}, []string{"outcome"})
	staleDroppedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cliploop_stale_results_total",
		Help: "Asynchronous completions discarded as stale",
	}, []string{"what"})

	registry.MustRegister(
		pagesFetchedTotal,
		fetchErrorsTotal,
		advancesTotal,
		playerSignalsTotal,
		staleDroppedTotal,
	)

	return &Metrics{
		registry:           registry,
		pagesFetchedTotal:  pagesFetchedTotal,
		fetchErrorsTotal:   fetchErrorsTotal,
		advancesTotal:      advancesTotal,
		playerSignalsTotal: playerSignalsTotal,
		staleDroppedTotal:  staleDroppedTotal,
	}
}

// PageFetched increments the page counter, split into demand vs prefetch.
func (m *Metrics) PageFetched(prefetch bool) {
	kind := "demand"
	if prefetch {
		kind = "prefetch"
	}
	m.pagesFetchedTotal.WithLabelValues(kind).Inc()
}

// FetchFailed increments the failure counter for one error classification.
func (m *Metrics) FetchFailed(kind string) {
	m.fetchErrorsTotal.WithLabelValues(kind).Inc()
}

// Advanced increments the transition counter for one advancement cause.
func (m *Metrics) Advanced(cause string) {
	m.advancesTotal.WithLabelValues(cause).Inc()
}

// SignalHandled increments the player-report counter for one outcome.
func (m *Metrics) SignalHandled(outcome string) {
	m.playerSignalsTotal.WithLabelValues(outcome).Inc()
}

// StaleDropped counts an asynchronous completion discarded as stale.
func (m *Metrics) StaleDropped(what string) {
	m.staleDroppedTotal.WithLabelValues(what).Inc()
}

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
