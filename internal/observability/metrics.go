// Package observability bundles the Prometheus collectors for a scrape
// run and the optional exposition endpoint.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors on a dedicated registry. All
// methods are nil-safe so callers can run without metrics wired.
type Metrics struct {
	Registry *prometheus.Registry

	PagesLoaded        *prometheus.CounterVec
	PageLoadDuration   prometheus.Histogram
	GamesCaptured      prometheus.Counter
	GamesSkipped       *prometheus.CounterVec
	GamesFailed        prometheus.Counter
	RetriesTotal       prometheus.Counter
	SessionRecreations prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pagesLoaded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoopsweep_pages_loaded_total",
			Help: "Pages loaded through the browser session, by kind.",
		},
		[]string{"kind"},
	)
	pageLoadDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hoopsweep_page_load_duration_seconds",
			Help:    "Page load latency through the browser session.",
			Buckets: prometheus.DefBuckets,
		},
	)
	gamesCaptured := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoopsweep_games_captured_total",
			Help: "Game records fully extracted and persisted.",
		},
	)
	gamesSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoopsweep_games_skipped_total",
			Help: "Games skipped without a fetch, by reason.",
		},
		[]string{"reason"},
	)
	gamesFailed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoopsweep_games_failed_total",
			Help: "Games that could not be captured after all retries.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoopsweep_retries_total",
			Help: "Retry attempts issued by the retry policy.",
		},
	)
	recreations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoopsweep_session_recreations_total",
			Help: "Browser sessions destroyed and recreated.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoopsweep_errors_total",
			Help: "Errors observed, by classified type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(
		pagesLoaded, pageLoadDuration, gamesCaptured, gamesSkipped,
		gamesFailed, retries, recreations, errorsTotal,
	)

	return &Metrics{
		Registry:           registry,
		PagesLoaded:        pagesLoaded,
		PageLoadDuration:   pageLoadDuration,
		GamesCaptured:      gamesCaptured,
		GamesSkipped:       gamesSkipped,
		GamesFailed:        gamesFailed,
		RetriesTotal:       retries,
		SessionRecreations: recreations,
		ErrorsTotal:        errorsTotal,
	}
}

// IncPageLoaded counts one loaded page of the given kind
// ("listing" or "game").
func (m *Metrics) IncPageLoaded(kind string) {
	if m == nil {
		return
	}
	m.PagesLoaded.WithLabelValues(kind).Inc()
}

// ObservePageLoad records one page load latency.
func (m *Metrics) ObservePageLoad(d time.Duration) {
	if m == nil {
		return
	}
	m.PageLoadDuration.Observe(d.Seconds())
}

// IncCaptured counts one persisted game record.
func (m *Metrics) IncCaptured() {
	if m == nil {
		return
	}
	m.GamesCaptured.Inc()
}

// IncSkipped counts one skipped game with a reason label
// ("stored", "same_division", "duplicate", "remote").
func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.GamesSkipped.WithLabelValues(reason).Inc()
}

// IncFailed counts one game abandoned after all retries.
func (m *Metrics) IncFailed() {
	if m == nil {
		return
	}
	m.GamesFailed.Inc()
}

// IncRetries counts one retry attempt.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncRecreation counts one session teardown-and-recreate cycle.
func (m *Metrics) IncRecreation() {
	if m == nil {
		return
	}
	m.SessionRecreations.Inc()
}

// IncError counts one classified error.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// Serve exposes the registry over HTTP. Blocks until the server fails.
func (m *Metrics) Serve(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
