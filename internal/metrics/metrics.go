package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Collector holds the agent's Prometheus metrics and satisfies the metrics interfaces of the
// navigator, the alert synchronizer and the expiry service.
type Collector struct {
	reg *prometheus.Registry

	PositionsProcessed prometheus.Counter
	TripsStarted       prometheus.Counter
	TripsEnded         *prometheus.CounterVec // outcome label: arrived|cancelled
	ActiveTrip         prometheus.Gauge
	Reroutes           *prometheus.CounterVec // result label: requested|succeeded|failed
	IncidentsWarned    prometheus.Counter

	AlertSnapshots prometheus.Counter
	CachedAlerts   prometheus.Gauge

	ExpiryDeleted  prometheus.Counter
	ExpiryFailed   prometheus.Counter
	ExpiryDuration prometheus.Histogram
}

// NewCollector creates and registers every metric. Go runtime and process collectors are
// registered too.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		PositionsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_positions_processed_total",
			Help: "Total location fixes handled by the navigator.",
		}),
		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_trips_started_total",
			Help: "Total trips that reached the active state.",
		}),
		TripsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_trips_ended_total",
			Help: "Total trips ended, by outcome.",
		}, []string{"outcome"}),
		ActiveTrip: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_active_trip",
			Help: "1 while a trip is active, 0 otherwise.",
		}),
		Reroutes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_reroutes_total",
			Help: "Reroute requests and their results.",
		}, []string{"result"}),
		IncidentsWarned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_incident_warnings_total",
			Help: "Total alerts reported as lying on the active route.",
		}),
		AlertSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_alert_snapshots_total",
			Help: "Total alert snapshots applied to the cache.",
		}),
		CachedAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_cached_alerts",
			Help: "Alerts in the current snapshot.",
		}),
		ExpiryDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_expiry_deleted_total",
			Help: "Total stale alerts deleted upstream.",
		}),
		ExpiryFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_expiry_failed_total",
			Help: "Total failed upstream deletions.",
		}),
		ExpiryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_expiry_tick_duration_seconds",
			Help:    "Duration of expiry sweeps.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}

	reg.MustRegister(
		c.PositionsProcessed, c.TripsStarted, c.TripsEnded, c.ActiveTrip,
		c.Reroutes, c.IncidentsWarned,
		c.AlertSnapshots, c.CachedAlerts,
		c.ExpiryDeleted, c.ExpiryFailed, c.ExpiryDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

func (c *Collector) PositionProcessed() { c.PositionsProcessed.Inc() }

func (c *Collector) TripStarted() {
	c.TripsStarted.Inc()
	c.ActiveTrip.Set(1)
}

func (c *Collector) TripEnded(outcome models.TripOutcome) {
	c.TripsEnded.WithLabelValues(string(outcome)).Inc()
	c.ActiveTrip.Set(0)
}

func (c *Collector) RerouteRequested() { c.Reroutes.WithLabelValues("requested").Inc() }

func (c *Collector) RerouteCompleted(err error) {
	if err != nil {
		c.Reroutes.WithLabelValues("failed").Inc()
		return
	}
	c.Reroutes.WithLabelValues("succeeded").Inc()
}

func (c *Collector) IncidentWarnings(count int) {
	if count > 0 {
		c.IncidentsWarned.Add(float64(count))
	}
}

func (c *Collector) SnapshotApplied(cached int) {
	c.AlertSnapshots.Inc()
	c.CachedAlerts.Set(float64(cached))
}

func (c *Collector) ExpirySwept(deleted, failed int, took time.Duration) {
	c.ExpiryDeleted.Add(float64(deleted))
	c.ExpiryFailed.Add(float64(failed))
	c.ExpiryDuration.Observe(took.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server error")
		}
	}()
	logger.Info().Str("addr", addr).Msg("Metrics listening")
	return srv
}
