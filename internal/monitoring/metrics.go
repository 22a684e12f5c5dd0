package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "citystrata_http_requests_total",
		Help: "Total HTTP requests by route pattern, method and status code",
	}, []string{"route", "method", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "citystrata_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"route"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "citystrata_http_rate_limited_total",
		Help: "Total requests rejected by the rate limiter",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "citystrata_cache_hits_total",
		Help: "Total response cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "citystrata_cache_misses_total",
		Help: "Total response cache misses",
	})
	SnapshotReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "citystrata_snapshot_reloads_total",
		Help: "Snapshot loads by result (ok, error)",
	}, []string{"result"})
	SnapshotAreas = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "citystrata_snapshot_areas",
		Help: "Statistical areas in the published snapshot",
	})
	SnapshotResources = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "citystrata_snapshot_resources",
		Help: "Resources in the published snapshot by kind",
	}, []string{"kind"})
	SnapshotSkipped = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "citystrata_snapshot_skipped_resources",
		Help: "Stored resources left out of the published snapshot by kind",
	}, []string{"kind"})
	SnapshotInconsistencies = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "citystrata_snapshot_inconsistencies",
		Help: "Resources whose stored area code disagrees with the recomputed one",
	})
	SnapshotAgeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "citystrata_snapshot_age_seconds",
		Help: "Seconds since the published snapshot was loaded",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(SnapshotReloadsTotal)
	prometheus.MustRegister(SnapshotAreas)
	prometheus.MustRegister(SnapshotResources)
	prometheus.MustRegister(SnapshotSkipped)
	prometheus.MustRegister(SnapshotInconsistencies)
	prometheus.MustRegister(SnapshotAgeSeconds)
}

// Handler exposes every registered metric for Prometheus to scrape.
func Handler() http.Handler { return promhttp.Handler() }
