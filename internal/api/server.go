// Package api serves the evacuation core over HTTP. Every request reads one
// published snapshot and uses it throughout, so responses never mix data
// from two loads.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/citystrata/citystrata/internal/cache"
	"github.com/citystrata/citystrata/internal/config"
	"github.com/citystrata/citystrata/internal/monitoring"
	"github.com/citystrata/citystrata/internal/snapshot"
)

// SnapshotSource returns the published snapshot, or nil before the first
// load.
type SnapshotSource interface {
	Current() *snapshot.Snapshot
}

// Server holds the handler dependencies.
type Server struct {
	source SnapshotSource
	cache  *cache.Cache
	server config.ServerConfig
	search config.SearchConfig
}

// NewServer creates a Server. A nil cache disables response caching.
func NewServer(source SnapshotSource, c *cache.Cache, server config.ServerConfig, search config.SearchConfig) *Server {
	return &Server{source: source, cache: c, server: server, search: search}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", monitoring.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.server.RequestTimeoutSecs > 0 {
			r.Use(middleware.Timeout(time.Duration(s.server.RequestTimeoutSecs) * time.Second))
		}
		r.Use(newRateLimiter(s.server.RateLimitRPS, s.server.RateLimitBurst).middleware)

		r.Get("/statistical-areas", s.listAreas)
		r.Get("/statistical-areas/summary", s.summarizeAll)
		r.Get("/statistical-areas/{code}", s.getArea)
		r.Get("/statistical-areas/{code}/summary", s.summarizeArea)
		r.Get("/assign", s.assign)
		r.Get("/nearby", s.nearby)
		r.Post("/evacuation/analyze", s.analyze)
		r.Get("/resources/{kind}", s.listResources)
		r.Get("/resources/{kind}/{id}", s.getResource)
		r.Get("/facility-types", s.facilityTypes)
		r.Get("/verify", s.verify)
	})

	return r
}
