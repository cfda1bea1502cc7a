/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack and the routes. This is
  the wiring layer between URLs and handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the planner frontend

ROUTE GROUPS:
  /api/users/*          Validation, what-if checks, expansion, leave, publication
  /api/grid/*           Cached month grid
  /api/crew/{date}      Crew completeness of one date
  /api/planning         Planning cell writes
  /api/special-codes/*  Letter changes of special codes
  /api/hr-rules         HR rule versions
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a router with all routes configured. A nil gatherer
// serves the default Prometheus registry.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *chi.Mux {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Get("/{id}/violations", h.GetViolations)
			r.Post("/{id}/check", h.CheckShift)
			r.Get("/{id}/expand", h.ExpandTypeTable)
			r.Get("/{id}/leave/check", h.CheckLeave)
			r.Post("/{id}/publish", h.PublishMonth)
		})

		r.Route("/grid", func(r chi.Router) {
			r.Get("/", h.GetGrid)
			r.Post("/invalidate", h.InvalidateGrid)
			r.Get("/stats", h.GetCacheStats)
		})

		r.Get("/crew/{date}", h.GetCrew)

		r.Route("/planning", func(r chi.Router) {
			r.Post("/", h.UpsertPlanning)
			r.Delete("/{user}/{date}", h.DeletePlanning)
		})

		r.Route("/special-codes", func(r chi.Router) {
			r.Get("/", h.ListSpecialCodes)
			r.Put("/{id}", h.UpdateSpecialCode)
		})

		r.Route("/hr-rules", func(r chi.Router) {
			r.Get("/", h.ListHRRules)
			r.Post("/", h.CreateHRRule)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/reset", h.ResetDatabase)
			r.Post("/{id}", h.LoadScenario)
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Roster Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Roster Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/users">/api/users</a> - List users</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
<li><a href="/api/grid/stats">/api/grid/stats</a> - Cache statistics</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`))
	})

	return r
}
