/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. requestLogger: Structured request logging via zap
  4. CORS:       Cross-origin requests for frontend clients

ROUTE GROUPS:
  /api/users/*       Directory, per-user leaves, balance, daily calendar
  /api/leaves/*      Leave record lifecycle
  /api/balances/*    Ledger adjust / override / recalculate
  /api/calendar/*    Periodic aggregates
  /api/policies/*    Policy management
  /api/holidays/*    Holiday calendar
  /api/visits/*      Office visit log
  /api/seed          Demo dataset (dev only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public; front this
  service with a gateway before exposing it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}/leaves", h.ListUserLeaves)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/calendar", h.GetDailyCalendar)
		})

		// Leave routes
		r.Route("/leaves", func(r chi.Router) {
			r.Post("/", h.CreateLeave)
			r.Get("/{id}", h.GetLeave)
			r.Put("/{id}", h.UpdateLeave)
			r.Delete("/{id}", h.DeleteLeave)
		})

		// Balance routes
		r.Route("/balances", func(r chi.Router) {
			r.Post("/adjust", h.AdjustBalance)
			r.Post("/override", h.OverrideBalance)
			r.Post("/recalculate", h.RecalculateBalance)
		})

		// Calendar routes
		r.Route("/calendar", func(r chi.Router) {
			r.Get("/aggregates", h.GetPeriodAggregates)
		})

		// Policy routes
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})

		// Visit routes
		r.Route("/visits", func(r chi.Router) {
			r.Get("/", h.ListVisits)
			r.Post("/", h.CreateVisit)
		})

		// Demo dataset
		r.Post("/seed", h.SeedDemo)
	})

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
