/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

SECURITY NOTE:
  No authentication middleware here: identity resolution is an external
  collaborator's concern and {userID} arrives already resolved. Do not
  expose this surface directly without an authenticating proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
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

	r.Route("/api/users/{userID}", func(r chi.Router) {
		// Team roster
		r.Route("/team", func(r chi.Router) {
			r.Get("/", h.ListTeam)
			r.Post("/", h.AddTeamMember)
			r.Delete("/{memberID}", h.RemoveTeamMember)
			r.Post("/{memberID}/toggle", h.ToggleTeamMember)
		})

		// Active deal ledger
		r.Route("/deals", func(r chi.Router) {
			r.Get("/", h.ListDeals)
			r.Post("/", h.CreateDeal)
			r.Put("/{dealID}", h.UpdateDeal)
			r.Post("/{dealID}/status", h.SetDealStatus)
			r.Delete("/{dealID}", h.DeleteDeal)
		})

		// Archived months
		r.Route("/archives", func(r chi.Router) {
			r.Get("/", h.ListArchives)
			r.Get("/{month}", h.GetArchive)
		})

		// Manual rollover trigger (also runs on reads and on the scheduler)
		r.Post("/rollover", h.RunRollover)

		// Derived values
		r.Get("/metrics", h.GetMetrics)
		r.Get("/pay", h.GetPay)
		r.Get("/payplan", h.GetPayPlan)
		r.Put("/payplan", h.SavePayPlan)
	})

	return r
}
