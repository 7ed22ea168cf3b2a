/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/team/*       Member registration and activation
  /api/sales        Ad-hoc sale recording
  /api/payouts      Wallet withdrawals
  /api/orders/*     Checkout and order lifecycle
  /api/rewards/*    Point redemption
  /api/products/*   Catalog
  /api/settings     Platform configuration
  /api/audit        Audit log

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

	r.Route("/api", func(r chi.Router) {
		// Team routes
		r.Route("/team", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.RegisterMember)
			r.Get("/{id}", h.GetMember)
			r.Post("/{id}/proof", h.SubmitProof)
			r.Post("/{id}/decide", h.DecideMember)
			r.Get("/{id}/coupons", h.ListMemberCoupons)
		})

		// Sales and payouts
		r.Post("/sales", h.RecordSale)
		r.Post("/payouts", h.ProcessPayout)

		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Post("/checkout", h.Checkout)
			r.Get("/", h.ListOrders)
			r.Get("/quote", h.QuoteShipping)
			r.Get("/{id}", h.GetOrder)
			r.Post("/{id}/status", h.UpdateOrderStatus)
		})

		// Reward routes
		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", h.ListRewards)
			r.Post("/redeem", h.RedeemReward)
		})

		// Catalog routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.UpsertProduct)
			r.Get("/{id}/markup", h.SuggestMarkup)
		})

		// Settings
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		// Audit log
		r.Get("/audit", h.ListAudit)
	})

	return r
}
