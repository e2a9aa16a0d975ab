/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/transactions/*   Transaction lifecycle
  /api/inventory        Stock snapshot
  /api/consignees/*     Receivables and settlements
  /api/consignments/*   Bulk batches
  /api/audit            Audit log
  /api/settings         Pricing configuration
  /api/export           Excel workbook
  /api/scenarios/*      Demo scenarios
  /api/reset            Database reset (dev only)

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
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/financials", h.GetFinancials)
		r.Get("/inventory", h.GetInventory)
		r.Get("/audit", h.GetAuditLog)
		r.Get("/export", h.ExportWorkbook)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/pending", h.ListPendingTransactions)
			r.Post("/{id}/accept", h.AcceptTransaction)
			r.Post("/{id}/reject", h.RejectTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		r.Route("/consignees", func(r chi.Router) {
			r.Get("/", h.ListConsignees)
			r.Get("/{name}", h.GetConsignee)
			r.Post("/{name}/pay", h.MarkFullyPaid)
			r.Post("/{name}/partial-pay", h.PartialPay)
			r.Get("/{name}/payments", h.GetPaymentHistory)
		})

		r.Route("/consignments", func(r chi.Router) {
			r.Post("/bulk", h.BulkConsign)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/", h.UpdateSettings)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})

		r.Post("/reset", h.ResetDatabase)
	})

	return r
}
