/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/orders/*          Order documents
  /api/confirmations/*   Confirmation documents
  /api/invoices/*        Invoice documents
  /api/cancellations/*   Cancellation documents
  /api/balance           Scoped outstanding quantities
  /api/report            Full reconciliation report
  /api/clients, /api/suppliers, /api/brands, /api/products

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
		// Document routes
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrder)
			r.Delete("/{id}", h.DeleteOrder)
		})
		r.Route("/confirmations", func(r chi.Router) {
			r.Get("/", h.ListConfirmations)
			r.Post("/", h.CreateConfirmation)
			r.Get("/{id}", h.GetConfirmation)
			r.Delete("/{id}", h.DeleteConfirmation)
		})
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Delete("/{id}", h.DeleteInvoice)
		})
		r.Route("/cancellations", func(r chi.Router) {
			r.Get("/", h.ListCancellations)
			r.Post("/", h.CreateCancellation)
			r.Get("/{id}", h.GetCancellation)
			r.Delete("/{id}", h.DeleteCancellation)
		})

		// Reconciliation routes
		r.Get("/balance", h.GetBalance)
		r.Get("/report", h.GetReport)

		// Directory routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
		})
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.ListSuppliers)
			r.Post("/", h.CreateSupplier)
		})
		r.Route("/brands", func(r chi.Router) {
			r.Get("/", h.ListBrands)
			r.Post("/", h.CreateBrand)
		})
		r.Get("/products", h.ListProducts)
	})

	return r
}
