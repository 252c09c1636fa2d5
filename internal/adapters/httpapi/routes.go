package httpapi

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all account routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.HandleListAccounts)
		r.Post("/", h.HandleCreateAccount)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetAccount)
			r.Delete("/", h.HandleDeleteAccount)
			r.Post("/orders", h.HandleSubmitOrder)
			r.Get("/orders/{orderID}", h.HandleGetOrder)
			r.Delete("/orders/{orderID}", h.HandleCancelOrder)
			r.Post("/process", h.HandleProcessOrders)
			r.Get("/performance", h.HandleGetPerformance)
		})
	})
	r.Post("/transfers", h.HandleTransfer)
	r.Route("/quotes/{symbol}", func(r chi.Router) {
		r.Get("/", h.HandleGetQuote)
		r.Put("/", h.HandleSetQuote)
	})
}
