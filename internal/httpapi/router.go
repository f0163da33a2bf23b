package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Delete("/{productId}", h.DeleteProduct)
			r.Post("/{productId}/toggle-availability", h.ToggleAvailability)
		})

		r.Get("/vendors/{vendor}/products", h.ListVendorProducts)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Delete("/{sessionId}", h.DestroySession)

			r.Route("/{sessionId}/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddItem)
				r.Put("/items/{productId}", h.UpdateQuantity)
				r.Delete("/items/{productId}", h.RemoveItem)
			})

			r.Post("/{sessionId}/checkout", h.Checkout)
		})

		r.Get("/customers/{customer}/orders", h.ListCustomerOrders)
	})

	return r
}
