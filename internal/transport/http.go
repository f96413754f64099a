// Package transport wires the HTTP surface: routing and request-scoped
// middleware around the checkout handlers.
package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/paypal-checkout/internal/handler"
)

// NewRouter assembles the service's routes.
func NewRouter(h *handler.CheckoutHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/paypal", func(r chi.Router) {
			r.Post("/create-order", h.CreateOrder)
			r.Post("/capture-order", h.CaptureOrder)
			r.Get("/get-order", h.GetOrder)
		})
		r.Post("/shipping-callback", h.ShippingCallback)
		r.Get("/catalog/products", h.Products)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}
