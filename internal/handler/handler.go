// Package handler exposes the storefront session over HTTP.
package handler

import (
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/supernova-store/internal/export"
	"github.com/xenking/supernova-store/internal/session"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// Brand is printed on receipt previews and documents.
	Brand export.Brand
}

// Handler maps HTTP requests to session operations. Until a session is
// attached every API route answers 503, so nothing can be bought before
// the catalog has loaded.
type Handler struct {
	session atomic.Pointer[session.Session]
	brand   export.Brand
}

// NewHandler constructs a Handler without a session.
func NewHandler(cfg HandlerConfig) *Handler {
	brand := cfg.Brand
	if brand.StoreName == "" {
		brand = export.DefaultBrand()
	}
	return &Handler{brand: brand}
}

// SetSession attaches the session and opens the API.
func (h *Handler) SetSession(s *session.Session) {
	h.session.Store(s)
}

// Ready reports whether a session is attached.
func (h *Handler) Ready() bool {
	return h.session.Load() != nil
}

// Routes returns the API routes, relative to the mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.gate)

	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/categories", h.listCategories)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addItem)
		r.Put("/items/{id}", h.updateItem)
		r.Delete("/items/{id}", h.removeItem)
	})

	r.Get("/tax-rates", h.listTaxRates)
	r.Put("/tax-rate", h.selectTaxRate)

	r.Get("/checkout", h.checkoutState)
	r.Post("/checkout", h.checkout)
	r.Get("/checkout/customer", h.defaultCustomer)

	r.Route("/receipt", func(r chi.Router) {
		r.Get("/", h.getReceipt)
		r.Delete("/", h.dismissReceipt)
		r.Get("/view", h.viewReceipt)
		r.Get("/document", h.receiptDocument(false))
		r.Get("/download", h.receiptDocument(true))
	})

	r.Get("/warnings", h.listWarnings)
	r.Delete("/warnings", h.dismissWarnings)

	return r
}

func (h *Handler) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Ready() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "catalog is still loading")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) sess() *session.Session {
	return h.session.Load()
}
