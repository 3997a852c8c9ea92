package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/supernova-store/internal/domain/cart"
)

func (h *Handler) respondCart(w http.ResponseWriter, status int) {
	v := h.sess().Cart()
	writeJSON(w, status, func(e *jx.Encoder) { writeCart(e, v) })
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	h.respondCart(w, http.StatusOK)
}

// addItem handles {"itemId": "1", "qty": 2}.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var itemID, rawQty string
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "itemId", "id":
			itemID, err = decodeScalar(d)
		case "qty", "quantity":
			rawQty, err = decodeScalar(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if itemID == "" {
		h.fail(w, r, badRequest("itemId is required"))
		return
	}
	if rawQty == "" {
		rawQty = "1"
	}
	qty, err := cart.ParseQuantity(rawQty)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.sess().AddToCart(itemID, qty); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

// updateItem handles {"qty": n}. Zero or negative removes the line.
func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var rawQty string
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		if key == "qty" || key == "quantity" {
			var err error
			rawQty, err = decodeScalar(d)
			return err
		}
		return d.Skip()
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if rawQty == "" {
		h.fail(w, r, badRequest("qty is required"))
		return
	}
	qty, err := parseQuantity(rawQty)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.sess().UpdateQuantity(chi.URLParam(r, "id"), qty); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.sess().RemoveFromCart(chi.URLParam(r, "id"))
	h.respondCart(w, http.StatusOK)
}

func (h *Handler) clearCart(w http.ResponseWriter, _ *http.Request) {
	h.sess().ClearCart()
	h.respondCart(w, http.StatusOK)
}
