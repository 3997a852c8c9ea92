package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/supernova-store/internal/domain/checkout"
	"github.com/xenking/supernova-store/internal/domain/pricing"
	"github.com/xenking/supernova-store/internal/export"
)

func (h *Handler) listTaxRates(w http.ResponseWriter, _ *http.Request) {
	rates, selected := h.sess().TaxRates()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("rates", func(e *jx.Encoder) {
				e.ArrStart()
				for _, r := range rates {
					e.Str(r.String())
				}
				e.ArrEnd()
			})
			e.Field("selected", func(e *jx.Encoder) { e.Str(selected.String()) })
		})
	})
}

// selectTaxRate handles {"rate": "0.13"}.
func (h *Handler) selectTaxRate(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		if key == "rate" {
			var err error
			raw, err = decodeScalar(d)
			return err
		}
		return d.Skip()
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if raw == "" {
		h.fail(w, r, badRequest("rate is required"))
		return
	}
	rate, err := pricing.ParseRate(raw)
	if err != nil {
		if !errors.Is(err, pricing.ErrNegativeRate) {
			err = badRequest("invalid tax rate")
		}
		h.fail(w, r, err)
		return
	}
	if err := h.sess().SelectTaxRate(rate); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondCart(w, http.StatusOK)
}

func (h *Handler) checkoutState(w http.ResponseWriter, _ *http.Request) {
	state := h.sess().CheckoutState()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("state", func(e *jx.Encoder) { e.Str(state.String()) })
		})
	})
}

func (h *Handler) defaultCustomer(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { writeCustomer(e, checkout.DefaultCustomer()) })
}

// checkout handles {"name": "...", "id": "..."} and issues a receipt.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var c checkout.Customer
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = d.Str()
		case "id":
			c.ID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	receipt, err := h.sess().Checkout(c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { writeReceipt(e, receipt) })
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.sess().Receipt()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { writeReceipt(e, receipt) })
}

func (h *Handler) dismissReceipt(w http.ResponseWriter, _ *http.Request) {
	h.sess().DismissReceipt()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) viewReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.sess().Receipt()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.HTML(&buf, receipt, h.brand); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) receiptDocument(attachment bool) http.HandlerFunc {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		receipt, err := h.sess().Receipt()
		if err != nil {
			h.fail(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := export.PDF(&buf, receipt, h.brand); err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", disposition+`; filename="`+export.FileName(receipt)+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		_, _ = buf.WriteTo(w)
	}
}

func (h *Handler) listWarnings(w http.ResponseWriter, _ *http.Request) {
	warnings := h.sess().Warnings()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, wr := range warnings {
			e.Obj(func(e *jx.Encoder) {
				e.Field("source", func(e *jx.Encoder) { e.Str(string(wr.Source)) })
				e.Field("message", func(e *jx.Encoder) { e.Str(wr.Message) })
			})
		}
		e.ArrEnd()
	})
}

func (h *Handler) dismissWarnings(w http.ResponseWriter, _ *http.Request) {
	h.sess().DismissWarnings()
	w.WriteHeader(http.StatusNoContent)
}
