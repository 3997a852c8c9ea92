package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/storage/codec"
)

const maxPageSize = 100

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Term:     strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
	}
	var err error
	if f.MinPrice, err = parsePrice(q.Get("min")); err != nil {
		h.fail(w, r, badRequest("invalid min price"))
		return
	}
	if f.MaxPrice, err = parsePrice(q.Get("max")); err != nil {
		h.fail(w, r, badRequest("invalid max price"))
		return
	}
	page, err := parseInt(q.Get("page"), 1)
	if err != nil {
		h.fail(w, r, badRequest("invalid page"))
		return
	}
	size, err := parseInt(q.Get("size"), 0)
	if err != nil || size > maxPageSize {
		h.fail(w, r, badRequest("invalid page size"))
		return
	}

	p := h.sess().Browse(f, page, size)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.ArrStart()
				for _, it := range p.Items {
					codec.WriteItem(e, it)
				}
				e.ArrEnd()
			})
			e.Field("page", func(e *jx.Encoder) { e.Int(p.Number) })
			e.Field("size", func(e *jx.Encoder) { e.Int(p.Size) })
			e.Field("totalItems", func(e *jx.Encoder) { e.Int(p.TotalItems) })
			e.Field("totalPages", func(e *jx.Encoder) { e.Int(p.TotalPages) })
		})
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	it, err := h.sess().Item(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { codec.WriteItem(e, it) })
}

func (h *Handler) listCategories(w http.ResponseWriter, _ *http.Request) {
	cats := h.sess().Categories()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range cats {
			e.Str(c)
		}
		e.ArrEnd()
	})
}

func parsePrice(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func parseInt(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, badRequest("expected a non-negative integer")
	}
	return n, nil
}
