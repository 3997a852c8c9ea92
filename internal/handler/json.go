package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/supernova-store/internal/domain/cart"
	"github.com/xenking/supernova-store/internal/domain/checkout"
	"github.com/xenking/supernova-store/internal/domain/pricing"
	"github.com/xenking/supernova-store/internal/session"
	"github.com/xenking/supernova-store/internal/storage/codec"
)

const maxBodySize = 64 << 10

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// readObject decodes a JSON object body, calling fn for every field.
func readObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return badRequest("request body is too large")
	}
	if err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return err
		}
		return badRequest("malformed JSON body")
	}
	return nil
}

// decodeScalar reads a string or a number as text.
func decodeScalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", badRequest("expected a string or a number")
	}
}

// parseQuantity accepts any integer. The session decides what zero and
// negative values mean.
func parseQuantity(s string) (int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || d.Abs().GreaterThan(decimal.NewFromInt(1<<31-1)) {
		return 0, &cart.InvalidQuantityError{Quantity: s}
	}
	return int(d.IntPart()), nil
}

func writeSummary(e *jx.Encoder, s pricing.Summary) {
	e.Field("subtotal", func(e *jx.Encoder) { codec.WriteMoney(e, s.Subtotal) })
	e.Field("taxRate", func(e *jx.Encoder) { e.Str(s.Rate.String()) })
	e.Field("tax", func(e *jx.Encoder) { codec.WriteMoney(e, s.Tax) })
	e.Field("total", func(e *jx.Encoder) { codec.WriteMoney(e, s.Total) })
}

func writeCart(e *jx.Encoder, v session.CartView) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("lines", func(e *jx.Encoder) {
			e.ArrStart()
			for _, l := range v.Lines {
				e.Obj(func(e *jx.Encoder) {
					e.Field("itemId", func(e *jx.Encoder) { e.Str(l.ItemID) })
					e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
					e.Field("unitPrice", func(e *jx.Encoder) { codec.WriteMoney(e, l.UnitPrice) })
					e.Field("qty", func(e *jx.Encoder) { e.Int(l.Quantity) })
					e.Field("stock", func(e *jx.Encoder) { e.Int(l.Stock) })
					e.Field("subtotal", func(e *jx.Encoder) { codec.WriteMoney(e, l.Subtotal) })
				})
			}
			e.ArrEnd()
		})
		e.Field("totalQuantity", func(e *jx.Encoder) { e.Int(v.TotalQuantity) })
		writeSummary(e, v.Summary)
	})
}

func writeCustomer(e *jx.Encoder, c checkout.Customer) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
	})
}

func writeReceipt(e *jx.Encoder, r *checkout.Receipt) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(r.ID().String()) })
		e.Field("number", func(e *jx.Encoder) { e.Str(r.Number()) })
		e.Field("issuedAt", func(e *jx.Encoder) { e.Str(r.IssuedAt().Format(time.RFC3339)) })
		e.Field("customer", func(e *jx.Encoder) { writeCustomer(e, r.Customer()) })
		e.Field("lines", func(e *jx.Encoder) {
			e.ArrStart()
			for _, l := range r.Lines() {
				e.Obj(func(e *jx.Encoder) {
					e.Field("itemId", func(e *jx.Encoder) { e.Str(l.ItemID) })
					e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
					e.Field("unitPrice", func(e *jx.Encoder) { codec.WriteMoney(e, l.UnitPrice) })
					e.Field("qty", func(e *jx.Encoder) { e.Int(l.Quantity) })
					e.Field("subtotal", func(e *jx.Encoder) { codec.WriteMoney(e, l.Subtotal) })
				})
			}
			e.ArrEnd()
		})
		e.Field("itemCount", func(e *jx.Encoder) { e.Int(r.ItemCount()) })
		writeSummary(e, pricing.Summary{Subtotal: r.Subtotal(), Rate: r.TaxRate(), Tax: r.Tax(), Total: r.Total()})
	})
}
