package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/supernova-store/internal/domain/pricing"
)

// Customer identifies the buyer on a receipt.
type Customer struct {
	Name string
	ID   string
}

// DefaultCustomer is the walk-in customer offered as a form prefill.
func DefaultCustomer() Customer {
	return Customer{Name: "Consumidor Final", ID: "00000000-0"}
}

// ReceiptLine is a purchased line with the name and price captured at
// checkout time.
type ReceiptLine struct {
	ItemID    string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}

// Receipt is the immutable result of a completed checkout.
type Receipt struct {
	id       uuid.UUID
	number   string
	customer Customer
	lines    []ReceiptLine
	summary  pricing.Summary
	issuedAt time.Time
}

func (r *Receipt) ID() uuid.UUID { return r.id }
func (r *Receipt) Number() string { return r.number }
func (r *Receipt) Customer() Customer { return r.customer }
func (r *Receipt) Subtotal() decimal.Decimal { return r.summary.Subtotal }
func (r *Receipt) TaxRate() decimal.Decimal { return r.summary.Rate }
func (r *Receipt) Tax() decimal.Decimal { return r.summary.Tax }
func (r *Receipt) Total() decimal.Decimal { return r.summary.Total }
func (r *Receipt) IssuedAt() time.Time { return r.issuedAt }

// Lines returns a copy of the purchased lines.
func (r *Receipt) Lines() []ReceiptLine {
	out := make([]ReceiptLine, len(r.lines))
	copy(out, r.lines)
	return out
}

// ItemCount sums the purchased quantities.
func (r *Receipt) ItemCount() int {
	var n int
	for _, l := range r.lines {
		n += l.Quantity
	}
	return n
}
