// Package checkout turns a cart into an immutable receipt.
//
// A checkout cycle moves Idle -> AwaitingCustomerInfo -> Completed, or to
// Rejected when submission fails. Completed and Rejected cycles may begin
// again. Stock is decremented for all lines or for none.
package checkout

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/supernova-store/internal/domain/cart"
	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/domain/pricing"
)

// State is the checkout cycle state.
type State int

const (
	StateIdle State = iota
	StateAwaitingCustomerInfo
	StateCompleted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCustomerInfo:
		return "awaiting_customer_info"
	case StateCompleted:
		return "completed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ValidationError rejects a submission whose preconditions are unmet.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Submission preconditions.
var (
	ErrEmptyCustomerName = &ValidationError{Field: "customer_name", Reason: "empty customer name"}
	ErrEmptyCustomerID   = &ValidationError{Field: "customer_id", Reason: "empty customer id"}
	ErrEmptyCart         = &ValidationError{Field: "cart", Reason: "empty cart"}
)

// ErrNotAwaitingCustomer is returned by Submit outside AwaitingCustomerInfo.
var ErrNotAwaitingCustomer = errors.New("checkout is not awaiting customer info")

// Option configures a Checkout.
type Option func(*Checkout)

// WithClock sets the receipt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Checkout) { c.now = now }
}

// WithIDs sets the receipt id generator.
func WithIDs(ids IDGenerator) Option {
	return func(c *Checkout) { c.ids = ids }
}

// Checkout drives checkout cycles over one cart and catalog.
type Checkout struct {
	cart    *cart.Cart
	catalog *catalog.Catalog
	ids     IDGenerator
	now     func() time.Time
	state   State
}

// New returns an idle Checkout.
func New(c *cart.Cart, cat *catalog.Catalog, opts ...Option) *Checkout {
	co := &Checkout{
		cart:    c,
		catalog: cat,
		now:     time.Now,
		state:   StateIdle,
	}
	for _, o := range opts {
		o(co)
	}
	if co.ids == nil {
		co.ids = NewReceiptIDs(0)
	}
	return co
}

// State returns the current cycle state.
func (c *Checkout) State() State { return c.state }

// Begin starts a cycle and waits for customer info. An empty cart cannot
// start a cycle.
func (c *Checkout) Begin() error {
	if c.cart.IsEmpty() {
		return ErrEmptyCart
	}
	c.state = StateAwaitingCustomerInfo
	return nil
}

// Cancel abandons the current cycle.
func (c *Checkout) Cancel() {
	c.state = StateIdle
}

// Submit completes the cycle: it validates the customer and cart, commits
// stock for every line, snapshots the receipt and clears the cart. On any
// error the cycle is Rejected and neither cart nor catalog is modified.
func (c *Checkout) Submit(customer Customer, rate decimal.Decimal) (*Receipt, error) {
	if c.state != StateAwaitingCustomerInfo {
		return nil, errors.Wrapf(ErrNotAwaitingCustomer, "state %s", c.state)
	}
	r, err := c.complete(customer, rate)
	if err != nil {
		c.state = StateRejected
		return nil, err
	}
	c.state = StateCompleted
	return r, nil
}

func (c *Checkout) complete(customer Customer, rate decimal.Decimal) (*Receipt, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	customer.ID = strings.TrimSpace(customer.ID)
	switch {
	case customer.Name == "":
		return nil, ErrEmptyCustomerName
	case customer.ID == "":
		return nil, ErrEmptyCustomerID
	case c.cart.IsEmpty():
		return nil, ErrEmptyCart
	}
	if err := pricing.ValidateRate(rate); err != nil {
		return nil, err
	}

	view := c.cart.View()
	if len(view) != c.cart.Len() {
		return nil, errors.Wrap(catalog.ErrUnknownItem, "cart references an item missing from the catalog")
	}

	lines := make([]ReceiptLine, len(view))
	reqs := make([]catalog.StockRequest, len(view))
	subtotal := decimal.Zero
	for i, v := range view {
		lines[i] = ReceiptLine{
			ItemID:    v.ItemID,
			Name:      v.Name,
			UnitPrice: v.UnitPrice,
			Quantity:  v.Quantity,
			Subtotal:  v.Subtotal,
		}
		reqs[i] = catalog.StockRequest{ItemID: v.ItemID, Quantity: v.Quantity}
		subtotal = subtotal.Add(v.Subtotal)
	}

	id, number, err := c.ids.Next()
	if err != nil {
		return nil, err
	}
	if err := c.catalog.DecrementAll(reqs); err != nil {
		return nil, errors.Wrap(err, "commit stock")
	}

	r := &Receipt{
		id:       id,
		number:   number,
		customer: customer,
		lines:    lines,
		summary:  pricing.Summarize(subtotal, rate),
		issuedAt: c.now(),
	}
	c.cart.Clear()
	return r, nil
}
