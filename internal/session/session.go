// Package session owns the state of one shopper: the loaded catalog, the
// persistent cart, the checkout cycle, the selected tax rate and the last
// issued receipt.
//
// Every operation is serialized by a single mutex. Subscribers are notified
// after the mutation completes and the lock is released, so renderers observe
// state rather than being driven by it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/supernova-store/internal/domain/cart"
	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/domain/checkout"
	"github.com/xenking/supernova-store/internal/domain/pricing"
	"github.com/xenking/supernova-store/internal/storage/codec"
)

const (
	// DefaultTaxRate is used when no rate table is configured.
	DefaultTaxRate = "0.13"

	maxWarnings = 32
)

// ErrNoReceipt is returned when no receipt has been issued or it was dismissed.
var ErrNoReceipt = errors.New("no receipt")

// Options configures Open.
type Options struct {
	// Source is loaded once. A nil Source uses Fallback directly.
	Source catalog.Source
	// Fallback is used when Source fails.
	Fallback []catalog.Item
	// Store persists the cart. A nil Store keeps the cart in memory only.
	Store    cart.Store
	Rates    *pricing.RateTable
	IDs      checkout.IDGenerator
	Clock    func() time.Time
	PageSize int
}

// CartView is the priced cart.
type CartView struct {
	Lines         []cart.ViewLine
	TotalQuantity int
	Summary       pricing.Summary
}

// Session is the application-state controller.
type Session struct {
	lg *zap.Logger

	mu       sync.Mutex
	catalog  *catalog.Catalog
	cart     *cart.Cart
	checkout *checkout.Checkout
	rates    *pricing.RateTable
	rate     decimal.Decimal
	receipt  *checkout.Receipt
	warnings []Warning
	pageSize int

	listeners map[int]Listener
	nextID    int
	pending   []Event

	saver *saver
}

// Open loads the catalog, restores the cart and starts the background
// cart writer. Load and restore problems never fail Open; they are recorded
// as warnings.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lg := zctx.From(ctx)

	rates := opts.Rates
	if rates == nil {
		var err error
		if rates, err = pricing.NewRateTable(nil, DefaultTaxRate); err != nil {
			return nil, errors.Wrap(err, "default rate table")
		}
	}
	s := &Session{
		lg:        lg,
		rates:     rates,
		rate:      rates.Default(),
		pageSize:  opts.PageSize,
		listeners: map[int]Listener{},
	}
	if s.pageSize <= 0 {
		s.pageSize = catalog.DefaultPageSize
	}

	s.catalog = s.loadCatalog(ctx, opts)

	var cartOpts []cart.Option
	if opts.Store != nil {
		s.saver = newSaver(opts.Store, s.persistFailed)
		cartOpts = append(cartOpts, cart.WithPersist(s.saver.submit))
	}
	s.cart = s.restoreCart(ctx, opts.Store, cartOpts)

	var coOpts []checkout.Option
	if opts.IDs != nil {
		coOpts = append(coOpts, checkout.WithIDs(opts.IDs))
	}
	if opts.Clock != nil {
		coOpts = append(coOpts, checkout.WithClock(opts.Clock))
	}
	s.checkout = checkout.New(s.cart, s.catalog, coOpts...)

	if s.saver != nil {
		go s.saver.run(context.WithoutCancel(ctx))
	}
	// Events raised while opening are only kept as warnings.
	s.pending = nil

	lg.Info("Session opened",
		zap.Int("items", s.catalog.Len()),
		zap.Int("cart_lines", s.cart.Len()),
		zap.Int("warnings", len(s.warnings)),
	)
	return s, nil
}

func (s *Session) loadCatalog(ctx context.Context, opts Options) *catalog.Catalog {
	if opts.Source == nil {
		c, err := catalog.New(opts.Fallback)
		if err != nil {
			s.warn(Warning{Source: SourceCatalog, Message: "Default product list is invalid.", Err: err})
			c, _ = catalog.New(nil)
		}
		return c
	}
	c, loadErr := catalog.LoadOrFallback(ctx, opts.Source, opts.Fallback)
	if loadErr != nil {
		s.lg.Warn("Catalog load failed, using fallback",
			zap.String("source", loadErr.Source),
			zap.Int("fallback_items", c.Len()),
			zap.Error(loadErr),
		)
		s.warn(Warning{
			Source:  SourceCatalog,
			Message: "Products could not be loaded. Showing the default product list.",
			Err:     loadErr,
		})
	}
	return c
}

func (s *Session) restoreCart(ctx context.Context, store cart.Store, opts []cart.Option) *cart.Cart {
	if store == nil {
		return cart.New(s.catalog, opts...)
	}
	lines, err := store.Load(ctx)
	if err != nil {
		var corrupt *codec.CorruptError
		msg := "Saved cart could not be read. Starting with an empty cart."
		if errors.As(err, &corrupt) {
			msg = "Saved cart was damaged and has been discarded."
		}
		s.lg.Warn("Cart restore failed", zap.Error(err))
		s.warn(Warning{Source: SourceCart, Message: msg, Err: err})
		return cart.New(s.catalog, opts...)
	}

	c, adjustments := cart.Restore(s.catalog, lines, opts...)
	for _, a := range adjustments {
		s.warn(Warning{Source: SourceCart, Message: adjustmentMessage(a)})
	}
	if len(adjustments) > 0 {
		s.saver.submit(c.Lines())
	}
	return c
}

func adjustmentMessage(a cart.Adjustment) string {
	if a.To > 0 {
		return fmt.Sprintf("Item %s: quantity changed from %d to %d (%s).", a.ItemID, a.From, a.To, a.Reason)
	}
	return fmt.Sprintf("Item %s was removed from the cart (%s).", a.ItemID, a.Reason)
}

// Close flushes the pending cart snapshot and stops the background writer.
func (s *Session) Close(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	if err := s.saver.close(ctx); err != nil {
		return errors.Wrap(err, "flush cart")
	}
	return nil
}

// Subscribe registers l and returns a function that removes it.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// do runs fn under the lock and then delivers the events it queued.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()
	err := fn()
	events := s.pending
	s.pending = nil
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, e := range events {
		for _, l := range listeners {
			l(e)
		}
	}
	return err
}

func (s *Session) emit(e Event) {
	s.pending = append(s.pending, e)
}

// warn records w and queues its event. The caller holds the lock.
func (s *Session) warn(w Warning) {
	s.warnings = append(s.warnings, w)
	if len(s.warnings) > maxWarnings {
		s.warnings = s.warnings[len(s.warnings)-maxWarnings:]
	}
	s.emit(Event{Kind: WarningRaised, Warning: &w})
}

func (s *Session) persistFailed(err error) {
	s.lg.Warn("Cart save failed", zap.Error(err))
	_ = s.do(func() error {
		s.warn(Warning{
			Source:  SourcePersistence,
			Message: "Cart could not be saved. Changes may be lost after a restart.",
			Err:     err,
		})
		return nil
	})
}

// Warnings returns the retained warnings, oldest first.
func (s *Session) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Warning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// DismissWarnings clears the retained warnings.
func (s *Session) DismissWarnings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = nil
}

// Browse returns one page of items matching f. A non-positive size uses the
// configured page size.
func (s *Session) Browse(f catalog.Filter, page, size int) catalog.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size <= 0 {
		size = s.pageSize
	}
	return s.catalog.Query(f, page, size)
}

// Categories lists item categories.
func (s *Session) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Categories()
}

// Item returns the item with the given id.
func (s *Session) Item(id string) (catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.catalog.FindByID(id)
	if !ok {
		return catalog.Item{}, errors.Wrapf(catalog.ErrUnknownItem, "item %s", id)
	}
	return it, nil
}

// AddToCart adds qty units of the item to the cart.
func (s *Session) AddToCart(itemID string, qty int) error {
	return s.do(func() error {
		it, ok := s.catalog.FindByID(itemID)
		if !ok {
			return errors.Wrapf(catalog.ErrUnknownItem, "item %s", itemID)
		}
		if err := s.cart.Add(it, qty); err != nil {
			return err
		}
		s.emit(Event{Kind: CartChanged, ItemIDs: []string{itemID}})
		return nil
	})
}

// UpdateQuantity sets the quantity of a cart line. A non-positive qty
// removes it.
func (s *Session) UpdateQuantity(itemID string, qty int) error {
	return s.do(func() error {
		if err := s.cart.UpdateQuantity(itemID, qty); err != nil {
			return err
		}
		s.emit(Event{Kind: CartChanged, ItemIDs: []string{itemID}})
		return nil
	})
}

// RemoveFromCart deletes a cart line. Removing an absent item is not an error.
func (s *Session) RemoveFromCart(itemID string) {
	_ = s.do(func() error {
		s.cart.Remove(itemID)
		s.emit(Event{Kind: CartChanged, ItemIDs: []string{itemID}})
		return nil
	})
}

// ClearCart empties the cart.
func (s *Session) ClearCart() {
	_ = s.do(func() error {
		s.cart.Clear()
		s.emit(Event{Kind: CartChanged})
		return nil
	})
}

// Cart returns the priced cart at the selected tax rate.
func (s *Session) Cart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CartView{
		Lines:         s.cart.View(),
		TotalQuantity: s.cart.TotalQuantity(),
		Summary:       pricing.Summarize(s.cart.Subtotal(), s.rate),
	}
}

// TaxRates returns the selectable rates and the selected one.
func (s *Session) TaxRates() (rates []decimal.Decimal, selected decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rates.Rates(), s.rate
}

// SelectTaxRate changes the rate used for the cart summary and the next
// checkout. Issued receipts keep their rate.
func (s *Session) SelectTaxRate(rate decimal.Decimal) error {
	return s.do(func() error {
		if err := pricing.ValidateRate(rate); err != nil {
			return err
		}
		if !s.rates.Contains(rate) {
			return errors.Wrapf(pricing.ErrUnknownRate, "rate %s", rate)
		}
		s.rate = rate
		s.emit(Event{Kind: TaxRateChanged, Rate: rate})
		return nil
	})
}

// CheckoutState reports the current checkout cycle state.
func (s *Session) CheckoutState() checkout.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout.State()
}

// BeginCheckout starts a checkout cycle.
func (s *Session) BeginCheckout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout.Begin()
}

// CancelCheckout abandons the current cycle.
func (s *Session) CancelCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkout.Cancel()
}

// SubmitCheckout completes the cycle for customer. On success the receipt
// becomes the session's current receipt, stock is committed and the cart is
// emptied.
func (s *Session) SubmitCheckout(customer checkout.Customer) (*checkout.Receipt, error) {
	var r *checkout.Receipt
	err := s.do(func() error {
		var err error
		r, err = s.checkout.Submit(customer, s.rate)
		if err != nil {
			return err
		}
		s.receipt = r

		ids := make([]string, 0, len(r.Lines()))
		for _, l := range r.Lines() {
			ids = append(ids, l.ItemID)
		}
		s.emit(Event{Kind: StockChanged, ItemIDs: ids})
		s.emit(Event{Kind: CartChanged})
		s.emit(Event{Kind: ReceiptIssued, Receipt: r})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Checkout runs a whole cycle: Begin followed by Submit.
func (s *Session) Checkout(customer checkout.Customer) (*checkout.Receipt, error) {
	if err := s.BeginCheckout(); err != nil {
		return nil, err
	}
	return s.SubmitCheckout(customer)
}

// Receipt returns the last issued receipt.
func (s *Session) Receipt() (*checkout.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.receipt == nil {
		return nil, ErrNoReceipt
	}
	return s.receipt, nil
}

// DismissReceipt drops the current receipt and returns checkout to idle.
func (s *Session) DismissReceipt() {
	_ = s.do(func() error {
		if s.receipt == nil {
			return nil
		}
		r := s.receipt
		s.receipt = nil
		s.checkout.Cancel()
		s.emit(Event{Kind: ReceiptDismissed, Receipt: r})
		return nil
	})
}
