package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/supernova-store/internal/domain/cart"
	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/domain/checkout"
	"github.com/xenking/supernova-store/internal/domain/pricing"
	"github.com/xenking/supernova-store/internal/storage/codec"
)

// --- Mock implementations ---

type staticSource struct {
	items []catalog.Item
	err   error
}

func (s *staticSource) String() string { return "static" }

func (s *staticSource) Load(context.Context) ([]catalog.Item, error) {
	return s.items, s.err
}

type memStore struct {
	mu      sync.Mutex
	lines   []cart.Line
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) ([]cart.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines, m.loadErr
}

func (m *memStore) Save(_ context.Context, lines []cart.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.lines = lines
	return nil
}

func (m *memStore) saved() []cart.Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines
}

type seqIDs struct{ n int }

func (g *seqIDs) Next() (uuid.UUID, string, error) {
	g.n++
	return uuid.Must(uuid.NewV7()), fmt.Sprintf("FAC-%08d", g.n), nil
}

// --- Helpers ---

var fixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func testItems() []catalog.Item {
	return []catalog.Item{
		{ID: "a", Name: "Alpha", Price: decimal.RequireFromString("10.00"), Stock: 5, Category: "Tools"},
		{ID: "b", Name: "Beta", Price: decimal.RequireFromString("2.50"), Stock: 2, Category: "Parts"},
		{ID: "c", Name: "Gamma", Price: decimal.RequireFromString("7.25"), Stock: 0, Category: "Parts"},
	}
}

func testCtx() context.Context {
	return zctx.Base(context.Background(), zap.NewNop())
}

func openSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if opts.Source == nil && opts.Fallback == nil {
		opts.Source = &staticSource{items: testItems()}
	}
	if opts.IDs == nil {
		opts.IDs = &seqIDs{}
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return fixedNow }
	}
	s, err := Open(testCtx(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// --- Tests ---

func TestOpen_CatalogFallback(t *testing.T) {
	s := openSession(t, Options{
		Source:   &staticSource{err: errors.New("unreachable")},
		Fallback: catalog.DefaultSeed(),
	})

	page := s.Browse(catalog.Filter{}, 1, 0)
	assert.Equal(t, len(catalog.DefaultSeed()), page.TotalItems)

	warnings := s.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, SourceCatalog, warnings[0].Source)
	var loadErr *catalog.LoadError
	assert.ErrorAs(t, warnings[0].Err, &loadErr)

	s.DismissWarnings()
	assert.Empty(t, s.Warnings())
}

func TestOpen_RestoresCart(t *testing.T) {
	store := &memStore{lines: []cart.Line{
		{ItemID: "b", Quantity: 1},
		{ItemID: "gone", Quantity: 3},
		{ItemID: "b", Quantity: 4},
		{ItemID: "a", Quantity: 2},
	}}
	s := openSession(t, Options{Store: store})

	view := s.Cart()
	require.Len(t, view.Lines, 2)
	assert.Equal(t, "b", view.Lines[0].ItemID)
	assert.Equal(t, 2, view.Lines[0].Quantity, "clamped to stock")
	assert.Equal(t, "a", view.Lines[1].ItemID)
	assert.Len(t, s.Warnings(), 2)

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, []cart.Line{{ItemID: "b", Quantity: 2}, {ItemID: "a", Quantity: 2}}, store.saved())
}

func TestOpen_CorruptCart(t *testing.T) {
	store := &memStore{loadErr: &codec.CorruptError{Err: errors.New("bad json")}}
	s := openSession(t, Options{Store: store})

	assert.Empty(t, s.Cart().Lines)
	warnings := s.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, SourceCart, warnings[0].Source)
	assert.Contains(t, warnings[0].Message, "damaged")

	require.NoError(t, s.AddToCart("a", 1))
	assert.Equal(t, 1, s.Cart().TotalQuantity)
}

func TestSession_PersistenceRoundTrip(t *testing.T) {
	store := &memStore{}
	s := openSession(t, Options{Store: store})

	require.NoError(t, s.AddToCart("b", 1))
	require.NoError(t, s.AddToCart("a", 3))
	require.NoError(t, s.UpdateQuantity("b", 2))
	require.NoError(t, s.Close(context.Background()))

	reopened := openSession(t, Options{Store: store})
	view := reopened.Cart()
	require.Len(t, view.Lines, 2)
	assert.Equal(t, "b", view.Lines[0].ItemID)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, "a", view.Lines[1].ItemID)
	assert.Equal(t, 3, view.Lines[1].Quantity)
	assert.Empty(t, reopened.Warnings())
}

func TestSession_SaveFailureIsWarning(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	s := openSession(t, Options{Store: store})

	warned := make(chan Event, 4)
	s.Subscribe(func(e Event) {
		if e.Kind == WarningRaised {
			warned <- e
		}
	})

	require.NoError(t, s.AddToCart("a", 2))

	select {
	case e := <-warned:
		require.NotNil(t, e.Warning)
		assert.Equal(t, SourcePersistence, e.Warning.Source)
		assert.EqualError(t, e.Warning.Err, "disk full")
	case <-time.After(5 * time.Second):
		t.Fatal("expected a persistence warning")
	}

	assert.Equal(t, 2, s.Cart().TotalQuantity, "in-memory cart is untouched")
}

func TestSession_CartOperations(t *testing.T) {
	s := openSession(t, Options{})
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.listen)

	require.NoError(t, s.AddToCart("a", 2))

	err := s.AddToCart("b", 3)
	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)

	err = s.AddToCart("missing", 1)
	require.ErrorIs(t, err, catalog.ErrUnknownItem)

	err = s.AddToCart("a", 0)
	var qtyErr *cart.InvalidQuantityError
	require.ErrorAs(t, err, &qtyErr)

	require.NoError(t, s.UpdateQuantity("a", 4))
	s.RemoveFromCart("nothing")
	s.ClearCart()
	assert.Empty(t, s.Cart().Lines)

	assert.Equal(t, []EventKind{CartChanged, CartChanged, CartChanged, CartChanged}, rec.kinds())

	unsubscribe()
	require.NoError(t, s.AddToCart("a", 1))
	assert.Len(t, rec.kinds(), 4)
}

func TestSession_TaxRate(t *testing.T) {
	rates, err := pricing.NewRateTable([]string{"0", "0.13", "0.15"}, "0.13")
	require.NoError(t, err)
	s := openSession(t, Options{Rates: rates})

	require.NoError(t, s.AddToCart("a", 2))
	assert.Equal(t, "2.6", s.Cart().Summary.Tax.String())

	require.NoError(t, s.SelectTaxRate(decimal.RequireFromString("0.15")))
	assert.Equal(t, "3", s.Cart().Summary.Tax.String())

	err = s.SelectTaxRate(decimal.RequireFromString("0.2"))
	require.ErrorIs(t, err, pricing.ErrUnknownRate)

	err = s.SelectTaxRate(decimal.RequireFromString("-0.1"))
	require.ErrorIs(t, err, pricing.ErrNegativeRate)

	list, selected := s.TaxRates()
	assert.Len(t, list, 3)
	assert.Equal(t, "0.15", selected.String())
}

func TestSession_Checkout(t *testing.T) {
	store := &memStore{}
	s := openSession(t, Options{Store: store})
	rec := &recorder{}
	s.Subscribe(rec.listen)

	_, err := s.Receipt()
	require.ErrorIs(t, err, ErrNoReceipt)

	require.NoError(t, s.AddToCart("a", 2))
	r, err := s.Checkout(checkout.Customer{Name: "Ana Pérez", ID: "12345678-9"})
	require.NoError(t, err)

	assert.Equal(t, "FAC-00000001", r.Number())
	assert.Equal(t, "22.6", r.Total().String())
	assert.Equal(t, fixedNow, r.IssuedAt())
	assert.Equal(t, checkout.StateCompleted, s.CheckoutState())
	assert.Empty(t, s.Cart().Lines)

	it, err := s.Item("a")
	require.NoError(t, err)
	assert.Equal(t, 3, it.Stock)

	got, err := s.Receipt()
	require.NoError(t, err)
	assert.Same(t, r, got)

	assert.Equal(t, []EventKind{CartChanged, StockChanged, CartChanged, ReceiptIssued}, rec.kinds())

	// Later tax and stock changes leave the receipt alone.
	require.NoError(t, s.SelectTaxRate(decimal.RequireFromString("0.13")))
	require.NoError(t, s.AddToCart("a", 3))
	assert.Equal(t, "22.6", r.Total().String())
	assert.Equal(t, "2.6", r.Tax().String())

	s.DismissReceipt()
	_, err = s.Receipt()
	require.ErrorIs(t, err, ErrNoReceipt)
	assert.Equal(t, checkout.StateIdle, s.CheckoutState())

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, []cart.Line{{ItemID: "a", Quantity: 3}}, store.saved())
}

func TestSession_CheckoutRejected(t *testing.T) {
	s := openSession(t, Options{})

	_, err := s.Checkout(checkout.DefaultCustomer())
	require.ErrorIs(t, err, checkout.ErrEmptyCart)

	require.NoError(t, s.AddToCart("b", 1))
	require.NoError(t, s.BeginCheckout())
	assert.Equal(t, checkout.StateAwaitingCustomerInfo, s.CheckoutState())

	_, err = s.SubmitCheckout(checkout.Customer{Name: "  ", ID: "1"})
	var vErr *checkout.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, checkout.StateRejected, s.CheckoutState())
	assert.Equal(t, 1, s.Cart().TotalQuantity)

	_, err = s.Receipt()
	require.ErrorIs(t, err, ErrNoReceipt)

	require.NoError(t, s.BeginCheckout())
	s.CancelCheckout()
	assert.Equal(t, checkout.StateIdle, s.CheckoutState())
}

func TestSession_ListenerMayCallBack(t *testing.T) {
	s := openSession(t, Options{})
	var seen CartView
	s.Subscribe(func(e Event) {
		if e.Kind == CartChanged {
			seen = s.Cart()
		}
	})

	require.NoError(t, s.AddToCart("a", 1))
	assert.Equal(t, 1, seen.TotalQuantity)
}

func TestSession_BrowseAndCategories(t *testing.T) {
	s := openSession(t, Options{PageSize: 2})

	page := s.Browse(catalog.Filter{}, 1, 0)
	assert.Equal(t, 2, page.Size)
	assert.Equal(t, 2, page.TotalPages)

	page = s.Browse(catalog.Filter{Category: "parts"}, 1, 10)
	assert.Equal(t, 2, page.TotalItems)

	assert.Equal(t, []string{"Tools", "Parts"}, s.Categories())

	_, err := s.Item("zzz")
	require.ErrorIs(t, err, catalog.ErrUnknownItem)
}
