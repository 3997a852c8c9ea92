// Package catalog holds the purchasable items of the storefront.
//
// A Catalog is loaded once from a Source and is read-mostly afterwards: the
// only mutations are stock decrements performed by checkout and operator
// price changes. It is not safe for concurrent use; the owning session
// serializes access.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownItem is returned when an item id is not present in the catalog.
	ErrUnknownItem = errors.New("item not found")
	// ErrInvalidItem is returned by NewItem for records that violate the item
	// invariants (empty id or name, negative price or stock).
	ErrInvalidItem = errors.New("invalid item")
	// ErrInvalidQuantity is returned when a stock request is not positive.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Item is a purchasable catalog entry.
type Item struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Stock    int
	Category string
}

// NewItem validates and constructs an Item.
func NewItem(id, name string, price decimal.Decimal, stock int, category string) (Item, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return Item{}, errors.Wrap(ErrInvalidItem, "empty id")
	case strings.TrimSpace(name) == "":
		return Item{}, errors.Wrapf(ErrInvalidItem, "item %s: empty name", id)
	case price.IsNegative():
		return Item{}, errors.Wrapf(ErrInvalidItem, "item %s: negative price %s", id, price)
	case stock < 0:
		return Item{}, errors.Wrapf(ErrInvalidItem, "item %s: negative stock %d", id, stock)
	}
	return Item{
		ID:       id,
		Name:     name,
		Price:    price,
		Stock:    stock,
		Category: category,
	}, nil
}

// InsufficientStockError indicates that a requested quantity exceeds the
// stock currently available for an item.
type InsufficientStockError struct {
	ItemID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

// LoadError indicates the catalog source was unreachable or malformed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load catalog from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Source provides the raw item list for a catalog.
type Source interface {
	fmt.Stringer
	Load(ctx context.Context) ([]Item, error)
}

// StockRequest asks for Quantity units of an item.
type StockRequest struct {
	ItemID   string
	Quantity int
}

// Catalog is an ordered, id-indexed item collection.
type Catalog struct {
	items []Item
	index map[string]int
}

// New builds a catalog from items, preserving their order. Items are
// re-validated and duplicate ids are rejected.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		v, err := NewItem(it.ID, it.Name, it.Price, it.Stock, it.Category)
		if err != nil {
			return nil, err
		}
		if _, ok := c.index[v.ID]; ok {
			return nil, errors.Errorf("duplicate item id %s", v.ID)
		}
		c.index[v.ID] = len(c.items)
		c.items = append(c.items, v)
	}
	return c, nil
}

// Load reads the item list from src. Any failure, including malformed
// records, is reported as *LoadError.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	items, err := src.Load(ctx)
	if err != nil {
		return nil, &LoadError{Source: src.String(), Err: err}
	}
	c, err := New(items)
	if err != nil {
		return nil, &LoadError{Source: src.String(), Err: err}
	}
	return c, nil
}

// LoadOrFallback loads from src and falls back to a catalog built from
// fallback when loading fails. The load error is returned alongside the
// fallback catalog so the caller can warn the user.
func LoadOrFallback(ctx context.Context, src Source, fallback []Item) (*Catalog, *LoadError) {
	c, err := Load(ctx, src)
	if err == nil {
		return c, nil
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Source: src.String(), Err: err}
	}
	fb, fbErr := New(fallback)
	if fbErr != nil {
		fb = &Catalog{index: map[string]int{}}
	}
	return fb, loadErr
}

// DefaultSeed returns the small fixed item list used when the catalog
// source cannot be loaded.
func DefaultSeed() []Item {
	return []Item{
		{ID: "1", Name: `Laptop HP Pavilion 15.6"`, Price: decimal.RequireFromString("899.99"), Stock: 10, Category: "Computers"},
		{ID: "2", Name: "Logitech Wireless Mouse", Price: decimal.RequireFromString("25.50"), Stock: 30, Category: "Accessories"},
		{ID: "3", Name: "RGB Mechanical Keyboard", Price: decimal.RequireFromString("75.00"), Stock: 15, Category: "Accessories"},
	}
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// FindByID returns the item with the given id.
func (c *Catalog) FindByID(id string) (Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Items returns a copy of all items in source order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// DecrementStock removes qty units of an item from stock.
func (c *Catalog) DecrementStock(id string, qty int) error {
	return c.DecrementAll([]StockRequest{{ItemID: id, Quantity: qty}})
}

// DecrementAll applies every request or none of them. All requests are
// validated against current stock, with repeated ids summed, before any
// stock is changed.
func (c *Catalog) DecrementAll(reqs []StockRequest) error {
	need := make(map[string]int, len(reqs))
	order := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return errors.Wrapf(ErrInvalidQuantity, "item %s", r.ItemID)
		}
		if _, ok := c.index[r.ItemID]; !ok {
			return errors.Wrapf(ErrUnknownItem, "item %s", r.ItemID)
		}
		if _, seen := need[r.ItemID]; !seen {
			order = append(order, r.ItemID)
		}
		need[r.ItemID] += r.Quantity
	}
	for _, id := range order {
		it := c.items[c.index[id]]
		if need[id] > it.Stock {
			return &InsufficientStockError{ItemID: id, Requested: need[id], Available: it.Stock}
		}
	}
	for _, id := range order {
		c.items[c.index[id]].Stock -= need[id]
	}
	return nil
}

// SetPrice changes the unit price of an item. Issued receipts keep the
// price they were created with.
func (c *Catalog) SetPrice(id string, price decimal.Decimal) error {
	i, ok := c.index[id]
	if !ok {
		return errors.Wrapf(ErrUnknownItem, "item %s", id)
	}
	if price.IsNegative() {
		return errors.Wrapf(ErrInvalidItem, "item %s: negative price %s", id, price)
	}
	c.items[i].Price = price
	return nil
}
