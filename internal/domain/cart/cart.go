// Package cart implements the shopping cart: an ordered set of item
// quantities validated against catalog stock.
package cart

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/supernova-store/internal/domain/catalog"
)

// InvalidQuantityError indicates a non-positive or non-integer quantity.
type InvalidQuantityError struct {
	ItemID   string
	Quantity string
}

func (e *InvalidQuantityError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("invalid quantity %q: must be a positive integer", e.Quantity)
	}
	return fmt.Sprintf("invalid quantity %q for item %s: must be a positive integer", e.Quantity, e.ItemID)
}

// Lookup resolves item ids against the current catalog.
type Lookup interface {
	FindByID(id string) (catalog.Item, bool)
}

// Store is the durable slot holding the serialized cart.
type Store interface {
	// Load returns the persisted lines, or nil when nothing was saved.
	Load(ctx context.Context) ([]Line, error)
	Save(ctx context.Context, lines []Line) error
}

// Line is a requested quantity of one item.
type Line struct {
	ItemID   string
	Quantity int
}

// ViewLine is a cart line joined with current catalog data.
type ViewLine struct {
	ItemID    string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Stock     int
	Subtotal  decimal.Decimal
}

// Option configures a Cart.
type Option func(*Cart)

// WithPersist registers fn to receive a copy of the lines after every
// successful mutation. fn must not block.
func WithPersist(fn func([]Line)) Option {
	return func(c *Cart) { c.persist = fn }
}

// Cart holds at most one line per item, in first-added order.
type Cart struct {
	lookup  Lookup
	lines   []Line
	persist func([]Line)
}

// New returns an empty cart.
func New(lookup Lookup, opts ...Option) *Cart {
	c := &Cart{lookup: lookup}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cart) find(itemID string) int {
	for i, l := range c.lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) save() {
	if c.persist != nil {
		c.persist(c.Lines())
	}
}

// Add puts qty units of item into the cart, merging with an existing line.
// The cumulative quantity is checked against the item's current stock.
func (c *Cart) Add(item catalog.Item, qty int) error {
	if qty <= 0 {
		return &InvalidQuantityError{ItemID: item.ID, Quantity: strconv.Itoa(qty)}
	}
	current, ok := c.lookup.FindByID(item.ID)
	if !ok {
		return errors.Wrapf(catalog.ErrUnknownItem, "item %s", item.ID)
	}

	i := c.find(item.ID)
	total := qty
	if i >= 0 {
		total += c.lines[i].Quantity
	}
	if total > current.Stock {
		return &catalog.InsufficientStockError{ItemID: item.ID, Requested: total, Available: current.Stock}
	}

	if i >= 0 {
		c.lines[i].Quantity = total
	} else {
		c.lines = append(c.lines, Line{ItemID: item.ID, Quantity: qty})
	}
	c.save()
	return nil
}

// UpdateQuantity sets the quantity of an item already in the cart. A
// non-positive qty removes the line. Updating an item that is not in the
// cart does nothing.
func (c *Cart) UpdateQuantity(itemID string, qty int) error {
	if qty <= 0 {
		c.Remove(itemID)
		return nil
	}
	i := c.find(itemID)
	if i < 0 {
		return nil
	}
	current, ok := c.lookup.FindByID(itemID)
	if !ok {
		return errors.Wrapf(catalog.ErrUnknownItem, "item %s", itemID)
	}
	if qty > current.Stock {
		return &catalog.InsufficientStockError{ItemID: itemID, Requested: qty, Available: current.Stock}
	}
	c.lines[i].Quantity = qty
	c.save()
	return nil
}

// Remove deletes the line for itemID if present.
func (c *Cart) Remove(itemID string) {
	if i := c.find(itemID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	c.save()
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.save()
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Quantity returns the quantity held for itemID, or 0.
func (c *Cart) Quantity(itemID string) int {
	if i := c.find(itemID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Contains reports whether the cart has a line for itemID.
func (c *Cart) Contains(itemID string) bool { return c.find(itemID) >= 0 }

// TotalQuantity sums all line quantities.
func (c *Cart) TotalQuantity() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal sums quantity × current catalog price over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		it, ok := c.lookup.FindByID(l.ItemID)
		if !ok {
			continue
		}
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// View joins each line with current catalog data.
func (c *Cart) View() []ViewLine {
	out := make([]ViewLine, 0, len(c.lines))
	for _, l := range c.lines {
		it, ok := c.lookup.FindByID(l.ItemID)
		if !ok {
			continue
		}
		out = append(out, ViewLine{
			ItemID:    l.ItemID,
			Name:      it.Name,
			UnitPrice: it.Price,
			Quantity:  l.Quantity,
			Stock:     it.Stock,
			Subtotal:  it.Price.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
	}
	return out
}

// ParseQuantity parses a user-entered quantity. Non-integer and
// non-positive values are rejected with *InvalidQuantityError.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1<<31-1)) {
		return 0, &InvalidQuantityError{Quantity: s}
	}
	return int(d.IntPart()), nil
}
