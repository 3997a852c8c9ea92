package cart

// Adjustment records a change Restore made to persisted data.
type Adjustment struct {
	ItemID string
	Reason string
	From   int
	To     int
}

// Restore rebuilds a cart from persisted lines. Lines for unknown items or
// with a non-positive quantity are dropped, duplicates are merged and
// quantities above current stock are clamped. The persist hook is not
// called.
func Restore(lookup Lookup, lines []Line, opts ...Option) (*Cart, []Adjustment) {
	c := New(lookup, opts...)
	var adj []Adjustment
	for _, l := range lines {
		if l.Quantity <= 0 {
			adj = append(adj, Adjustment{ItemID: l.ItemID, Reason: "invalid quantity", From: l.Quantity})
			continue
		}
		if _, ok := lookup.FindByID(l.ItemID); !ok {
			adj = append(adj, Adjustment{ItemID: l.ItemID, Reason: "unknown item", From: l.Quantity})
			continue
		}
		if i := c.find(l.ItemID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}

	kept := c.lines[:0]
	for _, l := range c.lines {
		it, _ := lookup.FindByID(l.ItemID)
		switch {
		case it.Stock == 0:
			adj = append(adj, Adjustment{ItemID: l.ItemID, Reason: "out of stock", From: l.Quantity})
			continue
		case l.Quantity > it.Stock:
			adj = append(adj, Adjustment{ItemID: l.ItemID, Reason: "clamped to stock", From: l.Quantity, To: it.Stock})
			l.Quantity = it.Stock
		}
		kept = append(kept, l)
	}
	c.lines = kept
	return c, adj
}
