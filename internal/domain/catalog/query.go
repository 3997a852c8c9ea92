package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPageSize is the number of items per browse page.
const DefaultPageSize = 15

// Filter narrows a catalog listing. Zero fields do not filter.
type Filter struct {
	// Term matches item names case-insensitively as a substring.
	Term     string
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
	Category string
}

func (f Filter) match(it Item) bool {
	if f.Term != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.Term)) {
		return false
	}
	if f.MinPrice.Valid && it.Price.LessThan(f.MinPrice.Decimal) {
		return false
	}
	if f.MaxPrice.Valid && it.Price.GreaterThan(f.MaxPrice.Decimal) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, it.Category) {
		return false
	}
	return true
}

// Page is one page of a filtered listing. Number is 1-based.
type Page struct {
	Items      []Item
	Number     int
	Size       int
	TotalItems int
	TotalPages int
}

// Query filters the catalog and returns the requested page. Page numbers
// outside [1, TotalPages] are clamped.
func (c *Catalog) Query(f Filter, number, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	var matched []Item
	for _, it := range c.items {
		if f.match(it) {
			matched = append(matched, it)
		}
	}

	p := Page{
		Number:     1,
		Size:       size,
		TotalItems: len(matched),
		TotalPages: (len(matched) + size - 1) / size,
	}
	if p.TotalPages == 0 {
		p.Items = []Item{}
		return p
	}
	p.Number = min(max(number, 1), p.TotalPages)

	start := (p.Number - 1) * size
	end := min(start+size, len(matched))
	p.Items = matched[start:end]
	return p
}

// Categories lists the distinct non-empty categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range c.items {
		if it.Category == "" {
			continue
		}
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}
