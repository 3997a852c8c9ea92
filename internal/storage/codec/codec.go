// Package codec encodes and decodes the storefront JSON documents: the
// catalog document and the persisted cart slot.
package codec

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/supernova-store/internal/domain/cart"
	"github.com/xenking/supernova-store/internal/domain/catalog"
)

// CorruptError wraps a document that could not be decoded.
type CorruptError struct {
	Err error
}

func (e *CorruptError) Error() string { return "corrupt document: " + e.Err.Error() }

func (e *CorruptError) Unwrap() error { return e.Err }

// DecodeItems decodes a catalog document. The document is either an array
// of item records or an object holding that array under "products" or
// "items".
func DecodeItems(data []byte) ([]catalog.Item, error) {
	d := jx.DecodeBytes(data)
	var (
		items []catalog.Item
		found bool
	)

	readArr := func(d *jx.Decoder) error {
		found = true
		return d.Arr(func(d *jx.Decoder) error {
			it, err := decodeItem(d)
			if err != nil {
				return errors.Wrapf(err, "record %d", len(items))
			}
			items = append(items, it)
			return nil
		})
	}

	var err error
	switch d.Next() {
	case jx.Array:
		err = readArr(d)
	case jx.Object:
		err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch string(key) {
			case "products", "items":
				return readArr(d)
			default:
				return d.Skip()
			}
		})
	default:
		err = errors.New("expected array or object")
	}
	if err == nil && !found {
		err = errors.New("no products array")
	}
	if err != nil {
		return nil, &CorruptError{Err: err}
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (catalog.Item, error) {
	var (
		id, name, category string
		price              decimal.Decimal
		stock              int
		hasPrice, hasStock bool
	)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			id, err = decodeID(d)
		case "name":
			name, err = d.Str()
		case "price":
			price, err = decodeDecimal(d)
			hasPrice = true
		case "stock":
			stock, err = d.Int()
			hasStock = true
		case "category":
			category, err = decodeOptStr(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	}); err != nil {
		return catalog.Item{}, err
	}
	switch {
	case !hasPrice:
		return catalog.Item{}, errors.Errorf("item %s: missing price", id)
	case !hasStock:
		return catalog.Item{}, errors.Errorf("item %s: missing stock", id)
	}
	return catalog.NewItem(id, name, price, stock, category)
}

// decodeID accepts numeric and string identifiers.
func decodeID(d *jx.Decoder) (string, error) {
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
		return "", errors.New("id must be a string or number")
	}
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		s = v
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		s = n.String()
	default:
		return decimal.Zero, errors.New("expected number")
	}
	return decimal.NewFromString(s)
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// WriteMoney writes an amount as a fixed two-decimal string.
func WriteMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Str(v.StringFixed(2))
}

// WriteItem writes an item record in the catalog document format.
func WriteItem(e *jx.Encoder, it catalog.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("price", func(e *jx.Encoder) { WriteMoney(e, it.Price) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(it.Stock) })
		if it.Category != "" {
			e.Field("category", func(e *jx.Encoder) { e.Str(it.Category) })
		}
	})
}

// EncodeItems encodes a catalog document.
func EncodeItems(items []catalog.Item) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			WriteItem(e, it)
		}
	})
	return e.Bytes()
}

// EncodeLines encodes the cart slot.
func EncodeLines(lines []cart.Line) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, l := range lines {
			e.Obj(func(e *jx.Encoder) {
				e.Field("itemId", func(e *jx.Encoder) { e.Str(l.ItemID) })
				e.Field("qty", func(e *jx.Encoder) { e.Int(l.Quantity) })
			})
		}
	})
	return e.Bytes()
}

// DecodeLines decodes the cart slot. Each entry names its item either by
// "itemId" or by an embedded "product" record carrying an "id".
func DecodeLines(data []byte) ([]cart.Line, error) {
	var lines []cart.Line
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var l cart.Line
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "itemId":
				l.ItemID, err = decodeID(d)
			case "product":
				l.ItemID, err = decodeEmbeddedID(d)
			case "qty", "quantity":
				l.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if l.ItemID == "" {
			return errors.Errorf("entry %d: missing item id", len(lines))
		}
		lines = append(lines, l)
		return nil
	})
	if err != nil {
		return nil, &CorruptError{Err: err}
	}
	return lines, nil
}

func decodeEmbeddedID(d *jx.Decoder) (string, error) {
	var id string
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "id" {
			return d.Skip()
		}
		v, err := decodeID(d)
		id = v
		return err
	})
	return id, err
}
