package session

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/supernova-store/internal/domain/checkout"
)

// EventKind identifies a state change.
type EventKind int

const (
	CartChanged EventKind = iota + 1
	StockChanged
	ReceiptIssued
	ReceiptDismissed
	TaxRateChanged
	WarningRaised
)

func (k EventKind) String() string {
	switch k {
	case CartChanged:
		return "cart_changed"
	case StockChanged:
		return "stock_changed"
	case ReceiptIssued:
		return "receipt_issued"
	case ReceiptDismissed:
		return "receipt_dismissed"
	case TaxRateChanged:
		return "tax_rate_changed"
	case WarningRaised:
		return "warning"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after a mutation completes.
type Event struct {
	Kind EventKind
	// ItemIDs lists the items touched by cart and stock changes.
	ItemIDs []string
	Receipt *checkout.Receipt
	Rate    decimal.Decimal
	Warning *Warning
}

// Listener receives events. It is called without the session lock held and
// may call back into the session.
type Listener func(Event)

// WarningSource names the subsystem a warning came from.
type WarningSource string

const (
	SourceCatalog     WarningSource = "catalog"
	SourceCart        WarningSource = "cart"
	SourcePersistence WarningSource = "persistence"
)

// Warning is a user-visible, non-fatal notification.
type Warning struct {
	Source  WarningSource
	Message string
	Err     error
}
