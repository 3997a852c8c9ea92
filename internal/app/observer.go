package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/supernova-store/internal/session"
)

// observer turns session events into metrics and log lines.
type observer struct {
	lg *zap.Logger

	cartMutations metric.Int64Counter
	checkouts     metric.Int64Counter
	revenue       metric.Float64Counter
	warnings      metric.Int64Counter
}

func newObserver(lg *zap.Logger, mp metric.MeterProvider) (*observer, error) {
	meter := mp.Meter("github.com/xenking/supernova-store/internal/session")
	o := &observer{lg: lg}

	var err error
	if o.cartMutations, err = meter.Int64Counter("supernova.cart.mutations",
		metric.WithDescription("Successful cart changes"),
	); err != nil {
		return nil, errors.Wrap(err, "cart mutations counter")
	}
	if o.checkouts, err = meter.Int64Counter("supernova.checkouts",
		metric.WithDescription("Issued receipts"),
	); err != nil {
		return nil, errors.Wrap(err, "checkouts counter")
	}
	if o.revenue, err = meter.Float64Counter("supernova.checkout.total",
		metric.WithDescription("Sum of receipt totals"),
		metric.WithUnit("{USD}"),
	); err != nil {
		return nil, errors.Wrap(err, "revenue counter")
	}
	if o.warnings, err = meter.Int64Counter("supernova.warnings",
		metric.WithDescription("User-visible warnings by source"),
	); err != nil {
		return nil, errors.Wrap(err, "warnings counter")
	}
	return o, nil
}

// Observe handles one session event.
func (o *observer) Observe(e session.Event) {
	ctx := context.Background()
	switch e.Kind {
	case session.CartChanged:
		o.cartMutations.Add(ctx, 1)
		o.lg.Debug("Cart changed", zap.Strings("item_ids", e.ItemIDs))
	case session.StockChanged:
		o.lg.Debug("Stock committed", zap.Strings("item_ids", e.ItemIDs))
	case session.ReceiptIssued:
		o.checkouts.Add(ctx, 1)
		o.revenue.Add(ctx, e.Receipt.Total().InexactFloat64())
		o.lg.Info("Receipt issued",
			zap.String("number", e.Receipt.Number()),
			zap.Stringer("receipt_id", e.Receipt.ID()),
			zap.Int("items", e.Receipt.ItemCount()),
			zap.Stringer("total", e.Receipt.Total()),
		)
	case session.ReceiptDismissed:
		o.lg.Debug("Receipt dismissed", zap.String("number", e.Receipt.Number()))
	case session.TaxRateChanged:
		o.lg.Info("Tax rate changed", zap.Stringer("rate", e.Rate))
	case session.WarningRaised:
		o.warnings.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(e.Warning.Source))))
		o.lg.Warn("Warning", zap.String("source", string(e.Warning.Source)), zap.String("message", e.Warning.Message))
	}
}
