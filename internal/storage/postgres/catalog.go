package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/supernova-store/internal/domain/catalog"
)

const (
	listItemsSQL = `SELECT id, name, price, stock, category FROM products ORDER BY id`

	upsertItemSQL = `INSERT INTO products (id, name, price, stock, category)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price,
			stock = EXCLUDED.stock, category = EXCLUDED.category`
)

// DB is the subset of *pgxpool.Pool used by this package.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

var _ catalog.Source = (*CatalogSource)(nil)

// CatalogSource reads the product table once per Load. Stock changes made by
// the session are never written back.
type CatalogSource struct {
	db DB
}

// NewCatalogSource returns a CatalogSource that uses db.
func NewCatalogSource(db DB) *CatalogSource {
	return &CatalogSource{db: db}
}

func (s *CatalogSource) String() string { return "postgres:products" }

// Load implements catalog.Source.
func (s *CatalogSource) Load(ctx context.Context) ([]catalog.Item, error) {
	rows, err := s.db.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return items, nil
}

// Upsert inserts or replaces items in a single batch.
func Upsert(ctx context.Context, db DB, items []catalog.Item) error {
	b := &pgx.Batch{}
	for _, it := range items {
		b.Queue(upsertItemSQL, it.ID, it.Name, it.Price, it.Stock, it.Category)
	}

	br := db.SendBatch(ctx, b)
	for _, it := range items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrapf(err, "upsert product %s", it.ID)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrap(err, "close batch")
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var (
		id, name, category string
		price              decimal.Decimal
		stock              int
	)
	if err := row.Scan(&id, &name, &price, &stock, &category); err != nil {
		return catalog.Item{}, err
	}
	return catalog.NewItem(id, name, price, stock, category)
}
