package postgres

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/supernova-store/internal/domain/catalog"
)

// --- Mock implementations ---

type fakeRows struct {
	pgx.Rows
	data   [][]any
	pos    int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*string) = row[1].(string)
	*dest[2].(*decimal.Decimal) = row[2].(decimal.Decimal)
	*dest[3].(*int) = row[3].(int)
	*dest[4].(*string) = row[4].(string)
	return nil
}

func (r *fakeRows) Close()     { r.closed = true }
func (r *fakeRows) Err() error { return nil }

type fakeBatchResults struct {
	pgx.BatchResults
	failAt int
	calls  int
	closed bool
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	b.calls++
	if b.calls == b.failAt {
		return pgconn.CommandTag{}, errors.New("constraint violation")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (b *fakeBatchResults) Close() error {
	b.closed = true
	return nil
}

type fakeDB struct {
	rows     *fakeRows
	queryErr error
	batch    *pgx.Batch
	results  *fakeBatchResults
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeDB) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batch = b
	return f.results
}

// --- Tests ---

func TestCatalogSource_Load(t *testing.T) {
	rows := &fakeRows{data: [][]any{
		{"1", "Laptop", decimal.RequireFromString("899.99"), 10, "Computers"},
		{"2", "Mouse", decimal.RequireFromString("25.50"), 0, ""},
	}}
	src := NewCatalogSource(&fakeDB{rows: rows})

	c, err := catalog.Load(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, rows.closed)
	assert.Equal(t, 2, c.Len())

	it, ok := c.FindByID("2")
	require.True(t, ok)
	assert.Equal(t, 0, it.Stock)
	assert.Equal(t, "postgres:products", src.String())
}

func TestCatalogSource_InvalidRow(t *testing.T) {
	rows := &fakeRows{data: [][]any{
		{"1", "Broken", decimal.RequireFromString("-1"), 1, ""},
	}}
	_, err := NewCatalogSource(&fakeDB{rows: rows}).Load(context.Background())
	require.ErrorIs(t, err, catalog.ErrInvalidItem)
}

func TestCatalogSource_QueryError(t *testing.T) {
	_, err := catalog.Load(context.Background(), NewCatalogSource(&fakeDB{queryErr: errors.New("connection refused")}))
	var loadErr *catalog.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUpsert(t *testing.T) {
	items := catalog.DefaultSeed()

	t.Run("all rows", func(t *testing.T) {
		db := &fakeDB{results: &fakeBatchResults{}}
		require.NoError(t, Upsert(context.Background(), db, items))
		require.NotNil(t, db.batch)
		assert.Equal(t, len(items), db.batch.Len())
		assert.Equal(t, len(items), db.results.calls)
		assert.True(t, db.results.closed)

		first := db.batch.QueuedQueries[0]
		assert.Equal(t, []any{items[0].ID, items[0].Name, items[0].Price, items[0].Stock, items[0].Category}, first.Arguments)
	})

	t.Run("stops on first failure", func(t *testing.T) {
		db := &fakeDB{results: &fakeBatchResults{failAt: 2}}
		err := Upsert(context.Background(), db, items)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upsert product "+items[1].ID)
		assert.Equal(t, 2, db.results.calls)
		assert.True(t, db.results.closed)
	})
}
