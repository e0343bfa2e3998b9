package inventory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mayondo/mwf/internal/shared"
)

type lotRows struct {
	lots []LotBalance
	pos  int
}

func (r *lotRows) Close()                                       {}
func (r *lotRows) Err() error                                   { return nil }
func (r *lotRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *lotRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *lotRows) Values() ([]any, error)                       { return nil, nil }
func (r *lotRows) RawValues() [][]byte                          { return nil }
func (r *lotRows) Conn() *pgx.Conn                              { return nil }

func (r *lotRows) Next() bool {
	r.pos++
	return r.pos <= len(r.lots)
}

func (r *lotRows) Scan(dest ...any) error {
	lot := r.lots[r.pos-1]
	*dest[0].(*int64) = lot.ID
	*dest[1].(*time.Time) = lot.Date
	*dest[2].(*int) = lot.Quantity
	*dest[3].(*decimal.Decimal) = lot.UnitCost
	return nil
}

type ledgerQuerier struct {
	lots    []LotBalance
	queries []string
	updates [][]any
}

func (q *ledgerQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.updates = append(q.updates, args)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (q *ledgerQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, sql)
	return &lotRows{lots: q.lots}, nil
}

func (q *ledgerQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("unexpected QueryRow")
}

func TestConsumeDeductsNewestLotsFirst(t *testing.T) {
	q := &ledgerQuerier{lots: []LotBalance{
		{ID: 2, Date: day(2024, 1, 5), Quantity: 5, UnitCost: decimal.NewFromInt(120)},
		{ID: 1, Date: day(2024, 1, 1), Quantity: 10, UnitCost: decimal.NewFromInt(100)},
	}}

	left, err := Consume(context.Background(), q, sofa, 12)
	require.NoError(t, err)
	require.Equal(t, 3, left)
	require.Len(t, q.queries, 1)
	require.True(t, strings.Contains(q.queries[0], "FOR UPDATE"))
	require.True(t, strings.Contains(q.queries[0], "ORDER BY date DESC, id DESC"))

	require.Len(t, q.updates, 2)
	require.Equal(t, 0, q.updates[0][0])
	require.True(t, decimal.Zero.Equal(q.updates[0][1].(decimal.Decimal)))
	require.Equal(t, int64(2), q.updates[0][2])
	require.Equal(t, 3, q.updates[1][0])
	require.True(t, decimal.NewFromInt(300).Equal(q.updates[1][1].(decimal.Decimal)))
	require.Equal(t, int64(1), q.updates[1][2])
}

func TestConsumeLeavesLotsUntouchedWhenShort(t *testing.T) {
	q := &ledgerQuerier{lots: []LotBalance{{ID: 1, Date: day(2024, 1, 1), Quantity: 3}}}

	_, err := Consume(context.Background(), q, sofa, 4)
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Empty(t, q.updates)
}

func TestConsumeWithoutLots(t *testing.T) {
	q := &ledgerQuerier{}
	_, err := Consume(context.Background(), q, sofa, 1)
	require.ErrorIs(t, err, shared.ErrProductNotFound)
	require.Empty(t, q.updates)
}
