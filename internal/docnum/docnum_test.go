package docnum

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mayondo/mwf/internal/shared"
)

var day = time.Date(2025, 3, 14, 10, 0, 0, 0, time.Local)

func TestFormat(t *testing.T) {
	require.Equal(t, "SALE-20250314-0001", Format(KindSale, day, 1))
	require.Equal(t, "STK-20250314-0042", Format(KindStock, day, 42))
}

func TestNextFrom(t *testing.T) {
	id, err := NextFrom(KindSale, day, "")
	require.NoError(t, err)
	require.Equal(t, "SALE-20250314-0001", id)

	id, err = NextFrom(KindSale, day, "SALE-20250314-0003")
	require.NoError(t, err)
	require.Equal(t, "SALE-20250314-0004", id)

	id, err = NextFrom(KindStock, day, "STK-20250314-0099")
	require.NoError(t, err)
	require.Equal(t, "STK-20250314-0100", id)
}

func TestNextFromMalformedSuffix(t *testing.T) {
	_, err := NextFrom(KindSale, day, "SALE-20250314-00A1")
	require.ErrorIs(t, err, shared.ErrMalformedSequence)

	_, err = NextFrom(KindSale, day, "SALE-20250313-0001")
	require.ErrorIs(t, err, shared.ErrMalformedSequence)
}

func TestNextFromExhausted(t *testing.T) {
	_, err := NextFrom(KindStock, day, "STK-20250314-9999")
	require.ErrorIs(t, err, ErrSequenceExhausted)
}

func TestParse(t *testing.T) {
	kind, d, seq, err := Parse("STK-20250314-0012")
	require.NoError(t, err)
	require.Equal(t, KindStock, kind)
	require.Equal(t, "20250314", d.Format(dayLayout))
	require.Equal(t, 12, seq)

	for _, bad := range []string{"", "SALE-20250314", "INV-20250314-0001", "SALE-2025031X-0001", "SALE-20250314-12a4"} {
		_, _, _, err := Parse(bad)
		require.ErrorIs(t, err, shared.ErrMalformedSequence, bad)
	}
}

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.value
	return nil
}

type fakeQuerier struct {
	latest   map[string]string
	locks    []int64
	queries  []string
	execErr  error
	queryErr error
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if strings.Contains(sql, "pg_advisory_xact_lock") {
		q.locks = append(q.locks, args[0].(int64))
	}
	return pgconn.CommandTag{}, q.execErr
}

func (q *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.queries = append(q.queries, sql)
	if q.queryErr != nil {
		return fakeRow{err: q.queryErr}
	}
	prefix := strings.TrimSuffix(args[0].(string), "%")
	if v, ok := q.latest[prefix]; ok {
		return fakeRow{value: v}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func TestGeneratorNext(t *testing.T) {
	q := &fakeQuerier{latest: map[string]string{"SALE-20250314-": "SALE-20250314-0007"}}
	gen := NewGenerator(time.Local)

	id, err := gen.Next(context.Background(), q, KindSale, day)
	require.NoError(t, err)
	require.Equal(t, "SALE-20250314-0008", id)
	require.Len(t, q.locks, 1)
	require.Equal(t, shared.SequenceLockKey("SALE", day), q.locks[0])
	require.Contains(t, q.queries[0], "FROM sales")

	id, err = gen.Next(context.Background(), q, KindStock, day)
	require.NoError(t, err)
	require.Equal(t, "STK-20250314-0001", id)
	require.Contains(t, q.queries[1], "FROM stock_lots")
}

func TestGeneratorNextDefaultsToToday(t *testing.T) {
	q := &fakeQuerier{latest: map[string]string{}}
	gen := NewGenerator(time.UTC)
	gen.now = func() time.Time { return time.Date(2025, 1, 2, 23, 30, 0, 0, time.UTC) }

	id, err := gen.Next(context.Background(), q, KindStock, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "STK-20250102-0001", id)
}

func TestGeneratorNextPropagatesErrors(t *testing.T) {
	gen := NewGenerator(nil)

	_, err := gen.Next(context.Background(), &fakeQuerier{execErr: errors.New("lock failed")}, KindSale, day)
	require.ErrorContains(t, err, "lock sequence")

	_, err = gen.Next(context.Background(), &fakeQuerier{queryErr: errors.New("conn reset")}, KindSale, day)
	require.ErrorContains(t, err, "conn reset")

	_, err = gen.Next(context.Background(), &fakeQuerier{latest: map[string]string{"SALE-20250314-": "SALE-20250314-x"}}, KindSale, day)
	require.ErrorIs(t, err, shared.ErrMalformedSequence)

	_, err = gen.Next(context.Background(), &fakeQuerier{}, Kind("INV"), day)
	require.Error(t, err)
}

// sequenceStore stands in for Postgres at ReadCommitted: the advisory lock is a
// mutex held until commit, and every lookup reads the committed rows.
type sequenceStore struct {
	advisory sync.Mutex
	mu       sync.Mutex
	rows     []string
}

type sequenceTx struct {
	store  *sequenceStore
	locked bool
	steps  []string
}

func (tx *sequenceTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if strings.Contains(sql, "pg_advisory_xact_lock") {
		tx.store.advisory.Lock()
		tx.locked = true
		tx.steps = append(tx.steps, "lock")
	}
	return pgconn.CommandTag{}, nil
}

func (tx *sequenceTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (tx *sequenceTx) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	tx.steps = append(tx.steps, "lookup")
	prefix := strings.TrimSuffix(args[0].(string), "%")
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	latest := ""
	for _, id := range tx.store.rows {
		if strings.HasPrefix(id, prefix) && id > latest {
			latest = id
		}
	}
	if latest == "" {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: latest}
}

func (tx *sequenceTx) commit(id string) {
	tx.store.mu.Lock()
	tx.store.rows = append(tx.store.rows, id)
	tx.store.mu.Unlock()
	if tx.locked {
		tx.locked = false
		tx.store.advisory.Unlock()
	}
}

func TestGeneratorNextSeesIdentifiersCommittedWhileWaiting(t *testing.T) {
	store := &sequenceStore{}
	gen := NewGenerator(time.Local)

	const workers = 8
	ids := make([]string, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			tx := &sequenceTx{store: store}
			id, err := gen.Next(context.Background(), tx, KindSale, day)
			if err != nil {
				return err
			}
			if len(tx.steps) != 2 || tx.steps[0] != "lock" || tx.steps[1] != "lookup" {
				return fmt.Errorf("unexpected statement order %v", tx.steps)
			}
			ids[i] = id
			tx.commit(id)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(ids)
	for i, id := range ids {
		require.Equal(t, Format(KindSale, day, i+1), id)
	}
}
