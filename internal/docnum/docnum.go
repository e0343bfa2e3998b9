// Package docnum allocates the human readable identifiers of sales and stock lots.
//
// Identifiers have the form PREFIX-YYYYMMDD-NNNN. The sequence restarts every day
// and is derived from the largest identifier already stored for that prefix and day.
package docnum

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

// Kind selects the record family an identifier belongs to.
type Kind string

const (
	// KindSale identifies sales (SALE-...).
	KindSale Kind = "SALE"
	// KindStock identifies stock lots (STK-...).
	KindStock Kind = "STK"
)

const (
	dayLayout   = "20060102"
	seqWidth    = 4
	maxSequence = 9999
)

// ErrSequenceExhausted is returned once a day has used every four digit sequence.
var ErrSequenceExhausted = errors.New("docnum: daily sequence exhausted")

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSale || k == KindStock
}

// table and column holding identifiers of the kind.
func (k Kind) source() (string, string) {
	if k == KindSale {
		return "sales", "sale_id"
	}
	return "stock_lots", "stock_id"
}

// Prefix returns PREFIX-YYYYMMDD for the given day.
func Prefix(kind Kind, day time.Time) string {
	return fmt.Sprintf("%s-%s", kind, day.Format(dayLayout))
}

// Format renders a complete identifier.
func Format(kind Kind, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%0*d", Prefix(kind, day), seqWidth, seq)
}

// Parse splits an identifier into its kind, day and sequence.
func Parse(id string) (Kind, time.Time, int, error) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		return "", time.Time{}, 0, fmt.Errorf("%w: %q", shared.ErrMalformedSequence, id)
	}
	kind := Kind(parts[0])
	if !kind.Valid() {
		return "", time.Time{}, 0, fmt.Errorf("%w: unknown prefix in %q", shared.ErrMalformedSequence, id)
	}
	day, err := time.ParseInLocation(dayLayout, parts[1], time.Local)
	if err != nil {
		return "", time.Time{}, 0, fmt.Errorf("%w: bad date in %q", shared.ErrMalformedSequence, id)
	}
	seq, err := parseSequence(parts[2])
	if err != nil {
		return "", time.Time{}, 0, fmt.Errorf("%w: %q", err, id)
	}
	return kind, day, seq, nil
}

func parseSequence(s string) (int, error) {
	if s == "" {
		return 0, shared.ErrMalformedSequence
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, shared.ErrMalformedSequence
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, shared.ErrMalformedSequence
	}
	return n, nil
}

// NextFrom computes the identifier following latest, the largest stored identifier
// for the kind and day. An empty latest starts the day at 0001.
func NextFrom(kind Kind, day time.Time, latest string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("docnum: unknown kind %q", kind)
	}
	if latest == "" {
		return Format(kind, day, 1), nil
	}
	prefix := Prefix(kind, day) + "-"
	if !strings.HasPrefix(latest, prefix) {
		return "", fmt.Errorf("%w: %q does not match %s", shared.ErrMalformedSequence, latest, prefix)
	}
	seq, err := parseSequence(strings.TrimPrefix(latest, prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, latest)
	}
	if seq >= maxSequence {
		return "", ErrSequenceExhausted
	}
	return Format(kind, day, seq+1), nil
}

// Generator allocates identifiers inside the caller's transaction.
type Generator struct {
	loc *time.Location
	now func() time.Time
}

// NewGenerator builds a generator; loc decides which calendar day "today" is.
func NewGenerator(loc *time.Location) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{loc: loc, now: time.Now}
}

// Today returns the current business day.
func (g *Generator) Today() time.Time {
	return g.now().In(g.loc)
}

// Next takes a transaction scoped advisory lock for (kind, day), reads the largest
// identifier with that prefix and returns its successor. A zero day means today.
// The lock is released when tx ends, so the insert must happen in the same tx.
func (g *Generator) Next(ctx context.Context, tx db.Querier, kind Kind, day time.Time) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("docnum: unknown kind %q", kind)
	}
	if day.IsZero() {
		day = g.Today()
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, shared.SequenceLockKey(string(kind), day)); err != nil {
		return "", fmt.Errorf("docnum: lock sequence: %w", err)
	}
	table, column := kind.source()
	query := fmt.Sprintf(`SELECT %[1]s FROM %[2]s WHERE %[1]s LIKE $1 ORDER BY %[1]s DESC LIMIT 1`, column, table)
	var latest string
	err := tx.QueryRow(ctx, query, Prefix(kind, day)+"-%").Scan(&latest)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("docnum: latest %s: %w", kind, err)
	}
	return NextFrom(kind, day, latest)
}
