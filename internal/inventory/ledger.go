package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

// LotBalance is the mutable part of a lot seen by consumption.
type LotBalance struct {
	ID       int64
	Date     time.Time
	Quantity int
	UnitCost decimal.Decimal
}

// lotMatch selects the lots of a product: by reference when the lot has one,
// otherwise by case-insensitive name and type.
const lotMatch = `(product_id = $1 OR (product_id IS NULL AND lower(product_name) = lower($2) AND lower(product_type) = lower($3)))`

// PlanConsumption deducts requested units from lots newest first (date DESC,
// then id DESC) and returns the touched lots with their new quantities plus the
// consolidated quantity left. Lots are never driven below zero. When the lots
// cannot cover the request nothing is planned.
func PlanConsumption(product ProductRef, lots []LotBalance, requested int) ([]LotBalance, int, error) {
	if requested <= 0 {
		return nil, 0, shared.ValidationError{Field: "quantity", Message: "must be greater than 0"}
	}
	if len(lots) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", shared.ErrProductNotFound, product.Label())
	}
	available := 0
	for _, lot := range lots {
		if lot.Quantity > 0 {
			available += lot.Quantity
		}
	}
	if available < requested {
		return nil, available, &shared.InsufficientStockError{Product: product.Label(), Available: available, Requested: requested}
	}

	ordered := make([]LotBalance, len(lots))
	copy(ordered, lots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.After(ordered[j].Date)
		}
		return ordered[i].ID > ordered[j].ID
	})

	remaining := requested
	touched := make([]LotBalance, 0, len(ordered))
	for _, lot := range ordered {
		if remaining == 0 {
			break
		}
		if lot.Quantity <= 0 {
			continue
		}
		take := min(lot.Quantity, remaining)
		lot.Quantity -= take
		remaining -= take
		touched = append(touched, lot)
	}
	return touched, available - requested, nil
}

// AvailableQuantity sums the on-hand quantity of every lot of product.
func AvailableQuantity(ctx context.Context, q db.Querier, product ProductRef) (int, error) {
	var total int
	err := q.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0)::int FROM stock_lots WHERE `+lotMatch,
		product.ID, string(product.Name), string(product.Type)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("inventory: available quantity: %w", err)
	}
	return total, nil
}

// Consume deducts requested units from the lots of product inside the caller's
// transaction. The candidate lots are locked FOR UPDATE so concurrent sales of the
// same product serialise; it returns the consolidated quantity after deduction.
func Consume(ctx context.Context, q db.Querier, product ProductRef, requested int) (int, error) {
	rows, err := q.Query(ctx, `SELECT id, date, quantity, unit_cost FROM stock_lots WHERE `+lotMatch+`
ORDER BY date DESC, id DESC FOR UPDATE`, product.ID, string(product.Name), string(product.Type))
	if err != nil {
		return 0, fmt.Errorf("inventory: lock lots: %w", err)
	}
	var lots []LotBalance
	for rows.Next() {
		var lot LotBalance
		if err := rows.Scan(&lot.ID, &lot.Date, &lot.Quantity, &lot.UnitCost); err != nil {
			rows.Close()
			return 0, fmt.Errorf("inventory: scan lot: %w", err)
		}
		lots = append(lots, lot)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("inventory: read lots: %w", err)
	}

	touched, left, err := PlanConsumption(product, lots, requested)
	if err != nil {
		return left, err
	}
	for _, lot := range touched {
		if _, err := q.Exec(ctx, `UPDATE stock_lots SET quantity = $1, total_cost = $2 WHERE id = $3`,
			lot.Quantity, TotalCostOf(lot.Quantity, lot.UnitCost), lot.ID); err != nil {
			return 0, fmt.Errorf("inventory: deduct lot %d: %w", lot.ID, err)
		}
	}
	return left, nil
}

// LowStockAlert returns the warning managers receive for a consolidated
// quantity, or ok=false when the level needs no warning.
func LowStockAlert(product ProductRef, quantity, threshold int) (string, bool) {
	switch Classify(quantity, threshold) {
	case LevelExhausted:
		return fmt.Sprintf("Stock exhausted: %s is out of stock.", product.Label()), true
	case LevelLow:
		return fmt.Sprintf("Low stock alert: %s has only %d units left.", product.Label(), quantity), true
	default:
		return "", false
	}
}
