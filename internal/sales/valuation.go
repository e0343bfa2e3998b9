package sales

import (
	"github.com/shopspring/decimal"

	"github.com/mayondo/mwf/internal/inventory"
)

// TransportRate is the surcharge applied when delivery is requested.
var TransportRate = decimal.RequireFromString("0.05")

// BaseAmount returns quantity × unit price.
func BaseAmount(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// TransportFee returns 5% of the base amount when transport is required, else zero.
func TransportFee(quantity int, unitPrice decimal.Decimal, transport bool) decimal.Decimal {
	if !transport {
		return decimal.Zero
	}
	return BaseAmount(quantity, unitPrice).Mul(TransportRate)
}

// ComputeSaleTotal returns base plus transport fee rounded half-up to cents.
func ComputeSaleTotal(quantity int, unitPrice decimal.Decimal, transport bool) decimal.Decimal {
	total := BaseAmount(quantity, unitPrice).Add(TransportFee(quantity, unitPrice, transport))
	// Round breaks ties away from zero: half-up for positive amounts.
	return total.Round(2)
}

// Financials is the revenue, cost and profit over a set of sales.
type Financials struct {
	Revenue decimal.Decimal `json:"total_revenue"`
	Cost    decimal.Decimal `json:"total_cost"`
	Profit  decimal.Decimal `json:"profit"`
}

type costSum struct {
	sum   decimal.Decimal
	count int64
}

func (c costSum) add(o costSum) costSum {
	return costSum{sum: c.sum.Add(o.sum), count: c.count + o.count}
}

// UnitCosts indexes lot unit costs the way the ledger matches lots to a
// product: by catalogue reference, or by case-insensitive name and type for
// lots recorded without one.
type UnitCosts struct {
	byID   map[int64]costSum
	byName map[string]costSum
}

// AverageUnitCosts indexes the unit cost of every lot recorded.
func AverageUnitCosts(lots []inventory.Lot) UnitCosts {
	idx := UnitCosts{byID: map[int64]costSum{}, byName: map[string]costSum{}}
	for _, lot := range lots {
		one := costSum{sum: lot.UnitCost, count: 1}
		if lot.ProductID > 0 {
			idx.byID[lot.ProductID] = idx.byID[lot.ProductID].add(one)
			continue
		}
		key := lot.Ref().NameKey()
		idx.byName[key] = idx.byName[key].add(one)
	}
	return idx
}

// Average returns the plain mean unit cost over the lots of product; ok is
// false when it has none.
func (u UnitCosts) Average(product inventory.ProductRef) (decimal.Decimal, bool) {
	total := u.byName[product.NameKey()]
	if product.ID > 0 {
		total = total.add(u.byID[product.ID])
	}
	if total.count == 0 {
		return decimal.Zero, false
	}
	return total.sum.Div(decimal.NewFromInt(total.count)), true
}

// AggregateFinancials sums revenue over sales and costs each sale at the
// average unit cost of its product. Sales of products with no lots cost nothing.
func AggregateFinancials(sales []Sale, lots []inventory.Lot) Financials {
	costs := AverageUnitCosts(lots)
	revenue, cost := decimal.Zero, decimal.Zero
	for _, s := range sales {
		revenue = revenue.Add(s.TotalAmount)
		if unit, ok := costs.Average(s.Ref()); ok {
			cost = cost.Add(unit.Mul(decimal.NewFromInt(int64(s.Quantity))))
		}
	}
	revenue, cost = revenue.Round(2), cost.Round(2)
	return Financials{Revenue: revenue, Cost: cost, Profit: revenue.Sub(cost)}
}
