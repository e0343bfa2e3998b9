package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/sales"
)

// SalesSource reads the sales of a period.
type SalesSource interface {
	SalesBetween(ctx context.Context, from, to time.Time) ([]sales.Sale, error)
}

// StockSource reads the lots of a period.
type StockSource interface {
	LotsBetween(ctx context.Context, from, to time.Time) ([]inventory.Lot, error)
}

// Service builds reports.
type Service struct {
	sales     SalesSource
	stock     StockSource
	threshold int
}

// NewService constructs a Service.
func NewService(salesSrc SalesSource, stockSrc StockSource, lowStockThreshold int) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = inventory.DefaultLowStockThreshold
	}
	return &Service{sales: salesSrc, stock: stockSrc, threshold: lowStockThreshold}
}

// SalesReport lists the sales dated within p. Costs use the average unit cost
// over every lot ever recorded, not only the lots of the period.
func (s *Service) SalesReport(ctx context.Context, p Period) (SalesReport, error) {
	var (
		periodSales []sales.Sale
		allLots     []inventory.Lot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		periodSales, err = s.sales.SalesBetween(gctx, p.From, p.To)
		return err
	})
	g.Go(func() error {
		var err error
		allLots, err = s.stock.LotsBetween(gctx, time.Time{}, time.Time{})
		return err
	})
	if err := g.Wait(); err != nil {
		return SalesReport{}, err
	}
	report := SalesReport{
		Period:     p,
		Rows:       make([]SaleRow, 0, len(periodSales)),
		Financials: sales.AggregateFinancials(periodSales, allLots),
	}
	for _, sale := range periodSales {
		report.Rows = append(report.Rows, saleRow(sale))
	}
	return report, nil
}

// StockReport lists the lots dated within p with their current balances.
func (s *Service) StockReport(ctx context.Context, p Period) (StockReport, error) {
	lots, err := s.stock.LotsBetween(ctx, p.From, p.To)
	if err != nil {
		return StockReport{}, err
	}
	report := StockReport{Period: p, Rows: make([]StockRow, 0, len(lots)), TotalCost: decimal.Zero}
	for _, lot := range lots {
		report.Rows = append(report.Rows, stockRow(lot, s.threshold))
		report.TotalQuantity += lot.Quantity
		report.TotalCost = report.TotalCost.Add(lot.TotalCost)
	}
	return report, nil
}
