// Package dashboard assembles the landing statistics shown after login.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/sales"
	"github.com/mayondo/mwf/internal/users"
)

// RecentLimit caps the recent sales and lots listed on the dashboard.
const RecentLimit = 10

// SalesSource reads sales.
type SalesSource interface {
	SalesBetween(ctx context.Context, from, to time.Time) ([]sales.Sale, error)
}

// StockSource reads stock lots.
type StockSource interface {
	LotsBetween(ctx context.Context, from, to time.Time) ([]inventory.Lot, error)
}

// EmployeeSource lists employee accounts.
type EmployeeSource interface {
	Employees(ctx context.Context) ([]users.User, error)
}

// Stats are the role independent figures; they are cached.
type Stats struct {
	TotalSales      int              `json:"total_sales"`
	TotalStockItems int              `json:"total_stock_items"`
	OutOfStockCount int              `json:"out_of_stock_count"`
	Financials      sales.Financials `json:"financials"`
	RecentSales     []sales.Sale     `json:"recent_sales"`
	RecentStock     []inventory.Lot  `json:"recent_stock"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// View is the dashboard returned to one user.
type View struct {
	Stats
	IsManager bool         `json:"is_manager"`
	Employees []users.User `json:"employees,omitempty"`
}

// Service computes dashboard views.
type Service struct {
	sales     SalesSource
	stock     StockSource
	employees EmployeeSource
	cache     *Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the sources with a Cache helper.
func NewService(salesSrc SalesSource, stockSrc StockSource, employees EmployeeSource, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sales: salesSrc, stock: stockSrc, employees: employees, cache: cache, logger: logger, now: time.Now}
}

// Dashboard returns the statistics, adding the employee list for managers.
func (s *Service) Dashboard(ctx context.Context, p rbac.Principal) (View, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return View{}, err
	}
	view := View{Stats: stats, IsManager: p.IsManager()}
	if view.IsManager && s.employees != nil {
		if view.Employees, err = s.employees.Employees(ctx); err != nil {
			return View{}, err
		}
	}
	return view, nil
}

// Stats returns the cached statistics, computing them on a miss.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	key, err := s.cache.BuildKey(ctx, "stats")
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.compute(ctx)
	}
	var stats Stats
	err = s.cache.FetchJSON(ctx, key, &stats, func(ctx context.Context) (any, error) {
		return s.compute(ctx)
	})
	return stats, err
}

func (s *Service) compute(ctx context.Context) (Stats, error) {
	var (
		allSales []sales.Sale
		allLots  []inventory.Lot
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		allSales, err = s.sales.SalesBetween(ctx, time.Time{}, time.Time{})
		return err
	})
	g.Go(func() error {
		var err error
		allLots, err = s.stock.LotsBetween(ctx, time.Time{}, time.Time{})
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return Summarize(allSales, allLots, s.now()), nil
}

// Summarize derives the statistics from sales and lots, both newest first.
func Summarize(allSales []sales.Sale, allLots []inventory.Lot, at time.Time) Stats {
	stats := Stats{
		TotalSales:  len(allSales),
		Financials:  sales.AggregateFinancials(allSales, allLots),
		RecentSales: head(allSales, RecentLimit),
		RecentStock: head(allLots, RecentLimit),
		GeneratedAt: at,
	}
	for _, lot := range allLots {
		stats.TotalStockItems += lot.Quantity
		if lot.Quantity == 0 {
			stats.OutOfStockCount++
		}
	}
	return stats
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	return append([]T{}, items...)
}

// HandleSaleChanged invalidates cached statistics.
func (s *Service) HandleSaleChanged(ctx context.Context, evt sales.SaleChangedEvent) error {
	return s.invalidate(ctx, "sale", evt.Action)
}

// HandleStockChanged invalidates cached statistics.
func (s *Service) HandleStockChanged(ctx context.Context, evt inventory.StockChangedEvent) error {
	return s.invalidate(ctx, "stock", evt.Action)
}

func (s *Service) invalidate(ctx context.Context, source, action string) error {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("dashboard cache bump failed", slog.String("source", source), slog.String("action", action), slog.Any("error", err))
		return err
	}
	return nil
}
