// Package search looks up sales and stock lots by free text.
package search

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/sales"
)

// ResultLimit caps each result list.
const ResultLimit = 50

// SalesSource lists sales matching a filter.
type SalesSource interface {
	ListSales(ctx context.Context, filter sales.ListFilter) ([]sales.Sale, int, error)
}

// StockSource lists lots matching a filter.
type StockSource interface {
	ListLots(ctx context.Context, filter inventory.LotFilter) ([]inventory.Lot, int, error)
}

// Results groups the matches per record kind.
type Results struct {
	Query string          `json:"query"`
	Sales []sales.Sale    `json:"sales"`
	Stock []inventory.Lot `json:"stock"`
}

// Service runs searches.
type Service struct {
	sales SalesSource
	stock StockSource
}

// NewService constructs a Service.
func NewService(salesSrc SalesSource, stockSrc StockSource) *Service {
	return &Service{sales: salesSrc, stock: stockSrc}
}

// Search matches q case-insensitively against sale ID, customer, product,
// type and agent, and against lot ID, product, type and supplier. A blank
// query matches nothing.
func (s *Service) Search(ctx context.Context, q string) (Results, error) {
	res := Results{Query: strings.TrimSpace(q), Sales: []sales.Sale{}, Stock: []inventory.Lot{}}
	if res.Query == "" {
		return res, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, _, err := s.sales.ListSales(ctx, sales.ListFilter{Search: res.Query, Limit: ResultLimit})
		if err == nil && found != nil {
			res.Sales = found
		}
		return err
	})
	g.Go(func() error {
		found, _, err := s.stock.ListLots(ctx, inventory.LotFilter{Search: res.Query, Limit: ResultLimit})
		if err == nil && found != nil {
			res.Stock = found
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return Results{}, err
	}
	return res, nil
}
