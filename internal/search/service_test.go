package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/sales"
)

type memorySales struct {
	sales []sales.Sale
	err   error
}

func (m memorySales) ListSales(ctx context.Context, filter sales.ListFilter) ([]sales.Sale, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []sales.Sale
	q := strings.ToLower(filter.Search)
	for _, s := range m.sales {
		for _, field := range []string{s.SaleID, s.CustomerName, string(s.ProductName), string(s.ProductType), s.AgentName} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, s)
				break
			}
		}
	}
	return out, len(out), nil
}

type memoryStock struct {
	lots []inventory.Lot
}

func (m memoryStock) ListLots(ctx context.Context, filter inventory.LotFilter) ([]inventory.Lot, int, error) {
	var out []inventory.Lot
	q := strings.ToLower(filter.Search)
	for _, l := range m.lots {
		for _, field := range []string{l.StockID, string(l.ProductName), string(l.ProductType), l.SupplierName} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, l)
				break
			}
		}
	}
	return out, len(out), nil
}

func fixture() *Service {
	return NewService(
		memorySales{sales: []sales.Sale{
			{SaleID: "SALE-20250601-0001", CustomerName: "Kato Designs", ProductName: masterdata.ProductSofa, ProductType: masterdata.TypeFurniture, AgentName: "sam"},
			{SaleID: "SALE-20250601-0002", CustomerName: "Nakato", ProductName: masterdata.ProductTimber, ProductType: masterdata.TypeWood, AgentName: "ruth"},
		}},
		memoryStock{lots: []inventory.Lot{
			{StockID: "STK-20250601-0001", ProductName: masterdata.ProductTimber, ProductType: masterdata.TypeWood, SupplierName: "Kato Timber"},
		}},
	)
}

func TestSearchMatchesAcrossKinds(t *testing.T) {
	res, err := fixture().Search(context.Background(), "  kato ")
	require.NoError(t, err)
	require.Equal(t, "kato", res.Query)
	require.Len(t, res.Sales, 2)
	require.Len(t, res.Stock, 1)

	res, err = fixture().Search(context.Background(), "wood")
	require.NoError(t, err)
	require.Len(t, res.Sales, 1)
	require.Equal(t, "SALE-20250601-0002", res.Sales[0].SaleID)
	require.Len(t, res.Stock, 1)
}

func TestSearchBlankQueryMatchesNothing(t *testing.T) {
	res, err := fixture().Search(context.Background(), "   ")
	require.NoError(t, err)
	require.Empty(t, res.Sales)
	require.Empty(t, res.Stock)
	require.NotNil(t, res.Sales)
}

func TestSearchPropagatesErrors(t *testing.T) {
	svc := NewService(memorySales{err: errors.New("db down")}, memoryStock{})
	_, err := svc.Search(context.Background(), "sofa")
	require.Error(t, err)
}
