// Package reports builds the manager sales and stock reports and renders them
// as JSON, CSV or XLSX.
package reports

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/sales"
)

// Format selects the report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat rejects encodings other than json, csv and xlsx.
var ErrUnknownFormat = errors.New("reports: unknown format")

// ParseFormat maps a query value to a Format; blank means JSON.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", ErrUnknownFormat
	}
}

// Period is an inclusive date range; zero bounds are open.
type Period struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// SaleRow is one line of the sales report.
type SaleRow struct {
	SaleID        string `json:"sale_id" csv:"Sale ID"`
	Date          string `json:"date" csv:"Date"`
	Customer      string `json:"customer" csv:"Customer"`
	Product       string `json:"product" csv:"Product"`
	Type          string `json:"product_type" csv:"Type"`
	Quantity      int    `json:"quantity" csv:"Quantity"`
	UnitPrice     string `json:"unit_price" csv:"Unit Price"`
	TransportFee  string `json:"transport_fee" csv:"Transport Fee"`
	Total         string `json:"total_amount" csv:"Total"`
	PaymentMethod string `json:"payment_method" csv:"Payment Method"`
	Agent         string `json:"sales_agent" csv:"Sales Agent"`
}

// SalesReport lists the sales of a period with their financials.
type SalesReport struct {
	Period     Period           `json:"period"`
	Rows       []SaleRow        `json:"rows"`
	Financials sales.Financials `json:"financials"`
}

// StockRow is one line of the stock report.
type StockRow struct {
	StockID   string `json:"stock_id" csv:"Stock ID"`
	Date      string `json:"date" csv:"Date"`
	Product   string `json:"product" csv:"Product"`
	Type      string `json:"product_type" csv:"Type"`
	Quantity  int    `json:"quantity" csv:"Quantity"`
	UnitCost  string `json:"unit_cost" csv:"Unit Cost"`
	TotalCost string `json:"total_cost" csv:"Total Cost"`
	Supplier  string `json:"supplier" csv:"Supplier"`
	Origin    string `json:"origin" csv:"Origin"`
	Level     string `json:"level" csv:"Level"`
}

// StockReport lists the lots received in a period.
type StockReport struct {
	Period        Period          `json:"period"`
	Rows          []StockRow      `json:"rows"`
	TotalQuantity int             `json:"total_quantity"`
	TotalCost     decimal.Decimal `json:"total_cost"`
}

const dateLayout = "2006-01-02"

func saleRow(s sales.Sale) SaleRow {
	return SaleRow{
		SaleID:        s.SaleID,
		Date:          s.Date.Format(dateLayout),
		Customer:      s.CustomerName,
		Product:       string(s.ProductName),
		Type:          string(s.ProductType),
		Quantity:      s.Quantity,
		UnitPrice:     s.UnitPrice.StringFixed(2),
		TransportFee:  sales.TransportFee(s.Quantity, s.UnitPrice, s.TransportRequired).StringFixed(2),
		Total:         s.TotalAmount.StringFixed(2),
		PaymentMethod: string(s.PaymentMethod),
		Agent:         s.AgentName,
	}
}

func stockRow(l inventory.Lot, threshold int) StockRow {
	return StockRow{
		StockID:   l.StockID,
		Date:      l.Date.Format(dateLayout),
		Product:   string(l.ProductName),
		Type:      string(l.ProductType),
		Quantity:  l.Quantity,
		UnitCost:  l.UnitCost.StringFixed(2),
		TotalCost: l.TotalCost.StringFixed(2),
		Supplier:  l.SupplierName,
		Origin:    string(l.Origin),
		Level:     string(inventory.Classify(l.Quantity, threshold)),
	}
}
