package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/shared"
)

// DefaultLowStockThreshold is the consolidated quantity below which managers are warned.
const DefaultLowStockThreshold = 5

// ErrLotNotFound indicates a missing stock lot.
var ErrLotNotFound = fmt.Errorf("stock lot %w", shared.ErrNotFound)

// ProductRef identifies the product whose lots are read or consumed. ID is the
// catalogue reference; Name and Type match lots recorded without one.
type ProductRef struct {
	ID   int64
	Name masterdata.ProductName
	Type masterdata.ProductType
}

// Label renders "Name (Type)".
func (p ProductRef) Label() string {
	return string(p.Name) + " (" + string(p.Type) + ")"
}

// NameKey is the case-folded name and type used to match lots recorded
// without a catalogue reference.
func (p ProductRef) NameKey() string {
	fold := cases.Fold()
	return fold.String(string(p.Name)) + "|" + fold.String(string(p.Type))
}

// RefFromProduct converts a catalogue entry.
func RefFromProduct(p masterdata.Product) ProductRef {
	return ProductRef{ID: p.ID, Name: p.Name, Type: p.Type}
}

// Lot is one stock receipt and the quantity still on hand from it.
type Lot struct {
	ID           int64                  `json:"id"`
	StockID      string                 `json:"stock_id"`
	Date         time.Time              `json:"date"`
	ProductID    int64                  `json:"product_id"`
	ProductName  masterdata.ProductName `json:"product_name"`
	ProductType  masterdata.ProductType `json:"product_type"`
	Quantity     int                    `json:"quantity"`
	SupplierID   *int64                 `json:"supplier_id,omitempty"`
	SupplierName string                 `json:"supplier_name"`
	UnitCost     decimal.Decimal        `json:"unit_cost"`
	TotalCost    decimal.Decimal        `json:"total_cost"`
	Origin       masterdata.Origin      `json:"origin"`
	RecordedBy   int64                  `json:"recorded_by,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Ref returns the product reference of the lot.
func (l Lot) Ref() ProductRef {
	return ProductRef{ID: l.ProductID, Name: l.ProductName, Type: l.ProductType}
}

// TotalCostOf returns quantity × unit cost.
func TotalCostOf(quantity int, unitCost decimal.Decimal) decimal.Decimal {
	return unitCost.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// ReceiptInput carries an operator's stock receipt or lot edit.
type ReceiptInput struct {
	Date        time.Time
	ProductName string
	ProductType string
	Quantity    int
	UnitCost    decimal.Decimal
	SupplierID  int64
	Origin      string
	ActorID     int64
}

// LotFilter narrows lot listings.
type LotFilter struct {
	Search string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// StockLevel classifies a consolidated quantity.
type StockLevel string

const (
	LevelOK        StockLevel = "ok"
	LevelLow       StockLevel = "low"
	LevelExhausted StockLevel = "exhausted"
)

// Classify maps a consolidated quantity onto a stock level.
func Classify(quantity, threshold int) StockLevel {
	switch {
	case quantity <= 0:
		return LevelExhausted
	case quantity < threshold:
		return LevelLow
	default:
		return LevelOK
	}
}

// ProductStock consolidates the lots of one product.
type ProductStock struct {
	ProductID   int64                  `json:"product_id"`
	ProductName masterdata.ProductName `json:"product_name"`
	ProductType masterdata.ProductType `json:"product_type"`
	Quantity    int                    `json:"quantity"`
	Lots        int                    `json:"lots"`
	StockValue  decimal.Decimal        `json:"stock_value"`
	Level       StockLevel             `json:"level"`
}
