package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/shared"
)

// ErrSaleNotFound indicates a missing sale.
var ErrSaleNotFound = fmt.Errorf("sale %w", shared.ErrNotFound)

// Sale is one recorded sale. TotalAmount is always derived from quantity,
// unit price and the transport flag.
type Sale struct {
	ID                int64                    `json:"id"`
	SaleID            string                   `json:"sale_id"`
	Date              time.Time                `json:"date"`
	CustomerID        int64                    `json:"customer_id"`
	CustomerName      string                   `json:"customer_name"`
	ProductID         int64                    `json:"product_id"`
	ProductName       masterdata.ProductName   `json:"product_name"`
	ProductType       masterdata.ProductType   `json:"product_type"`
	Quantity          int                      `json:"quantity"`
	UnitPrice         decimal.Decimal          `json:"unit_price"`
	TotalAmount       decimal.Decimal          `json:"total_amount"`
	PaymentMethod     masterdata.PaymentMethod `json:"payment_method"`
	AgentID           int64                    `json:"sales_agent_id"`
	AgentName         string                   `json:"sales_agent"`
	TransportRequired bool                     `json:"transport_required"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// Ref returns the product reference of the sale.
func (s Sale) Ref() inventory.ProductRef {
	return inventory.ProductRef{ID: s.ProductID, Name: s.ProductName, Type: s.ProductType}
}

// SaleInput carries a sale as entered by an agent.
type SaleInput struct {
	Date              time.Time
	CustomerID        int64
	ProductName       string
	ProductType       string
	Quantity          int
	UnitPrice         decimal.Decimal
	PaymentMethod     string
	TransportRequired bool
	AgentID           int64
	// IdempotencyKey deduplicates client retries of the same submission.
	IdempotencyKey string
}

// ListFilter narrows sale listings.
type ListFilter struct {
	Search  string
	From    time.Time
	To      time.Time
	AgentID int64
	Limit   int
	Offset  int
}

// Company details printed on receipts.
const (
	CompanyName    = "Mayondo Wood & Furniture Ltd"
	CompanyTagline = "Furniture Showroom & Warehouse"
	CompanyPhone   = "+256 772 402 070"
)

// Receipt is the printable form of a sale.
type Receipt struct {
	Number            string          `json:"receipt_number"`
	Company           string          `json:"company"`
	Tagline           string          `json:"tagline"`
	Phone             string          `json:"phone"`
	Sale              Sale            `json:"sale"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	TransportFee      decimal.Decimal `json:"transport_fee"`
	Total             decimal.Decimal `json:"total"`
	TransportIncluded bool            `json:"transport_included"`
}

// ReceiptNumber formats the receipt number of a sale row.
func ReceiptNumber(id int64) string {
	return fmt.Sprintf("MWF-%06d", id)
}

// NewReceipt builds the receipt of s.
func NewReceipt(s Sale) Receipt {
	return Receipt{
		Number:            ReceiptNumber(s.ID),
		Company:           CompanyName,
		Tagline:           CompanyTagline,
		Phone:             CompanyPhone,
		Sale:              s,
		Subtotal:          BaseAmount(s.Quantity, s.UnitPrice).Round(2),
		TransportFee:      TransportFee(s.Quantity, s.UnitPrice, s.TransportRequired).Round(2),
		Total:             s.TotalAmount,
		TransportIncluded: s.TransportRequired,
	}
}

// SaleChangedEvent is emitted after a committed sale mutation.
type SaleChangedEvent struct {
	Action string
	SaleID string
	At     time.Time
}

// Sale mutation actions.
const (
	ActionRecorded = "recorded"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
)
