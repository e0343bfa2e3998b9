package masterdata

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ProductName is one of the furniture categories the business trades.
type ProductName string

// ProductType separates raw wood from finished furniture.
type ProductType string

// Origin is the region a stock lot was sourced from.
type Origin string

// PaymentMethod records how a customer paid.
type PaymentMethod string

const (
	ProductTimber    ProductName = "Timber"
	ProductSofa      ProductName = "Sofa"
	ProductTables    ProductName = "Tables"
	ProductCupboards ProductName = "Cupboards"
	ProductDrawer    ProductName = "Drawer"
	ProductPoles     ProductName = "Poles"

	TypeWood      ProductType = "Wood"
	TypeFurniture ProductType = "Furniture"

	OriginWestern Origin = "Western"
	OriginCentral Origin = "Central"
	OriginEastern Origin = "Eastern"

	PaymentCash          PaymentMethod = "Cash"
	PaymentCheque        PaymentMethod = "Cheque"
	PaymentBankOverdraft PaymentMethod = "Bank Overdraft"
)

var (
	productNames   = []ProductName{ProductTimber, ProductSofa, ProductTables, ProductCupboards, ProductDrawer, ProductPoles}
	productTypes   = []ProductType{TypeWood, TypeFurniture}
	origins        = []Origin{OriginWestern, OriginCentral, OriginEastern}
	paymentMethods = []PaymentMethod{PaymentCash, PaymentCheque, PaymentBankOverdraft}
)

var (
	// ErrUnknownProductName rejects names outside the catalogue.
	ErrUnknownProductName = errors.New("masterdata: unknown product name")
	// ErrUnknownProductType rejects types other than Wood or Furniture.
	ErrUnknownProductType = errors.New("masterdata: unknown product type")
	// ErrUnknownOrigin rejects origins outside the three regions.
	ErrUnknownOrigin = errors.New("masterdata: unknown origin")
	// ErrUnknownPaymentMethod rejects unsupported payment methods.
	ErrUnknownPaymentMethod = errors.New("masterdata: unknown payment method")
	// ErrDuplicateName is returned when a customer or supplier name is taken.
	ErrDuplicateName = errors.New("masterdata: name already exists")
	// ErrInUse is returned when a referenced customer or supplier is deleted.
	ErrInUse = errors.New("masterdata: record is referenced")
)

func normalize(raw string) string {
	fields := strings.Fields(raw)
	return cases.Title(language.English).String(strings.Join(fields, " "))
}

func match[T ~string](raw string, allowed []T, notFound error) (T, error) {
	want := normalize(raw)
	for _, v := range allowed {
		if string(v) == want {
			return v, nil
		}
	}
	var zero T
	return zero, notFound
}

// ParseProductName accepts any casing of a catalogue name.
func ParseProductName(raw string) (ProductName, error) {
	return match(raw, productNames, ErrUnknownProductName)
}

// ParseProductType accepts any casing of Wood or Furniture.
func ParseProductType(raw string) (ProductType, error) {
	return match(raw, productTypes, ErrUnknownProductType)
}

// ParseOrigin accepts any casing of a sourcing region.
func ParseOrigin(raw string) (Origin, error) {
	return match(raw, origins, ErrUnknownOrigin)
}

// ParsePaymentMethod accepts any casing of a payment method.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	return match(raw, paymentMethods, ErrUnknownPaymentMethod)
}

// ProductNames lists the catalogue.
func ProductNames() []ProductName { return append([]ProductName(nil), productNames...) }

// ProductTypes lists the product types.
func ProductTypes() []ProductType { return append([]ProductType(nil), productTypes...) }

// Origins lists the sourcing regions.
func Origins() []Origin { return append([]Origin(nil), origins...) }

// PaymentMethods lists the accepted payment methods.
func PaymentMethods() []PaymentMethod { return append([]PaymentMethod(nil), paymentMethods...) }

// Product is a catalogue entry, unique by (name, type).
type Product struct {
	ID          int64       `json:"id"`
	Name        ProductName `json:"name"`
	Type        ProductType `json:"type"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Label renders "Name (Type)".
func (p Product) Label() string {
	return string(p.Name) + " (" + string(p.Type) + ")"
}

// Customer buys products.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Supplier provides stock lots.
type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListFilters represents standard list page filters.
type ListFilters struct {
	Limit  int
	Offset int
	Search string
}

// Repository interface for master data operations.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)

	ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	CreateCustomer(ctx context.Context, customer Customer) (Customer, error)
	UpdateCustomer(ctx context.Context, id int64, customer Customer) error
	DeleteCustomer(ctx context.Context, id int64) error

	ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, supplier Supplier) error
	DeleteSupplier(ctx context.Context, id int64) error
}
