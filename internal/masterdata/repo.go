package masterdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

const (
	constraintCustomerName  = "customers_name_key"
	constraintSupplierName  = "suppliers_name_key"
	codeForeignKeyViolation = "23503"
)

// repo implements Repository interface.
type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new master data repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{db: pool}
}

// EnsureProduct returns the catalogue entry for (name, type), creating it on first use.
// It runs on q so callers can keep it inside their transaction; concurrent callers
// converge on one row through the unique (name, product_type) constraint.
func EnsureProduct(ctx context.Context, q db.Querier, name ProductName, typ ProductType, origin string) (Product, error) {
	if _, err := ParseProductName(string(name)); err != nil {
		return Product{}, err
	}
	if _, err := ParseProductType(string(typ)); err != nil {
		return Product{}, err
	}
	desc := fmt.Sprintf("Auto-created from %s record - %s (%s)", origin, name, typ)
	_, err := q.Exec(ctx, `INSERT INTO products (name, product_type, description, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name, product_type) DO NOTHING`, string(name), string(typ), desc)
	if err != nil {
		return Product{}, fmt.Errorf("ensure product: %w", err)
	}
	return FindProduct(ctx, q, name, typ)
}

// FindProduct loads the catalogue entry for (name, type).
func FindProduct(ctx context.Context, q db.Querier, name ProductName, typ ProductType) (Product, error) {
	var p Product
	var pn, pt string
	err := q.QueryRow(ctx, `SELECT id, name, product_type, description, created_at
		FROM products WHERE name = $1 AND product_type = $2`, string(name), string(typ)).
		Scan(&p.ID, &pn, &pt, &p.Description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, fmt.Errorf("find product: %w", err)
	}
	p.Name, p.Type = ProductName(pn), ProductType(pt)
	return p, nil
}

func (r *repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, product_type, description, created_at FROM products ORDER BY name, product_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var pn, pt string
		if err := rows.Scan(&p.ID, &pn, &pt, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Name, p.Type = ProductName(pn), ProductType(pt)
		products = append(products, p)
	}
	return products, rows.Err()
}

// Customer operations
func (r *repo) ListCustomers(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	pattern := "%" + filters.Search + "%"
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE name ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, name, phone, email, address, created_at, updated_at
		FROM customers WHERE name ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1
		ORDER BY name LIMIT $2 OFFSET $3`, pattern, limitOrDefault(filters.Limit), filters.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repo) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx, `SELECT id, name, phone, email, address, created_at, updated_at FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, shared.ErrNotFound
	}
	return c, err
}

func (r *repo) CreateCustomer(ctx context.Context, customer Customer) (Customer, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO customers (name, phone, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		customer.Name, customer.Phone, customer.Email, customer.Address, now).Scan(&customer.ID)
	if err != nil {
		if db.IsUniqueViolation(err, constraintCustomerName) {
			return Customer{}, ErrDuplicateName
		}
		return Customer{}, err
	}
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return customer, nil
}

func (r *repo) UpdateCustomer(ctx context.Context, id int64, customer Customer) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET name = $1, phone = $2, email = $3, address = $4, updated_at = $5 WHERE id = $6`,
		customer.Name, customer.Phone, customer.Email, customer.Address, time.Now(), id)
	if err != nil {
		if db.IsUniqueViolation(err, constraintCustomerName) {
			return ErrDuplicateName
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repo) DeleteCustomer(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, `DELETE FROM customers WHERE id = $1`, id)
}

// Supplier operations
func (r *repo) ListSuppliers(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	pattern := "%" + filters.Search + "%"
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers WHERE name ILIKE $1 OR contact_person ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, name, contact_person, phone, email, address, created_at, updated_at
		FROM suppliers WHERE name ILIKE $1 OR contact_person ILIKE $1
		ORDER BY name LIMIT $2 OFFSET $3`, pattern, limitOrDefault(filters.Limit), filters.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, total, rows.Err()
}

func (r *repo) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.db.QueryRow(ctx, `SELECT id, name, contact_person, phone, email, address, created_at, updated_at FROM suppliers WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}

func (r *repo) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO suppliers (name, contact_person, phone, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		supplier.Name, supplier.ContactPerson, supplier.Phone, supplier.Email, supplier.Address, now).Scan(&supplier.ID)
	if err != nil {
		if db.IsUniqueViolation(err, constraintSupplierName) {
			return Supplier{}, ErrDuplicateName
		}
		return Supplier{}, err
	}
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	return supplier, nil
}

func (r *repo) UpdateSupplier(ctx context.Context, id int64, supplier Supplier) error {
	tag, err := r.db.Exec(ctx, `UPDATE suppliers SET name = $1, contact_person = $2, phone = $3, email = $4, address = $5, updated_at = $6 WHERE id = $7`,
		supplier.Name, supplier.ContactPerson, supplier.Phone, supplier.Email, supplier.Address, time.Now(), id)
	if err != nil {
		if db.IsUniqueViolation(err, constraintSupplierName) {
			return ErrDuplicateName
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repo) DeleteSupplier(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.db, `DELETE FROM suppliers WHERE id = $1`, id)
}

func deleteByID(ctx context.Context, q db.Querier, query string, id int64) error {
	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		var pgErr interface{ SQLState() string }
		if errors.As(err, &pgErr) && pgErr.SQLState() == codeForeignKeyViolation {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

var _ Repository = (*repo)(nil)
