package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mayondo/mwf/internal/docnum"
	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

// ConstraintSaleID guards the generated SALE identifier.
const ConstraintSaleID = "sales_sale_id_key"

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool db.Pool
	ids  *docnum.Generator
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, ids *docnum.Generator) *Repository {
	return &Repository{pool: pool, ids: ids}
}

// TxRepository exposes the steps of the sale workflow that share one transaction.
type TxRepository interface {
	EnsureProduct(ctx context.Context, name masterdata.ProductName, typ masterdata.ProductType) (masterdata.Product, error)
	CustomerName(ctx context.Context, id int64) (string, error)
	AgentName(ctx context.Context, id int64) (string, error)
	Consume(ctx context.Context, product inventory.ProductRef, quantity int) (int, error)
	NextSaleID(ctx context.Context) (string, error)
	InsertSale(ctx context.Context, sale Sale) (Sale, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	UpdateSale(ctx context.Context, sale Sale) error
	DeleteSale(ctx context.Context, id int64) error
	NotifyManagers(ctx context.Context, message string, category notify.Category) error
}

type txRepository struct {
	tx  pgx.Tx
	ids *docnum.Generator
}

// WithTx executes the callback inside a read-committed transaction. Lots are
// locked FOR UPDATE and identifiers allocated under an advisory lock, so each
// statement must see rows committed while it waited.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	return db.WithLockingTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, ids: r.ids})
	})
}

const selectSale = `SELECT s.id, s.sale_id, s.date, s.customer_id, c.name, COALESCE(s.product_id, 0), s.product_name, s.product_type,
s.quantity, s.unit_price, s.total_amount, s.payment_method, s.sales_agent_id, u.username, s.transport_required, s.created_at, s.updated_at
FROM sales s
JOIN customers c ON c.id = s.customer_id
JOIN users u ON u.id = s.sales_agent_id`

// ListSales returns a page of sales, newest first, and the total match count.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	where, args := saleWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales s
JOIN customers c ON c.id = s.customer_id
JOIN users u ON u.id = s.sales_agent_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`%s%s ORDER BY s.date DESC, s.id DESC LIMIT $%d OFFSET $%d`, selectSale, where, len(args)-1, len(args))
	sales, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	return sales, total, nil
}

// SalesBetween returns every sale dated within [from, to]; zero bounds are open.
func (r *Repository) SalesBetween(ctx context.Context, from, to time.Time) ([]Sale, error) {
	where, args := saleWhere(ListFilter{From: from, To: to})
	sales, err := r.query(ctx, selectSale+where+` ORDER BY s.date DESC, s.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("sales between: %w", err)
	}
	return sales, nil
}

// GetSale loads one sale.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	return getSale(ctx, r.pool, id, false)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sales := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func saleWhere(filter ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(s.sale_id ILIKE $%[1]d OR c.name ILIKE $%[1]d OR s.product_name ILIKE $%[1]d OR s.product_type ILIKE $%[1]d OR u.username ILIKE $%[1]d)", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("s.date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("s.date <= $%d", len(args)))
	}
	if filter.AgentID > 0 {
		args = append(args, filter.AgentID)
		conds = append(conds, fmt.Sprintf("s.sales_agent_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *txRepository) EnsureProduct(ctx context.Context, name masterdata.ProductName, typ masterdata.ProductType) (masterdata.Product, error) {
	return masterdata.EnsureProduct(ctx, r.tx, name, typ, "Sale")
}

func (r *txRepository) CustomerName(ctx context.Context, id int64) (string, error) {
	return lookupName(ctx, r.tx, `SELECT name FROM customers WHERE id = $1`, id)
}

func (r *txRepository) AgentName(ctx context.Context, id int64) (string, error) {
	return lookupName(ctx, r.tx, `SELECT username FROM users WHERE id = $1 AND is_active`, id)
}

func (r *txRepository) Consume(ctx context.Context, product inventory.ProductRef, quantity int) (int, error) {
	return inventory.Consume(ctx, r.tx, product, quantity)
}

func (r *txRepository) NextSaleID(ctx context.Context) (string, error) {
	return r.ids.Next(ctx, r.tx, docnum.KindSale, time.Time{})
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) (Sale, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO sales
(sale_id, date, customer_id, product_id, product_name, product_type, quantity, unit_price, total_amount, payment_method, sales_agent_id, transport_required, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
RETURNING id, created_at, updated_at`,
		sale.SaleID, sale.Date, sale.CustomerID, sale.ProductID, string(sale.ProductName), string(sale.ProductType),
		sale.Quantity, sale.UnitPrice, sale.TotalAmount, string(sale.PaymentMethod), sale.AgentID, sale.TransportRequired).
		Scan(&sale.ID, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return Sale{}, fmt.Errorf("insert sale: %w", err)
	}
	return sale, nil
}

func (r *txRepository) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	return getSale(ctx, r.tx, id, true)
}

func (r *txRepository) UpdateSale(ctx context.Context, sale Sale) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales SET date=$1, customer_id=$2, product_id=$3, product_name=$4, product_type=$5, quantity=$6,
unit_price=$7, total_amount=$8, payment_method=$9, transport_required=$10, updated_at=NOW() WHERE id=$11`,
		sale.Date, sale.CustomerID, sale.ProductID, string(sale.ProductName), string(sale.ProductType), sale.Quantity,
		sale.UnitPrice, sale.TotalAmount, string(sale.PaymentMethod), sale.TransportRequired, sale.ID)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *txRepository) DeleteSale(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *txRepository) NotifyManagers(ctx context.Context, message string, category notify.Category) error {
	_, err := notify.NotifyManagers(ctx, r.tx, message, category)
	return err
}

func lookupName(ctx context.Context, q db.Querier, sql string, id int64) (string, error) {
	var name string
	err := q.QueryRow(ctx, sql, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	return name, err
}

func getSale(ctx context.Context, q db.Querier, id int64, lock bool) (Sale, error) {
	query := selectSale + ` WHERE s.id = $1`
	if lock {
		query += ` FOR UPDATE OF s`
	}
	sale, err := scanSale(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrSaleNotFound
	}
	return sale, err
}

func scanSale(row pgx.Row) (Sale, error) {
	var (
		s                   Sale
		name, kind, payment string
	)
	err := row.Scan(&s.ID, &s.SaleID, &s.Date, &s.CustomerID, &s.CustomerName, &s.ProductID, &name, &kind,
		&s.Quantity, &s.UnitPrice, &s.TotalAmount, &payment, &s.AgentID, &s.AgentName, &s.TransportRequired, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Sale{}, err
	}
	s.ProductName = masterdata.ProductName(name)
	s.ProductType = masterdata.ProductType(kind)
	s.PaymentMethod = masterdata.PaymentMethod(payment)
	return s, nil
}
