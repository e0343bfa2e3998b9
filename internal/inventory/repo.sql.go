package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mayondo/mwf/internal/docnum"
	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

// ConstraintStockID guards the generated STK identifier.
const ConstraintStockID = "stock_lots_stock_id_key"

// Repository persists stock lots in PostgreSQL.
type Repository struct {
	pool db.Pool
	ids  *docnum.Generator
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, ids *docnum.Generator) *Repository {
	return &Repository{pool: pool, ids: ids}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	EnsureProduct(ctx context.Context, name masterdata.ProductName, typ masterdata.ProductType) (masterdata.Product, error)
	SupplierName(ctx context.Context, supplierID int64) (string, error)
	NextStockID(ctx context.Context) (string, error)
	InsertLot(ctx context.Context, lot Lot) (Lot, error)
	GetLotForUpdate(ctx context.Context, id int64) (Lot, error)
	UpdateLot(ctx context.Context, lot Lot) error
	DeleteLot(ctx context.Context, id int64) error
	AvailableQuantity(ctx context.Context, product ProductRef) (int, error)
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
		return errors.New("inventory repository not initialised")
	}
	return db.WithLockingTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, ids: r.ids})
	})
}

const selectLot = `SELECT l.id, l.stock_id, l.date, COALESCE(l.product_id, 0), l.product_name, l.product_type, l.quantity,
l.supplier_id, l.supplier_name, l.unit_cost, l.total_cost, l.origin, l.created_at
FROM stock_lots l`

// ListLots returns a page of lots, newest first, and the total match count.
func (r *Repository) ListLots(ctx context.Context, filter LotFilter) ([]Lot, int, error) {
	where, args := lotWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_lots l`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lots: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`%s%s ORDER BY l.date DESC, l.id DESC LIMIT $%d OFFSET $%d`, selectLot, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	lots := []Lot{}
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, 0, err
		}
		lots = append(lots, lot)
	}
	return lots, total, rows.Err()
}

func lotWhere(filter LotFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(l.stock_id ILIKE $%[1]d OR l.product_name ILIKE $%[1]d OR l.product_type ILIKE $%[1]d OR l.supplier_name ILIKE $%[1]d)", n))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("l.date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("l.date <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetLot loads one lot.
func (r *Repository) GetLot(ctx context.Context, id int64) (Lot, error) {
	return getLot(ctx, r.pool, id, false)
}

// LotsBetween returns every lot dated within [from, to]; zero bounds are open.
func (r *Repository) LotsBetween(ctx context.Context, from, to time.Time) ([]Lot, error) {
	where, args := lotWhere(LotFilter{From: from, To: to})
	rows, err := r.pool.Query(ctx, selectLot+where+` ORDER BY l.date DESC, l.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("lots between: %w", err)
	}
	defer rows.Close()
	lots := []Lot{}
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// StockSummary consolidates lots per product.
func (r *Repository) StockSummary(ctx context.Context) ([]ProductStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT COALESCE(MAX(product_id), 0), product_name, product_type,
COALESCE(SUM(quantity), 0)::int, COUNT(*)::int, COALESCE(SUM(total_cost), 0)
FROM stock_lots
GROUP BY product_name, product_type
ORDER BY product_name, product_type`)
	if err != nil {
		return nil, fmt.Errorf("stock summary: %w", err)
	}
	defer rows.Close()
	out := []ProductStock{}
	for rows.Next() {
		var (
			ps         ProductStock
			name, kind string
		)
		if err := rows.Scan(&ps.ProductID, &name, &kind, &ps.Quantity, &ps.Lots, &ps.StockValue); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		ps.ProductName, ps.ProductType = masterdata.ProductName(name), masterdata.ProductType(kind)
		out = append(out, ps)
	}
	return out, rows.Err()
}

// AvailableQuantity reads the consolidated quantity outside a transaction.
func (r *Repository) AvailableQuantity(ctx context.Context, product ProductRef) (int, error) {
	return AvailableQuantity(ctx, r.pool, product)
}

func (r *txRepository) EnsureProduct(ctx context.Context, name masterdata.ProductName, typ masterdata.ProductType) (masterdata.Product, error) {
	return masterdata.EnsureProduct(ctx, r.tx, name, typ, "Stock")
}

func (r *txRepository) SupplierName(ctx context.Context, supplierID int64) (string, error) {
	var name string
	err := r.tx.QueryRow(ctx, `SELECT name FROM suppliers WHERE id = $1`, supplierID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	return name, err
}

func (r *txRepository) NextStockID(ctx context.Context) (string, error) {
	return r.ids.Next(ctx, r.tx, docnum.KindStock, time.Time{})
}

func (r *txRepository) InsertLot(ctx context.Context, lot Lot) (Lot, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_lots
(stock_id, date, product_id, product_name, product_type, quantity, supplier_id, supplier_name, unit_cost, total_cost, origin, recorded_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
RETURNING id, created_at`,
		lot.StockID, lot.Date, lot.ProductID, string(lot.ProductName), string(lot.ProductType), lot.Quantity,
		lot.SupplierID, lot.SupplierName, lot.UnitCost, lot.TotalCost, string(lot.Origin), nullInt(lot.RecordedBy)).
		Scan(&lot.ID, &lot.CreatedAt)
	if err != nil {
		return Lot{}, fmt.Errorf("insert lot: %w", err)
	}
	return lot, nil
}

func (r *txRepository) GetLotForUpdate(ctx context.Context, id int64) (Lot, error) {
	return getLot(ctx, r.tx, id, true)
}

func (r *txRepository) UpdateLot(ctx context.Context, lot Lot) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_lots SET date=$1, product_id=$2, product_name=$3, product_type=$4, quantity=$5,
supplier_id=$6, supplier_name=$7, unit_cost=$8, total_cost=$9, origin=$10 WHERE id=$11`,
		lot.Date, lot.ProductID, string(lot.ProductName), string(lot.ProductType), lot.Quantity,
		lot.SupplierID, lot.SupplierName, lot.UnitCost, lot.TotalCost, string(lot.Origin), lot.ID)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

func (r *txRepository) DeleteLot(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM stock_lots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

func (r *txRepository) AvailableQuantity(ctx context.Context, product ProductRef) (int, error) {
	return AvailableQuantity(ctx, r.tx, product)
}

func (r *txRepository) NotifyManagers(ctx context.Context, message string, category notify.Category) error {
	_, err := notify.NotifyManagers(ctx, r.tx, message, category)
	return err
}

func getLot(ctx context.Context, q db.Querier, id int64, lock bool) (Lot, error) {
	query := selectLot + ` WHERE l.id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	lot, err := scanLot(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lot{}, ErrLotNotFound
	}
	return lot, err
}

func scanLot(row pgx.Row) (Lot, error) {
	var (
		lot                Lot
		name, kind, origin string
	)
	err := row.Scan(&lot.ID, &lot.StockID, &lot.Date, &lot.ProductID, &name, &kind, &lot.Quantity,
		&lot.SupplierID, &lot.SupplierName, &lot.UnitCost, &lot.TotalCost, &origin, &lot.CreatedAt)
	if err != nil {
		return Lot{}, err
	}
	lot.ProductName = masterdata.ProductName(name)
	lot.ProductType = masterdata.ProductType(kind)
	lot.Origin = masterdata.Origin(origin)
	return lot, nil
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
