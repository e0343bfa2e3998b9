package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListLots(ctx context.Context, filter LotFilter) ([]Lot, int, error)
	GetLot(ctx context.Context, id int64) (Lot, error)
	StockSummary(ctx context.Context) ([]ProductStock, error)
	AvailableQuantity(ctx context.Context, product ProductRef) (int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts stock receipts.
type MetricsPort interface {
	StockReceived()
	ConcurrencyRetry()
}

// Service coordinates stock lot operations.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	metrics   MetricsPort
	changes   ChangeHandler
	threshold int
	retries   int
	loc       *time.Location
	now       func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	LowStockThreshold int
	RetryLimit        int
	Location          *time.Location
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, changes ChangeHandler, cfg ServiceConfig) *Service {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = DefaultLowStockThreshold
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		repo:      repo,
		audit:     audit,
		metrics:   metrics,
		changes:   changes,
		threshold: cfg.LowStockThreshold,
		retries:   cfg.RetryLimit,
		loc:       cfg.Location,
		now:       time.Now,
	}
}

// Threshold returns the low-stock threshold in force.
func (s *Service) Threshold() int { return s.threshold }

type receipt struct {
	date     time.Time
	name     masterdata.ProductName
	typ      masterdata.ProductType
	origin   masterdata.Origin
	quantity int
	input    ReceiptInput
}

func (s *Service) validate(input ReceiptInput) (receipt, error) {
	var errs shared.ValidationErrors
	r := receipt{quantity: input.Quantity, input: input}
	var err error
	if r.name, err = masterdata.ParseProductName(input.ProductName); err != nil {
		errs.Add("product_name", "is not a known product")
	}
	if r.typ, err = masterdata.ParseProductType(input.ProductType); err != nil {
		errs.Add("product_type", "must be Wood or Furniture")
	}
	if r.origin, err = masterdata.ParseOrigin(input.Origin); err != nil {
		errs.Add("origin", "must be Western, Central or Eastern")
	}
	if input.Quantity < 0 {
		errs.Add("quantity", "cannot be negative")
	}
	if !input.UnitCost.IsPositive() {
		errs.Add("unit_cost", "must be greater than 0")
	}
	if input.SupplierID <= 0 {
		errs.Add("supplier_id", "is required")
	}
	switch {
	case input.Date.IsZero():
		errs.Add("date", "is required")
	default:
		r.date = dateOnly(input.Date, s.loc)
		if r.date.After(dateOnly(s.now(), s.loc)) {
			errs.Add("date", "cannot be in the future")
		}
	}
	return r, errs.Err()
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// RecordReceipt stores a new stock lot under a fresh STK identifier and tells
// every manager about it.
func (s *Service) RecordReceipt(ctx context.Context, input ReceiptInput) (Lot, error) {
	r, err := s.validate(input)
	if err != nil {
		return Lot{}, err
	}
	var lot Lot
	var left int
	err = s.retry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			product, err := tx.EnsureProduct(ctx, r.name, r.typ)
			if err != nil {
				return err
			}
			supplier, err := s.supplier(ctx, tx, input.SupplierID)
			if err != nil {
				return err
			}
			stockID, err := tx.NextStockID(ctx)
			if err != nil {
				return err
			}
			supplierID := input.SupplierID
			lot, err = tx.InsertLot(ctx, Lot{
				StockID:      stockID,
				Date:         r.date,
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductType:  product.Type,
				Quantity:     r.quantity,
				SupplierID:   &supplierID,
				SupplierName: supplier,
				UnitCost:     input.UnitCost,
				TotalCost:    TotalCostOf(r.quantity, input.UnitCost),
				Origin:       r.origin,
				RecordedBy:   input.ActorID,
			})
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("New stock added: %s (%d) from %s", lot.ProductName, lot.Quantity, supplier)
			if err := tx.NotifyManagers(ctx, msg, notify.CategoryInfo); err != nil {
				return err
			}
			left, err = s.warnLowStock(ctx, tx, lot.Ref())
			return err
		})
	})
	if err != nil {
		return Lot{}, err
	}
	if s.metrics != nil {
		s.metrics.StockReceived()
	}
	s.record(ctx, input.ActorID, "stock:receive", lot, map[string]any{
		"quantity":  lot.Quantity,
		"unit_cost": lot.UnitCost.String(),
		"available": left,
	})
	s.emit(ctx, ActionReceived, lot)
	return lot, nil
}

// UpdateLot applies an operator edit to an existing lot and recomputes its total cost.
func (s *Service) UpdateLot(ctx context.Context, id int64, input ReceiptInput) (Lot, error) {
	if id <= 0 {
		return Lot{}, ErrLotNotFound
	}
	r, err := s.validate(input)
	if err != nil {
		return Lot{}, err
	}
	var before, after Lot
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err = tx.GetLotForUpdate(ctx, id)
		if err != nil {
			return err
		}
		product, err := tx.EnsureProduct(ctx, r.name, r.typ)
		if err != nil {
			return err
		}
		supplier, err := s.supplier(ctx, tx, input.SupplierID)
		if err != nil {
			return err
		}
		supplierID := input.SupplierID
		after = before
		after.Date = r.date
		after.ProductID = product.ID
		after.ProductName = product.Name
		after.ProductType = product.Type
		after.Quantity = r.quantity
		after.SupplierID = &supplierID
		after.SupplierName = supplier
		after.UnitCost = input.UnitCost
		after.TotalCost = TotalCostOf(r.quantity, input.UnitCost)
		after.Origin = r.origin
		if err := tx.UpdateLot(ctx, after); err != nil {
			return err
		}
		_, err = s.warnLowStock(ctx, tx, after.Ref())
		return err
	})
	if err != nil {
		return Lot{}, err
	}
	s.record(ctx, input.ActorID, "stock:update", after, map[string]any{
		"quantity_before": before.Quantity,
		"quantity_after":  after.Quantity,
		"unit_cost":       after.UnitCost.String(),
	})
	s.emit(ctx, ActionUpdated, after)
	return after, nil
}

// DeleteLot removes a lot on explicit operator request.
func (s *Service) DeleteLot(ctx context.Context, id, actorID int64) error {
	if id <= 0 {
		return ErrLotNotFound
	}
	var lot Lot
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if lot, err = tx.GetLotForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.DeleteLot(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "stock:delete", lot, map[string]any{"quantity": lot.Quantity})
	s.emit(ctx, ActionDeleted, lot)
	return nil
}

// ListLots lists lots, newest first.
func (s *Service) ListLots(ctx context.Context, filter LotFilter) ([]Lot, int, error) {
	return s.repo.ListLots(ctx, filter)
}

// GetLot loads one lot.
func (s *Service) GetLot(ctx context.Context, id int64) (Lot, error) {
	if id <= 0 {
		return Lot{}, ErrLotNotFound
	}
	return s.repo.GetLot(ctx, id)
}

// StockSummary consolidates lots per product and classifies each level.
func (s *Service) StockSummary(ctx context.Context) ([]ProductStock, error) {
	items, err := s.repo.StockSummary(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Level = Classify(items[i].Quantity, s.threshold)
	}
	return items, nil
}

// AvailableQuantity sums the lots of product; zero when it has none.
func (s *Service) AvailableQuantity(ctx context.Context, product ProductRef) (int, error) {
	return s.repo.AvailableQuantity(ctx, product)
}

func (s *Service) supplier(ctx context.Context, tx TxRepository, id int64) (string, error) {
	name, err := tx.SupplierName(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return "", shared.ValidationError{Field: "supplier_id", Message: "is not a known supplier"}
	}
	return name, err
}

func (s *Service) warnLowStock(ctx context.Context, tx TxRepository, product ProductRef) (int, error) {
	qty, err := tx.AvailableQuantity(ctx, product)
	if err != nil {
		return 0, err
	}
	if msg, ok := LowStockAlert(product, qty, s.threshold); ok {
		if err := tx.NotifyManagers(ctx, msg, notify.CategoryWarning); err != nil {
			return 0, err
		}
	}
	return qty, nil
}

func (s *Service) retry(ctx context.Context, fn func(context.Context) error) error {
	retryable := func(err error) bool {
		return db.IsRetryable(err) || db.IsUniqueViolation(err, ConstraintStockID)
	}
	err := db.Retry(ctx, db.RetryPolicy{
		Attempts:  s.retries,
		Backoff:   10 * time.Millisecond,
		Retryable: retryable,
		OnRetry: func(int, error) {
			if s.metrics != nil {
				s.metrics.ConcurrencyRetry()
			}
		},
	}, fn)
	if err != nil && retryable(err) {
		return fmt.Errorf("%w: %v", shared.ErrConcurrencyConflict, err)
	}
	return err
}

func (s *Service) record(ctx context.Context, actorID int64, action string, lot Lot, meta map[string]any) {
	if s.audit == nil {
		return
	}
	meta["product"] = lot.Ref().Label()
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_lot",
		EntityID: lot.StockID,
		Meta:     meta,
	})
}

func (s *Service) emit(ctx context.Context, action string, lot Lot) {
	if s.changes == nil {
		return
	}
	_ = s.changes.HandleStockChanged(ctx, StockChangedEvent{
		Action:    action,
		StockID:   lot.StockID,
		ProductID: lot.ProductID,
		Quantity:  lot.Quantity,
		At:        s.now(),
	})
}
