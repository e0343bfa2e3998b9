package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error)
	GetSale(ctx context.Context, id int64) (Sale, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort deduplicates client submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort counts sale outcomes.
type MetricsPort interface {
	SaleRecorded()
	InsufficientStock()
	ConcurrencyRetry()
}

// Service coordinates the sale workflow.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
	changes     ChangeHandler
	threshold   int
	retries     int
	loc         *time.Location
	now         func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	LowStockThreshold int
	RetryLimit        int
	Location          *time.Location
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, metrics MetricsPort, changes ChangeHandler, cfg ServiceConfig) *Service {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = inventory.DefaultLowStockThreshold
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		metrics:     metrics,
		changes:     changes,
		threshold:   cfg.LowStockThreshold,
		retries:     cfg.RetryLimit,
		loc:         cfg.Location,
		now:         time.Now,
	}
}

type validSale struct {
	date    time.Time
	name    masterdata.ProductName
	typ     masterdata.ProductType
	payment masterdata.PaymentMethod
}

func (s *Service) validate(input SaleInput) (validSale, error) {
	var (
		errs shared.ValidationErrors
		v    validSale
		err  error
	)
	if v.name, err = masterdata.ParseProductName(input.ProductName); err != nil {
		errs.Add("product_name", "is not a known product")
	}
	if v.typ, err = masterdata.ParseProductType(input.ProductType); err != nil {
		errs.Add("product_type", "must be Wood or Furniture")
	}
	if v.payment, err = masterdata.ParsePaymentMethod(input.PaymentMethod); err != nil {
		errs.Add("payment_method", "must be Cash, Cheque or Bank Overdraft")
	}
	if input.CustomerID <= 0 {
		errs.Add("customer_id", "is required")
	}
	if input.Quantity <= 0 {
		errs.Add("quantity", "must be greater than 0")
	}
	if !input.UnitPrice.IsPositive() {
		errs.Add("unit_price", "must be greater than 0")
	}
	if input.AgentID <= 0 {
		errs.Add("sales_agent_id", "is required")
	}
	if input.Date.IsZero() {
		errs.Add("date", "is required")
	} else {
		v.date = dateOnly(input.Date, s.loc)
		if v.date.After(dateOnly(s.now(), s.loc)) {
			errs.Add("date", "cannot be in the future")
		}
	}
	return v, errs.Err()
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CreateSale records a sale: the product's lots are consumed, the total is
// computed, a SALE identifier is allocated and managers are notified, all in
// one transaction. Lost races are replayed a bounded number of times.
func (s *Service) CreateSale(ctx context.Context, input SaleInput) (Sale, error) {
	v, err := s.validate(input)
	if err != nil {
		return Sale{}, err
	}
	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "sales"); err != nil {
			return Sale{}, err
		}
	}
	sale, left, err := s.createSale(ctx, input, v)
	if err != nil {
		if input.IdempotencyKey != "" && s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		var stockErr *shared.InsufficientStockError
		if errors.As(err, &stockErr) && s.metrics != nil {
			s.metrics.InsufficientStock()
		}
		return Sale{}, err
	}
	if s.metrics != nil {
		s.metrics.SaleRecorded()
	}
	s.record(ctx, input.AgentID, "sale:create", sale, map[string]any{
		"quantity":     sale.Quantity,
		"total_amount": sale.TotalAmount.String(),
		"available":    left,
	})
	s.emit(ctx, ActionRecorded, sale)
	return sale, nil
}

func (s *Service) createSale(ctx context.Context, input SaleInput, v validSale) (Sale, int, error) {
	var (
		sale Sale
		left int
	)
	retryable := func(err error) bool {
		return db.IsRetryable(err) || db.IsUniqueViolation(err, ConstraintSaleID)
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
	}, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			product, err := tx.EnsureProduct(ctx, v.name, v.typ)
			if err != nil {
				return err
			}
			customer, err := tx.CustomerName(ctx, input.CustomerID)
			if err != nil {
				return missing(err, "customer_id", "is not a known customer")
			}
			agent, err := tx.AgentName(ctx, input.AgentID)
			if err != nil {
				return missing(err, "sales_agent_id", "is not an active user")
			}
			ref := inventory.RefFromProduct(product)
			if left, err = tx.Consume(ctx, ref, input.Quantity); err != nil {
				return err
			}
			saleID, err := tx.NextSaleID(ctx)
			if err != nil {
				return err
			}
			sale, err = tx.InsertSale(ctx, Sale{
				SaleID:            saleID,
				Date:              v.date,
				CustomerID:        input.CustomerID,
				CustomerName:      customer,
				ProductID:         product.ID,
				ProductName:       product.Name,
				ProductType:       product.Type,
				Quantity:          input.Quantity,
				UnitPrice:         input.UnitPrice,
				TotalAmount:       ComputeSaleTotal(input.Quantity, input.UnitPrice, input.TransportRequired),
				PaymentMethod:     v.payment,
				AgentID:           input.AgentID,
				AgentName:         agent,
				TransportRequired: input.TransportRequired,
			})
			if err != nil {
				return err
			}
			if err := tx.NotifyManagers(ctx, SaleMessage(sale), notify.CategorySuccess); err != nil {
				return err
			}
			if msg, ok := inventory.LowStockAlert(ref, left, s.threshold); ok {
				return tx.NotifyManagers(ctx, msg, notify.CategoryWarning)
			}
			return nil
		})
	})
	if err != nil && retryable(err) {
		return Sale{}, 0, fmt.Errorf("%w: %v", shared.ErrConcurrencyConflict, err)
	}
	return sale, left, err
}

// SaleMessage is the notification managers receive for a new sale.
func SaleMessage(sale Sale) string {
	msg := fmt.Sprintf("New sale recorded: %s (%d) by %s", sale.ProductName, sale.Quantity, sale.AgentName)
	if sale.TransportRequired {
		msg += " (5% transport fee included)"
	}
	return msg
}

// missing turns an unknown reference into a field validation error.
func missing(err error, field, message string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.ValidationError{Field: field, Message: message}
	}
	return err
}

// UpdateSale applies an operator edit. The total is recomputed; stock already
// consumed by the sale is left as is.
func (s *Service) UpdateSale(ctx context.Context, id int64, input SaleInput, actorID int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, ErrSaleNotFound
	}
	if input.AgentID <= 0 {
		input.AgentID = actorID
	}
	v, err := s.validate(input)
	if err != nil {
		return Sale{}, err
	}
	var before, after Sale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if before, err = tx.GetSaleForUpdate(ctx, id); err != nil {
			return err
		}
		product, err := tx.EnsureProduct(ctx, v.name, v.typ)
		if err != nil {
			return err
		}
		customer, err := tx.CustomerName(ctx, input.CustomerID)
		if err != nil {
			return missing(err, "customer_id", "is not a known customer")
		}
		after = before
		after.Date = v.date
		after.CustomerID = input.CustomerID
		after.CustomerName = customer
		after.ProductID = product.ID
		after.ProductName = product.Name
		after.ProductType = product.Type
		after.Quantity = input.Quantity
		after.UnitPrice = input.UnitPrice
		after.PaymentMethod = v.payment
		after.TransportRequired = input.TransportRequired
		after.TotalAmount = ComputeSaleTotal(after.Quantity, after.UnitPrice, after.TransportRequired)
		return tx.UpdateSale(ctx, after)
	})
	if err != nil {
		return Sale{}, err
	}
	s.record(ctx, actorID, "sale:update", after, map[string]any{
		"quantity_before": before.Quantity,
		"quantity_after":  after.Quantity,
		"total_before":    before.TotalAmount.String(),
		"total_after":     after.TotalAmount.String(),
	})
	s.emit(ctx, ActionUpdated, after)
	return after, nil
}

// DeleteSale removes a sale on explicit operator request.
func (s *Service) DeleteSale(ctx context.Context, id, actorID int64) error {
	if id <= 0 {
		return ErrSaleNotFound
	}
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if sale, err = tx.GetSaleForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.DeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "sale:delete", sale, map[string]any{"total_amount": sale.TotalAmount.String()})
	s.emit(ctx, ActionDeleted, sale)
	return nil
}

// ListSales lists sales, newest first.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	return s.repo.ListSales(ctx, filter)
}

// GetSale loads one sale.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, ErrSaleNotFound
	}
	return s.repo.GetSale(ctx, id)
}

// Receipt renders the printable receipt of a sale.
func (s *Service) Receipt(ctx context.Context, id int64) (Receipt, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	return NewReceipt(sale), nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, sale Sale, meta map[string]any) {
	if s.audit == nil {
		return
	}
	meta["product"] = sale.Ref().Label()
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: sale.SaleID,
		Meta:     meta,
	})
}

func (s *Service) emit(ctx context.Context, action string, sale Sale) {
	if s.changes == nil {
		return
	}
	_ = s.changes.HandleSaleChanged(ctx, SaleChangedEvent{Action: action, SaleID: sale.SaleID, At: s.now()})
}
