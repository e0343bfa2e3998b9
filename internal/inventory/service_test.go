package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mayondo/mwf/internal/docnum"
	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/shared"
)

type sentNotice struct {
	message  string
	category notify.Category
}

type memoryRepo struct {
	lots      []Lot
	products  map[string]masterdata.Product
	suppliers map[int64]string
	notices   []sentNotice
	nextID    int64
	day       time.Time
	// insertFailures makes the next InsertLot calls fail with a duplicate STK id.
	insertFailures int
}

type memoryTx struct {
	repo    *memoryRepo
	lots    []Lot
	notices []sentNotice
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:  map[string]masterdata.Product{},
		suppliers: map[int64]string{1: "Kampala Timber", 2: "Jinja Furnishers"},
		day:       time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, lots: append([]Lot(nil), r.lots...)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.lots = tx.lots
	r.notices = append(r.notices, tx.notices...)
	return nil
}

func (r *memoryRepo) ListLots(ctx context.Context, filter LotFilter) ([]Lot, int, error) {
	return append([]Lot(nil), r.lots...), len(r.lots), nil
}

func (r *memoryRepo) GetLot(ctx context.Context, id int64) (Lot, error) {
	for _, lot := range r.lots {
		if lot.ID == id {
			return lot, nil
		}
	}
	return Lot{}, ErrLotNotFound
}

func (r *memoryRepo) StockSummary(ctx context.Context) ([]ProductStock, error) {
	index := map[string]int{}
	var out []ProductStock
	for _, lot := range r.lots {
		key := lot.Ref().Label()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, ProductStock{ProductID: lot.ProductID, ProductName: lot.ProductName, ProductType: lot.ProductType})
		}
		out[i].Quantity += lot.Quantity
		out[i].Lots++
		out[i].StockValue = out[i].StockValue.Add(lot.TotalCost)
	}
	return out, nil
}

func (r *memoryRepo) AvailableQuantity(ctx context.Context, product ProductRef) (int, error) {
	return sumLots(r.lots, product), nil
}

func sumLots(lots []Lot, product ProductRef) int {
	total := 0
	for _, lot := range lots {
		if lot.ProductName == product.Name && lot.ProductType == product.Type {
			total += lot.Quantity
		}
	}
	return total
}

func (tx *memoryTx) EnsureProduct(ctx context.Context, name masterdata.ProductName, typ masterdata.ProductType) (masterdata.Product, error) {
	key := string(name) + "/" + string(typ)
	if p, ok := tx.repo.products[key]; ok {
		return p, nil
	}
	p := masterdata.Product{ID: int64(len(tx.repo.products) + 1), Name: name, Type: typ}
	tx.repo.products[key] = p
	return p, nil
}

func (tx *memoryTx) SupplierName(ctx context.Context, supplierID int64) (string, error) {
	name, ok := tx.repo.suppliers[supplierID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return name, nil
}

func (tx *memoryTx) NextStockID(ctx context.Context) (string, error) {
	latest := ""
	for _, lot := range tx.lots {
		if lot.StockID > latest {
			latest = lot.StockID
		}
	}
	return docnum.NextFrom(docnum.KindStock, tx.repo.day, latest)
}

func (tx *memoryTx) InsertLot(ctx context.Context, lot Lot) (Lot, error) {
	if tx.repo.insertFailures > 0 {
		tx.repo.insertFailures--
		return Lot{}, fmt.Errorf("insert lot: %w", &pgconn.PgError{Code: db.CodeUniqueViolation, ConstraintName: ConstraintStockID})
	}
	tx.repo.nextID++
	lot.ID = tx.repo.nextID
	tx.lots = append(tx.lots, lot)
	return lot, nil
}

func (tx *memoryTx) GetLotForUpdate(ctx context.Context, id int64) (Lot, error) {
	for _, lot := range tx.lots {
		if lot.ID == id {
			return lot, nil
		}
	}
	return Lot{}, ErrLotNotFound
}

func (tx *memoryTx) UpdateLot(ctx context.Context, lot Lot) error {
	for i := range tx.lots {
		if tx.lots[i].ID == lot.ID {
			tx.lots[i] = lot
			return nil
		}
	}
	return ErrLotNotFound
}

func (tx *memoryTx) DeleteLot(ctx context.Context, id int64) error {
	for i := range tx.lots {
		if tx.lots[i].ID == id {
			tx.lots = append(tx.lots[:i], tx.lots[i+1:]...)
			return nil
		}
	}
	return ErrLotNotFound
}

func (tx *memoryTx) AvailableQuantity(ctx context.Context, product ProductRef) (int, error) {
	return sumLots(tx.lots, product), nil
}

func (tx *memoryTx) NotifyManagers(ctx context.Context, message string, category notify.Category) error {
	tx.notices = append(tx.notices, sentNotice{message: message, category: category})
	return nil
}

type countingMetrics struct {
	received, retries int
}

func (m *countingMetrics) StockReceived()    { m.received++ }
func (m *countingMetrics) ConcurrencyRetry() { m.retries++ }

type recordingChanges struct {
	events []StockChangedEvent
}

func (c *recordingChanges) HandleStockChanged(ctx context.Context, evt StockChangedEvent) error {
	c.events = append(c.events, evt)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(repo *memoryRepo) (*Service, *countingMetrics, *recordingChanges, *recordingAudit) {
	metrics := &countingMetrics{}
	changes := &recordingChanges{}
	audit := &recordingAudit{}
	svc := NewService(repo, audit, metrics, changes, ServiceConfig{Location: time.UTC})
	svc.now = func() time.Time { return time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC) }
	return svc, metrics, changes, audit
}

func receiptInput(name, typ string, qty int, unitCost int64) ReceiptInput {
	return ReceiptInput{
		Date:        time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
		ProductName: name,
		ProductType: typ,
		Quantity:    qty,
		UnitCost:    decimal.NewFromInt(unitCost),
		SupplierID:  1,
		Origin:      "western",
		ActorID:     7,
	}
}

func TestRecordReceipt(t *testing.T) {
	repo := newMemoryRepo()
	svc, metrics, changes, audit := newTestService(repo)

	lot, err := svc.RecordReceipt(context.Background(), receiptInput("timber", "WOOD", 100, 5000))
	require.NoError(t, err)
	require.Equal(t, "STK-20240610-0001", lot.StockID)
	require.Equal(t, masterdata.ProductTimber, lot.ProductName)
	require.Equal(t, masterdata.TypeWood, lot.ProductType)
	require.Equal(t, masterdata.OriginWestern, lot.Origin)
	require.Equal(t, "Kampala Timber", lot.SupplierName)
	require.True(t, decimal.NewFromInt(500000).Equal(lot.TotalCost))

	require.Equal(t, []sentNotice{{message: "New stock added: Timber (100) from Kampala Timber", category: notify.CategoryInfo}}, repo.notices)
	require.Equal(t, 1, metrics.received)
	require.Len(t, changes.events, 1)
	require.Equal(t, ActionReceived, changes.events[0].Action)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "stock:receive", audit.logs[0].Action)

	second, err := svc.RecordReceipt(context.Background(), receiptInput("Timber", "Wood", 20, 4000))
	require.NoError(t, err)
	require.Equal(t, "STK-20240610-0002", second.StockID)
	require.Equal(t, lot.ProductID, second.ProductID)
}

func TestRecordReceiptWarnsOnLowStock(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _, _ := newTestService(repo)

	_, err := svc.RecordReceipt(context.Background(), receiptInput("Sofa", "Furniture", 3, 250000))
	require.NoError(t, err)
	require.Len(t, repo.notices, 2)
	require.Equal(t, sentNotice{message: "Low stock alert: Sofa (Furniture) has only 3 units left.", category: notify.CategoryWarning}, repo.notices[1])
}

func TestRecordReceiptValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _, _ := newTestService(repo)

	input := receiptInput("Chair", "Plastic", -1, 0)
	input.Origin = "Northern"
	input.Date = time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)
	_, err := svc.RecordReceipt(context.Background(), input)

	var errs shared.ValidationErrors
	require.ErrorAs(t, err, &errs)
	fields := errs.Fields()
	for _, f := range []string{"product_name", "product_type", "origin", "quantity", "unit_cost", "date"} {
		require.Contains(t, fields, f)
	}
	require.Empty(t, repo.lots)
	require.Empty(t, repo.notices)
}

func TestRecordReceiptUnknownSupplier(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _, _ := newTestService(repo)

	input := receiptInput("Poles", "Wood", 10, 1500)
	input.SupplierID = 99
	_, err := svc.RecordReceipt(context.Background(), input)
	require.True(t, shared.IsValidation(err))
	require.Empty(t, repo.lots)
}

func TestRecordReceiptRetriesDuplicateStockID(t *testing.T) {
	repo := newMemoryRepo()
	repo.insertFailures = 1
	svc, metrics, _, _ := newTestService(repo)

	lot, err := svc.RecordReceipt(context.Background(), receiptInput("Drawer", "Furniture", 8, 90000))
	require.NoError(t, err)
	require.Equal(t, "STK-20240610-0001", lot.StockID)
	require.Equal(t, 1, metrics.retries)
	require.Len(t, repo.lots, 1)
}

func TestRecordReceiptGivesUpAfterRetryLimit(t *testing.T) {
	repo := newMemoryRepo()
	repo.insertFailures = 3
	svc, metrics, changes, _ := newTestService(repo)

	_, err := svc.RecordReceipt(context.Background(), receiptInput("Drawer", "Furniture", 8, 90000))
	require.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	require.Equal(t, 2, metrics.retries)
	require.Empty(t, repo.lots)
	require.Empty(t, repo.notices)
	require.Empty(t, changes.events)
}

func TestUpdateLotRecomputesTotal(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, changes, audit := newTestService(repo)
	lot, err := svc.RecordReceipt(context.Background(), receiptInput("Tables", "Furniture", 10, 100000))
	require.NoError(t, err)

	edit := receiptInput("Tables", "Furniture", 4, 120000)
	edit.SupplierID = 2
	updated, err := svc.UpdateLot(context.Background(), lot.ID, edit)
	require.NoError(t, err)
	require.Equal(t, lot.StockID, updated.StockID)
	require.Equal(t, 4, updated.Quantity)
	require.Equal(t, "Jinja Furnishers", updated.SupplierName)
	require.True(t, decimal.NewFromInt(480000).Equal(updated.TotalCost))
	require.Equal(t, "Low stock alert: Tables (Furniture) has only 4 units left.", repo.notices[len(repo.notices)-1].message)
	require.Equal(t, ActionUpdated, changes.events[len(changes.events)-1].Action)
	require.Equal(t, "stock:update", audit.logs[len(audit.logs)-1].Action)

	_, err = svc.UpdateLot(context.Background(), 404, edit)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteLot(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, changes, _ := newTestService(repo)
	lot, err := svc.RecordReceipt(context.Background(), receiptInput("Cupboards", "Furniture", 6, 300000))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLot(context.Background(), lot.ID, 7))
	require.Empty(t, repo.lots)
	require.Equal(t, ActionDeleted, changes.events[len(changes.events)-1].Action)
	require.ErrorIs(t, svc.DeleteLot(context.Background(), lot.ID, 7), ErrLotNotFound)
}

func TestStockSummaryClassifiesLevels(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _, _ := newTestService(repo)
	ctx := context.Background()
	_, err := svc.RecordReceipt(ctx, receiptInput("Timber", "Wood", 100, 5000))
	require.NoError(t, err)
	_, err = svc.RecordReceipt(ctx, receiptInput("Sofa", "Furniture", 2, 250000))
	require.NoError(t, err)
	_, err = svc.RecordReceipt(ctx, receiptInput("Poles", "Wood", 0, 1000))
	require.NoError(t, err)

	items, err := svc.StockSummary(ctx)
	require.NoError(t, err)
	levels := map[string]StockLevel{}
	for _, it := range items {
		levels[string(it.ProductName)] = it.Level
	}
	require.Equal(t, LevelOK, levels["Timber"])
	require.Equal(t, LevelLow, levels["Sofa"])
	require.Equal(t, LevelExhausted, levels["Poles"])

	qty, err := svc.AvailableQuantity(ctx, ProductRef{Name: masterdata.ProductTimber, Type: masterdata.TypeWood})
	require.NoError(t, err)
	require.Equal(t, 100, qty)
}
