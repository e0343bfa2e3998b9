package inventory

import "context"

// ChangeHandler receives committed stock changes, e.g. to invalidate cached dashboards.
type ChangeHandler interface {
	HandleStockChanged(ctx context.Context, evt StockChangedEvent) error
}
