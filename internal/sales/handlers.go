package sales

import "context"

// ChangeHandler receives committed sale changes.
type ChangeHandler interface {
	HandleSaleChanged(ctx context.Context, evt SaleChangedEvent) error
}
