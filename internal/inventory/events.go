package inventory

import "time"

// StockChangedEvent is emitted after a committed lot mutation.
type StockChangedEvent struct {
	Action    string
	StockID   string
	ProductID int64
	Quantity  int
	At        time.Time
}

// Lot mutation actions.
const (
	ActionReceived = "received"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
)
