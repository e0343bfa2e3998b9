package shared

import (
	"fmt"
	"hash/fnv"
	"time"
)

// LowStockScanLockKey is the redis key guarding the scheduled low stock scan.
const LowStockScanLockKey = "mwf:jobs:low_stock_scan:lock"

// SequenceLockKey derives the advisory lock id serialising identifier allocation
// for one record kind on one day.
func SequenceLockKey(kind string, day time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("mwf:seq:%s:%s", kind, day.Format("20060102"))))
	return int64(h.Sum64())
}
