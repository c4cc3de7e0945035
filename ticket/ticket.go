// Package ticket holds the canonical on-chain ticket record and the derived
// event status classification shared by verification, refunds, and the
// marketplace projection.
package ticket

import (
	"math/big"
	"time"
)

// Record mirrors one entry of the event registry contract. The registry is
// the source of truth; everything here is read-only on the client side.
type Record struct {
	ID                uint64
	Creator           string
	Price             *big.Int
	EventName         string
	Description       string
	EventTimestamp    int64
	Location          string
	Closed            bool
	Canceled          bool
	Metadata          string
	MaxSupply         *big.Int
	Sold              *big.Int
	TotalCollected    *big.Int
	TotalRefunded     *big.Int
	ProceedsWithdrawn bool
}

// Status is the derived lifecycle state of an event.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusPassed   Status = "passed"
	StatusCanceled Status = "canceled"
	StatusClosed   Status = "closed"
	StatusSoldOut  Status = "sold_out"
)

// Classify computes the event status for a record at the given instant.
// The precedence is fixed and total: canceled wins, then closed, then
// passed, then sold out, else upcoming. Every record maps to exactly one
// status.
func Classify(rec *Record, now time.Time) Status {
	switch {
	case rec.Canceled:
		return StatusCanceled
	case rec.Closed:
		return StatusClosed
	case rec.EventTimestamp < now.Unix():
		return StatusPassed
	case Remaining(rec) == 0:
		return StatusSoldOut
	default:
		return StatusUpcoming
	}
}

// Remaining returns maxSupply - sold, clamped at zero. Nil supply fields
// are treated as zero.
func Remaining(rec *Record) int64 {
	max := int64(0)
	if rec.MaxSupply != nil {
		max = rec.MaxSupply.Int64()
	}
	sold := int64(0)
	if rec.Sold != nil {
		sold = rec.Sold.Int64()
	}
	if sold >= max {
		return 0
	}
	return max - sold
}

// Trending reports whether more than 70% of the supply has sold. Computed
// in integer math on the raw big values to avoid float drift: sold*10 >
// maxSupply*7.
func Trending(rec *Record) bool {
	if rec.MaxSupply == nil || rec.Sold == nil || rec.MaxSupply.Sign() == 0 {
		return false
	}
	soldTimes10 := new(big.Int).Mul(rec.Sold, big.NewInt(10))
	maxTimes7 := new(big.Int).Mul(rec.MaxSupply, big.NewInt(7))
	return soldTimes10.Cmp(maxTimes7) > 0
}

// EventTime returns the event timestamp as a time.Time.
func EventTime(rec *Record) time.Time {
	return time.Unix(rec.EventTimestamp, 0).UTC()
}
