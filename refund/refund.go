// Package refund computes the set of claimable refunds for a user and
// submits the claims one at a time. Refund eligibility itself is a
// contract rule; this package only gathers the inputs and drives the
// claim writes.
package refund

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/ticketbase/ticketd/ticket"
)

// Status annotates a candidate's in-flight submission state. It is local
// bookkeeping only; the chain has no corresponding field.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// Candidate is one claimable refund: a canceled event the user registered
// and paid for.
type Candidate struct {
	Ticket  *ticket.Record
	PaidWei *big.Int
	Status  Status
}

// ComputeRefundable filters tickets down to refund candidates: registered,
// canceled, and paid more than zero. Output order follows input ticket
// order. Pure; inputs are indexed positionally.
func ComputeRefundable(tickets []*ticket.Record, registered []bool, paid []*big.Int) []*Candidate {
	var out []*Candidate
	for i, rec := range tickets {
		if i >= len(registered) || i >= len(paid) {
			break
		}
		if !registered[i] || !rec.Canceled {
			continue
		}
		if paid[i] == nil || paid[i].Sign() <= 0 {
			continue
		}
		out = append(out, &Candidate{
			Ticket:  rec,
			PaidWei: new(big.Int).Set(paid[i]),
			Status:  StatusPending,
		})
	}
	return out
}

// TotalRefundable sums the paid amounts of the still-pending candidates.
func TotalRefundable(candidates []*Candidate) *big.Int {
	total := new(big.Int)
	for _, c := range candidates {
		if c.Status == StatusPending {
			total.Add(total, c.PaidWei)
		}
	}
	return total
}

// FormatWei renders a wei amount as a decimal ether string with trailing
// zeros trimmed.
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}
