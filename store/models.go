// Package store contains the GORM-backed SQLite models persisted by
// ticketd: the check-in ledger and the refund claim journal. Chain state
// itself is never persisted here; the registry contract stays the source
// of truth.
package store

import (
	"gorm.io/gorm"
)

// CheckInRecord marks one ticket as consumed for one event. The composite
// unique index gives the ledger its set semantics: a second insert of the
// same (event, token) pair is a conflict, which the ledger treats as a
// no-op.
type CheckInRecord struct {
	gorm.Model
	EventID string `gorm:"uniqueIndex:idx_event_token;not null"`
	TokenID string `gorm:"uniqueIndex:idx_event_token;not null"`
}

// ClaimSubmission journals one refund claim write. The chain owns the
// refund itself; this record only tracks what this client submitted and
// how it ended.
type ClaimSubmission struct {
	gorm.Model
	TicketID  string `gorm:"index;not null"`
	TxHash    string
	AmountWei string // Claimed amount in wei, stringified to survive sqlite's numeric range
	Status    string `gorm:"index"` // "submitted", "confirmed", "failed"
}
