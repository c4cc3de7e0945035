package verify

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ticketbase/ticketd/db"
	"github.com/ticketbase/ticketd/store"
)

// Ledger is the check-in set keyed by (event id, token id). A present key
// means the token is considered used for that event regardless of chain
// state. Keys are append-only; there is no removal.
type Ledger interface {
	Contains(eventID, tokenID uint64) (bool, error)
	Insert(eventID, tokenID uint64) error
	Count(eventID uint64) (int64, error)
}

type ledgerKey struct {
	event uint64
	token uint64
}

// MemoryLedger keeps check-ins in process memory. Loss of the process
// resets every ticket to unused.
type MemoryLedger struct {
	mu   sync.Mutex
	keys map[ledgerKey]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{keys: make(map[ledgerKey]struct{})}
}

func (l *MemoryLedger) Contains(eventID, tokenID uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[ledgerKey{eventID, tokenID}]
	return ok, nil
}

func (l *MemoryLedger) Insert(eventID, tokenID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[ledgerKey{eventID, tokenID}] = struct{}{}
	return nil
}

func (l *MemoryLedger) Count(eventID uint64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for k := range l.keys {
		if k.event == eventID {
			n++
		}
	}
	return n, nil
}

// Size returns the total number of ledger keys across all events.
func (l *MemoryLedger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// StoreLedger persists check-ins to sqlite so they survive restarts. The
// composite unique index on store.CheckInRecord provides the set
// semantics; a conflicting insert is dropped rather than failed.
type StoreLedger struct {
	client *gorm.DB
}

func NewStoreLedger(database *db.DB) *StoreLedger {
	return &StoreLedger{client: database.Client()}
}

func (l *StoreLedger) Contains(eventID, tokenID uint64) (bool, error) {
	var count int64
	err := l.client.Model(&store.CheckInRecord{}).
		Where("event_id = ? AND token_id = ?", formatID(eventID), formatID(tokenID)).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to query check-in ledger")
	}
	return count > 0, nil
}

func (l *StoreLedger) Insert(eventID, tokenID uint64) error {
	rec := store.CheckInRecord{
		EventID: formatID(eventID),
		TokenID: formatID(tokenID),
	}
	err := l.client.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return errors.Wrap(err, "failed to insert check-in record")
	}
	return nil
}

func (l *StoreLedger) Count(eventID uint64) (int64, error) {
	var count int64
	err := l.client.Model(&store.CheckInRecord{}).
		Where("event_id = ?", formatID(eventID)).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count check-ins")
	}
	return count, nil
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
