package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ticketbase/ticketd/ticket"
)

// TicketData holds one registry record and when it was last refreshed.
type TicketData struct {
	Record    *ticket.Record
	UpdatedAt time.Time
}

// Cache is a thread-safe snapshot of the registry's ticket list. Data can
// only be changed via UpdateTickets; readers get copies.
type Cache struct {
	mu         sync.RWMutex
	tickets    map[uint64]*TicketData
	order      []uint64
	lastUpdate time.Time
	logger     zerolog.Logger
}

// New creates a new Cache instance.
func New(logger zerolog.Logger) *Cache {
	return &Cache{
		tickets: make(map[uint64]*TicketData),
		logger:  logger.With().Str("component", "cache").Logger(),
	}
}

// LastUpdated returns the last time the cache was refreshed.
func (c *Cache) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// UpdateTickets atomically replaces the entire snapshot, preserving
// registry order for the projection views.
func (c *Cache) UpdateTickets(records []*ticket.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	newMap := make(map[uint64]*TicketData, len(records))
	newOrder := make([]uint64, 0, len(records))

	for _, rec := range records {
		if rec == nil || rec.EventName == "" {
			continue
		}
		if _, seen := newMap[rec.ID]; seen {
			continue
		}
		newMap[rec.ID] = &TicketData{
			Record:    rec,
			UpdatedAt: now,
		}
		newOrder = append(newOrder, rec.ID)
	}

	c.tickets = newMap
	c.order = newOrder
	c.lastUpdate = now

	c.logger.Info().
		Int("tickets", len(newMap)).
		Time("updated_at", now).
		Msg("cache updated")
}

// Get returns a copy of one ticket's data, or nil if absent.
func (c *Cache) Get(id uint64) *TicketData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if data, ok := c.tickets[id]; ok {
		return &TicketData{
			Record:    data.Record,
			UpdatedAt: data.UpdatedAt,
		}
	}
	return nil
}

// Snapshot returns the cached records in registry order.
func (c *Cache) Snapshot() []*ticket.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*ticket.Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.tickets[id].Record)
	}
	return out
}
