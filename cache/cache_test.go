package cache

import (
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbase/ticketd/ticket"
)

func rec(id uint64, name string) *ticket.Record {
	return &ticket.Record{ID: id, EventName: name, MaxSupply: big.NewInt(10), Sold: big.NewInt(0)}
}

func TestUpdateAndGet(t *testing.T) {
	c := New(zerolog.Nop())
	assert.True(t, c.LastUpdated().IsZero())
	assert.Nil(t, c.Get(1))

	c.UpdateTickets([]*ticket.Record{rec(1, "one"), rec(2, "two")})
	require.NotNil(t, c.Get(1))
	assert.Equal(t, "one", c.Get(1).Record.EventName)
	assert.False(t, c.LastUpdated().IsZero())
}

func TestUpdateReplacesSnapshot(t *testing.T) {
	c := New(zerolog.Nop())
	c.UpdateTickets([]*ticket.Record{rec(1, "one"), rec(2, "two")})
	c.UpdateTickets([]*ticket.Record{rec(3, "three")})

	assert.Nil(t, c.Get(1))
	snap := c.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, uint64(3), snap[0].ID)
}

func TestSnapshotPreservesOrder(t *testing.T) {
	c := New(zerolog.Nop())
	c.UpdateTickets([]*ticket.Record{rec(5, "e"), rec(1, "a"), rec(3, "c")})

	snap := c.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []uint64{5, 1, 3}, []uint64{snap[0].ID, snap[1].ID, snap[2].ID})
}

func TestUpdateSkipsEmptyRows(t *testing.T) {
	c := New(zerolog.Nop())
	c.UpdateTickets([]*ticket.Record{rec(1, "one"), nil, rec(0, ""), rec(1, "dup")})
	assert.Len(t, c.Snapshot(), 1)
}
