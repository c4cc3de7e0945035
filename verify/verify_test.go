package verify

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbase/ticketd/chain"
	"github.com/ticketbase/ticketd/db"
	clienterrors "github.com/ticketbase/ticketd/errors"
	"github.com/ticketbase/ticketd/notify"
	"github.com/ticketbase/ticketd/ticket"
)

var (
	registryRef = chain.ContractRef{Name: "registry", Address: "0x0000000000000000000000000000000000000010"}
	nftRef      = chain.ContractRef{Name: "ticketnft", Address: "0x0000000000000000000000000000000000000011"}
)

// readFake scripts read outputs per "<contract>.<method>" key.
type readFake struct {
	outputs map[string][]any
	errs    map[string]error
}

func (f *readFake) Read(ctx context.Context, contract chain.ContractRef, method string, args ...any) ([]any, error) {
	key := contract.Name + "." + method
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.outputs[key], nil
}

func (f *readFake) Write(ctx context.Context, contract chain.ContractRef, method string, args []any, value *big.Int) (chain.TxHandle, error) {
	return "0x0", nil
}

func (f *readFake) AwaitReceipt(ctx context.Context, handle chain.TxHandle) (*chain.Receipt, error) {
	return &chain.Receipt{TxHash: string(handle), Success: true}, nil
}

// eventFields builds a registry row in tuple field order.
func eventFields(id uint64, name string, ts int64, closed, canceled bool) []any {
	return []any{
		new(big.Int).SetUint64(id),
		"0x00000000000000000000000000000000000000aa",
		big.NewInt(1e15),
		name,
		"an event",
		big.NewInt(ts),
		"Berlin",
		closed,
		canceled,
		"",
		big.NewInt(100),
		big.NewInt(10),
		big.NewInt(0),
		big.NewInt(0),
		false,
	}
}

func upcomingFixture(eventID, tokenID uint64) *readFake {
	return &readFake{
		outputs: map[string][]any{
			"registry.tickets":         eventFields(eventID, "Summit", time.Now().Add(24*time.Hour).Unix(), false, false),
			"ticketnft.ownerOf":        {"0x00000000000000000000000000000000000000bb"},
			"ticketnft.getTicketMetadata": {
				[]any{new(big.Int).SetUint64(eventID), "Summit", big.NewInt(time.Now().Unix())},
			},
		},
		errs: map[string]error{},
	}
}

func newTestEngine(gw chain.Gateway, ledger Ledger, sink notify.Sink) *Engine {
	return NewEngine(gw, ledger, sink, registryRef, nftRef, zerolog.Nop())
}

func TestParseCandidate(t *testing.T) {
	t.Run("qr payload", func(t *testing.T) {
		id, err := ParseCandidate("EVENT:Summit\nID: 42\nDATE:2026-09-01")
		require.NoError(t, err)
		assert.Equal(t, uint64(42), id)
	})

	t.Run("bare id", func(t *testing.T) {
		id, err := ParseCandidate("7")
		require.NoError(t, err)
		assert.Equal(t, uint64(7), id)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseCandidate("   ")
		require.Error(t, err)
		assert.True(t, clienterrors.IsCode(err, clienterrors.CodeValidation))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseCandidate("not-a-ticket")
		require.Error(t, err)
		assert.True(t, clienterrors.IsCode(err, clienterrors.CodeValidation))
	})
}

func TestVerifyRequiresSelectedEvent(t *testing.T) {
	e := newTestEngine(upcomingFixture(7, 42), NewMemoryLedger(), notify.NewMemorySink())
	_, err := e.Verify(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.CodeValidation))
}

func TestVerifyValidTicket(t *testing.T) {
	sink := notify.NewMemorySink()
	e := newTestEngine(upcomingFixture(7, 42), NewMemoryLedger(), sink)
	e.SelectEvent(7)

	res, err := e.Verify(context.Background(), "ID:42")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.False(t, res.AlreadyUsed)
	assert.Equal(t, ticket.StatusUpcoming, res.EventStatus)
	assert.Equal(t, "Summit", res.EventName)
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", res.Owner)

	msgs := sink.All()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.LevelSuccess, msgs[0].Level)
}

func TestVerifyUnknownEvent(t *testing.T) {
	gw := upcomingFixture(7, 42)
	gw.outputs["registry.tickets"] = eventFields(0, "", 0, false, false)
	e := newTestEngine(gw, NewMemoryLedger(), notify.NewMemorySink())
	e.SelectEvent(7)

	_, err := e.Verify(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.CodeNotFound))
}

func TestVerifyNonexistentToken(t *testing.T) {
	gw := upcomingFixture(7, 42)
	gw.errs["ticketnft.ownerOf"] = fmt.Errorf("execution reverted: nonexistent token")
	e := newTestEngine(gw, NewMemoryLedger(), notify.NewMemorySink())
	e.SelectEvent(7)

	_, err := e.Verify(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.CodeNotFound))
	assert.Contains(t, err.Error(), "42")
}

func TestVerifyWrongEvent(t *testing.T) {
	gw := upcomingFixture(7, 42)
	gw.outputs["ticketnft.getTicketMetadata"] = []any{
		[]any{big.NewInt(9), "Other", big.NewInt(0)},
	}
	e := newTestEngine(gw, NewMemoryLedger(), notify.NewMemorySink())
	e.SelectEvent(7)

	_, err := e.Verify(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.CodeMismatch))
	// Operators need both ids to diagnose the mismatch.
	assert.Contains(t, err.Error(), "9")
	assert.Contains(t, err.Error(), "7")
}

func TestVerifyToleratesMissingMetadataRef(t *testing.T) {
	gw := upcomingFixture(7, 42)
	gw.errs["ticketnft.getTicketMetadata"] = fmt.Errorf("execution reverted")
	e := newTestEngine(gw, NewMemoryLedger(), notify.NewMemorySink())
	e.SelectEvent(7)

	res, err := e.Verify(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
}

func TestVerifyCanceledEvent(t *testing.T) {
	gw := upcomingFixture(7, 42)
	gw.outputs["registry.tickets"] = eventFields(7, "Summit", time.Now().Add(24*time.Hour).Unix(), true, true)
	sink := notify.NewMemorySink()
	e := newTestEngine(gw, NewMemoryLedger(), sink)
	e.SelectEvent(7)

	res, err := e.Verify(context.Background(), "42")
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, ticket.StatusCanceled, res.EventStatus)
	assert.Contains(t, res.Message, "canceled")

	msgs := sink.All()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.LevelError, msgs[0].Level)
}

func TestCheckInThenReverify(t *testing.T) {
	e := newTestEngine(upcomingFixture(7, 42), NewMemoryLedger(), notify.NewMemorySink())
	e.SelectEvent(7)

	first, err := e.Verify(context.Background(), "42")
	require.NoError(t, err)
	require.True(t, first.IsValid)
	require.False(t, first.AlreadyUsed)

	require.NoError(t, e.CheckIn(first))

	second, err := e.Verify(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, second.AlreadyUsed)
	assert.Contains(t, second.Message, "already checked in")

	count, err := e.CheckedInCount(7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCheckInIsIdempotent(t *testing.T) {
	ledger := NewMemoryLedger()
	e := newTestEngine(upcomingFixture(7, 42), ledger, notify.NewMemorySink())
	e.SelectEvent(7)

	res, err := e.Verify(context.Background(), "42")
	require.NoError(t, err)

	require.NoError(t, e.CheckIn(res))
	require.NoError(t, e.CheckIn(res))
	assert.Equal(t, 1, ledger.Size())
}

func TestCheckInRejectsInvalidResult(t *testing.T) {
	e := newTestEngine(upcomingFixture(7, 42), NewMemoryLedger(), notify.NewMemorySink())
	err := e.CheckIn(&Result{EventID: 7, TokenID: 42, IsValid: false})
	require.Error(t, err)
	assert.True(t, clienterrors.IsCode(err, clienterrors.CodeValidation))
}

func TestStoreLedger(t *testing.T) {
	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	defer database.Close()

	ledger := NewStoreLedger(database)

	ok, err := ledger.Contains(7, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Insert(7, 42))
	// Duplicate inserts hit the unique index and are dropped silently.
	require.NoError(t, ledger.Insert(7, 42))

	ok, err = ledger.Contains(7, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := ledger.Count(7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEventOptionsFiltersByCreator(t *testing.T) {
	mine := eventFields(1, "Mine", time.Now().Add(time.Hour).Unix(), false, false)
	mine[1] = "0x00000000000000000000000000000000000000AA"
	other := eventFields(2, "Other", time.Now().Add(time.Hour).Unix(), false, false)
	other[1] = "0x00000000000000000000000000000000000000cc"

	gw := &readFake{
		outputs: map[string][]any{
			"registry.getRecentTickets": {[][]any{mine, other}},
		},
		errs: map[string]error{},
	}
	e := newTestEngine(gw, NewMemoryLedger(), notify.NewMemorySink())

	records, err := e.EventOptions(context.Background(), "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Mine", records[0].EventName)

	all, err := e.EventOptions(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
