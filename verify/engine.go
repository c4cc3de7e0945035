// Package verify implements the ticket verification engine: given a
// selected event and a scanned token, it correlates the event registry,
// NFT ownership, and NFT metadata into a single verdict and tracks local
// check-in state.
package verify

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ticketbase/ticketd/chain"
	clienterrors "github.com/ticketbase/ticketd/errors"
	"github.com/ticketbase/ticketd/metrics"
	"github.com/ticketbase/ticketd/notify"
	"github.com/ticketbase/ticketd/ticket"
)

// Result is the fused verdict for one verification attempt. It lives for
// a single operator interaction; nothing is persisted unless the ticket
// is checked in.
type Result struct {
	EventID     uint64
	TokenID     uint64
	EventName   string
	EventDate   time.Time
	Location    string
	Owner       string
	EventStatus ticket.Status
	IsValid     bool
	AlreadyUsed bool
	Message     string
}

// Engine verifies candidate tokens against a selected event. Verification
// is stateless between calls; the ledger is the only state that carries
// over.
type Engine struct {
	gateway  chain.Gateway
	ledger   Ledger
	sink     notify.Sink
	logger   zerolog.Logger
	registry chain.ContractRef
	nft      chain.ContractRef

	mu       sync.Mutex
	eventID  uint64
	selected bool
}

func NewEngine(gateway chain.Gateway, ledger Ledger, sink notify.Sink, registry, nft chain.ContractRef, logger zerolog.Logger) *Engine {
	return &Engine{
		gateway:  gateway,
		ledger:   ledger,
		sink:     sink,
		logger:   logger.With().Str("component", "verify").Logger(),
		registry: registry,
		nft:      nft,
	}
}

// SelectEvent sets the active event context for subsequent Verify calls.
func (e *Engine) SelectEvent(eventID uint64) {
	e.mu.Lock()
	e.eventID = eventID
	e.selected = true
	e.mu.Unlock()
	e.logger.Debug().Uint64("event_id", eventID).Msg("event selected")
}

// SelectedEvent returns the active event id, if one has been selected.
func (e *Engine) SelectedEvent() (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eventID, e.selected
}

// Verify resolves a scanned payload into a verdict for the selected
// event. The three source reads run concurrently and are fused only after
// all of them settle.
func (e *Engine) Verify(ctx context.Context, payload string) (*Result, error) {
	tokenID, err := ParseCandidate(payload)
	if err != nil {
		return nil, e.failed(err)
	}

	e.mu.Lock()
	eventID, selected := e.eventID, e.selected
	e.mu.Unlock()
	if !selected {
		return nil, e.failed(clienterrors.NewNoEventSelected())
	}

	var (
		wg sync.WaitGroup

		recOut   []any
		recErr   error
		ownerOut []any
		ownerErr error
		metaOut  []any
		metaErr  error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		recOut, recErr = e.gateway.Read(ctx, e.registry, "tickets", eventID)
	}()
	go func() {
		defer wg.Done()
		ownerOut, ownerErr = e.gateway.Read(ctx, e.nft, "ownerOf", tokenID)
	}()
	go func() {
		defer wg.Done()
		metaOut, metaErr = e.gateway.Read(ctx, e.nft, "getTicketMetadata", tokenID)
	}()
	wg.Wait()

	eventStr := strconv.FormatUint(eventID, 10)
	tokenStr := strconv.FormatUint(tokenID, 10)

	rec, decodeErr := decodeEventRecord(recOut, recErr)
	if decodeErr != nil || rec.EventName == "" {
		return nil, e.failed(clienterrors.NewEventNotFound(eventStr))
	}

	if ownerErr != nil {
		return nil, e.failed(clienterrors.NewTokenNotFound(tokenStr))
	}
	owner := ""
	if len(ownerOut) > 0 {
		owner, _ = ownerOut[0].(string)
	}

	if ref, ok := metadataEventRef(metaOut, metaErr); ok {
		if ref != eventStr {
			return nil, e.failed(clienterrors.NewWrongEvent(tokenStr, ref, eventStr))
		}
	} else {
		e.logger.Debug().
			Uint64("token_id", tokenID).
			Msg("no event reference in token metadata, skipping cross-check")
	}

	status := ticket.Classify(rec, time.Now())

	used, err := e.ledger.Contains(eventID, tokenID)
	if err != nil {
		return nil, e.failed(clienterrors.WrapAs(err, clienterrors.CodeDatabase, "check-in lookup failed"))
	}

	res := &Result{
		EventID:     eventID,
		TokenID:     tokenID,
		EventName:   rec.EventName,
		EventDate:   ticket.EventTime(rec),
		Location:    rec.Location,
		Owner:       owner,
		EventStatus: status,
		IsValid:     status == ticket.StatusUpcoming,
		AlreadyUsed: used,
	}
	msg, outcome := classifyOutcome(res)
	res.Message = msg
	metrics.Verification(outcome)
	if res.IsValid && !res.AlreadyUsed {
		notify.Success(e.sink, res.Message)
	} else {
		notify.Error(e.sink, res.Message)
	}

	e.logger.Info().
		Uint64("event_id", eventID).
		Uint64("token_id", tokenID).
		Str("outcome", outcome).
		Msg("verification settled")
	return res, nil
}

// CheckIn commits a valid result to the ledger. Committing a key that is
// already present is a no-op, never an error.
func (e *Engine) CheckIn(res *Result) error {
	if res == nil || !res.IsValid {
		return e.failed(clienterrors.NewInvalidInput("only a valid ticket can be checked in"))
	}

	used, err := e.ledger.Contains(res.EventID, res.TokenID)
	if err != nil {
		return e.failed(clienterrors.WrapAs(err, clienterrors.CodeDatabase, "check-in lookup failed"))
	}
	if used {
		res.AlreadyUsed = true
		return nil
	}

	if err := e.ledger.Insert(res.EventID, res.TokenID); err != nil {
		return e.failed(clienterrors.WrapAs(err, clienterrors.CodeDatabase, "check-in insert failed"))
	}
	res.AlreadyUsed = true
	metrics.CheckIn()
	notify.Success(e.sink, fmt.Sprintf("token %d checked in for event %d", res.TokenID, res.EventID))
	return nil
}

// CheckedInCount reports how many tokens have been checked in for an
// event, for the operator counter display.
func (e *Engine) CheckedInCount(eventID uint64) (int64, error) {
	return e.ledger.Count(eventID)
}

// EventOptions lists the registry events an operator may verify against:
// only events they created. An empty operator address returns everything.
func (e *Engine) EventOptions(ctx context.Context, operator string) ([]*ticket.Record, error) {
	out, err := e.gateway.Read(ctx, e.registry, "getRecentTickets")
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	rows, ok := out[0].([][]any)
	if !ok {
		return nil, clienterrors.New(clienterrors.CodeGateway, "unexpected registry output shape")
	}
	records, err := ticket.DecodeTuples(rows)
	if err != nil {
		return nil, err
	}

	if operator == "" {
		return records, nil
	}
	filtered := records[:0]
	for _, rec := range records {
		if strings.EqualFold(rec.Creator, operator) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// failed notifies once and passes the error through.
func (e *Engine) failed(err error) error {
	notify.Error(e.sink, err.Error())
	return err
}

// decodeEventRecord interprets the registry read. The registry returns a
// zero-valued row for unknown ids instead of reverting, so absence shows
// up as an empty name downstream.
func decodeEventRecord(out []any, readErr error) (*ticket.Record, error) {
	if readErr != nil {
		return nil, readErr
	}
	return ticket.DecodeTuple(out)
}

// metadataEventRef pulls the event reference out of the NFT metadata
// tuple. A failed read or a zero reference means the field is absent,
// which is tolerated.
func metadataEventRef(out []any, readErr error) (string, bool) {
	if readErr != nil || len(out) == 0 {
		return "", false
	}
	fields, ok := out[0].([]any)
	if !ok || len(fields) == 0 {
		return "", false
	}
	ref, ok := fields[0].(*big.Int)
	if !ok || ref == nil || ref.Sign() == 0 {
		return "", false
	}
	return ref.String(), true
}

// classifyOutcome produces the operator-facing message and the metric
// label. Priority: already used, then canceled, closed, passed, then any
// other invalid state, then valid.
func classifyOutcome(res *Result) (string, string) {
	switch {
	case res.AlreadyUsed:
		return fmt.Sprintf("token %d already checked in for %s", res.TokenID, res.EventName), "already_used"
	case res.EventStatus == ticket.StatusCanceled:
		return fmt.Sprintf("event %s has been canceled", res.EventName), "canceled"
	case res.EventStatus == ticket.StatusClosed:
		return fmt.Sprintf("event %s is closed", res.EventName), "closed"
	case res.EventStatus == ticket.StatusPassed:
		return fmt.Sprintf("event %s has already passed", res.EventName), "passed"
	case !res.IsValid:
		return fmt.Sprintf("token %d is not valid for %s", res.TokenID, res.EventName), "invalid"
	default:
		return fmt.Sprintf("token %d is valid for %s", res.TokenID, res.EventName), "valid"
	}
}
