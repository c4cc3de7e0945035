package refund

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ticketbase/ticketd/chain"
	"github.com/ticketbase/ticketd/db"
	clienterrors "github.com/ticketbase/ticketd/errors"
	"github.com/ticketbase/ticketd/metrics"
	"github.com/ticketbase/ticketd/notify"
	"github.com/ticketbase/ticketd/store"
	"github.com/ticketbase/ticketd/ticket"
)

const defaultClaimDelay = time.Second

// Claimer gathers refund candidates from the registry and submits claim
// transactions strictly one at a time. The inter-claim delay is a
// rate-limit against wallet-prompt flooding and RPC throttling.
type Claimer struct {
	gateway  chain.Gateway
	registry chain.ContractRef
	sink     notify.Sink
	logger   zerolog.Logger
	journal  *gorm.DB
	delay    time.Duration
}

// NewClaimer creates a claimer. database may be nil, in which case claim
// submissions are not journaled. A non-positive delay falls back to one
// second.
func NewClaimer(gateway chain.Gateway, registry chain.ContractRef, sink notify.Sink, database *db.DB, delay time.Duration, logger zerolog.Logger) *Claimer {
	if delay <= 0 {
		delay = defaultClaimDelay
	}
	c := &Claimer{
		gateway:  gateway,
		registry: registry,
		sink:     sink,
		logger:   logger.With().Str("component", "refund").Logger(),
		delay:    delay,
	}
	if database != nil {
		c.journal = database.Client()
	}
	return c
}

// Refundable reads the registry and returns the user's refund candidates
// in registry order. Registration and paid-amount reads for the canceled
// tickets run concurrently; any read failure fails the whole aggregation.
func (cl *Claimer) Refundable(ctx context.Context, user string) ([]*Candidate, error) {
	out, err := cl.gateway.Read(ctx, cl.registry, "getRecentTickets")
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
	tickets, err := ticket.DecodeTuples(rows)
	if err != nil {
		return nil, err
	}

	registered := make([]bool, len(tickets))
	paid := make([]*big.Int, len(tickets))
	errs := make([]error, len(tickets))

	var wg sync.WaitGroup
	for i, rec := range tickets {
		if !rec.Canceled {
			continue
		}
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			regOut, err := cl.gateway.Read(ctx, cl.registry, "isRegistered", id, user)
			if err != nil {
				errs[i] = err
				return
			}
			if len(regOut) > 0 {
				registered[i], _ = regOut[0].(bool)
			}
			if !registered[i] {
				return
			}
			paidOut, err := cl.gateway.Read(ctx, cl.registry, "paidAmount", id, user)
			if err != nil {
				errs[i] = err
				return
			}
			if len(paidOut) > 0 {
				paid[i], _ = paidOut[0].(*big.Int)
			}
		}(i, rec.ID)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return ComputeRefundable(tickets, registered, paid), nil
}

// ClaimOne submits a single refund claim. The candidate goes to
// processing on submission and back to pending if the submission or its
// receipt fails, so it stays claimable on a later attempt.
func (cl *Claimer) ClaimOne(ctx context.Context, c *Candidate) error {
	if c == nil || c.Status != StatusPending {
		return clienterrors.NewInvalidInput("refund claim is not pending")
	}
	ticketID := c.Ticket.ID

	c.Status = StatusProcessing
	notify.Info(cl.sink, fmt.Sprintf("claiming refund for %s", c.Ticket.EventName))

	handle, err := cl.gateway.Write(ctx, cl.registry, "claimRefund", []any{ticketID}, nil)
	if err != nil {
		c.Status = StatusPending
		cl.record(c, "", "failed")
		metrics.Claim("failed")
		notify.Error(cl.sink, fmt.Sprintf("refund claim for %s was not submitted: %v", c.Ticket.EventName, err))
		return err
	}
	cl.record(c, string(handle), "submitted")

	receipt, err := cl.gateway.AwaitReceipt(ctx, handle)
	if err != nil || !receipt.Success {
		c.Status = StatusPending
		cl.record(c, string(handle), "failed")
		metrics.Claim("failed")
		if err == nil {
			err = clienterrors.Newf(clienterrors.CodeGateway, "refund claim for ticket %d reverted (tx %s)", ticketID, receipt.TxHash)
		}
		notify.Error(cl.sink, fmt.Sprintf("refund claim for %s failed: %v", c.Ticket.EventName, err))
		return err
	}

	c.Status = StatusCompleted
	cl.record(c, string(handle), "confirmed")
	metrics.Claim("confirmed")
	notify.Success(cl.sink, fmt.Sprintf("refund of %s claimed for %s", FormatWei(c.PaidWei), c.Ticket.EventName))
	return nil
}

// ClaimAll claims the pending candidates in list order, spacing
// submissions by the configured delay. A failed claim does not stop the
// batch; it reverts to pending and the iteration moves on. There is no
// cancellation once the batch starts.
func (cl *Claimer) ClaimAll(ctx context.Context, candidates []*Candidate) (claimed, failed int) {
	first := true
	for _, c := range candidates {
		if c.Status != StatusPending {
			continue
		}
		if !first {
			time.Sleep(cl.delay)
		}
		first = false

		if err := cl.ClaimOne(ctx, c); err != nil {
			failed++
			continue
		}
		claimed++
	}

	cl.logger.Info().Int("claimed", claimed).Int("failed", failed).Msg("refund batch finished")
	if claimed+failed > 0 {
		notify.Info(cl.sink, fmt.Sprintf("refund batch finished: %d claimed, %d failed", claimed, failed))
	}
	return claimed, failed
}

// record journals one submission outcome when a database is attached.
func (cl *Claimer) record(c *Candidate, txHash, status string) {
	if cl.journal == nil {
		return
	}
	sub := store.ClaimSubmission{
		TicketID:  strconv.FormatUint(c.Ticket.ID, 10),
		TxHash:    txHash,
		AmountWei: c.PaidWei.String(),
		Status:    status,
	}
	if err := cl.journal.Create(&sub).Error; err != nil {
		cl.logger.Warn().Err(err).Uint64("ticket_id", c.Ticket.ID).Msg("failed to journal claim submission")
	}
}
