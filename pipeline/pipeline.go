// Package pipeline drives ordered sequences of chain writes where each
// step depends on the previous step's on-chain confirmation, not merely
// its submission. The canonical sequences are the resale market's
// approve-then-list and approve-then-buy flows.
package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ticketbase/ticketd/chain"
	"github.com/ticketbase/ticketd/errors"
	"github.com/ticketbase/ticketd/metrics"
	"github.com/ticketbase/ticketd/notify"
)

// StepSpec is one blockchain write within an ordered multi-step action.
type StepSpec struct {
	Name     string
	Contract chain.ContractRef
	Method   string
	Args     []any
	Value    *big.Int // native currency attached to the call, may be nil
}

// Status is the lifecycle state of a run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// EntityState tracks where a targeted entity (a token or ticket id) stands
// in its current operation.
type EntityState string

const (
	EntityIdle      EntityState = "idle"
	EntitySubmitted EntityState = "submitted"
	EntityConfirmed EntityState = "confirmed"
	EntityFailed    EntityState = "failed"
)

// Run is one transient pipeline instance. A run is discarded after
// reaching a terminal state; retries start a brand-new run from step 0.
// Resuming a failed run mid-sequence is unsupported on purpose: a stale
// approval may already be consumed or invalid by the time of retry.
type Run struct {
	ID       string
	EntityID string

	mu      sync.Mutex
	steps   []StepSpec
	current int
	status  Status
	err     error
	done    chan struct{}
}

// Status returns the run's current lifecycle state.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// CurrentIndex returns the index of the step currently in flight (or the
// last step reached before a terminal state).
func (r *Run) CurrentIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Err returns the terminal error, if any.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Done is closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run terminates or ctx is canceled, returning the
// terminal error.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Run) advance(index int) {
	r.mu.Lock()
	r.current = index
	r.mu.Unlock()
}

func (r *Run) finish(status Status, err error) {
	r.mu.Lock()
	r.status = status
	r.err = err
	r.mu.Unlock()
	close(r.done)
}

// Orchestrator executes runs against the chain gateway. Exactly one run
// may be running per orchestrator at a time; a second Start while running
// is rejected with ALREADY_RUNNING, never queued.
type Orchestrator struct {
	gateway chain.Gateway
	sink    notify.Sink
	logger  zerolog.Logger

	mu       sync.Mutex
	active   *Run
	entities map[string]EntityState
}

// NewOrchestrator creates an orchestrator over the given gateway.
func NewOrchestrator(gateway chain.Gateway, sink notify.Sink, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:  gateway,
		sink:     sink,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		entities: make(map[string]EntityState),
	}
}

// EntityStateOf reports the operation state of an entity id.
func (o *Orchestrator) EntityStateOf(entityID string) EntityState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.entities[entityID]; ok {
		return s
	}
	return EntityIdle
}

func (o *Orchestrator) setEntity(entityID string, s EntityState) {
	if entityID == "" {
		return
	}
	o.mu.Lock()
	o.entities[entityID] = s
	o.mu.Unlock()
}

// Start validates and launches a run. It returns as soon as step 0 is
// handed to the executor goroutine; progress is observable through the
// returned Run and the notification sink.
func (o *Orchestrator) Start(ctx context.Context, entityID string, steps []StepSpec) (*Run, error) {
	if len(steps) == 0 {
		return nil, errors.NewInvalidInput("pipeline requires at least one step")
	}

	o.mu.Lock()
	if o.active != nil && o.active.Status() == StatusRunning {
		o.mu.Unlock()
		return nil, errors.NewAlreadyRunning()
	}
	run := &Run{
		ID:       uuid.NewString(),
		EntityID: entityID,
		steps:    steps,
		status:   StatusRunning,
		done:     make(chan struct{}),
	}
	o.active = run
	o.mu.Unlock()

	o.setEntity(entityID, EntitySubmitted)
	o.logger.Info().
		Str("run_id", run.ID).
		Str("entity", entityID).
		Int("steps", len(steps)).
		Msg("pipeline run started")

	go o.execute(ctx, run)
	return run, nil
}

// execute walks the steps strictly in order. Step i+1 is never submitted
// before step i's receipt is observed. Any submission rejection or receipt
// failure terminates the run; there is no automatic retry of a failed
// step.
func (o *Orchestrator) execute(ctx context.Context, run *Run) {
	total := len(run.steps)

	for i, step := range run.steps {
		run.advance(i)
		notify.Info(o.sink, fmt.Sprintf("step %d/%d: %s", i+1, total, step.Name))

		handle, err := o.gateway.Write(ctx, step.Contract, step.Method, step.Args, step.Value)
		if err != nil {
			o.fail(run, step, i, fmt.Errorf("submission of %s rejected: %w", step.Name, err))
			return
		}

		receipt, err := o.gateway.AwaitReceipt(ctx, handle)
		if err != nil {
			o.fail(run, step, i, fmt.Errorf("receipt wait for %s failed: %w", step.Name, err))
			return
		}
		if !receipt.Success {
			o.fail(run, step, i, fmt.Errorf("step %s reverted on chain (tx %s)", step.Name, receipt.TxHash))
			return
		}

		o.logger.Info().
			Str("run_id", run.ID).
			Str("step", step.Name).
			Str("tx_hash", receipt.TxHash).
			Uint64("block", receipt.BlockNumber).
			Msg("step confirmed")
	}

	o.setEntity(run.EntityID, EntityConfirmed)
	notify.Success(o.sink, fmt.Sprintf("all %d steps confirmed", total))
	metrics.PipelineRun(string(StatusSucceeded))
	run.finish(StatusSucceeded, nil)
}

func (o *Orchestrator) fail(run *Run, step StepSpec, index int, err error) {
	o.logger.Error().
		Err(err).
		Str("run_id", run.ID).
		Str("step", step.Name).
		Int("index", index).
		Msg("pipeline run failed")

	o.setEntity(run.EntityID, EntityFailed)
	notify.Error(o.sink, fmt.Sprintf("step %d (%s) failed: %v", index+1, step.Name, err))
	metrics.PipelineRun(string(StatusFailed))
	run.finish(StatusFailed, err)
}
