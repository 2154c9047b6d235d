package checkout

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	cart "github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/domain"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/gateway"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart      = errors.New("cannot start checkout with an empty cart")
	ErrAlreadyStarted = errors.New("checkout already started")
	ErrAmountMismatch = errors.New("charged amount does not match cart total")
)

type State string

const (
	StateIdle                State = "IDLE"
	StateIntentPending       State = "INTENT_PENDING"
	StateProviderInteractive State = "PROVIDER_INTERACTIVE"
	StateConfirming          State = "CONFIRMING"
	StateSucceeded           State = "SUCCEEDED"
	StateFailed              State = "FAILED"
	StateCanceled            State = "CANCELED"
)

func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCanceled
}

// CartService is the slice of the cart layer the orchestrator needs.
type CartService interface {
	Snapshot(ctx context.Context, userID, currency string) (cart.Snapshot, error)
	ClearCart(ctx context.Context, userID string) error
}

// Finalizer persists a completed purchase. Payment is never re-attempted
// when finalization fails; the error is surfaced as-is.
type Finalizer interface {
	Finalize(ctx context.Context, snapshot cart.Snapshot, transactionID string, amountCharged decimal.Decimal) (string, error)
}

// OutcomeRecorder counts terminal checkout outcomes.
type OutcomeRecorder interface {
	CheckoutOutcome(outcome string)
}

// Result is the terminal outcome of one checkout attempt.
type Result struct {
	State   State
	OrderID string
	Failure *gateway.Failure
	Err     error
}

type event struct {
	kind    eventKind
	txID    string
	charged decimal.Decimal
	failure gateway.Failure
}

type eventKind int

const (
	eventReady eventKind = iota
	eventRequiresAction
	eventSuccess
	eventFailure
)

// Orchestrator drives one checkout attempt through a gateway adapter.
// Adapter callbacks are turned into events consumed by a single
// goroutine, so confirmation handling never overlaps.
type Orchestrator struct {
	carts         CartService
	finalizer     Finalizer
	adapter       gateway.Adapter
	recorder      OutcomeRecorder
	slowThreshold time.Duration
	onNotice      func()

	mu       sync.Mutex
	state    State
	snapshot cart.Snapshot
	result   Result

	events chan event
	done   chan struct{}
}

type Option func(*Orchestrator)

// WithSlowThreshold surfaces a "taking too long" notice after d without
// a terminal state. The flow keeps waiting; only the notice fires.
func WithSlowThreshold(d time.Duration, notice func()) Option {
	return func(o *Orchestrator) {
		o.slowThreshold = d
		o.onNotice = notice
	}
}

func WithOutcomeRecorder(r OutcomeRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func NewOrchestrator(carts CartService, finalizer Finalizer, adapter gateway.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		carts:     carts,
		finalizer: finalizer,
		adapter:   adapter,
		state:     StateIdle,
		events:    make(chan event, 8),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start snapshots the cart and hands the attempt to the gateway
// adapter. It returns once the adapter's Initiate call completes; the
// terminal outcome is delivered via Wait.
func (o *Orchestrator) Start(ctx context.Context, userID, currency string) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.state = StateIntentPending
	o.mu.Unlock()

	snapshot, err := o.carts.Snapshot(ctx, userID, currency)
	if err != nil {
		o.setIdle()
		return err
	}
	if len(snapshot.Items) == 0 || !snapshot.TotalAmount.IsPositive() {
		o.setIdle()
		return ErrEmptyCart
	}

	o.mu.Lock()
	o.snapshot = snapshot
	o.mu.Unlock()

	go o.run(ctx)

	if o.slowThreshold > 0 && o.onNotice != nil {
		timer := time.AfterFunc(o.slowThreshold, func() {
			if !o.State().IsTerminal() {
				log.Printf("checkout for user %s exceeded %v without completing", userID, o.slowThreshold)
				o.onNotice()
			}
		})
		go func() {
			<-o.done
			timer.Stop()
		}()
	}

	o.adapter.Initiate(ctx, snapshot.TotalAmount, currency, gateway.Callbacks{
		OnReady: func() {
			o.events <- event{kind: eventReady}
		},
		OnRequiresAction: func() {
			o.events <- event{kind: eventRequiresAction}
		},
		OnSuccess: func(transactionID string, amountCharged decimal.Decimal) {
			o.events <- event{kind: eventSuccess, txID: transactionID, charged: amountCharged}
		},
		OnFailure: func(f gateway.Failure) {
			o.events <- event{kind: eventFailure, failure: f}
		},
	})
	return nil
}

// Cancel aborts the attempt via the adapter; the canceled outcome
// arrives through the adapter's failure callback.
func (o *Orchestrator) Cancel(ctx context.Context) {
	if o.State() == StateIdle || o.State().IsTerminal() {
		return
	}
	o.adapter.Cancel(ctx)
}

// Result reports the terminal outcome without blocking; ok is false
// while the attempt is still in flight.
func (o *Orchestrator) Result() (Result, bool) {
	select {
	case <-o.done:
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the attempt reaches a terminal state.
func (o *Orchestrator) Wait(ctx context.Context) (Result, error) {
	select {
	case <-o.done:
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context) {
	for {
		select {
		case ev := <-o.events:
			if o.handle(ctx, ev) {
				return
			}
		case <-ctx.Done():
			o.finish(Result{State: StateCanceled, Err: ctx.Err()})
			return
		}
	}
}

// handle applies one adapter event; it reports true once the machine
// is terminal.
func (o *Orchestrator) handle(ctx context.Context, ev event) bool {
	switch ev.kind {
	case eventReady:
		o.setState(StateProviderInteractive)
		return false
	case eventRequiresAction:
		// extra user step inside the provider UI, still interactive
		o.setState(StateProviderInteractive)
		return false
	case eventSuccess:
		o.handleSuccess(ctx, ev.txID, ev.charged)
		return true
	case eventFailure:
		o.handleFailure(ev.failure)
		return true
	}
	return false
}

func (o *Orchestrator) handleSuccess(ctx context.Context, transactionID string, amountCharged decimal.Decimal) {
	o.setState(StateConfirming)

	o.mu.Lock()
	snapshot := o.snapshot
	o.mu.Unlock()

	if !amountCharged.Equal(snapshot.TotalAmount) {
		log.Printf("fatal: charged %s but cart snapshot total is %s for user %s (transaction %s)",
			amountCharged, snapshot.TotalAmount, snapshot.UserID, transactionID)
		o.finish(Result{State: StateFailed, Err: ErrAmountMismatch})
		return
	}

	orderID, err := o.finalizer.Finalize(ctx, snapshot, transactionID, amountCharged)
	if err != nil {
		log.Printf("finalization failed for transaction %s: %v", transactionID, err)
		o.finish(Result{State: StateFailed, Err: err})
		return
	}

	if err := o.carts.ClearCart(ctx, snapshot.UserID); err != nil {
		// order exists, charge is settled; a stale cart is recoverable
		log.Printf("failed to clear cart for user %s after order %s: %v", snapshot.UserID, orderID, err)
	}

	o.finish(Result{State: StateSucceeded, OrderID: orderID})
}

func (o *Orchestrator) handleFailure(f gateway.Failure) {
	state := StateFailed
	if f.Kind == gateway.FailureCanceled {
		state = StateCanceled
	}
	log.Printf("checkout via %s ended with %s: %s", o.adapter.Name(), f.Kind, f.Message)
	failure := f
	o.finish(Result{State: state, Failure: &failure})
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) setIdle() {
	o.setState(StateIdle)
}

func (o *Orchestrator) finish(r Result) {
	o.mu.Lock()
	o.state = r.State
	o.result = r
	o.mu.Unlock()
	if o.recorder != nil {
		o.recorder.CheckoutOutcome(string(r.State))
	}
	close(o.done)
}
