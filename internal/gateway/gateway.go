// Package gateway normalizes provider-specific payment flows into one
// lifecycle contract. The checkout orchestrator depends only on this
// contract, never on a concrete provider's object shape.
package gateway

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/provider"
	"github.com/shopspring/decimal"
)

type FailureKind string

const (
	FailureProviderInit     FailureKind = "provider_init_failed"
	FailureDeclined         FailureKind = "provider_declined"
	FailureAlreadyFinalized FailureKind = "intent_already_finalized"
	FailureRateLimited      FailureKind = "rate_limited"
	FailureNetwork          FailureKind = "network_error"
	FailureCanceled         FailureKind = "canceled"
	FailureInvalidAmount    FailureKind = "invalid_amount"
)

// Failure carries a human-presentable message plus an internal kind
// for observability. RetryAfter is set only for rate limits.
type Failure struct {
	Kind       FailureKind
	Message    string
	RetryAfter time.Duration
}

// Callbacks receive the adapter's lifecycle events. OnReady fires when
// the provider UI is interactive; OnSuccess fires at most once per
// attempt with the provider transaction id and the amount the provider
// actually charged.
type Callbacks struct {
	OnReady          func()
	OnRequiresAction func()
	OnSuccess        func(transactionID string, amountCharged decimal.Decimal)
	OnFailure        func(Failure)
}

// Adapter is the shared contract both provider variants expose.
type Adapter interface {
	Name() string
	Initiate(ctx context.Context, amount decimal.Decimal, currency string, cb Callbacks)
	Cancel(ctx context.Context)
}

// SDKLoader models loading the provider's external script/SDK before
// the flow becomes interactive. A load failure is reported, never
// retried, so the UI cannot hang in an indefinite pending state.
type SDKLoader interface {
	Load(ctx context.Context) error
}

// callbackGuard enforces at-most-once terminal delivery. A second
// success for the same attempt is a protocol violation and is dropped.
type callbackGuard struct {
	mu       sync.Mutex
	name     string
	terminal bool
	cb       Callbacks
}

func newCallbackGuard(name string, cb Callbacks) *callbackGuard {
	return &callbackGuard{name: name, cb: cb}
}

func (g *callbackGuard) ready() {
	if g.cb.OnReady != nil {
		g.cb.OnReady()
	}
}

func (g *callbackGuard) requiresAction() {
	if g.cb.OnRequiresAction != nil {
		g.cb.OnRequiresAction()
	}
}

func (g *callbackGuard) success(transactionID string, amountCharged decimal.Decimal) {
	g.mu.Lock()
	if g.terminal {
		g.mu.Unlock()
		log.Printf("%s: dropped duplicate success callback for transaction %s", g.name, transactionID)
		return
	}
	g.terminal = true
	g.mu.Unlock()

	if g.cb.OnSuccess != nil {
		g.cb.OnSuccess(transactionID, amountCharged)
	}
}

func (g *callbackGuard) failure(f Failure) {
	g.mu.Lock()
	if g.terminal {
		g.mu.Unlock()
		log.Printf("%s: dropped failure callback after terminal state: %s", g.name, f.Kind)
		return
	}
	g.terminal = true
	g.mu.Unlock()

	log.Printf("%s: checkout attempt failed, kind=%s: %s", g.name, f.Kind, f.Message)
	if g.cb.OnFailure != nil {
		g.cb.OnFailure(f)
	}
}

// mapProviderError classifies transport-level provider errors into
// user-presentable failure kinds.
func mapProviderError(err error) Failure {
	var rle *provider.RateLimitedError
	if errors.As(err, &rle) {
		return Failure{
			Kind:       FailureRateLimited,
			Message:    "Too many payment attempts. Please wait and try again.",
			RetryAfter: rle.RetryAfter,
		}
	}

	var ne *provider.NetworkError
	if errors.As(err, &ne) {
		return Failure{
			Kind:    FailureNetwork,
			Message: "We could not reach the payment provider. Please try again.",
		}
	}

	return Failure{
		Kind:    FailureNetwork,
		Message: "The payment provider returned an unexpected error. Please try again.",
	}
}
