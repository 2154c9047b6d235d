package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/intent"
	"github.com/shopspring/decimal"
)

type cardPhase string

const (
	cardAwaitingIntent       cardPhase = "AWAITING_INTENT"
	cardAwaitingConfirmation cardPhase = "AWAITING_CONFIRMATION"
	cardTerminal             cardPhase = "TERMINAL"
)

// IntentService is the server-side intent API the card adapter drives.
// Satisfied by *intent.Service.
type IntentService interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*intent.PaymentIntent, error)
	ConfirmIntent(ctx context.Context, intentID string, proof json.RawMessage) (*intent.PaymentIntent, error)
	Capture(ctx context.Context, intentID string) (*intent.PaymentIntent, error)
	Cancel(ctx context.Context, intentID string) error
}

// CardAdapter runs the card-based three-step handshake: create an
// intent server-side, collect card details, confirm with the client
// secret. A "requires additional authentication" answer keeps the user
// in the flow instead of failing the attempt.
type CardAdapter struct {
	intents IntentService
	loader  SDKLoader

	mu       sync.Mutex
	phase    cardPhase
	intentID string
	guard    *callbackGuard
}

func NewCardAdapter(intents IntentService, loader SDKLoader) *CardAdapter {
	return &CardAdapter{
		intents: intents,
		loader:  loader,
		phase:   cardAwaitingIntent,
	}
}

func (a *CardAdapter) Name() string { return "card" }

func (a *CardAdapter) Initiate(ctx context.Context, amount decimal.Decimal, currency string, cb Callbacks) {
	guard := newCallbackGuard(a.Name(), cb)
	a.mu.Lock()
	a.guard = guard
	a.phase = cardAwaitingIntent
	a.mu.Unlock()

	// the cart total may still be loading; never create an intent
	// for an unknown or zero amount
	if !amount.IsPositive() {
		a.finish(guard, Failure{
			Kind:    FailureInvalidAmount,
			Message: "Your cart total is not ready yet. Please try again.",
		})
		return
	}

	if err := a.loader.Load(ctx); err != nil {
		a.finish(guard, Failure{
			Kind:    FailureProviderInit,
			Message: "The card payment form failed to load. Please refresh and try again.",
		})
		return
	}

	pi, err := a.intents.CreateIntent(ctx, amount, currency)
	if err != nil {
		if errors.Is(err, intent.ErrInvalidAmount) {
			a.finish(guard, Failure{
				Kind:    FailureInvalidAmount,
				Message: "Your cart total is not ready yet. Please try again.",
			})
			return
		}
		a.finish(guard, mapProviderError(err))
		return
	}

	a.mu.Lock()
	a.intentID = pi.ID
	a.phase = cardAwaitingConfirmation
	a.mu.Unlock()

	guard.ready()
}

// SubmitProof confirms the intent with the authorization artifact the
// provider UI produced (a tokenized card confirmation). Called again
// with a fresh proof when the provider asked for extra authentication.
func (a *CardAdapter) SubmitProof(ctx context.Context, proof json.RawMessage) {
	a.mu.Lock()
	guard := a.guard
	phase := a.phase
	intentID := a.intentID
	a.mu.Unlock()

	if guard == nil || phase != cardAwaitingConfirmation {
		log.Printf("card: proof submitted in phase %s, ignoring", phase)
		return
	}

	pi, err := a.intents.ConfirmIntent(ctx, intentID, proof)
	if err != nil {
		if errors.Is(err, intent.ErrIntentAlreadyFinalized) {
			a.finish(guard, Failure{
				Kind:    FailureAlreadyFinalized,
				Message: "This payment attempt was already completed. Please restart checkout.",
			})
			return
		}
		a.finish(guard, mapProviderError(err))
		return
	}

	switch pi.Status {
	case intent.StatusRequiresAction:
		// non-terminal, the user stays in the flow
		guard.requiresAction()
	case intent.StatusConfirmed:
		captured, capErr := a.intents.Capture(ctx, pi.ID)
		if capErr != nil {
			a.finish(guard, mapProviderError(capErr))
			return
		}
		a.mu.Lock()
		a.phase = cardTerminal
		a.mu.Unlock()
		guard.success(captured.TransactionID, captured.Amount)
	case intent.StatusFailed:
		a.finish(guard, Failure{
			Kind:    FailureDeclined,
			Message: "Your card was declined: " + pi.FailureReason,
		})
	default:
		a.finish(guard, Failure{
			Kind:    FailureNetwork,
			Message: "The payment ended in an unexpected state. Please restart checkout.",
		})
	}
}

// Cancel reports user-initiated abandonment of the card form. The
// stale intent is canceled when its state still allows it; a confirmed
// intent is left alone for later reconciliation via its status.
func (a *CardAdapter) Cancel(ctx context.Context) {
	a.mu.Lock()
	guard := a.guard
	intentID := a.intentID
	a.mu.Unlock()
	if guard == nil {
		return
	}

	if intentID != "" {
		if err := a.intents.Cancel(ctx, intentID); err != nil {
			log.Printf("card: could not cancel intent %s: %v", intentID, err)
		}
	}

	a.finish(guard, Failure{
		Kind:    FailureCanceled,
		Message: "Payment canceled.",
	})
}

// IntentID exposes the active intent for reconciliation lookups.
func (a *CardAdapter) IntentID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.intentID
}

func (a *CardAdapter) finish(guard *callbackGuard, f Failure) {
	a.mu.Lock()
	a.phase = cardTerminal
	a.mu.Unlock()
	guard.failure(f)
}
