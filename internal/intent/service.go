package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfirmOutcome is what the card provider reports for a confirmation
// attempt. REQUIRES_ACTION is not a failure; the flow stays alive and
// waits for the next authorization proof.
type ConfirmOutcome string

const (
	OutcomeSucceeded      ConfirmOutcome = "SUCCEEDED"
	OutcomeRequiresAction ConfirmOutcome = "REQUIRES_ACTION"
	OutcomeDeclined       ConfirmOutcome = "DECLINED"
)

type ConfirmResult struct {
	Outcome       ConfirmOutcome
	TransactionID string
	DeclineReason string
}

// CardProvider is the card processor behind the intent service. The
// service forwards the opaque authorization proof without interpreting
// its internal structure.
type CardProvider interface {
	CreatePaymentMethod(ctx context.Context, cardDetails json.RawMessage) (string, error)
	Confirm(ctx context.Context, intentID, clientSecret string, proof json.RawMessage) (*ConfirmResult, error)
	Capture(ctx context.Context, transactionID string) error
}

type Service struct {
	store    Store
	provider CardProvider
}

func NewService(store Store, provider CardProvider) *Service {
	return &Service{store: store, provider: provider}
}

// CreateIntent starts a new checkout attempt. The amount must be the
// cart total at the instant checkout starts; it is never re-derived
// here or later in the flow.
func (s *Service) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*PaymentIntent, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	pi := &PaymentIntent{
		ID:           "pi_" + uuid.NewString(),
		Amount:       amount,
		Currency:     currency,
		Status:       StatusCreated,
		ClientSecret: "cs_" + uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Save(ctx, pi); err != nil {
		return nil, fmt.Errorf("save intent: %w", err)
	}
	return pi, nil
}

// ConfirmIntent forwards the proof to the provider and applies the
// outcome. A repeated confirmation of an already-charged intent is
// rejected loudly; silently ignoring it would hide double-charges.
func (s *Service) ConfirmIntent(ctx context.Context, intentID string, proof json.RawMessage) (*PaymentIntent, error) {
	pi, err := s.store.Get(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if pi.Status.IsTerminal() || pi.Status == StatusConfirmed {
		log.Printf("confirm rejected for intent %s in status %s", pi.ID, pi.Status)
		return nil, ErrIntentAlreadyFinalized
	}
	if !CanTransitionTo(pi.Status, StatusConfirmed) {
		return nil, ErrIllegalTransition
	}

	result, err := s.provider.Confirm(ctx, pi.ID, pi.ClientSecret, proof)
	if err != nil {
		// unknown outcome, leave the intent as-is for reconciliation
		return nil, fmt.Errorf("provider confirm: %w", err)
	}

	switch result.Outcome {
	case OutcomeSucceeded:
		pi.Status = StatusConfirmed
		pi.TransactionID = result.TransactionID
	case OutcomeRequiresAction:
		pi.Status = StatusRequiresAction
	case OutcomeDeclined:
		pi.Status = StatusFailed
		pi.FailureReason = result.DeclineReason
	default:
		return nil, fmt.Errorf("provider reported unknown outcome %q", result.Outcome)
	}
	pi.UpdatedAt = time.Now()

	if err := s.store.Save(ctx, pi); err != nil {
		return nil, fmt.Errorf("save intent: %w", err)
	}
	return pi, nil
}

// Capture finalizes the charge for a confirmed intent.
func (s *Service) Capture(ctx context.Context, intentID string) (*PaymentIntent, error) {
	pi, err := s.store.Get(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if pi.Status.IsTerminal() {
		return nil, ErrIntentAlreadyFinalized
	}
	if !CanTransitionTo(pi.Status, StatusCaptured) {
		return nil, ErrIllegalTransition
	}

	if err := s.provider.Capture(ctx, pi.TransactionID); err != nil {
		return nil, fmt.Errorf("provider capture: %w", err)
	}

	pi.Status = StatusCaptured
	pi.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, pi); err != nil {
		return nil, fmt.Errorf("save intent: %w", err)
	}
	return pi, nil
}

// Cancel marks an abandoned attempt. A new checkout always creates a
// fresh intent instead of resuming this one.
func (s *Service) Cancel(ctx context.Context, intentID string) error {
	pi, err := s.store.Get(ctx, intentID)
	if err != nil {
		return err
	}
	if pi.Status.IsTerminal() {
		return ErrIntentAlreadyFinalized
	}
	if !CanTransitionTo(pi.Status, StatusCanceled) {
		// a confirmed intent stays put; reconciliation picks it up
		return ErrIllegalTransition
	}

	pi.Status = StatusCanceled
	pi.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, pi); err != nil {
		return fmt.Errorf("save intent: %w", err)
	}
	return nil
}

// GetIntentStatus is the read-only reconciliation path for clients
// that lost connectivity mid-flow.
func (s *Service) GetIntentStatus(ctx context.Context, intentID string) (Status, error) {
	pi, err := s.store.Get(ctx, intentID)
	if err != nil {
		return "", err
	}
	return pi.Status, nil
}

// CreatePaymentMethod tokenizes card details with the provider; raw
// card data never touches our storage.
func (s *Service) CreatePaymentMethod(ctx context.Context, cardDetails json.RawMessage) (string, error) {
	id, err := s.provider.CreatePaymentMethod(ctx, cardDetails)
	if err != nil {
		return "", fmt.Errorf("provider create payment method: %w", err)
	}
	return id, nil
}
