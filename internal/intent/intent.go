package intent

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount          = errors.New("intent amount must be positive")
	ErrIntentNotFound         = errors.New("payment intent not found")
	ErrIntentAlreadyFinalized = errors.New("payment intent already finalized")
	ErrIllegalTransition      = errors.New("illegal payment intent status transition")
)

type Status string

const (
	StatusCreated        Status = "CREATED"
	StatusRequiresAction Status = "REQUIRES_ACTION"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCaptured       Status = "CAPTURED"
	StatusFailed         Status = "FAILED"
	StatusCanceled       Status = "CANCELED"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCaptured || s == StatusFailed || s == StatusCanceled
}

func (s Status) String() string {
	return string(s)
}

var transitions = map[Status][]Status{
	StatusCreated:        {StatusRequiresAction, StatusConfirmed, StatusFailed, StatusCanceled},
	StatusRequiresAction: {StatusRequiresAction, StatusConfirmed, StatusFailed, StatusCanceled},
	StatusConfirmed:      {StatusCaptured, StatusFailed},
}

func CanTransitionTo(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PaymentIntent records one checkout attempt's authorization lifecycle.
// ClientSecret is handed to the client to authorize confirmation and
// lives only in the in-memory store, never in durable storage.
type PaymentIntent struct {
	ID            string          `json:"intent_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        Status          `json:"status"`
	ClientSecret  string          `json:"client_secret,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
