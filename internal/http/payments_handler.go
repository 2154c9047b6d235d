package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/intent"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/provider"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// IntentService is the slice of the intent layer the handler needs.
type IntentService interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*intent.PaymentIntent, error)
	ConfirmIntent(ctx context.Context, intentID string, proof json.RawMessage) (*intent.PaymentIntent, error)
	CreatePaymentMethod(ctx context.Context, cardDetails json.RawMessage) (string, error)
	GetIntentStatus(ctx context.Context, intentID string) (intent.Status, error)
}

type PaymentsHandler struct {
	intents IntentService
	timeout time.Duration
}

func NewPaymentsHandler(intents IntentService, timeout time.Duration) *PaymentsHandler {
	return &PaymentsHandler{intents: intents, timeout: timeout}
}

type CreateIntentRequestDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type IntentResponseDTO struct {
	IntentID      string `json:"intent_id"`
	ClientSecret  string `json:"client_secret,omitempty"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type ConfirmPaymentRequestDTO struct {
	IntentID           string          `json:"intent_id"`
	PaymentMethodProof json.RawMessage `json:"payment_method_proof"`
}

type CreatePaymentMethodRequestDTO struct {
	CardDetails json.RawMessage `json:"card_details"`
}

func (h *PaymentsHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateIntentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount must be a decimal string")
		return
	}
	if req.Currency == "" {
		respondError(w, http.StatusBadRequest, "invalid_currency", "currency is required")
		return
	}

	pi, err := h.intents.CreateIntent(ctx, amount, req.Currency)
	if err != nil {
		if errors.Is(err, intent.ErrInvalidAmount) {
			respondError(w, http.StatusBadRequest, "invalid_amount", "amount must be positive")
			return
		}
		handlePaymentError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, IntentResponseDTO{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	})
}

func (h *PaymentsHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ConfirmPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.IntentID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "intent_id is required")
		return
	}

	pi, err := h.intents.ConfirmIntent(ctx, req.IntentID, req.PaymentMethodProof)
	if err != nil {
		switch {
		case errors.Is(err, intent.ErrIntentNotFound):
			respondError(w, http.StatusNotFound, "intent_not_found", "no such payment intent")
		case errors.Is(err, intent.ErrIntentAlreadyFinalized):
			respondError(w, http.StatusConflict, "intent_already_finalized", "this intent has already been finalized")
		case errors.Is(err, intent.ErrIllegalTransition):
			respondError(w, http.StatusConflict, "illegal_transition", "intent cannot be confirmed from its current status")
		default:
			handlePaymentError(w, err)
		}
		return
	}

	if pi.Status == intent.StatusFailed {
		respondJSON(w, http.StatusPaymentRequired, IntentResponseDTO{
			IntentID:      pi.ID,
			Status:        string(pi.Status),
			FailureReason: pi.FailureReason,
		})
		return
	}

	respondJSON(w, http.StatusOK, IntentResponseDTO{
		IntentID:      pi.ID,
		Status:        string(pi.Status),
		TransactionID: pi.TransactionID,
	})
}

func (h *PaymentsHandler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreatePaymentMethodRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.CardDetails) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "card_details is required")
		return
	}

	id, err := h.intents.CreatePaymentMethod(ctx, req.CardDetails)
	if err != nil {
		handlePaymentError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"payment_method_id": id})
}

func (h *PaymentsHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	intentID := chi.URLParam(r, "intent_id")
	status, err := h.intents.GetIntentStatus(ctx, intentID)
	if err != nil {
		if errors.Is(err, intent.ErrIntentNotFound) {
			respondError(w, http.StatusNotFound, "intent_not_found", "no such payment intent")
			return
		}
		handlePaymentError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, IntentResponseDTO{IntentID: intentID, Status: string(status)})
}

// handlePaymentError maps provider transport failures onto HTTP codes;
// anything unrecognized is a 500.
func handlePaymentError(w http.ResponseWriter, err error) {
	var rateLimited *provider.RateLimitedError
	if errors.As(err, &rateLimited) {
		seconds := int(rateLimited.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		respondError(w, http.StatusTooManyRequests, "rate_limited", "payment provider is rate limiting, retry later")
		return
	}

	var network *provider.NetworkError
	if errors.As(err, &network) {
		respondError(w, http.StatusBadGateway, "network_error", "payment provider unreachable")
		return
	}

	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
