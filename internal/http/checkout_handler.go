package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/checkout"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/gateway"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	methodCard   = "card"
	methodWallet = "wallet"

	// terminal sessions stay readable for this long so clients can
	// collect the outcome after a reconnect
	sessionRetention = 30 * time.Minute
)

// CheckoutDeps bundles the collaborators one checkout attempt needs.
// A fresh adapter and orchestrator are built per attempt; the deps are
// shared process-wide.
type CheckoutDeps struct {
	Carts         checkout.CartService
	Finalizer     checkout.Finalizer
	Intents       gateway.IntentService
	Wallet        gateway.WalletProvider
	CardSDK       gateway.SDKLoader
	WalletSDK     gateway.SDKLoader
	Recorder      checkout.OutcomeRecorder
	SlowThreshold time.Duration
}

// proofSubmitter is the card adapter's continuation surface.
type proofSubmitter interface {
	SubmitProof(ctx context.Context, proof json.RawMessage)
}

// approver is the wallet adapter's continuation surface.
type approver interface {
	Approved(ctx context.Context)
}

type checkoutSession struct {
	userID    string
	method    string
	orch      *checkout.Orchestrator
	adapter   gateway.Adapter
	createdAt time.Time

	mu   sync.Mutex
	slow bool
}

func (s *checkoutSession) markSlow() {
	s.mu.Lock()
	s.slow = true
	s.mu.Unlock()
}

func (s *checkoutSession) isSlow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slow
}

type CheckoutHandler struct {
	deps    CheckoutDeps
	timeout time.Duration

	mu       sync.Mutex
	sessions map[string]*checkoutSession
}

func NewCheckoutHandler(deps CheckoutDeps, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		deps:     deps,
		timeout:  timeout,
		sessions: make(map[string]*checkoutSession),
	}
}

type StartCheckoutRequestDTO struct {
	Method   string `json:"method"`
	Currency string `json:"currency"`
}

type CheckoutStatusDTO struct {
	CheckoutID     string `json:"checkout_id"`
	Method         string `json:"method"`
	State          string `json:"state"`
	TakingTooLong  bool   `json:"taking_too_long,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	FailureKind    string `json:"failure_kind,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
	RetryAfterSec  int    `json:"retry_after_seconds,omitempty"`
}

type SubmitProofRequestDTO struct {
	PaymentMethodProof json.RawMessage `json:"payment_method_proof"`
}

func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req StartCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	var adapter gateway.Adapter
	switch req.Method {
	case methodCard:
		adapter = gateway.NewCardAdapter(h.deps.Intents, h.deps.CardSDK)
	case methodWallet:
		adapter = gateway.NewWalletAdapter(h.deps.Wallet, h.deps.WalletSDK)
	default:
		respondError(w, http.StatusBadRequest, "invalid_method", "method must be card or wallet")
		return
	}

	session := &checkoutSession{
		userID:    userID,
		method:    req.Method,
		adapter:   adapter,
		createdAt: time.Now(),
	}

	opts := make([]checkout.Option, 0, 2)
	if h.deps.Recorder != nil {
		opts = append(opts, checkout.WithOutcomeRecorder(h.deps.Recorder))
	}
	if h.deps.SlowThreshold > 0 {
		opts = append(opts, checkout.WithSlowThreshold(h.deps.SlowThreshold, session.markSlow))
	}
	session.orch = checkout.NewOrchestrator(h.deps.Carts, h.deps.Finalizer, adapter, opts...)

	// the attempt outlives this request; a dropped connection must not
	// abort an in-flight charge
	if err := session.orch.Start(context.Background(), userID, req.Currency); err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			respondError(w, http.StatusBadRequest, "empty_cart", "cannot start checkout with an empty cart")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not start checkout")
		return
	}

	checkoutID := "chk_" + uuid.NewString()
	h.mu.Lock()
	h.pruneLocked()
	h.sessions[checkoutID] = session
	h.mu.Unlock()

	respondJSON(w, http.StatusCreated, h.statusDTO(checkoutID, session))
}

func (h *CheckoutHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	session, checkoutID, ok := h.lookup(w, r)
	if !ok {
		return
	}

	submitter, isCard := session.adapter.(proofSubmitter)
	if !isCard {
		respondError(w, http.StatusConflict, "wrong_method", "this checkout does not take a payment proof")
		return
	}

	var req SubmitProofRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	submitter.SubmitProof(ctx, req.PaymentMethodProof)

	respondJSON(w, http.StatusAccepted, h.statusDTO(checkoutID, session))
}

func (h *CheckoutHandler) Approve(w http.ResponseWriter, r *http.Request) {
	session, checkoutID, ok := h.lookup(w, r)
	if !ok {
		return
	}

	walletAdapter, isWallet := session.adapter.(approver)
	if !isWallet {
		respondError(w, http.StatusConflict, "wrong_method", "this checkout does not take a wallet approval")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	walletAdapter.Approved(ctx)

	respondJSON(w, http.StatusAccepted, h.statusDTO(checkoutID, session))
}

func (h *CheckoutHandler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	session, checkoutID, ok := h.lookup(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	session.orch.Cancel(ctx)

	respondJSON(w, http.StatusAccepted, h.statusDTO(checkoutID, session))
}

func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	session, checkoutID, ok := h.lookup(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, h.statusDTO(checkoutID, session))
}

func (h *CheckoutHandler) lookup(w http.ResponseWriter, r *http.Request) (*checkoutSession, string, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return nil, "", false
	}

	checkoutID := chi.URLParam(r, "checkout_id")
	h.mu.Lock()
	session := h.sessions[checkoutID]
	h.mu.Unlock()

	// a session belonging to another user is indistinguishable from a
	// missing one
	if session == nil || session.userID != userID {
		respondError(w, http.StatusNotFound, "checkout_not_found", "no such checkout")
		return nil, "", false
	}
	return session, checkoutID, true
}

func (h *CheckoutHandler) statusDTO(checkoutID string, session *checkoutSession) CheckoutStatusDTO {
	dto := CheckoutStatusDTO{
		CheckoutID:    checkoutID,
		Method:        session.method,
		State:         string(session.orch.State()),
		TakingTooLong: session.isSlow(),
	}

	result, done := session.orch.Result()
	if !done {
		return dto
	}

	dto.OrderID = result.OrderID
	if result.Failure != nil {
		dto.FailureKind = string(result.Failure.Kind)
		dto.FailureMessage = result.Failure.Message
		dto.RetryAfterSec = int(result.Failure.RetryAfter.Seconds())
	}
	if result.Err != nil {
		switch {
		case errors.Is(result.Err, checkout.ErrAmountMismatch):
			dto.FailureKind = "amount_mismatch"
			dto.FailureMessage = "the charged amount did not match your cart total; no order was created"
		case errors.Is(result.Err, order.ErrFinalizationFailed):
			dto.FailureKind = "finalization_failed"
			dto.FailureMessage = "your payment went through but the order could not be recorded; support will reconcile it"
		default:
			dto.FailureKind = "internal_error"
			dto.FailureMessage = "checkout failed unexpectedly"
		}
	}
	return dto
}

// pruneLocked drops terminal sessions past the retention window. The
// caller holds h.mu.
func (h *CheckoutHandler) pruneLocked() {
	cutoff := time.Now().Add(-sessionRetention)
	for id, s := range h.sessions {
		if s.createdAt.Before(cutoff) && s.orch.State().IsTerminal() {
			delete(h.sessions, id)
		}
	}
}
