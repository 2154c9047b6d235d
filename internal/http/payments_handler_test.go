package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/intent"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/provider"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockIntentSvc struct {
	createResult  *intent.PaymentIntent
	createErr     error
	confirmResult *intent.PaymentIntent
	confirmErr    error
	methodID      string
	methodErr     error
	status        intent.Status
	statusErr     error
}

func (m *mockIntentSvc) CreateIntent(_ context.Context, amount decimal.Decimal, currency string) (*intent.PaymentIntent, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.createResult != nil {
		return m.createResult, nil
	}
	return &intent.PaymentIntent{
		ID: "pi_1", Amount: amount, Currency: currency,
		Status: intent.StatusCreated, ClientSecret: "cs_1",
	}, nil
}

func (m *mockIntentSvc) ConfirmIntent(context.Context, string, json.RawMessage) (*intent.PaymentIntent, error) {
	return m.confirmResult, m.confirmErr
}

func (m *mockIntentSvc) CreatePaymentMethod(context.Context, json.RawMessage) (string, error) {
	return m.methodID, m.methodErr
}

func (m *mockIntentSvc) GetIntentStatus(context.Context, string) (intent.Status, error) {
	return m.status, m.statusErr
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestCreateIntent_Success(t *testing.T) {
	h := NewPaymentsHandler(&mockIntentSvc{}, time.Second)

	rec := postJSON(t, h.CreateIntent, "/payments/create-intent",
		`{"amount":"39.98","currency":"USD"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp IntentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pi_1", resp.IntentID)
	assert.Equal(t, "cs_1", resp.ClientSecret)
	assert.Equal(t, "CREATED", resp.Status)
}

func TestCreateIntent_InvalidAmount(t *testing.T) {
	h := NewPaymentsHandler(&mockIntentSvc{createErr: intent.ErrInvalidAmount}, time.Second)

	rec := postJSON(t, h.CreateIntent, "/payments/create-intent",
		`{"amount":"-5.00","currency":"USD"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_amount", resp.Code)
}

func TestCreateIntent_MalformedAmount(t *testing.T) {
	h := NewPaymentsHandler(&mockIntentSvc{}, time.Second)

	rec := postJSON(t, h.CreateIntent, "/payments/create-intent",
		`{"amount":"not-a-number","currency":"USD"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmPayment_Success(t *testing.T) {
	svc := &mockIntentSvc{
		confirmResult: &intent.PaymentIntent{
			ID: "pi_1", Status: intent.StatusConfirmed, TransactionID: "txn_1",
		},
	}
	h := NewPaymentsHandler(svc, time.Second)

	rec := postJSON(t, h.ConfirmPayment, "/payments/confirm-payment",
		`{"intent_id":"pi_1","payment_method_proof":{"token":"tok_1"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp IntentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIRMED", resp.Status)
	assert.Equal(t, "txn_1", resp.TransactionID)
}

func TestConfirmPayment_AlreadyFinalized(t *testing.T) {
	h := NewPaymentsHandler(&mockIntentSvc{confirmErr: intent.ErrIntentAlreadyFinalized}, time.Second)

	rec := postJSON(t, h.ConfirmPayment, "/payments/confirm-payment",
		`{"intent_id":"pi_1","payment_method_proof":{}}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "intent_already_finalized", resp.Code)
}

func TestConfirmPayment_Declined(t *testing.T) {
	svc := &mockIntentSvc{
		confirmResult: &intent.PaymentIntent{
			ID: "pi_1", Status: intent.StatusFailed, FailureReason: "insufficient funds",
		},
	}
	h := NewPaymentsHandler(svc, time.Second)

	rec := postJSON(t, h.ConfirmPayment, "/payments/confirm-payment",
		`{"intent_id":"pi_1","payment_method_proof":{}}`)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	var resp IntentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "FAILED", resp.Status)
	assert.Equal(t, "insufficient funds", resp.FailureReason)
}

func TestConfirmPayment_NotFound(t *testing.T) {
	h := NewPaymentsHandler(&mockIntentSvc{confirmErr: intent.ErrIntentNotFound}, time.Second)

	rec := postJSON(t, h.ConfirmPayment, "/payments/confirm-payment",
		`{"intent_id":"pi_missing","payment_method_proof":{}}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmPayment_ProviderRateLimited(t *testing.T) {
	h := NewPaymentsHandler(&mockIntentSvc{
		confirmErr: &provider.RateLimitedError{RetryAfter: 45 * time.Second},
	}, time.Second)

	rec := postJSON(t, h.ConfirmPayment, "/payments/confirm-payment",
		`{"intent_id":"pi_1","payment_method_proof":{}}`)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "45", rec.Header().Get("Retry-After"))
}

func TestCreatePaymentMethod_Success(t *testing.T) {
	h := NewPaymentsHandler(&mockIntentSvc{methodID: "pm_1"}, time.Second)

	rec := postJSON(t, h.CreatePaymentMethod, "/payments/create-payment-method",
		`{"card_details":{"number":"4242424242424242"}}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pm_1", resp["payment_method_id"])
}

func TestGetIntent_Status(t *testing.T) {
	h := NewPaymentsHandler(&mockIntentSvc{status: intent.StatusConfirmed}, time.Second)

	r := chi.NewRouter()
	r.Get("/payments/intents/{intent_id}", h.GetIntent)

	req := httptest.NewRequest(http.MethodGet, "/payments/intents/pi_1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp IntentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pi_1", resp.IntentID)
	assert.Equal(t, "CONFIRMED", resp.Status)
}

func TestGetIntent_NotFound(t *testing.T) {
	h := NewPaymentsHandler(&mockIntentSvc{statusErr: intent.ErrIntentNotFound}, time.Second)

	r := chi.NewRouter()
	r.Get("/payments/intents/{intent_id}", h.GetIntent)

	req := httptest.NewRequest(http.MethodGet, "/payments/intents/pi_missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
