package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/provider"
)

// CardClient talks to the card processor's HTTP API. It implements
// CardProvider; the intent service never sees the wire format.
type CardClient struct {
	client *provider.Client
}

func NewCardClient(client *provider.Client) *CardClient {
	return &CardClient{client: client}
}

type createPaymentMethodRequest struct {
	Card json.RawMessage `json:"card"`
}

type createPaymentMethodResponse struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (c *CardClient) CreatePaymentMethod(ctx context.Context, cardDetails json.RawMessage) (string, error) {
	var resp createPaymentMethodResponse
	err := c.client.PostJSON(ctx, "/v1/payment_methods", createPaymentMethodRequest{Card: cardDetails}, &resp)
	if err != nil {
		return "", err
	}
	if resp.PaymentMethodID == "" {
		return "", fmt.Errorf("provider returned empty payment method id")
	}
	return resp.PaymentMethodID, nil
}

type confirmRequest struct {
	IntentID     string          `json:"intent_id"`
	ClientSecret string          `json:"client_secret"`
	Proof        json.RawMessage `json:"payment_method_proof"`
}

type confirmResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	DeclineReason string `json:"decline_reason"`
}

func (c *CardClient) Confirm(ctx context.Context, intentID, clientSecret string, proof json.RawMessage) (*ConfirmResult, error) {
	var resp confirmResponse
	err := c.client.PostJSON(ctx, "/v1/confirm", confirmRequest{
		IntentID:     intentID,
		ClientSecret: clientSecret,
		Proof:        proof,
	}, &resp)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case "succeeded":
		return &ConfirmResult{Outcome: OutcomeSucceeded, TransactionID: resp.TransactionID}, nil
	case "requires_action":
		return &ConfirmResult{Outcome: OutcomeRequiresAction}, nil
	case "declined":
		return &ConfirmResult{Outcome: OutcomeDeclined, DeclineReason: resp.DeclineReason}, nil
	default:
		return nil, fmt.Errorf("provider returned unknown confirm status %q", resp.Status)
	}
}

type captureRequest struct {
	TransactionID string `json:"transaction_id"`
}

func (c *CardClient) Capture(ctx context.Context, transactionID string) error {
	return c.client.PostJSON(ctx, "/v1/capture", captureRequest{TransactionID: transactionID}, nil)
}
