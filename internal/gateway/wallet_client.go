package gateway

import (
	"context"
	"fmt"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/provider"
	"github.com/shopspring/decimal"
)

// WalletClient talks to the wallet provider's order API. It implements
// WalletProvider; amounts go over the wire as strings so the provider
// sees the exact decimal value.
type WalletClient struct {
	client *provider.Client
}

func NewWalletClient(client *provider.Client) *WalletClient {
	return &WalletClient{client: client}
}

type createOrderRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func (c *WalletClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	var resp createOrderResponse
	err := c.client.PostJSON(ctx, "/v2/orders", createOrderRequest{
		Amount:   amount.StringFixed(2),
		Currency: currency,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("provider returned empty order id")
	}
	return resp.OrderID, nil
}

type captureResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  string `json:"amount"`
}

func (c *WalletClient) Capture(ctx context.Context, orderID string) (*CaptureResult, error) {
	var resp captureResponse
	err := c.client.PostJSON(ctx, fmt.Sprintf("/v2/orders/%s/capture", orderID), struct{}{}, &resp)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(resp.Amount)
	if err != nil {
		return nil, fmt.Errorf("provider returned bad capture amount %q: %w", resp.Amount, err)
	}
	return &CaptureResult{OrderID: resp.OrderID, Status: resp.Status, Amount: amount}, nil
}
