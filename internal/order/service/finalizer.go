package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	cart "github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/domain"
	order "github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Finalizer turns a successful payment outcome into a persisted order.
// Payment is never re-attempted here; a failure is surfaced to the
// caller as order.ErrFinalizationFailed.
type Finalizer struct {
	repo repository.OrderRepository
}

func NewFinalizer(repo repository.OrderRepository) *Finalizer {
	return &Finalizer{repo: repo}
}

func (f *Finalizer) Finalize(ctx context.Context, snapshot cart.Snapshot, transactionID string, amountCharged decimal.Decimal) (string, error) {
	items := make([]order.Item, len(snapshot.Items))
	for i, it := range snapshot.Items {
		items[i] = order.Item{
			ProductID: it.ProductID,
			ShopID:    it.ShopID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Attrs:     it.Attributes,
		}
	}

	o := &order.Order{
		ID:            uuid.New(),
		UserID:        snapshot.UserID,
		TransactionID: transactionID,
		TotalAmount:   amountCharged,
		Currency:      snapshot.Currency,
		Status:        order.StatusConfirmed,
		Items:         items,
	}

	payload, err := json.Marshal(map[string]any{
		"order_id":       o.ID,
		"user_id":        o.UserID,
		"transaction_id": o.TransactionID,
		"items":          o.Items,
		"total_amount":   o.TotalAmount,
		"currency":       o.Currency,
		"completed_at":   time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal event payload: %v", order.ErrFinalizationFailed, err)
	}

	if err := f.repo.CreateOrder(ctx, o, payload); err != nil {
		if errors.Is(err, repository.ErrDuplicateTransaction) {
			log.Printf("duplicate finalize for transaction %s, order already exists", transactionID)
		}
		return "", fmt.Errorf("%w: %v", order.ErrFinalizationFailed, err)
	}

	return o.ID.String(), nil
}
