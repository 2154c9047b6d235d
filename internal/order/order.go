package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrFinalizationFailed = errors.New("order finalization failed")

type Status string

const (
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
)

type Item struct {
	ProductID string            `json:"product_id"`
	ShopID    string            `json:"shop_id"`
	Name      string            `json:"name"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	Attrs     map[string]string `json:"attributes,omitempty"`
}

// Order is the persisted record of a completed purchase. The
// transaction id ties it back to the provider charge; a unique
// constraint on it keeps one charge from producing two orders.
type Order struct {
	ID            uuid.UUID
	UserID        string
	TransactionID string
	TotalAmount   decimal.Decimal
	Currency      string
	Status        Status
	Items         []Item
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
