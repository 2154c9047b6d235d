package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateTransaction = errors.New("an order for this transaction already exists")
)

// OutboxEvent is a pending order-completed notification written in the
// same transaction as its order row.
type OutboxEvent struct {
	ID        int64
	Payload   []byte
	CreatedAt time.Time
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order, eventPayload []byte) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*order.Order, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID int64) error
	Close() error
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}
