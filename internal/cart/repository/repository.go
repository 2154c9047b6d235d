package repository

import (
	"context"
	"errors"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/domain"
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
// Line merging and total recomputation live in the aggregate, so the
// repository only loads and stores whole carts.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userID string) error
}

var ErrCartNotFound = errors.New("cart not found")
