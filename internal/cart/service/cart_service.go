package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/cache"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/domain"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var ErrDiscountNotFound = errors.New("discount code not recognized")

// DiscountResolver is the external collaborator that turns a discount
// code into an absolute amount off the cart total.
type DiscountResolver interface {
	Resolve(ctx context.Context, code string, total decimal.Decimal) (decimal.Decimal, error)
}

type CartService struct {
	repo      repository.CartRepository
	cache     cache.CartCache
	discounts DiscountResolver
	sfg       singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, discounts DiscountResolver) *CartService {
	return &CartService{
		repo:      repo,
		cache:     cache,
		discounts: discounts,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) {
			return domain.NewCart(userID), nil // no cart yet, start empty
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, cart); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem runs the merge-or-append rule on the aggregate, then stores
// the whole cart back.
func (s *CartService) AddItem(ctx context.Context, userID string, item domain.CartItem) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		return cart.AddItem(item)
	})
}

func (s *CartService) UpdateItem(ctx context.Context, userID, productID, shopID string, attributes map[string]string, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		return cart.UpdateItem(productID, shopID, attributes, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID, shopID string, attributes map[string]string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.RemoveItem(productID, shopID, attributes)
		return nil
	})
}

// ApplyDiscount resolves the code through the collaborator and folds
// the result into the cart total. The discounted total is what a later
// checkout snapshot sees.
func (s *CartService) ApplyDiscount(ctx context.Context, userID, code string) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	amount, err := s.discounts.Resolve(ctx, code, cart.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("resolve discount %q: %w", code, err)
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.ApplyDiscount(amount)
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	errDelete := s.repo.DeleteCart(ctx, userID)
	if errDelete != nil && !errors.Is(errDelete, repository.ErrCartNotFound) {
		log.Printf("repo delete cart error: %v", errDelete)
		return errDelete
	}

	s.invalidateCache(userID)
	return nil
}

// Snapshot reads the cart once and returns an immutable copy for the
// checkout flow. Later cart edits in another tab do not affect it.
func (s *CartService) Snapshot(ctx context.Context, userID, currency string) (domain.Snapshot, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return cart.Snapshot(currency), nil
}

func (s *CartService) mutate(ctx context.Context, userID string, apply func(*domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrCartNotFound) {
			return nil, err
		}
		cart = domain.NewCart(userID)
	}

	if err := apply(cart); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		log.Printf("repo upsert cart error: %v", err)
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
