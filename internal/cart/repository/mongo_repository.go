package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/cart/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

// storedCart mirrors domain.Cart for BSON. Monetary values are kept as
// strings so no precision is lost in the driver's numeric types.
type storedCart struct {
	UserID    string       `bson:"user_id"`
	Items     []storedItem `bson:"items"`
	Discount  string       `bson:"discount"`
	CreatedAt time.Time    `bson:"created_at"`
	UpdatedAt time.Time    `bson:"updated_at"`
}

type storedItem struct {
	ProductID  string            `bson:"product_id"`
	ShopID     string            `bson:"shop_id"`
	Name       string            `bson:"name"`
	UnitPrice  string            `bson:"unit_price"`
	Quantity   int               `bson:"quantity"`
	Attributes map[string]string `bson:"attributes,omitempty"`
	AddedAt    time.Time         `bson:"added_at"`
}

func toStored(cart *domain.Cart) *storedCart {
	items := make([]storedItem, len(cart.Items))
	for i, it := range cart.Items {
		items[i] = storedItem{
			ProductID:  it.ProductID,
			ShopID:     it.ShopID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice.String(),
			Quantity:   it.Quantity,
			Attributes: it.Attributes,
			AddedAt:    it.AddedAt,
		}
	}
	return &storedCart{
		UserID:    cart.UserID,
		Items:     items,
		Discount:  cart.Discount.String(),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
}

func (s *storedCart) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	for _, it := range s.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("bad unit price %q for product %s: %w", it.UnitPrice, it.ProductID, err)
		}
		if err := cart.AddItem(domain.CartItem{
			ProductID:  it.ProductID,
			ShopID:     it.ShopID,
			Name:       it.Name,
			UnitPrice:  price,
			Quantity:   it.Quantity,
			Attributes: it.Attributes,
			AddedAt:    it.AddedAt,
		}); err != nil {
			return nil, fmt.Errorf("bad stored item for product %s: %w", it.ProductID, err)
		}
	}
	if s.Discount != "" {
		discount, err := decimal.NewFromString(s.Discount)
		if err != nil {
			return nil, fmt.Errorf("bad discount %q: %w", s.Discount, err)
		}
		cart.ApplyDiscount(discount)
	}
	return cart, nil
}

func (m MongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var stored storedCart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return stored.toDomain()
}

func (m MongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"user_id": cart.UserID}
	update := bson.M{"$set": toStored(cart)}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m MongoRepository) DeleteCart(ctx context.Context, userID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
