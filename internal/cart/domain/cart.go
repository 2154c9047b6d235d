package domain

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrItemNotFound    = errors.New("cart item not found")
)

// CartItem is one line in a cart. Two lines are the same line when
// ProductID, ShopID and Attributes all match; Attributes carry variant
// data (size, color) so otherwise-identical products stay distinct lines.
type CartItem struct {
	ProductID  string            `json:"product_id"`
	ShopID     string            `json:"shop_id"`
	Name       string            `json:"name"`
	UnitPrice  decimal.Decimal   `json:"unit_price"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`
	AddedAt    time.Time         `json:"added_at"`
}

// LineKey serializes line identity with attribute keys sorted, so
// comparison does not depend on map iteration order.
func (i CartItem) LineKey() string {
	keys := make([]string, 0, len(i.Attributes))
	for k := range i.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(i.ProductID)
	b.WriteByte('|')
	b.WriteString(i.ShopID)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(i.Attributes[k])
	}
	return b.String()
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is owned by exactly one user. TotalAmount is derived from the
// current item set (minus any applied discount) and is recomputed on
// every mutation, never patched incrementally.
type Cart struct {
	UserID      string          `json:"user_id"`
	Items       []CartItem      `json:"items"`
	Discount    decimal.Decimal `json:"discount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func NewCart(userID string) *Cart {
	now := time.Now()
	return &Cart{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem merges into an existing line when the identity matches,
// otherwise appends a new line.
func (c *Cart) AddItem(item CartItem) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}

	key := item.LineKey()
	merged := false
	for idx := range c.Items {
		if c.Items[idx].LineKey() == key {
			c.Items[idx].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, item)
	}

	c.recompute()
	return nil
}

// UpdateItem replaces the quantity of the matching line. A new quantity
// of zero removes the line.
func (c *Cart) UpdateItem(productID, shopID string, attributes map[string]string, newQuantity int) error {
	if newQuantity < 0 {
		return ErrInvalidQuantity
	}

	key := lineKey(productID, shopID, attributes)
	for idx := range c.Items {
		if c.Items[idx].LineKey() != key {
			continue
		}
		if newQuantity == 0 {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		} else {
			c.Items[idx].Quantity = newQuantity
		}
		c.recompute()
		return nil
	}
	return ErrItemNotFound
}

// RemoveItem deletes the matching line. Removing an absent line is a
// successful no-op, so retried deletes stay safe.
func (c *Cart) RemoveItem(productID, shopID string, attributes map[string]string) {
	key := lineKey(productID, shopID, attributes)
	for idx := range c.Items {
		if c.Items[idx].LineKey() == key {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			c.recompute()
			return
		}
	}
}

func (c *Cart) Clear() {
	c.Items = nil
	c.Discount = decimal.Zero
	c.recompute()
}

// ApplyDiscount records an absolute reduction of the cart total. The
// resolved amount comes from the discount collaborator, not from a code
// lookup here.
func (c *Cart) ApplyDiscount(amount decimal.Decimal) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	c.Discount = amount
	c.recompute()
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// recompute rebuilds TotalAmount from the item set. The total is
// clamped at zero when a discount exceeds the item sum.
func (c *Cart) recompute() {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.Subtotal())
	}
	sum = sum.Sub(c.Discount)
	if sum.IsNegative() {
		sum = decimal.Zero
	}
	c.TotalAmount = sum
	c.UpdatedAt = time.Now()
}

func lineKey(productID, shopID string, attributes map[string]string) string {
	return CartItem{ProductID: productID, ShopID: shopID, Attributes: attributes}.LineKey()
}

// Snapshot captures the full cart state at checkout time. The checkout
// flow charges against this copy; later cart edits do not leak in.
type Snapshot struct {
	UserID      string          `json:"user_id"`
	Items       []CartItem      `json:"items"`
	Discount    decimal.Decimal `json:"discount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	CapturedAt  time.Time       `json:"captured_at"`
}

func (c *Cart) Snapshot(currency string) Snapshot {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Snapshot{
		UserID:      c.UserID,
		Items:       items,
		Discount:    c.Discount,
		TotalAmount: c.TotalAmount,
		Currency:    currency,
		CapturedAt:  time.Now(),
	}
}
