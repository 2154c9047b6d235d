package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(productID, shopID string, price string, qty int, attrs map[string]string) CartItem {
	return CartItem{
		ProductID:  productID,
		ShopID:     shopID,
		Name:       "test product",
		UnitPrice:  decimal.RequireFromString(price),
		Quantity:   qty,
		Attributes: attrs,
	}
}

func TestAddItem_ComputesTotal(t *testing.T) {
	cart := NewCart("user-1")

	err := cart.AddItem(item("p1", "shop-1", "19.99", 2, nil))
	require.NoError(t, err)

	assert.Equal(t, "39.98", cart.TotalAmount.StringFixed(2))
	assert.Len(t, cart.Items, 1)
}

func TestAddItem_MergesMatchingLines(t *testing.T) {
	cart := NewCart("user-1")
	attrs := map[string]string{"size": "M", "color": "blue"}

	require.NoError(t, cart.AddItem(item("p1", "shop-1", "10.00", 1, attrs)))
	// same identity, different map ordering must still merge
	require.NoError(t, cart.AddItem(item("p1", "shop-1", "10.00", 2, map[string]string{"color": "blue", "size": "M"})))

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "30.00", cart.TotalAmount.StringFixed(2))
}

func TestAddItem_DifferentAttributesStaySeparate(t *testing.T) {
	cart := NewCart("user-1")

	require.NoError(t, cart.AddItem(item("p1", "shop-1", "10.00", 1, map[string]string{"size": "M"})))
	require.NoError(t, cart.AddItem(item("p1", "shop-1", "10.00", 1, map[string]string{"size": "L"})))

	assert.Len(t, cart.Items, 2)
	assert.Equal(t, "20.00", cart.TotalAmount.StringFixed(2))
}

func TestAddItem_RejectsInvalidQuantity(t *testing.T) {
	cart := NewCart("user-1")

	err := cart.AddItem(item("p1", "shop-1", "10.00", 0, nil))

	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.TotalAmount.IsZero())
}

func TestUpdateItem_ReplacesQuantity(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.AddItem(item("p1", "shop-1", "5.50", 2, nil)))

	err := cart.UpdateItem("p1", "shop-1", nil, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, "27.50", cart.TotalAmount.StringFixed(2))
}

func TestUpdateItem_ZeroRemovesLine(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.AddItem(item("p1", "shop-1", "5.50", 2, nil)))

	err := cart.UpdateItem("p1", "shop-1", nil, 0)
	require.NoError(t, err)

	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.TotalAmount.IsZero())
}

func TestUpdateItem_MissingLine(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.AddItem(item("p1", "shop-1", "5.50", 2, nil)))

	err := cart.UpdateItem("p2", "shop-1", nil, 3)

	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, "11.00", cart.TotalAmount.StringFixed(2))
}

func TestRemoveItem_IsIdempotent(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.AddItem(item("p1", "shop-1", "5.50", 2, nil)))
	before := cart.TotalAmount

	// removing a line that never existed changes nothing
	cart.RemoveItem("p9", "shop-1", nil)
	assert.Len(t, cart.Items, 1)
	assert.True(t, before.Equal(cart.TotalAmount))

	cart.RemoveItem("p1", "shop-1", nil)
	assert.True(t, cart.IsEmpty())

	// and again, still fine
	cart.RemoveItem("p1", "shop-1", nil)
	assert.True(t, cart.IsEmpty())
}

func TestClear_ResetsTotalAndDiscount(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.AddItem(item("p1", "shop-1", "5.50", 2, nil)))
	cart.ApplyDiscount(decimal.RequireFromString("1.00"))

	cart.Clear()

	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.TotalAmount.IsZero())
	assert.True(t, cart.Discount.IsZero())
}

func TestApplyDiscount_AdjustsTotal(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.AddItem(item("p1", "shop-1", "20.00", 1, nil)))

	cart.ApplyDiscount(decimal.RequireFromString("5.00"))
	assert.Equal(t, "15.00", cart.TotalAmount.StringFixed(2))

	// discount larger than the item sum clamps at zero
	cart.ApplyDiscount(decimal.RequireFromString("50.00"))
	assert.True(t, cart.TotalAmount.IsZero())
}

func TestTotalConsistentAfterEveryMutation(t *testing.T) {
	cart := NewCart("user-1")

	check := func() {
		t.Helper()
		sum := decimal.Zero
		for _, it := range cart.Items {
			sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		sum = sum.Sub(cart.Discount)
		if sum.IsNegative() {
			sum = decimal.Zero
		}
		assert.True(t, sum.Equal(cart.TotalAmount),
			"total %s != derived %s", cart.TotalAmount, sum)
	}

	require.NoError(t, cart.AddItem(item("p1", "shop-1", "19.99", 2, nil)))
	check()
	require.NoError(t, cart.AddItem(item("p2", "shop-2", "3.25", 1, map[string]string{"size": "S"})))
	check()
	require.NoError(t, cart.UpdateItem("p1", "shop-1", nil, 1))
	check()
	cart.ApplyDiscount(decimal.RequireFromString("2.00"))
	check()
	cart.RemoveItem("p2", "shop-2", map[string]string{"size": "S"})
	check()
	cart.Clear()
	check()
}

func TestSnapshot_IsACopy(t *testing.T) {
	cart := NewCart("user-1")
	require.NoError(t, cart.AddItem(item("p1", "shop-1", "19.99", 2, nil)))

	snap := cart.Snapshot("USD")
	require.NoError(t, cart.AddItem(item("p2", "shop-1", "1.00", 1, nil)))

	assert.Len(t, snap.Items, 1)
	assert.Equal(t, "39.98", snap.TotalAmount.StringFixed(2))
	assert.Equal(t, "USD", snap.Currency)
	assert.Equal(t, "40.98", cart.TotalAmount.StringFixed(2))
}
