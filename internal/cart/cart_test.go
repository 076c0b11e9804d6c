package cart

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoja/pkg/domain"
)

func line(id, name, price string, qty int) domain.CartLine {
	return domain.CartLine{
		ItemID:       id,
		Name:         name,
		UnitPriceUSD: decimal.RequireFromString(price),
		Quantity:     qty,
		RestaurantID: "cool-bistro",
	}
}

func TestAdd_MergesSameItem(t *testing.T) {
	c := New()
	c.Add(line("pizza", "Pizza", "0.02", 1))
	c.Add(line("pizza", "Pizza", "0.02", 3))
	c.Add(line("pizza", "Pizza", "0.02", 2))

	snap := c.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 6, snap.Lines[0].Quantity)
	assert.Equal(t, 6, snap.TotalItems)
	assert.True(t, decimal.RequireFromString("0.12").Equal(snap.TotalPrice), snap.TotalPrice.String())
}

func TestAdd_AppendsInOrder(t *testing.T) {
	c := New()
	c.Add(line("salad", "Salad", "0.03", 1))
	c.Add(line("pizza", "Pizza", "0.02", 1))

	snap := c.Snapshot()
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "salad", snap.Lines[0].ItemID)
	assert.Equal(t, "pizza", snap.Lines[1].ItemID)
}

func TestAdd_SameItemIDAcrossRestaurants(t *testing.T) {
	c := New()
	c.Add(line("1", "Pizza", "0.02", 1))
	ramen := line("1", "Tonkotsu Ramen", "0.04", 1)
	ramen.RestaurantID = "noodle-bar"
	c.Add(ramen)
	c.Add(line("1", "Pizza", "0.02", 1))

	snap := c.Snapshot()
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "Pizza", snap.Lines[0].Name)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	assert.Equal(t, "Tonkotsu Ramen", snap.Lines[1].Name)
	assert.Equal(t, 1, snap.Lines[1].Quantity)
	assert.True(t, decimal.RequireFromString("0.08").Equal(snap.TotalPrice), snap.TotalPrice.String())
	assert.Equal(t, []string{"cool-bistro", "noodle-bar"}, snap.RestaurantIDs())

	assert.True(t, c.UpdateQuantity("noodle-bar", "1", 4))
	c.Remove("cool-bistro", "1")

	snap = c.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "noodle-bar", snap.Lines[0].RestaurantID)
	assert.Equal(t, 4, snap.Lines[0].Quantity)

	assert.False(t, c.UpdateQuantity("cool-bistro", "1", 1))
}

func TestTotals(t *testing.T) {
	c := New()
	c.Add(line("pizza", "Pizza", "0.02", 2))
	c.Add(line("salad", "Salad", "0.03", 1))

	assert.Equal(t, 3, c.TotalItems())
	assert.True(t, decimal.RequireFromString("0.07").Equal(c.TotalPrice()), c.TotalPrice().String())
}

func TestRemove_MissingIsNoop(t *testing.T) {
	c := New()
	c.Add(line("pizza", "Pizza", "0.02", 2))
	before := c.Snapshot()

	c.Remove("", "does-not-exist")

	after := c.Snapshot()
	assert.Equal(t, before.Lines, after.Lines)
	assert.Equal(t, before.TotalItems, after.TotalItems)
	assert.True(t, before.TotalPrice.Equal(after.TotalPrice))
}

func TestRemove(t *testing.T) {
	c := New()
	c.Add(line("pizza", "Pizza", "0.02", 2))
	c.Add(line("salad", "Salad", "0.03", 1))

	c.Remove("cool-bistro", "pizza")

	snap := c.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "salad", snap.Lines[0].ItemID)
	assert.Equal(t, 1, snap.TotalItems)
}

func TestUpdateQuantity(t *testing.T) {
	c := New()
	c.Add(line("pizza", "Pizza", "0.02", 2))

	assert.True(t, c.UpdateQuantity("cool-bistro", "pizza", 5))
	assert.Equal(t, 5, c.TotalItems())

	assert.False(t, c.UpdateQuantity("cool-bistro", "pasta", 1))
	assert.Equal(t, 5, c.TotalItems())
}

func TestUpdateQuantity_NonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		c := New()
		c.Add(line("pizza", "Pizza", "0.02", 2))
		c.Add(line("salad", "Salad", "0.03", 1))

		assert.True(t, c.UpdateQuantity("", "pizza", qty))

		snap := c.Snapshot()
		require.Len(t, snap.Lines, 1)
		assert.Equal(t, "salad", snap.Lines[0].ItemID)
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Add(line("pizza", "Pizza", "0.02", 2))
	c.Clear()

	snap := c.Snapshot()
	assert.True(t, snap.Empty())
	assert.Equal(t, 0, snap.TotalItems)
	assert.True(t, snap.TotalPrice.IsZero())
}

func TestSnapshot_IsIndependent(t *testing.T) {
	c := New()
	c.Add(line("pizza", "Pizza", "0.02", 2))
	snap := c.Snapshot()

	c.Add(line("pizza", "Pizza", "0.02", 1))
	c.Clear()

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
}

func TestSnapshot_RestaurantIDs(t *testing.T) {
	c := New()
	c.Add(line("pizza", "Pizza", "0.02", 1))
	other := line("ramen", "Ramen", "0.05", 1)
	other.RestaurantID = "noodle-bar"
	c.Add(other)
	c.Add(line("salad", "Salad", "0.03", 1))

	assert.Equal(t, []string{"cool-bistro", "noodle-bar"}, c.Snapshot().RestaurantIDs())
}

func TestConcurrentAdds(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(line("pizza", "Pizza", "0.02", 1))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.TotalItems())
}
