// Package cart implements the in-memory shopping cart of a single browser session.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"hoja/pkg/domain"
)

// Cart holds ordered lines keyed by restaurant and item id. Totals are always derived from the lines.
type Cart struct {
	mu    sync.RWMutex
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{}
}

// Snapshot is an immutable view of the cart at one instant.
type Snapshot struct {
	Lines      []domain.CartLine `json:"items"`
	TotalItems int               `json:"totalItems"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
}

// Empty reports whether the snapshot has no lines.
func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// RestaurantIDs lists the distinct restaurants in the snapshot, in line order.
func (s Snapshot) RestaurantIDs() []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, l := range s.Lines {
		if _, ok := seen[l.RestaurantID]; ok {
			continue
		}
		seen[l.RestaurantID] = struct{}{}
		ids = append(ids, l.RestaurantID)
	}
	return ids
}

// Add merges the line into an existing line for the same restaurant and item id, or appends
// it. Item ids are only unique within one restaurant's menu. Quantity is trusted to be positive.
func (c *Cart) Add(line domain.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(line.RestaurantID, line.ItemID); i >= 0 {
		c.lines[i].Quantity += line.Quantity
		return
	}
	c.lines = append(c.lines, line)
}

// Remove drops the line for itemID at restaurantID. An empty restaurantID selects the first
// line with that item id. Absent lines are a no-op.
func (c *Cart) Remove(restaurantID, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(restaurantID, itemID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// UpdateQuantity sets the quantity of the line Remove would select. A quantity of zero or
// less removes the line. It reports whether the line existed.
func (c *Cart) UpdateQuantity(restaurantID, itemID string, quantity int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(restaurantID, itemID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity = quantity
	}
	return true
}

func (c *Cart) indexLocked(restaurantID, itemID string) int {
	for i, l := range c.lines {
		if l.ItemID != itemID {
			continue
		}
		if restaurantID == "" || l.RestaurantID == restaurantID {
			return i
		}
	}
	return -1
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

func (c *Cart) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lines := make([]domain.CartLine, len(c.lines))
	copy(lines, c.lines)

	return Snapshot{
		Lines:      lines,
		TotalItems: totalItems(lines),
		TotalPrice: totalPrice(lines),
	}
}

func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return totalItems(c.lines)
}

func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return totalPrice(c.lines)
}

func totalItems(lines []domain.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func totalPrice(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
