package catalog

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"hoja/pkg/domain"
	"hoja/pkg/errors"
)

// MemoryRepository is a fixed catalog held in memory.
type MemoryRepository struct {
	restaurants []domain.Restaurant
	menus       map[string][]domain.MenuItem
}

func NewMemoryRepository(restaurants []domain.Restaurant) *MemoryRepository {
	m := &MemoryRepository{menus: make(map[string][]domain.MenuItem)}
	for _, r := range restaurants {
		menu := append([]domain.MenuItem(nil), r.Menu...)
		for i := range menu {
			menu[i].RestaurantID = r.ID
			menu[i].Position = i
		}
		r.Menu = nil
		m.restaurants = append(m.restaurants, r)
		m.menus[r.ID] = menu
	}
	sort.SliceStable(m.restaurants, func(i, j int) bool { return m.restaurants[i].ID < m.restaurants[j].ID })
	return m
}

func (m *MemoryRepository) ListRestaurants(context.Context) ([]*domain.Restaurant, error) {
	out := make([]*domain.Restaurant, 0, len(m.restaurants))
	for _, r := range m.restaurants {
		cp := r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryRepository) FindRestaurant(_ context.Context, id string) (*domain.Restaurant, error) {
	for _, r := range m.restaurants {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, errors.ErrRestaurantNotFound
}

func (m *MemoryRepository) MenuItems(_ context.Context, restaurantID string) ([]domain.MenuItem, error) {
	return append([]domain.MenuItem(nil), m.menus[restaurantID]...), nil
}

func item(id, name, price, description string) domain.MenuItem {
	return domain.MenuItem{
		ID:           id,
		Name:         name,
		DisplayPrice: price + " USD",
		UnitPriceUSD: decimal.RequireFromString(price),
		Description:  description,
	}
}

// Seed is the demo catalog used when no database is configured.
func Seed() []domain.Restaurant {
	return []domain.Restaurant{
		{
			ID:            "1",
			Name:          "Cool Bistro",
			Cuisine:       "Italian",
			Description:   "A modern restaurant specializing in Italian cuisine with a crypto twist. We source all our ingredients locally and accept various cryptocurrencies for payment.",
			Address:       "ZhongXiao E. Street, Taipei City",
			Hours:         "9:00 AM - 10:00 PM",
			Image:         "/images/italia.png",
			AcceptsCrypto: true,
			Menu: []domain.MenuItem{
				item("1", "Pizza", "0.02", "Margherita pizza with fresh basil and mozzarella"),
				item("2", "Pasta", "0.02", "Homemade pasta with truffle sauce"),
				item("3", "Salad", "0.03", "Fresh greens with balsamic vinaigrette"),
				item("4", "Tiramisu", "0.03", "Classic Italian dessert with a modern twist"),
			},
		},
		{
			ID:            "2",
			Name:          "Satoshi's Kitchen",
			Cuisine:       "Japanese",
			Description:   "Small plates and ramen, paid for on-chain.",
			Address:       "Daan District, Taipei City",
			Hours:         "11:00 AM - 9:00 PM",
			Image:         "/images/satoshi.png",
			AcceptsCrypto: true,
			Menu: []domain.MenuItem{
				item("1", "Tonkotsu Ramen", "0.04", "Pork bone broth with chashu and soft egg"),
				item("2", "Gyoza", "0.02", "Pan-fried dumplings"),
			},
		},
		{
			ID:            "3",
			Name:          "Web3 Diner",
			Cuisine:       "American",
			Description:   "Burgers and shakes for the late-night crowd.",
			Address:       "Xinyi District, Taipei City",
			Hours:         "5:00 PM - 2:00 AM",
			Image:         "/images/diner.png",
			AcceptsCrypto: true,
			Menu: []domain.MenuItem{
				item("1", "Cheeseburger", "0.03", "Double patty with cheddar"),
				item("2", "Milkshake", "0.01", "Vanilla or chocolate"),
			},
		},
	}
}
