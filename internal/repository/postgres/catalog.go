package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"hoja/pkg/domain"
	"hoja/pkg/errors"
)

type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const restaurantColumns = `id, name, cuisine, description, address, hours, image, accepts_crypto`

func (r *CatalogRepository) ListRestaurants(ctx context.Context) ([]*domain.Restaurant, error) {
	var restaurants []*domain.Restaurant
	query := `SELECT ` + restaurantColumns + ` FROM restaurants ORDER BY id`
	if err := r.db.SelectContext(ctx, &restaurants, query); err != nil {
		return nil, errors.Wrap(err, "failed to list restaurants")
	}
	return restaurants, nil
}

func (r *CatalogRepository) FindRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	var restaurant domain.Restaurant
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1`
	if err := r.db.GetContext(ctx, &restaurant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrRestaurantNotFound
		}
		return nil, errors.Wrap(err, "failed to find restaurant")
	}
	return &restaurant, nil
}

// MenuItems returns the menu in display order.
func (r *CatalogRepository) MenuItems(ctx context.Context, restaurantID string) ([]domain.MenuItem, error) {
	items := []domain.MenuItem{}
	query := `
		SELECT id, restaurant_id, name, display_price, unit_price_usd, description, position
		FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY position, id
	`
	if err := r.db.SelectContext(ctx, &items, query, restaurantID); err != nil {
		return nil, errors.Wrap(err, "failed to list menu items")
	}
	return items, nil
}
