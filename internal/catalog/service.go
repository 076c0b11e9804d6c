// Package catalog serves restaurants, their menus, and their rating summaries.
package catalog

import (
	"context"

	"hoja/internal/review"
	"hoja/pkg/domain"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

type Repository interface {
	ListRestaurants(ctx context.Context) ([]*domain.Restaurant, error)
	FindRestaurant(ctx context.Context, id string) (*domain.Restaurant, error)
	MenuItems(ctx context.Context, restaurantID string) ([]domain.MenuItem, error)
}

type Ratings interface {
	Summary(ctx context.Context, restaurantID string) (review.Summary, error)
}

type Service struct {
	repo    Repository
	ratings Ratings
	logger  logger.Logger
}

func NewService(repo Repository, ratings Ratings, log logger.Logger) *Service {
	return &Service{repo: repo, ratings: ratings, logger: log}
}

// List returns every restaurant with its rating summary, without menus.
func (s *Service) List(ctx context.Context) ([]*domain.Restaurant, error) {
	restaurants, err := s.repo.ListRestaurants(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range restaurants {
		s.rate(ctx, r)
	}
	return restaurants, nil
}

// Get returns one restaurant with its menu and rating summary.
func (s *Service) Get(ctx context.Context, id string) (*domain.Restaurant, error) {
	r, err := s.repo.FindRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	menu, err := s.repo.MenuItems(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Menu = menu
	s.rate(ctx, r)
	return r, nil
}

func (s *Service) rate(ctx context.Context, r *domain.Restaurant) {
	if s.ratings == nil {
		return
	}
	summary, err := s.ratings.Summary(ctx, r.ID)
	if err != nil {
		s.logger.Warn("Failed to load rating summary", map[string]interface{}{
			"restaurant_id": r.ID,
			"error":         err.Error(),
		})
		return
	}
	r.Rating = summary.Rating
	r.ReviewCount = summary.Count
}

// MenuItem looks up one item on a restaurant's menu.
func (s *Service) MenuItem(ctx context.Context, restaurantID, itemID string) (domain.MenuItem, error) {
	if _, err := s.repo.FindRestaurant(ctx, restaurantID); err != nil {
		return domain.MenuItem{}, err
	}
	items, err := s.repo.MenuItems(ctx, restaurantID)
	if err != nil {
		return domain.MenuItem{}, err
	}
	for _, item := range items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return domain.MenuItem{}, errors.ErrMenuItemNotFound
}

// CartLine prices quantity units of a menu item from the catalog.
func (s *Service) CartLine(ctx context.Context, restaurantID, itemID string, quantity int) (domain.CartLine, error) {
	item, err := s.MenuItem(ctx, restaurantID, itemID)
	if err != nil {
		return domain.CartLine{}, err
	}
	return domain.CartLine{
		ItemID:       item.ID,
		Name:         item.Name,
		UnitPriceUSD: item.UnitPriceUSD,
		Quantity:     quantity,
		RestaurantID: restaurantID,
	}, nil
}
