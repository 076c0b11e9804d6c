package review

import (
	"context"
	"sort"
	"sync"

	"hoja/pkg/domain"
)

// MemoryRepository keeps reviews for the life of the process.
type MemoryRepository struct {
	mu      sync.RWMutex
	reviews []*domain.Review
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Create(_ context.Context, r *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	m.reviews = append(m.reviews, &cp)
	return nil
}

// ListByRestaurant returns newest first.
func (m *MemoryRepository) ListByRestaurant(_ context.Context, restaurantID string) ([]*domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Review, 0)
	for _, r := range m.reviews {
		if r.RestaurantID == restaurantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) Summary(_ context.Context, restaurantID string) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ratings []int
	for _, r := range m.reviews {
		if r.RestaurantID == restaurantID {
			ratings = append(ratings, r.Rating)
		}
	}
	return Summarize(ratings), nil
}
