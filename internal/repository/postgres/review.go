package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"hoja/internal/review"
	"hoja/pkg/domain"
	"hoja/pkg/errors"
)

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, rev *domain.Review) error {
	query := `
		INSERT INTO reviews (id, restaurant_id, rating, text, proof_id, verified, created_at)
		VALUES (:id, :restaurant_id, :rating, :text, :proof_id, :verified, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, rev); err != nil {
		return errors.Wrap(err, "failed to create review")
	}
	return nil
}

// ListByRestaurant returns newest first.
func (r *ReviewRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]*domain.Review, error) {
	reviews := []*domain.Review{}
	query := `
		SELECT id, restaurant_id, rating, text, proof_id, verified, created_at
		FROM reviews
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &reviews, query, restaurantID); err != nil {
		return nil, errors.Wrap(err, "failed to list reviews")
	}
	return reviews, nil
}

func (r *ReviewRepository) Summary(ctx context.Context, restaurantID string) (review.Summary, error) {
	var row struct {
		Average decimal.Decimal `db:"average"`
		Count   int             `db:"count"`
	}
	query := `
		SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count
		FROM reviews
		WHERE restaurant_id = $1
	`
	if err := r.db.GetContext(ctx, &row, query, restaurantID); err != nil {
		return review.Summary{}, errors.Wrap(err, "failed to summarize reviews")
	}
	return review.Summary{Rating: row.Average.Round(1), Count: row.Count}, nil
}
