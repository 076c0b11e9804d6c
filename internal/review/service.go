// Package review accepts restaurant reviews and gates verified ones behind a proof of purchase.
package review

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hoja/pkg/domain"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

// MaxTextLength bounds review text, in runes.
const MaxTextLength = 2000

type Repository interface {
	Create(ctx context.Context, r *domain.Review) error
	ListByRestaurant(ctx context.Context, restaurantID string) ([]*domain.Review, error)
	Summary(ctx context.Context, restaurantID string) (Summary, error)
}

// Summary is the rating aggregate shown next to a restaurant.
type Summary struct {
	Rating decimal.Decimal `json:"rating"`
	Count  int             `json:"reviewCount"`
}

// Summarize averages ratings to one decimal place.
func Summarize(ratings []int) Summary {
	if len(ratings) == 0 {
		return Summary{Rating: decimal.Zero}
	}
	total := 0
	for _, r := range ratings {
		total += r
	}
	avg := decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(ratings)))).Round(1)
	return Summary{Rating: avg, Count: len(ratings)}
}

// Proofs is the slice of a session's proof store the gate needs.
type Proofs interface {
	Check(id, restaurantID string) (domain.Proof, error)
	Redeem(ctx context.Context, id, restaurantID string, accept func(domain.Proof) error) (domain.Proof, error)
	Unused(restaurantID string) []domain.Proof
}

type Catalog interface {
	Get(ctx context.Context, id string) (*domain.Restaurant, error)
}

// ProofRequiredError is returned when policy demands a proof and none was supplied.
// Unused lists the caller's proofs that could unlock the review.
type ProofRequiredError struct {
	Unused []domain.Proof
}

func (e *ProofRequiredError) Error() string {
	return errors.ErrProofRequired.Error()
}

func (e *ProofRequiredError) Unwrap() error {
	return errors.ErrProofRequired
}

type Service struct {
	repo         Repository
	catalog      Catalog
	requireProof bool
	logger       logger.Logger
	now          func() time.Time
}

func NewService(repo Repository, catalog Catalog, requireProof bool, log logger.Logger) *Service {
	return &Service{
		repo:         repo,
		catalog:      catalog,
		requireProof: requireProof,
		logger:       log,
		now:          time.Now,
	}
}

type SubmitRequest struct {
	RestaurantID string
	ProofID      string
	Rating       int
	Text         string
}

// Gate reports whether proofID can unlock a review of restaurantID. The checks run in a fixed
// order: unknown proof, then wrong restaurant, then already used.
func (s *Service) Gate(proofs Proofs, proofID, restaurantID string) (domain.Proof, error) {
	return proofs.Check(proofID, restaurantID)
}

// Submit validates and stores a review. With a proof id the proof is spent and the review is
// stored as one unit; if storing fails the proof stays unused.
func (s *Service) Submit(ctx context.Context, proofs Proofs, req SubmitRequest) (*domain.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, errors.ErrInvalidRating
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, errors.ErrEmptyReview
	}
	if len([]rune(text)) > MaxTextLength {
		text = string([]rune(text)[:MaxTextLength])
	}

	if _, err := s.catalog.Get(ctx, req.RestaurantID); err != nil {
		return nil, err
	}

	r := &domain.Review{
		ID:           uuid.New(),
		RestaurantID: req.RestaurantID,
		Rating:       req.Rating,
		Text:         text,
		CreatedAt:    s.now().UTC(),
	}

	if req.ProofID == "" {
		if s.requireProof {
			return nil, &ProofRequiredError{Unused: proofs.Unused(req.RestaurantID)}
		}
		if err := s.repo.Create(ctx, r); err != nil {
			return nil, err
		}
		s.logger.Info("Review accepted", map[string]interface{}{
			"review_id":     r.ID,
			"restaurant_id": r.RestaurantID,
			"verified":      false,
		})
		return r, nil
	}

	proofID := req.ProofID
	_, err := proofs.Redeem(ctx, proofID, req.RestaurantID, func(domain.Proof) error {
		r.ProofID = &proofID
		r.Verified = true
		return s.repo.Create(ctx, r)
	})
	if err != nil {
		s.logger.Warn("Review rejected", map[string]interface{}{
			"restaurant_id": req.RestaurantID,
			"proof_id":      proofID,
			"error":         err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Review accepted", map[string]interface{}{
		"review_id":     r.ID,
		"restaurant_id": r.RestaurantID,
		"proof_id":      proofID,
		"verified":      true,
	})
	return r, nil
}

func (s *Service) List(ctx context.Context, restaurantID string) ([]*domain.Review, error) {
	if _, err := s.catalog.Get(ctx, restaurantID); err != nil {
		return nil, err
	}
	return s.repo.ListByRestaurant(ctx, restaurantID)
}

func (s *Service) Summary(ctx context.Context, restaurantID string) (Summary, error) {
	return s.repo.Summary(ctx, restaurantID)
}
