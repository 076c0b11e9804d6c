package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"hoja/internal/review"
	"hoja/pkg/domain"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

// proofView is a proof as shown to its owner. Unused proofs carry the link that opens
// the review form with the proof preselected.
type proofView struct {
	domain.Proof
	ReviewLink string `json:"reviewLink,omitempty"`
}

func newProofView(p domain.Proof) proofView {
	v := proofView{Proof: p}
	if !p.Used {
		v.ReviewLink = fmt.Sprintf("/restaurants/%s?proof=%s", url.PathEscape(p.RestaurantID), url.QueryEscape(p.ID))
	}
	return v
}

func proofViews(proofs []domain.Proof) []proofView {
	out := make([]proofView, 0, len(proofs))
	for _, p := range proofs {
		out = append(out, newProofView(p))
	}
	return out
}

type ProofHandler struct {
	sessions Sessions
	reviews  *review.Service
	logger   logger.Logger
}

func NewProofHandler(sessions Sessions, reviews *review.Service, log logger.Logger) *ProofHandler {
	return &ProofHandler{sessions: sessions, reviews: reviews, logger: log}
}

func (h *ProofHandler) ListProofs(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"proofs": proofViews(s.Proofs.All()),
	})
}

func (h *ProofHandler) GetProof(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}
	p, found := s.Proofs.Get(mux.Vars(r)["id"])
	if !found {
		respondServiceError(w, h.logger, errors.ErrProofNotFound)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, newProofView(p))
}

// ListByRestaurant lists the caller's proofs for one restaurant; ?unused=true keeps only
// those that can still unlock a review.
func (h *ProofHandler) ListByRestaurant(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}
	restaurantID := mux.Vars(r)["id"]

	proofs := s.Proofs.ByRestaurant(restaurantID)
	if r.URL.Query().Get("unused") == "true" {
		proofs = s.Proofs.Unused(restaurantID)
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"proofs": proofViews(proofs),
	})
}

// Check runs the review gate for a proof against ?restaurant=.
func (h *ProofHandler) Check(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}
	restaurantID := r.URL.Query().Get("restaurant")
	if restaurantID == "" {
		respondError(w, h.logger, http.StatusBadRequest, "restaurant query parameter is required")
		return
	}

	p, err := h.reviews.Gate(s.Proofs, mux.Vars(r)["id"], restaurantID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"valid": true,
		"proof": newProofView(p),
	})
}
