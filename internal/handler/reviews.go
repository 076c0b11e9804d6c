package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"hoja/internal/review"
	"hoja/pkg/logger"
	"hoja/pkg/validator"
)

type ReviewHandler struct {
	sessions  Sessions
	service   *review.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewReviewHandler(sessions Sessions, service *review.Service, val *validator.Validator, log logger.Logger) *ReviewHandler {
	return &ReviewHandler{sessions: sessions, service: service, validator: val, logger: log}
}

type submitReviewRequest struct {
	ProofID string `json:"proofId" validate:"omitempty,max=64"`
	Rating  int    `json:"rating"`
	Text    string `json:"text" validate:"max=20000"`
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID := mux.Vars(r)["id"]
	reviews, err := h.service.List(r.Context(), restaurantID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), restaurantID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"reviews":     reviews,
		"rating":      summary.Rating,
		"reviewCount": summary.Count,
	})
}

// Submit accepts a review. With a proofId the proof is redeemed and the review is verified.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}

	var req submitReviewRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Submit(r.Context(), s.Proofs, review.SubmitRequest{
		RestaurantID: mux.Vars(r)["id"],
		ProofID:      req.ProofID,
		Rating:       req.Rating,
		Text:         req.Text,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, created)
}
