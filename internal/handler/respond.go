// Package handler provides the HTTP handlers for the hoja services.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"hoja/internal/middleware"
	"hoja/internal/review"
	"hoja/internal/session"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

// Sessions resolves the per-profile session behind a request.
type Sessions interface {
	Get(ctx context.Context, profileID string) *session.Session
}

// apiError is the body of every error response.
type apiError struct {
	Error        string      `json:"error"`
	Code         string      `json:"code,omitempty"`
	UnusedProofs []proofView `json:"unusedProofs,omitempty"`
}

func respondJSON(w http.ResponseWriter, log logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("json encode failed", map[string]interface{}{"error": err.Error()})
	}
}

func respondError(w http.ResponseWriter, log logger.Logger, status int, message string) {
	respondJSON(w, log, status, apiError{Error: message})
}

// respondServiceError maps a domain error onto a status code and machine-readable code.
func respondServiceError(w http.ResponseWriter, log logger.Logger, err error) {
	var required *review.ProofRequiredError
	if errors.As(err, &required) {
		respondJSON(w, log, http.StatusForbidden, apiError{
			Error:        required.Error(),
			Code:         "proof_required",
			UnusedProofs: proofViews(required.Unused),
		})
		return
	}

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", map[string]interface{}{"error": err.Error()})
		respondJSON(w, log, status, apiError{Error: "Internal server error", Code: code})
		return
	}
	respondJSON(w, log, status, apiError{Error: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errors.ErrInvalidProof):
		return http.StatusUnprocessableEntity, "invalid_proof"
	case errors.Is(err, errors.ErrWrongRestaurant):
		return http.StatusUnprocessableEntity, "wrong_restaurant"
	case errors.Is(err, errors.ErrAlreadyUsed):
		return http.StatusUnprocessableEntity, "already_used"
	case errors.Is(err, errors.ErrInvalidRating):
		return http.StatusUnprocessableEntity, "invalid_rating"
	case errors.Is(err, errors.ErrEmptyReview):
		return http.StatusUnprocessableEntity, "empty_review"
	case errors.Is(err, errors.ErrCartEmpty):
		return http.StatusUnprocessableEntity, "cart_empty"
	case errors.Is(err, errors.ErrUnknownNetwork):
		return http.StatusUnprocessableEntity, "unknown_network"
	case errors.Is(err, errors.ErrMixedRestaurants):
		return http.StatusConflict, "mixed_restaurants"
	case errors.Is(err, errors.ErrCheckoutInFlight):
		return http.StatusConflict, "checkout_in_flight"
	case errors.Is(err, errors.ErrCheckoutCancelled):
		return http.StatusConflict, "checkout_cancelled"
	case errors.Is(err, errors.ErrAlreadyPaid):
		return http.StatusConflict, "already_paid"
	case errors.Is(err, errors.ErrNoCheckout):
		return http.StatusConflict, "no_checkout"
	case errors.Is(err, errors.ErrSessionClosed):
		return http.StatusConflict, "session_closed"
	case errors.Is(err, errors.ErrCheckoutTimeout):
		return http.StatusGatewayTimeout, "checkout_timeout"
	case errors.Is(err, errors.ErrPaymentFailed):
		return http.StatusPaymentRequired, "payment_failed"
	case errors.Is(err, errors.ErrRestaurantNotFound):
		return http.StatusNotFound, "restaurant_not_found"
	case errors.Is(err, errors.ErrMenuItemNotFound):
		return http.StatusNotFound, "menu_item_not_found"
	case errors.Is(err, errors.ErrProofNotFound):
		return http.StatusNotFound, "proof_not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decodeJSON reads a single JSON object, rejecting unknown fields. An empty body is
// allowed when optional is set.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			if optional {
				return nil
			}
			return errors.New("Request body is required")
		}
		return errors.New("Invalid request body")
	}
	return nil
}

// sessionFor returns the caller's session. The profile middleware always sets a profile id.
func sessionFor(sessions Sessions, r *http.Request) (*session.Session, bool) {
	profileID, ok := middleware.ProfileIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return sessions.Get(r.Context(), profileID), true
}
