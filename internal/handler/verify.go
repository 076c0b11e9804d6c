package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"hoja/internal/verification"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

// VerifyHandler is the identity-verification callback: POST submits a proof, GET reports
// whether an address has passed.
type VerifyHandler struct {
	service *verification.Service
	logger  logger.Logger
}

func NewVerifyHandler(service *verification.Service, log logger.Logger) *VerifyHandler {
	return &VerifyHandler{service: service, logger: log}
}

type verifyRequest struct {
	Proof         *verification.Groth16Proof `json:"proof"`
	PublicSignals []string                   `json:"publicSignals"`
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.verify(w, r)
	case http.MethodGet:
		h.status(w, r)
	default:
		respondJSON(w, h.logger, http.StatusMethodNotAllowed, map[string]string{"message": "Method not allowed"})
	}
}

func (h *VerifyHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.internalError(w, err)
		return
	}
	if req.Proof == nil || len(req.PublicSignals) == 0 {
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]string{"message": "Proof and publicSignals are required"})
		return
	}

	address, err := h.service.Verify(r.Context(), req.Proof, req.PublicSignals)
	switch {
	case err == nil:
		respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
			"status":            "success",
			"result":            true,
			"credentialSubject": map[string]interface{}{},
			"address":           address,
		})
	case errors.Is(err, errors.ErrContractCallFailed), errors.Is(err, errors.ErrVerificationRejected):
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"result":  false,
			"message": "Verification failed or date of birth not disclosed",
			"details": map[string]interface{}{},
		})
	default:
		h.internalError(w, err)
	}
}

func (h *VerifyHandler) internalError(w http.ResponseWriter, err error) {
	h.logger.Error("Error verifying proof", map[string]interface{}{"error": err.Error()})
	respondJSON(w, h.logger, http.StatusInternalServerError, map[string]interface{}{
		"status":  "error",
		"message": "Error verifying proof",
		"result":  false,
		"error":   err.Error(),
	})
}

func (h *VerifyHandler) status(w http.ResponseWriter, r *http.Request) {
	address := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("user")))
	if address == "" {
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]string{"message": "Missing user address"})
		return
	}

	verified, err := h.service.Status(r.Context(), address)
	if err != nil {
		h.logger.Error("Failed to read verification status", map[string]interface{}{
			"address": address,
			"error":   err.Error(),
		})
		verified = false
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]bool{"verified": verified})
}
