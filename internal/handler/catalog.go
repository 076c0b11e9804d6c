package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"hoja/internal/catalog"
	"hoja/internal/payment"
	"hoja/pkg/logger"
)

// CatalogHandler serves restaurants, menus and payment networks.
type CatalogHandler struct {
	service *catalog.Service
	logger  logger.Logger
}

func NewCatalogHandler(service *catalog.Service, log logger.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, logger: log}
}

func (h *CatalogHandler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.service.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"restaurants": restaurants,
	})
}

func (h *CatalogHandler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, restaurant)
}

func (h *CatalogHandler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"networks": payment.Networks(),
		"default":  payment.DefaultNetwork,
	})
}
