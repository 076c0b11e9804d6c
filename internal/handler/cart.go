package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"hoja/internal/catalog"
	"hoja/pkg/logger"
	"hoja/pkg/validator"
)

type CartHandler struct {
	sessions  Sessions
	catalog   *catalog.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewCartHandler(sessions Sessions, catalog *catalog.Service, val *validator.Validator, log logger.Logger) *CartHandler {
	return &CartHandler{sessions: sessions, catalog: catalog, validator: val, logger: log}
}

type addItemRequest struct {
	RestaurantID string `json:"restaurantId" validate:"required,max=64"`
	ItemID       string `json:"itemId" validate:"required,max=64"`
	Quantity     int    `json:"quantity" validate:"omitempty,gte=1,lte=99"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, s.Cart.Snapshot())
}

// AddItem prices the line from the catalog before merging it into the cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}

	var req addItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondJSON(w, h.logger, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": errs,
		})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	line, err := h.catalog.CartLine(r.Context(), req.RestaurantID, req.ItemID, req.Quantity)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	s.Cart.Add(line)

	respondJSON(w, h.logger, http.StatusOK, s.Cart.Snapshot())
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line. The optional
// ?restaurant= query picks between restaurants sharing an item id.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}

	var req updateQuantityRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	s.Cart.UpdateQuantity(r.URL.Query().Get("restaurant"), mux.Vars(r)["itemId"], *req.Quantity)
	respondJSON(w, h.logger, http.StatusOK, s.Cart.Snapshot())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}
	s.Cart.Remove(r.URL.Query().Get("restaurant"), mux.Vars(r)["itemId"])
	respondJSON(w, h.logger, http.StatusOK, s.Cart.Snapshot())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}
	s.Cart.Clear()
	respondJSON(w, h.logger, http.StatusOK, s.Cart.Snapshot())
}
