package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hoja/pkg/logger"
	"hoja/pkg/validator"
)

const (
	eventWriteWait = 10 * time.Second
	eventPingEvery = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware
	},
}

type CheckoutHandler struct {
	sessions  Sessions
	validator *validator.Validator
	logger    logger.Logger
}

func NewCheckoutHandler(sessions Sessions, val *validator.Validator, log logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions, validator: val, logger: log}
}

type payRequest struct {
	Network string `json:"network" validate:"omitempty,slug"`
}

// Pay runs a checkout for the caller's cart and answers once the proof is issued.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}

	var req payRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.Checkout.Pay(r.Context(), req.Network)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, map[string]interface{}{
		"proofId": p.ID,
		"proof":   newProofView(p),
	})
}

func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, s.Checkout.Status())
}

func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}
	if err := s.Checkout.Cancel(r.Context()); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "cancelled"})
}

// Events streams checkout transitions over a websocket, starting with the current state.
func (h *CheckoutHandler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(h.sessions, r)
	if !ok {
		respondError(w, h.logger, http.StatusUnauthorized, "Unknown profile")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	events, unsubscribe := s.Checkout.Subscribe()
	defer unsubscribe()

	// The client never sends anything; reading surfaces its close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Debug("Checkout events subscriber connected", map[string]interface{}{"profile_id": s.ProfileID})

	conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
	if err := conn.WriteJSON(s.Checkout.Status()); err != nil {
		return
	}

	ping := time.NewTicker(eventPingEvery)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Warn("Failed to send checkout event", map[string]interface{}{"error": err.Error()})
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
