package handler

import (
	"context"
	"net/http"
	"time"

	"hoja/pkg/logger"
)

// Check reports whether one dependency is ready.
type Check func(ctx context.Context) error

type SystemHandler struct {
	checks    map[string]Check
	logger    logger.Logger
	startTime time.Time
}

func NewSystemHandler(checks map[string]Check, log logger.Logger) *SystemHandler {
	return &SystemHandler{checks: checks, logger: log, startTime: time.Now()}
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Ready reports 503 when any dependency check fails.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Readiness check failed", map[string]interface{}{
				"dependency": name,
				"error":      err.Error(),
			})
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	respondJSON(w, h.logger, status, map[string]interface{}{
		"status": state,
		"checks": results,
	})
}
