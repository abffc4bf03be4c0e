package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	service string
	ping    Pinger
}

func NewHealthHandler(service string, ping Pinger) *HealthHandler {
	return &HealthHandler{service: service, ping: ping}
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, db, code := "ok", "connected", http.StatusOK
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("Health check failed")
			status, db, code = "degraded", "disconnected", http.StatusServiceUnavailable
		}
	}

	return c.JSON(code, map[string]interface{}{
		"status":  status,
		"service": h.service,
		"db":      db,
		"time":    time.Now().Format(time.RFC3339),
	})
}
