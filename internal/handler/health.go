package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

// HealthHandler reports liveness plus the state of each registered
// dependency.
type HealthHandler struct {
	checks map[string]Check
}

// NewHealthHandler registers named dependency checks.  Nil checks are
// skipped.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	h := &HealthHandler{checks: map[string]Check{}}
	for name, chk := range checks {
		if chk != nil {
			h.checks[name] = chk
		}
	}
	return h
}

type healthResp struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health answers 200 when every check passes and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := healthResp{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, chk := range h.checks {
		if err := chk(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	return c.JSON(status, resp)
}
