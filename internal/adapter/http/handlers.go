package http

import (
	"context"
	"net/http"
	"time"

	"finagent/internal/dto"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

type Handler struct{ checks map[string]Pinger }

func NewHandler(checks map[string]Pinger) *Handler { return &Handler{checks: checks} }

type healthDTO struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) Health(c echo.Context) error {
	out := healthDTO{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339Nano)}
	code := http.StatusOK
	if len(h.checks) > 0 {
		out.Checks = make(map[string]string, len(h.checks))
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		for name, ping := range h.checks {
			if err := ping(ctx); err != nil {
				out.Checks[name] = "down"
				out.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			out.Checks[name] = "up"
		}
	}
	env := dto.OK(out)
	env.Success = code == http.StatusOK
	return c.JSON(code, env)
}
