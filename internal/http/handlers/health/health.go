// Package health реализует проверку живости сервиса и готовности базы данных.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
)

// ReadinessChecker проверяет готовность зависимостей сервиса.
type ReadinessChecker func() error

// Handler отвечает на запросы /health.
type Handler struct {
	log   *slog.Logger
	check ReadinessChecker
}

// New создает новый Handler.
func New(log *slog.Logger, check ReadinessChecker) *Handler {
	return &Handler{log: log, check: check}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	if err := h.check(); err != nil {
		h.log.Error("readiness check failed", slog.String("op", op), sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("not ready"))
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ok",
	}))
}
