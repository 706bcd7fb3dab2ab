// Package cancel реализует HTTP-обработчик ручного запуска отмены подписок
// одного подписчика по данным провайдера.
package cancel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// Service описывает интерфейс бизнес-логики отмены подписок.
type Service interface {
	CancelByEmail(ctx context.Context, email string) ([]*models.Subscription, error)
}

// Request — тело запроса на отмену.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Handler управляет HTTP-запросами на отмену подписок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отменить подписки подписчика
// @Description Деактивирует локальные подписки, отмененные у провайдера.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body Request true "Email подписчика"
// @Success 200 {object} response.Response "Количество деактивированных подписок"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 500 {object} response.ErrorResponse "Ошибка отмены"
// @Router /subscriptions/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	changed, err := h.service.CancelByEmail(r.Context(), req.Email)
	if err != nil {
		log.Error("failed to cancel subscriptions", slog.String("email", req.Email), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not cancel subscriptions"))
		return
	}

	codes := make([]string, 0, len(changed))
	for _, sub := range changed {
		if sub.Code != nil {
			codes = append(codes, *sub.Code)
		}
	}

	log.Info("cancellations applied", slog.Int("count", len(changed)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"deactivated": len(changed),
		"codes":       codes,
	}))
}
