// Package webhook реализует входящий вебхук биллинг-провайдера.
//
// Handler принимает подписанный JSON с данными покупателя и статусом подписки,
// валидирует его и запускает сверку (или отмену) для этого подписчика.
// Интерактивный путь работает в режиме жесткого отказа: продукт без маппинга —
// ошибка запроса, а не тихий пропуск, чтобы оператор заметил проблему сразу.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-sync/internal/billing"
	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
	"github.com/magabrotheeeer/subscription-sync/internal/services/reconcile"
)

// SyncService описывает интерактивную сверку подписчика.
type SyncService interface {
	SyncByEmail(ctx context.Context, email string, policy reconcile.Policy) ([]*models.Subscription, error)
}

// CancelService описывает деактивацию по отменам провайдера.
type CancelService interface {
	CancelByEmail(ctx context.Context, email string) ([]*models.Subscription, error)
}

// SupportNotifier ставит в очередь алерт оператору.
type SupportNotifier interface {
	NotifySupport(subject string, payload any, cause error) error
}

// Payload — тело вебхука провайдера. Token — общий секрет.
type Payload struct {
	Token          string `json:"hottok" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name" validate:"required"`
	PhoneLocalCode string `json:"phone_local_code"`
	PhoneNumber    string `json:"phone_number"`
	ProductCode    int    `json:"prod" validate:"required"`
	Status         string `json:"status" validate:"required"`
}

// Handler управляет HTTP-запросами вебхука провайдера.
type Handler struct {
	log      *slog.Logger
	syncer   SyncService
	canceler CancelService
	notifier SupportNotifier
	secret   string
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, syncer SyncService, canceler CancelService,
	notifier SupportNotifier, secret string) *Handler {
	return &Handler{
		log:      log,
		syncer:   syncer,
		canceler: canceler,
		notifier: notifier,
		secret:   secret,
		validate: validator.New(),
	}
}

type subscriptionView struct {
	ID         int       `json:"id"`
	Code       string    `json:"code"`
	Course     string    `json:"course"`
	Expiration time.Time `json:"expiration"`
	Active     bool      `json:"active"`
}

// ServeHTTP godoc
// @Summary Вебхук биллинг-провайдера
// @Description Принимает событие подписки и сверяет (или отменяет) её локально.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Payload true "Событие провайдера"
// @Success 200 {object} response.Response "Сверка выполнена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный секрет"
// @Failure 404 {object} response.ErrorResponse "Продукт без маппинга"
// @Failure 500 {object} response.ErrorResponse "Ошибка сверки"
// @Router /billing/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Payload
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

	if req.Token != h.secret {
		log.Error("invalid webhook token")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if isCancellation(req.Status) {
		h.handleCancellation(w, r, log, req)
		return
	}

	subs, err := h.syncer.SyncByEmail(r.Context(), req.Email, reconcile.WebhookPolicy)
	if err != nil {
		h.alertSupport(log, "webhook sync failed", req, err)
		if errors.Is(err, models.ErrProductNotFound) {
			log.Error("product has no local mapping", sl.Err(err))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("Produto não encontrado"))
			return
		}
		log.Error("failed to sync subscriber", slog.String("email", req.Email), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not sync subscriber"))
		return
	}

	log.Info("webhook processed", slog.String("email", req.Email), slog.Int("synced", len(subs)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"synced":        len(subs),
		"subscriptions": toViews(subs),
	}))
}

func (h *Handler) handleCancellation(w http.ResponseWriter, r *http.Request, log *slog.Logger, req Payload) {
	changed, err := h.canceler.CancelByEmail(r.Context(), req.Email)
	if err != nil {
		h.alertSupport(log, "webhook cancellation failed", req, err)
		log.Error("failed to cancel subscriber", slog.String("email", req.Email), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not cancel subscriber"))
		return
	}

	log.Info("cancellations applied", slog.String("email", req.Email), slog.Int("count", len(changed)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"deactivated":   len(changed),
		"subscriptions": toViews(changed),
	}))
}

func (h *Handler) alertSupport(log *slog.Logger, subject string, payload Payload, cause error) {
	// Секрет не должен утекать в письмо оператору.
	payload.Token = ""
	if err := h.notifier.NotifySupport(subject, payload, cause); err != nil {
		log.Error("failed to queue support alert", sl.Err(err))
	}
}

func isCancellation(status string) bool {
	status = strings.ToUpper(status)
	for _, s := range billing.CancellationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func toViews(subs []*models.Subscription) []subscriptionView {
	views := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		code := ""
		if sub.Code != nil {
			code = *sub.Code
		}
		views = append(views, subscriptionView{
			ID:         sub.ID,
			Code:       code,
			Course:     sub.Course,
			Expiration: sub.Expiration,
			Active:     sub.IsActive,
		})
	}
	return views
}
