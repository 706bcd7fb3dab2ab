// Package report реализует HTTP-обработчик месячного отчета по активным подпискам.
package report

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-sync/internal/http/response"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// Service описывает интерфейс бизнес-логики отчета.
type Service interface {
	MonthlyActive(ctx context.Context, window models.ReportWindow) ([]models.MonthCount, error)
}

// Handler управляет HTTP-запросами отчета.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Месячный отчет по активным подпискам
// @Description Возвращает количество активных подписок по календарным месяцам окна.
// @Tags Reports
// @Produce  json
// @Param start query string false "Начало окна в формате 2006-01"
// @Param end query string false "Конец окна в формате 2006-01"
// @Success 200 {object} response.Response "Точки отчета, от старых к новым"
// @Failure 400 {object} response.ErrorResponse "Некорректное окно"
// @Failure 500 {object} response.ErrorResponse "Ошибка построения отчета"
// @Router /reports/subscriptions/monthly [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.report"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	window, err := parseWindow(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		log.Error("invalid report window", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid report window"))
		return
	}

	counts, err := h.service.MonthlyActive(r.Context(), window)
	if err != nil {
		log.Error("failed to build report", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build report"))
		return
	}

	render.JSON(w, r, response.OKWithData(counts))
}

// parseWindow разбирает границы окна. Обе границы опциональны:
// пустые значения означают окно по умолчанию (последние 12 месяцев).
func parseWindow(start, end string) (models.ReportWindow, error) {
	var window models.ReportWindow
	if start == "" && end == "" {
		return window, nil
	}
	startTime, err := time.Parse("2006-01", start)
	if err != nil {
		return window, err
	}
	endTime, err := time.Parse("2006-01", end)
	if err != nil {
		return window, err
	}
	window.Start = startTime
	// Конец окна включает весь последний месяц.
	window.End = endTime.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return window, nil
}
