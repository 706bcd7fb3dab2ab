// Package syncserver предоставляет маршруты для сервиса синхронизации.
package syncserver

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	cancelhandler "github.com/magabrotheeeer/subscription-sync/internal/http/handlers/cancel"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/health"
	reporthandler "github.com/magabrotheeeer/subscription-sync/internal/http/handlers/report"
	"github.com/magabrotheeeer/subscription-sync/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/subscription-sync/internal/http/middlewarectx"
	cancelservice "github.com/magabrotheeeer/subscription-sync/internal/services/cancel"
	notifyservice "github.com/magabrotheeeer/subscription-sync/internal/services/notify"
	reconcileservice "github.com/magabrotheeeer/subscription-sync/internal/services/reconcile"
	reportservice "github.com/magabrotheeeer/subscription-sync/internal/services/report"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage,
	reconciler *reconcileservice.Service, canceler *cancelservice.Service,
	reporter *reportservice.Service, notifier *notifyservice.Service, webhookSecret string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Webhook endpoint (аутентификация по общему секрету в теле)
		r.Post("/billing/webhook", webhook.New(logger, reconciler, canceler, notifier, webhookSecret).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/subscriptions/cancel", cancelhandler.New(logger, canceler).ServeHTTP)
			r.Get("/reports/subscriptions/monthly", reporthandler.New(logger, reporter).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, func() error {
		return repository.CheckDatabaseReady(db)
	}).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
