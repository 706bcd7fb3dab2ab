// Package syncserver собирает HTTP-сервис синхронизации подписок.
package syncserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-sync/internal/billing"
	"github.com/magabrotheeeer/subscription-sync/internal/cache"
	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/migrations"
	"github.com/magabrotheeeer/subscription-sync/internal/rabbitmq"
	cancelservice "github.com/magabrotheeeer/subscription-sync/internal/services/cancel"
	notifyservice "github.com/magabrotheeeer/subscription-sync/internal/services/notify"
	reconcileservice "github.com/magabrotheeeer/subscription-sync/internal/services/reconcile"
	reportservice "github.com/magabrotheeeer/subscription-sync/internal/services/report"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

// App хранит все зависимости HTTP-сервиса.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	rabbitCh *amqp.Channel
	rabbit   *amqp.Connection
}

// New подключает хранилище, кэш и брокер, прогоняет миграции и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitConn, err := rabbitmq.Connect(cfg.RabbitConnection, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}
	rabbitCh, err := rabbitmq.SetupChannel(rabbitConn)
	if err != nil {
		return nil, err
	}

	billingClient := billing.NewClient(cfg.Billing)
	notifier := notifyservice.New(rabbitCh, logger)

	reconciler := reconcileservice.New(db, db, db, billingClient, notifier, logger)
	canceler := cancelservice.New(db, billingClient, logger)
	reporter := reportservice.New(db, cacheRedis, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, reconciler, canceler, reporter, notifier, cfg.HTTPServer.WebhookSecret)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		rabbitCh: rabbitCh,
		rabbit:   rabbitConn,
	}, nil
}

// Run запускает сервер и ждет либо его ошибки, либо отмены контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.rabbitCh.Close()
		a.rabbit.Close()
		a.db.DB.Close()
		return err
	}
}
