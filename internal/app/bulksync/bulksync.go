// Package bulksync собирает приложение фоновой массовой сверки.
package bulksync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-sync/internal/billing"
	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/rabbitmq"
	bulksyncservice "github.com/magabrotheeeer/subscription-sync/internal/services/bulksync"
	notifyservice "github.com/magabrotheeeer/subscription-sync/internal/services/notify"
	reconcileservice "github.com/magabrotheeeer/subscription-sync/internal/services/reconcile"
	"github.com/magabrotheeeer/subscription-sync/internal/storage/repository"
)

// App представляет приложение массовой сверки.
type App struct {
	syncService *bulksyncservice.Service
	db          *repository.Storage
	conn        *amqp.Connection
	ch          *amqp.Channel
	logger      *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения массовой сверки.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitConnection, 5, 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	billingClient := billing.NewClient(cfg.Billing)
	notifier := notifyservice.New(ch, logger)
	reconciler := reconcileservice.New(db, db, db, billingClient, notifier, logger)
	syncService := bulksyncservice.New(db, reconciler, cfg.Sync, logger)

	return &App{
		syncService: syncService,
		db:          db,
		conn:        conn,
		ch:          ch,
		logger:      logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run выполняет один полный прогон сверки и освобождает ресурсы.
func (a *App) Run(ctx context.Context) error {
	stats, err := a.syncService.Run(ctx)

	a.logger.Info("bulk sync run completed",
		slog.Int("users", stats.Users),
		slog.Int("reconciled", stats.Reconciled),
		slog.Int("failed", stats.Failed))

	closeResources(a.ch, a.conn, a.logger)
	if closeErr := a.db.DB.Close(); closeErr != nil {
		a.logger.Error("failed to close storage", "error", closeErr)
	}
	return err
}
