// Package bulksync реализует фоновую массовую сверку: постраничный проход
// по всей локальной базе пользователей с изоляцией сбоев и троттлингом.
package bulksync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/subscription-sync/internal/config"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/metrics"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
	"github.com/magabrotheeeer/subscription-sync/internal/services/reconcile"
)

// UserRepository определяет доступ к пользователям для массовой сверки.
type UserRepository interface {
	// ListSyncCandidates возвращает страницу кандидатов в порядке id.
	ListSyncCandidates(ctx context.Context, limit, offset int) ([]*models.User, error)
	// NormalizeUserRole приводит роль к студенту, не трогая админов и проверяющих.
	NormalizeUserRole(ctx context.Context, uid string) error
}

// Syncer сверяет подписки одного подписчика. Реализуется reconcile.Service.
type Syncer interface {
	SyncByEmail(ctx context.Context, email string, policy reconcile.Policy) ([]*models.Subscription, error)
}

// Stats — итог одного прогона массовой сверки.
type Stats struct {
	Users      int // Обработано пользователей
	Reconciled int // Сверено подписок
	Failed     int // Пользователей завершилось ошибкой
}

// Service выполняет один прогон сверки по всей базе пользователей.
//
// Прогон идемпотентен по внешнему коду подписки, поэтому его безопасно
// перезапускать с начала в любой момент: упавший посреди прогона процесс
// не теряет данных, следующий запуск заново наблюдает то же удаленное
// состояние.
type Service struct {
	users        UserRepository
	syncer       Syncer
	pageSize     int
	pagePause    time.Duration
	errorBackoff time.Duration
	log          *slog.Logger
}

// New создает новый экземпляр Service.
func New(users UserRepository, syncer Syncer, cfg config.Sync, log *slog.Logger) *Service {
	pageSize := cfg.UserPageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Service{
		users:        users,
		syncer:       syncer,
		pageSize:     pageSize,
		pagePause:    cfg.PagePause,
		errorBackoff: cfg.ErrorBackoff,
		log:          log,
	}
}

// Run прогоняет сверку по всем страницам пользователей. Страницы обрабатываются
// строго последовательно, пользователи внутри страницы — параллельно; ширина
// страницы ограничивает одновременные запросы к провайдеру. Отмена контекста
// останавливает прогон между пользователями и внутри пауз.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	const op = "bulksync.Run"
	var stats Stats
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}

		page, err := s.users.ListSyncCandidates(ctx, s.pageSize, offset)
		if err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}
		if len(page) == 0 {
			break
		}
		offset += len(page)
		s.log.Info("processing user page", slog.Int("offset", offset), slog.Int("size", len(page)))

		reconciled := make([]int, len(page))
		failures := make([]error, len(page))

		var wg sync.WaitGroup
		for i, user := range page {
			wg.Add(1)
			go func(i int, user *models.User) {
				defer wg.Done()
				defer func() {
					// Паника одного пользователя не должна ронять весь прогон.
					if r := recover(); r != nil {
						failures[i] = fmt.Errorf("panic: %v", r)
					}
				}()
				reconciled[i], failures[i] = s.syncUser(ctx, user)
			}(i, user)
		}
		wg.Wait()

		for i, user := range page {
			stats.Users++
			stats.Reconciled += reconciled[i]
			if failures[i] == nil {
				continue
			}
			stats.Failed++
			metrics.FailuresTotal.Inc()
			s.log.Error("failed to sync user",
				slog.String("email", user.Email), sl.Err(failures[i]))
			// Неожиданный сбой трактуется как сигнал о том, что провайдер
			// деградировал или ограничивает запросы, а не только как
			// проблема данных.
			if err := sleepCtx(ctx, s.errorBackoff); err != nil {
				return stats, fmt.Errorf("%s: %w", op, err)
			}
		}

		// Пауза между страницами держит длинный прогон под квотами провайдера.
		if err := sleepCtx(ctx, s.pagePause); err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.log.Info("bulk sync finished",
		slog.Int("users", stats.Users),
		slog.Int("reconciled", stats.Reconciled),
		slog.Int("failed", stats.Failed))
	return stats, nil
}

func (s *Service) syncUser(ctx context.Context, user *models.User) (int, error) {
	synced, err := s.syncer.SyncByEmail(ctx, user.Email, reconcile.BulkPolicy)
	if err != nil {
		return 0, err
	}
	if err := s.users.NormalizeUserRole(ctx, user.UID); err != nil {
		return len(synced), err
	}
	return len(synced), nil
}

// sleepCtx спит d, прерываясь по отмене контекста.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
