// Package report строит месячные отчеты по активным подпискам.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-sync/internal/lib/month"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// SubscriptionRepository отдает рабочий набор подписок одним запросом.
type SubscriptionRepository interface {
	ListSubscriptionsForReport(ctx context.Context) ([]*models.Subscription, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// Service считает помесячные количества активных подписок.
type Service struct {
	repo  SubscriptionRepository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service. Кеш опционален.
func New(repo SubscriptionRepository, cache Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

// MonthlyActive разбивает окно на календарные месяцы и для каждого считает
// подписки, зарегистрированные не позже этого месяца и еще не истекшие к нему.
// Нулевое окно означает последние 12 месяцев. Рабочий набор загружается один
// раз и фильтруется в памяти на каждый месяц, а не отдельным запросом.
func (s *Service) MonthlyActive(ctx context.Context, window models.ReportWindow) ([]models.MonthCount, error) {
	const op = "report.MonthlyActive"

	if window.Start.IsZero() || window.End.IsZero() {
		now := time.Now()
		window = models.ReportWindow{
			Start: month.Start(now.AddDate(0, -11, 0)),
			End:   now,
		}
	}

	cacheKey := fmt.Sprintf("report:monthly:%s:%s",
		window.Start.Format("2006-01"), window.End.Format("2006-01"))
	if s.cache != nil {
		var cached []models.MonthCount
		found, err := s.cache.Get(cacheKey, &cached)
		if err != nil {
			s.log.Warn("failed to read report cache", slog.String("key", cacheKey), sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	subs, err := s.repo.ListSubscriptionsForReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	buckets := month.Buckets(window.Start, window.End)
	result := make([]models.MonthCount, 0, len(buckets))
	for _, bucket := range buckets {
		nextMonth := bucket.AddDate(0, 1, 0)
		count := 0
		for _, sub := range subs {
			if !sub.IsActive {
				continue
			}
			if sub.RegistrationDate.Before(nextMonth) && sub.Expiration.After(bucket) {
				count++
			}
		}
		result = append(result, models.MonthCount{Key: month.Key(bucket), Value: count})
	}

	if s.cache != nil {
		if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
			s.log.Warn("failed to cache report", slog.String("key", cacheKey), sl.Err(err))
		}
	}
	return result, nil
}
