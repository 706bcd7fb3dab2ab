// Package cancel реализует обратный путь сверки: деактивацию локальных
// подписок, которые провайдер числит отмененными.
package cancel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscription-sync/internal/billing"
	"github.com/magabrotheeeer/subscription-sync/internal/metrics"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// SubscriptionRepository определяет метод деактивации подписки.
type SubscriptionRepository interface {
	// DeactivateSubscriptionByCode возвращает изменённую строку или nil,
	// если подписка не найдена или уже неактивна.
	DeactivateSubscriptionByCode(ctx context.Context, code string) (*models.Subscription, error)
}

// Service помечает локальные подписки неактивными по отменам у провайдера.
type Service struct {
	repo    SubscriptionRepository
	billing *billing.Client
	log     *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo SubscriptionRepository, billingClient *billing.Client, log *slog.Logger) *Service {
	return &Service{repo: repo, billing: billingClient, log: log}
}

// CancelByEmail обходит отмененные у провайдера подписки подписчика
// и помечает соответствующие локальные строки неактивными. Строки никогда
// не удаляются. Возвращает фактически изменённые подписки: повторный проход
// по тем же отменам возвращает пустой список без ошибки.
func (s *Service) CancelByEmail(ctx context.Context, email string) ([]*models.Subscription, error) {
	const op = "cancel.CancelByEmail"

	pager := s.billing.Subscriptions(billing.Filter{
		SubscriberEmail: email,
		Statuses:        billing.CancellationStatuses,
	})

	var changed []*models.Subscription
	for pager.More() {
		records, err := pager.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, rec := range records {
			sub, err := s.repo.DeactivateSubscriptionByCode(ctx, rec.SubscriberCode)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if sub == nil {
				// Провайдер сообщает об отменах и для подписок,
				// которые локально никогда не создавались.
				continue
			}
			metrics.CancellationsTotal.Inc()
			changed = append(changed, sub)
		}
	}

	s.log.Info("cancellation sweep finished",
		slog.String("email", email), slog.Int("deactivated", len(changed)))
	return changed, nil
}
