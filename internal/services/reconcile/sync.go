package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-sync/internal/billing"
	"github.com/magabrotheeeer/subscription-sync/internal/metrics"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// SyncByEmail сверяет все активные подписки подписчика у провайдера
// с локальной таблицей. Общий путь для вебхука и фоновой сверки —
// различие только в политике, поэтому оба пути сходятся к одному итогу.
func (s *Service) SyncByEmail(ctx context.Context, email string, policy Policy) ([]*models.Subscription, error) {
	const op = "reconcile.SyncByEmail"

	pager := s.billing.Subscriptions(billing.Filter{
		SubscriberEmail: email,
		Statuses:        []string{billing.StatusActive},
	})

	var synced []*models.Subscription
	for pager.More() {
		records, err := pager.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, rec := range records {
			approvedAt, ok, err := s.latestApproval(ctx, pager.Token(), rec.SubscriberCode)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if !ok {
				if policy.MissingProduct == FailOnMissingProduct {
					return nil, fmt.Errorf("%s: subscriber %s has no purchase history", op, rec.SubscriberCode)
				}
				s.log.Warn("skipping record: no purchase history",
					slog.String("subscriber_code", rec.SubscriberCode))
				metrics.SkippedTotal.Inc()
				continue
			}

			sub, err := s.Reconcile(ctx, rec, approvedAt, policy)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if sub == nil {
				metrics.SkippedTotal.Inc()
				continue
			}
			metrics.ReconciledTotal.Inc()
			synced = append(synced, sub)
		}
	}
	return synced, nil
}

// latestApproval возвращает дату одобрения самой свежей покупки подписчика.
// История упорядочена от старых к новым, берется последний элемент.
func (s *Service) latestApproval(ctx context.Context, token, subscriberCode string) (time.Time, bool, error) {
	purchases, err := s.billing.ListPurchases(ctx, token, subscriberCode)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(purchases) == 0 {
		return time.Time{}, false, nil
	}
	last := purchases[len(purchases)-1]
	return time.UnixMilli(last.ApprovedDate), true, nil
}
