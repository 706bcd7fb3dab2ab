// Package metrics объявляет счетчики Prometheus для исходов синхронизации.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconciledTotal — количество успешно сверенных подписок.
	ReconciledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_reconciled_total",
		Help: "Number of remote subscription records reconciled into local rows.",
	})

	// SkippedTotal — записи, пропущенные фоновой сверкой (например, продукт без маппинга).
	SkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_skipped_total",
		Help: "Number of remote subscription records skipped during bulk sync.",
	})

	// FailuresTotal — ошибки на границе пользователя в фоновой сверке.
	FailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_failures_total",
		Help: "Number of per-user failures during bulk sync.",
	})

	// CancellationsTotal — локальные подписки, деактивированные по отмене у провайдера.
	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_cancellations_total",
		Help: "Number of local subscriptions deactivated after remote cancellation.",
	})
)
