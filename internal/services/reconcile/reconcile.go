// Package reconcile содержит ядро сверки: превращение одной записи подписки
// биллинг-провайдера в создание или обновление локальной строки.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-sync/internal/billing"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// SubscriptionRepository определяет методы хранилища подписок, нужные сверке.
type SubscriptionRepository interface {
	// FindSubscriptionByCode возвращает подписку по внешнему коду.
	FindSubscriptionByCode(ctx context.Context, code string) (*models.Subscription, error)
	// CreateSubscription вставляет новую подписку и возвращает её ID.
	CreateSubscription(ctx context.Context, entry models.SubscriptionWrite) (int, error)
	// UpdateSubscription обновляет подписку по ID.
	UpdateSubscription(ctx context.Context, id int, entry models.SubscriptionWrite) (int, error)
}

// UserRepository определяет методы хранилища пользователей, нужные резолверу.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	RegisterUser(ctx context.Context, user models.User) (string, error)
	UpdateUserContact(ctx context.Context, uid, firstName, lastName, phone, status string) error
}

// ProductRepository определяет доступ к продуктам.
type ProductRepository interface {
	GetProductByCode(ctx context.Context, code int) (*models.Product, error)
}

// Notifier ставит уведомления в очередь. Сбой уведомления не валит сверку.
type Notifier interface {
	NotifyWelcome(user models.User) error
}

// MissingProductAction — поведение при отсутствии маппинга продукта.
type MissingProductAction int

// ConflictAction — поведение при гонке вставки по уникальному коду.
type ConflictAction int

const (
	// FailOnMissingProduct возвращает ошибку вызывающему.
	FailOnMissingProduct MissingProductAction = iota
	// SkipMissingProduct пропускает одну запись, залогировав её.
	SkipMissingProduct
)

const (
	// RejectDuplicate отдает конфликт вызывающему как ошибку.
	RejectDuplicate ConflictAction = iota
	// AcceptDuplicate перечитывает выигравшую строку и обновляет её.
	AcceptDuplicate
)

// Policy задает поведение сверки в зависимости от вызывающего контекста.
// Живой вебхук должен немедленно показать оператору проблему конфигурации,
// фоновый проход по тысячам пользователей не должен падать из-за одной записи.
type Policy struct {
	MissingProduct MissingProductAction
	Conflict       ConflictAction
}

// WebhookPolicy — политика интерактивного пути: ошибки наружу.
var WebhookPolicy = Policy{MissingProduct: FailOnMissingProduct, Conflict: RejectDuplicate}

// BulkPolicy — политика фоновой сверки: пропуск с логом, конфликт поглощается.
var BulkPolicy = Policy{MissingProduct: SkipMissingProduct, Conflict: AcceptDuplicate}

// Service реализует сверку записей провайдера с локальной таблицей подписок.
type Service struct {
	subs     SubscriptionRepository
	users    UserRepository
	products ProductRepository
	billing  *billing.Client
	notifier Notifier
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(subs SubscriptionRepository, users UserRepository, products ProductRepository,
	billingClient *billing.Client, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		subs:     subs,
		users:    users,
		products: products,
		billing:  billingClient,
		notifier: notifier,
		log:      log,
	}
}

// Reconcile применяет одну запись провайдера к локальной таблице.
// approvedAt — дата одобрения самой свежей покупки подписчика.
//
// Возвращает итоговую подписку либо nil, если запись легитимно пропущена
// по политике. Срок пересчитывается при каждом проходе, даже если остальные
// поля не изменились: свежая покупка (продление плана) сдвигает approvedAt.
func (s *Service) Reconcile(ctx context.Context, rec billing.SubscriptionRecord, approvedAt time.Time, policy Policy) (*models.Subscription, error) {
	const op = "reconcile.Reconcile"
	code := rec.SubscriberCode

	existing, err := s.subs.FindSubscriptionByCode(ctx, code)
	if err != nil && !errors.Is(err, models.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.resolveUser(ctx, rec.Subscriber)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	product, err := s.products.GetProductByCode(ctx, rec.Product.ID)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) && policy.MissingProduct == SkipMissingProduct {
			s.log.Warn("skipping record: product has no local mapping",
				slog.Int("product_code", rec.Product.ID),
				slog.String("subscriber_code", code))
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	write := models.SubscriptionWrite{
		Code:             code,
		UserUID:          user.UID,
		ProductID:        product.ID,
		Course:           product.Course,
		Expiration:       approvedAt.Add(product.ExpirationTime),
		RegistrationDate: time.Now(),
		IsActive:         true,
	}

	if existing != nil {
		// Дата регистрации выставляется один раз и переживает все ресинки.
		write.RegistrationDate = existing.RegistrationDate
		if _, err := s.subs.UpdateSubscription(ctx, existing.ID, write); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s.materialize(existing.ID, write), nil
	}

	id, err := s.subs.CreateSubscription(ctx, write)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateCode) && policy.Conflict == AcceptDuplicate {
			return s.updateAfterConflict(ctx, code, write)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.materialize(id, write), nil
}

// updateAfterConflict обрабатывает проигрыш гонки вставки: параллельная сверка
// уже создала строку с этим кодом, поэтому перечитываем её и обновляем.
func (s *Service) updateAfterConflict(ctx context.Context, code string, write models.SubscriptionWrite) (*models.Subscription, error) {
	const op = "reconcile.updateAfterConflict"

	winner, err := s.subs.FindSubscriptionByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	write.RegistrationDate = winner.RegistrationDate
	if _, err := s.subs.UpdateSubscription(ctx, winner.ID, write); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("absorbed duplicate insert", slog.String("code", code), slog.Int("id", winner.ID))
	return s.materialize(winner.ID, write), nil
}

func (s *Service) materialize(id int, write models.SubscriptionWrite) *models.Subscription {
	code := write.Code
	return &models.Subscription{
		ID:               id,
		Code:             &code,
		UserUID:          write.UserUID,
		ProductID:        write.ProductID,
		Course:           write.Course,
		Expiration:       write.Expiration,
		RegistrationDate: write.RegistrationDate,
		IsActive:         write.IsActive,
	}
}
