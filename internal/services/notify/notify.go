// Package notify ставит уведомления в очередь RabbitMQ: приветственные письма
// новым пользователям и алерты оператору о сбоях синхронизации.
package notify

import (
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	librabbitmq "github.com/magabrotheeeer/subscription-sync/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
	"github.com/magabrotheeeer/subscription-sync/internal/rabbitmq"
)

// WelcomeMessage — сообщение очереди welcome для письма-приглашения.
type WelcomeMessage struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

// SupportAlert — сообщение очереди support: сырая ошибка и полезная нагрузка,
// чтобы проблема конфигурации (например, продукт без маппинга) не потерялась.
type SupportAlert struct {
	Subject    string    `json:"subject"`
	Error      string    `json:"error"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Service публикует уведомления в exchange notifications.
type Service struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// New создает новый экземпляр Service.
func New(ch *amqp.Channel, log *slog.Logger) *Service {
	return &Service{ch: ch, log: log}
}

// NotifyWelcome ставит в очередь письмо-приглашение для нового пользователя.
func (s *Service) NotifyWelcome(user models.User) error {
	return librabbitmq.PublishMessage(s.ch, rabbitmq.Exchange, rabbitmq.WelcomeKey, WelcomeMessage{
		Email:     user.Email,
		FirstName: user.FirstName,
	})
}

// NotifySupport ставит в очередь алерт оператору.
func (s *Service) NotifySupport(subject string, payload any, cause error) error {
	return librabbitmq.PublishMessage(s.ch, rabbitmq.Exchange, rabbitmq.SupportKey, SupportAlert{
		Subject:    subject,
		Error:      cause.Error(),
		Payload:    payload,
		OccurredAt: time.Now(),
	})
}
