package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Очереди уведомлений: приветственные письма для новых пользователей
// и алерты оператору о сбоях синхронизации.
const (
	Exchange     = "notifications"
	WelcomeQueue = "notifications.welcome"
	WelcomeKey   = "welcome"
	SupportQueue = "notifications.support"
	SupportKey   = "support"
)

// SetupChannel открывает канал и объявляет exchange с очередями уведомлений.
func SetupChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}
	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bindings := []struct {
		queue string
		key   string
	}{
		{WelcomeQueue, WelcomeKey},
		{SupportQueue, SupportKey},
	}
	for _, b := range bindings {
		_, err = ch.QueueDeclare(
			b.queue,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, b.queue, err)
		}
		if err = ch.QueueBind(b.queue, b.key, Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s: %w", op, b.queue, err)
		}
	}
	return ch, nil
}
