package models

import "errors"

// Ошибки уровня домена. Слои выше различают их через errors.Is:
// недостающий продукт в вебхуке — ошибка запроса, в фоновой сверке — пропуск записи.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrDuplicateCode — вставка подписки с уже существующим внешним кодом.
	ErrDuplicateCode = errors.New("subscription code already exists")

	// ErrCodeConflict — по одному внешнему коду найдено больше одной строки.
	// Нарушение целостности данных, никогда не гасится.
	ErrCodeConflict = errors.New("multiple subscriptions share one code")
)
