// Package models содержит доменные структуры сервиса синхронизации подписок:
// локальную запись подписки, пользователя и продукт, а также типы отчетов.
package models

import "time"

// Subscription — локальная запись подписки, которую сервис держит
// согласованной с внешним биллинг-провайдером.
//
// Code — внешний идентификатор подписки у провайдера. Подписки, созданные
// вручную администратором, кода не имеют, поэтому поле nullable; при наличии
// значение уникально на всю таблицу.
type Subscription struct {
	ID               int       // Локальный идентификатор
	Code             *string   // Внешний код подписки (nil для ручных записей)
	UserUID          string    // Владелец подписки
	ProductID        int       // Внутренний продукт
	Course           string    // Курс, денормализован из продукта при записи
	Expiration       time.Time // Момент, после которого подписка считается истекшей
	RegistrationDate time.Time // Дата первого появления записи, не меняется при ресинках
	IsActive         bool      // Явный флаг активности, независим от Expiration
}

// SubscriptionWrite — данные, записываемые движком сверки при создании
// или обновлении локальной подписки.
type SubscriptionWrite struct {
	Code             string
	UserUID          string
	ProductID        int
	Course           string
	Expiration       time.Time
	RegistrationDate time.Time
	IsActive         bool
}
