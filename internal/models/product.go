package models

import "time"

// Product — внутренний продукт, на который ссылается подписка.
// Code — идентификатор продукта у биллинг-провайдера. ExpirationTime
// прибавляется к дате одобрения покупки при вычислении срока подписки.
type Product struct {
	ID             int
	Code           int
	Course         string
	ExpirationTime time.Duration
}
