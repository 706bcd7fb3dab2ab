package models

import "time"

// Роли пользователей. Кандидатами на синхронизацию подписок являются только
// студенты и учетные записи с неизвестной ролью.
const (
	RoleStudent   = "student"
	RoleCorrector = "corrector"
	RoleAdmin     = "admin"
)

// Статусы учетной записи.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// User представляет учетную запись локального пользователя.
// Email — натуральный ключ, по которому резолвер связывает удаленного
// подписчика с локальной записью.
type User struct {
	UID          string
	Email        string
	FirstName    string
	LastName     string
	Phone        string // Только цифры, локальный код + номер
	PasswordHash string
	Role         string
	Status       string
	LastModified time.Time
}
