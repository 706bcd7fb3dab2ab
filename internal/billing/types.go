package billing

// Статусы подписки у провайдера.
const (
	StatusActive  = "ACTIVE"
	StatusStarted = "STARTED"

	StatusCancelledByCustomer = "CANCELLED_BY_CUSTOMER"
	StatusCancelledBySeller   = "CANCELLED_BY_SELLER"
	StatusCancelledByAdmin    = "CANCELLED_BY_ADMIN"
	StatusInactive            = "INACTIVE"
)

// CancellationStatuses — семейство статусов, по которым локальная подписка
// помечается неактивной.
var CancellationStatuses = []string{
	StatusCancelledByCustomer,
	StatusCancelledBySeller,
	StatusCancelledByAdmin,
	StatusInactive,
}

// SubscriptionRecord — запись подписки в том виде, в каком ее отдает провайдер.
type SubscriptionRecord struct {
	SubscriberCode string     `json:"subscriber_code"`
	SubscriptionID int64      `json:"subscription_id"`
	Status         string     `json:"status"`
	Trial          bool       `json:"trial"`
	Plan           Plan       `json:"plan"`
	Product        ProductRef `json:"product"`
	Subscriber     Subscriber `json:"subscriber"`
}

// Plan — тарифный план подписки у провайдера.
type Plan struct {
	Name string `json:"name"`
}

// ProductRef — ссылка на продукт провайдера внутри записи подписки.
type ProductRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Subscriber — данные подписчика из записи провайдера.
type Subscriber struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone Phone  `json:"phone"`
}

// Phone — телефон подписчика: локальный код и номер раздельно.
type Phone struct {
	LocalCode string `json:"local_code"`
	Number    string `json:"number"`
}

// Purchase — запись истории покупок подписчика. ApprovedDate — epoch в миллисекундах.
type Purchase struct {
	ApprovedDate int64  `json:"approved_date"`
	Status       string `json:"status"`
}

// PageInfo несет курсор продолжения. Пустой токен означает последнюю страницу.
type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
}

// SubscriptionPage — одна страница ответа листинга подписок.
type SubscriptionPage struct {
	Items    []SubscriptionRecord `json:"items"`
	PageInfo PageInfo             `json:"page_info"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Filter — параметры листинга подписок у провайдера.
type Filter struct {
	SubscriberEmail string
	Statuses        []string
	ProductID       int
}
