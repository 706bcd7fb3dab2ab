package billing

import "context"

// Pager — ленивый обход листинга подписок провайдера, страница за страницей.
//
// Каждый обход аутентифицируется ровно один раз, при первом вызове Next;
// полученный токен используется для всех страниц этого обхода. Протухший
// токен на очень долгом обходе — забота вызывающего, пейджер его не обновляет.
// Любая ошибка HTTP завершает обход и возвращается вызывающему: молчаливое
// обрезание последовательности рассинхронизировало бы сверку с реальностью.
type Pager struct {
	client   *Client
	filter   Filter
	token    string
	cursor   string
	started  bool
	finished bool
}

// Subscriptions возвращает новый обход подписок по фильтру.
// Каждый вызов начинает обход с первой страницы.
func (c *Client) Subscriptions(filter Filter) *Pager {
	return &Pager{client: c, filter: filter}
}

// More сообщает, остались ли непрочитанные страницы.
func (p *Pager) More() bool {
	return !p.finished
}

// Next возвращает очередную страницу записей. Страница может быть пустой
// при непустом курсоре — обход продолжается, пока провайдер возвращает курсор.
func (p *Pager) Next(ctx context.Context) ([]SubscriptionRecord, error) {
	if p.finished {
		return nil, nil
	}
	if !p.started {
		token, err := p.client.Authenticate(ctx)
		if err != nil {
			p.finished = true
			return nil, err
		}
		p.token = token
		p.started = true
	}

	page, err := p.client.ListSubscriptions(ctx, p.token, p.filter, p.cursor)
	if err != nil {
		p.finished = true
		return nil, err
	}

	p.cursor = page.PageInfo.NextPageToken
	if p.cursor == "" {
		p.finished = true
	}
	return page.Items, nil
}

// Token возвращает bearer-токен текущего обхода. Пустая строка до первого Next.
// Нужен вызывающему для дополнительных запросов в рамках того же обхода,
// например истории покупок.
func (p *Pager) Token() string {
	return p.token
}

// Collect вычитывает обход целиком. Удобно там, где ленивость не нужна.
func Collect(ctx context.Context, p *Pager) ([]SubscriptionRecord, error) {
	var all []SubscriptionRecord
	for p.More() {
		items, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}
