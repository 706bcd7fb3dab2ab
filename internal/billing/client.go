// Package billing реализует HTTP-клиент биллинг-провайдера: получение
// bearer-токена по client credentials, постраничный листинг подписок
// и историю покупок подписчика.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subscription-sync/internal/config"
)

// Client инкапсулирует доступ к API провайдера. Все исходящие запросы
// проходят через общий rate-лимитер, чтобы не упираться в квоты провайдера.
type Client struct {
	tokenURL     string
	apiURL       string
	clientID     string
	clientSecret string
	maxResults   int
	limiter      *rate.Limiter
	httpClient   *http.Client
}

// NewClient создает новый клиент провайдера из конфигурации.
func NewClient(cfg config.Billing) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	return &Client{
		tokenURL:     cfg.TokenURL,
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		maxResults:   maxResults,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Authenticate получает свежий bearer-токен по client credentials.
// Токен не кешируется: каждый обход страниц аутентифицируется заново.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	const op = "billing.Authenticate"

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token tokenResponse
	if err := c.do(ctx, req, &token); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%s: empty access token in response", op)
	}
	return token.AccessToken, nil
}

// ListSubscriptions возвращает одну страницу подписок по фильтру.
// Пустой pageToken запрашивает первую страницу.
func (c *Client) ListSubscriptions(ctx context.Context, token string, filter Filter, pageToken string) (*SubscriptionPage, error) {
	const op = "billing.ListSubscriptions"

	query := url.Values{}
	query.Set("max_results", strconv.Itoa(c.maxResults))
	if filter.SubscriberEmail != "" {
		query.Set("subscriber_email", filter.SubscriberEmail)
	}
	for _, status := range filter.Statuses {
		query.Add("status", status)
	}
	if filter.ProductID != 0 {
		query.Set("product_id", strconv.Itoa(filter.ProductID))
	}
	if pageToken != "" {
		query.Set("page_token", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"/subscriptions?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var page SubscriptionPage
	if err := c.do(ctx, req, &page); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &page, nil
}

// ListPurchases возвращает историю покупок подписчика. Последний элемент —
// самая свежая покупка, ее approved_date используется при вычислении срока.
func (c *Client) ListPurchases(ctx context.Context, token, subscriberCode string) ([]Purchase, error) {
	const op = "billing.ListPurchases"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"/subscriptions/"+url.PathEscape(subscriberCode)+"/purchases", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var purchases []Purchase
	if err := c.do(ctx, req, &purchases); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return purchases, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return err
	}
	return nil
}
