package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// FindSubscriptionByCode возвращает локальную подписку по внешнему коду.
// Ноль строк — models.ErrSubscriptionNotFound; больше одной строки —
// models.ErrCodeConflict, такое состояние чинится руками, а не кодом.
func (s *Storage) FindSubscriptionByCode(ctx context.Context, code string) (*models.Subscription, error) {
	const op = "storage.FindSubscriptionByCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, user_uid, product_id, course, expiration, registration_date, is_active
			  FROM subscriptions
			  WHERE code = $1`
	rows, err := s.DB.QueryContext(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var item models.Subscription
		if err := rows.Scan(&item.ID, &item.Code, &item.UserUID, &item.ProductID,
			&item.Course, &item.Expiration, &item.RegistrationDate, &item.IsActive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch len(result) {
	case 0:
		return nil, fmt.Errorf("%s: %w", op, models.ErrSubscriptionNotFound)
	case 1:
		return result[0], nil
	default:
		return nil, fmt.Errorf("%s: code %s: %w", op, code, models.ErrCodeConflict)
	}
}

// CreateSubscription вставляет новую подписку и возвращает её ID.
// Конфликт по уникальному коду превращается в models.ErrDuplicateCode:
// гонку двух параллельных сверок разрешает ограничение в базе,
// а не блокировки в приложении.
func (s *Storage) CreateSubscription(ctx context.Context, entry models.SubscriptionWrite) (int, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (code, user_uid, product_id, course, expiration,
			      registration_date, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (code) DO NOTHING
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		entry.Code, entry.UserUID, entry.ProductID, entry.Course, entry.Expiration,
		entry.RegistrationDate, entry.IsActive).Scan(&newID)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return 0, fmt.Errorf("%s: code %s: %w", op, entry.Code, models.ErrDuplicateCode)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// UpdateSubscription обновляет подписку по ID и возвращает количество изменённых строк.
func (s *Storage) UpdateSubscription(ctx context.Context, id int, entry models.SubscriptionWrite) (int, error) {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET user_uid = $1, product_id = $2, course = $3, expiration = $4,
			      registration_date = $5, is_active = $6
			  WHERE id = $7`
	result, err := s.DB.ExecContext(ctx, query,
		entry.UserUID, entry.ProductID, entry.Course, entry.Expiration,
		entry.RegistrationDate, entry.IsActive, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// DeactivateSubscriptionByCode помечает подписку неактивной и возвращает
// изменённую строку. Если подписки с таким кодом нет или она уже неактивна,
// возвращает nil без ошибки — провайдер сообщает об отменах и для подписок,
// которые локально никогда не создавались.
func (s *Storage) DeactivateSubscriptionByCode(ctx context.Context, code string) (*models.Subscription, error) {
	const op = "storage.DeactivateSubscriptionByCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET is_active = false
			  WHERE code = $1 AND is_active = true
			  RETURNING id, code, user_uid, product_id, course, expiration, registration_date, is_active`
	var item models.Subscription
	err := s.DB.QueryRowContext(ctx, query, code).Scan(&item.ID, &item.Code, &item.UserUID,
		&item.ProductID, &item.Course, &item.Expiration, &item.RegistrationDate, &item.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &item, nil
}

// ListSubscriptionsForReport возвращает рабочий набор для месячного отчета
// одним запросом; разбиение по месяцам делается в памяти.
func (s *Storage) ListSubscriptionsForReport(ctx context.Context) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptionsForReport"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, user_uid, product_id, course, expiration, registration_date, is_active
			  FROM subscriptions
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var item models.Subscription
		if err := rows.Scan(&item.ID, &item.Code, &item.UserUID, &item.ProductID,
			&item.Course, &item.Expiration, &item.RegistrationDate, &item.IsActive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
