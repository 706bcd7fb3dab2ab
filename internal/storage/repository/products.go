package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// GetProductByCode возвращает продукт по внешнему коду провайдера.
// Срок хранится в миллисекундах и конвертируется в time.Duration при чтении.
func (s *Storage) GetProductByCode(ctx context.Context, code int) (*models.Product, error) {
	const op = "storage.GetProductByCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, course, expiration_time_ms
			  FROM products
			  WHERE code = $1`
	var p models.Product
	var expirationMs int64
	err := s.DB.QueryRowContext(ctx, query, code).Scan(&p.ID, &p.Code, &p.Course, &expirationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: code %d: %w", op, code, models.ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.ExpirationTime = time.Duration(expirationMs) * time.Millisecond
	return &p, nil
}
