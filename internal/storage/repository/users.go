package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, first_name, last_name, phone, password_hash, role, status, last_modified
			  FROM users
			  WHERE email = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, email)

	var phone sql.NullString
	if err := row.Scan(&u.UID, &u.Email, &u.FirstName, &u.LastName, &phone,
		&u.PasswordHash, &u.Role, &u.Status, &u.LastModified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if phone.Valid {
		u.Phone = phone.String
	}
	return u, nil
}

// RegisterUser сохраняет нового пользователя и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, first_name, last_name, phone, password_hash, role, status)
			  VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.FirstName, user.LastName, user.Phone, user.PasswordHash,
		user.Role, user.Status).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// UpdateUserContact обновляет контактные данные пользователя: источником
// истины считается биллинг-провайдер. Пустой телефон не затирает уже
// сохранённый номер.
func (s *Storage) UpdateUserContact(ctx context.Context, uid, firstName, lastName, phone, status string) error {
	const op = "storage.UpdateUserContact"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET first_name = $1,
			      last_name = $2,
			      phone = COALESCE(NULLIF($3, ''), phone),
			      status = $4,
			      last_modified = NOW()
			  WHERE uid = $5`
	_, err := s.DB.ExecContext(ctx, query, firstName, lastName, phone, status, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSyncCandidates возвращает страницу пользователей, подлежащих сверке:
// только студенты и учетные записи с неизвестной ролью, в порядке id.
func (s *Storage) ListSyncCandidates(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListSyncCandidates"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, first_name, last_name, COALESCE(phone, ''), password_hash, role, status, last_modified
			  FROM users
			  WHERE role NOT IN ($1, $2)
			  ORDER BY id
			  LIMIT $3 OFFSET $4`
	rows, err := s.DB.QueryContext(ctx, query, models.RoleAdmin, models.RoleCorrector, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UID, &u.Email, &u.FirstName, &u.LastName, &u.Phone,
			&u.PasswordHash, &u.Role, &u.Status, &u.LastModified); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// NormalizeUserRole приводит роль пользователя к студенту, не трогая
// администраторов и проверяющих. Исторические данные дрейфуют, фикс-ап
// выполняется на каждом успешном проходе сверки.
func (s *Storage) NormalizeUserRole(ctx context.Context, uid string) error {
	const op = "storage.NormalizeUserRole"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET role = $1
			  WHERE uid = $2 AND role NOT IN ($3, $4)`
	_, err := s.DB.ExecContext(ctx, query, models.RoleStudent, uid, models.RoleAdmin, models.RoleCorrector)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
