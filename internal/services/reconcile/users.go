package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/subscription-sync/internal/billing"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/password"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/phone"
	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

const generatedPasswordLength = 24

// resolveUser связывает удаленного подписчика с локальной учетной записью:
// существующий пользователь обновляется (провайдер — источник истины для
// контактных данных), отсутствующий — создается студентом со случайным
// паролем. Пароль никуда не возвращается: онбординг идет отдельным письмом.
func (s *Service) resolveUser(ctx context.Context, subscriber billing.Subscriber) (*models.User, error) {
	const op = "reconcile.resolveUser"

	firstName, lastName := splitName(subscriber.Name)
	normalizedPhone := phone.Normalize(subscriber.Phone.LocalCode, subscriber.Phone.Number)

	existing, err := s.users.GetUserByEmail(ctx, subscriber.Email)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if existing != nil {
		if err := s.users.UpdateUserContact(ctx, existing.UID, firstName, lastName,
			normalizedPhone, models.StatusActive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		existing.FirstName = firstName
		existing.LastName = lastName
		if normalizedPhone != "" {
			existing.Phone = normalizedPhone
		}
		existing.Status = models.StatusActive
		return existing, nil
	}

	rawPassword, err := password.Generate(generatedPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Email:        subscriber.Email,
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        normalizedPhone,
		PasswordHash: hash,
		Role:         models.RoleStudent,
		Status:       models.StatusActive,
	}
	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.UID = uid
	s.log.Info("created user for remote subscriber", slog.String("email", user.Email))

	if err := s.notifier.NotifyWelcome(user); err != nil {
		s.log.Error("failed to queue welcome notification",
			slog.String("email", user.Email), sl.Err(err))
	}
	return &user, nil
}

// splitName делит полное имя подписчика на имя и фамилию по первому пробелу.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, last, found := strings.Cut(full, " ")
	if !found {
		return full, ""
	}
	return first, strings.TrimSpace(last)
}
