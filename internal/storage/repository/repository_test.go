package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

func TestUsers_RegisterAndGetByEmail(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	uid, err := storage.RegisterUser(ctx, models.User{
		Email:        "maria@example.com",
		FirstName:    "Maria",
		LastName:     "da Silva",
		Phone:        "11987654321",
		PasswordHash: "hash",
		Role:         models.RoleStudent,
		Status:       models.StatusActive,
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	user, err := storage.GetUserByEmail(ctx, "maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, user.UID)
	assert.Equal(t, "Maria", user.FirstName)
	assert.Equal(t, "11987654321", user.Phone)

	_, err = storage.GetUserByEmail(ctx, "ninguem@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestUsers_UpdateContactKeepsPhoneWhenEmpty(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	uid, err := storage.RegisterUser(ctx, models.User{
		Email:        "maria@example.com",
		PasswordHash: "hash",
		Phone:        "11987654321",
		Role:         models.RoleStudent,
		Status:       models.StatusPending,
	})
	require.NoError(t, err)

	err = storage.UpdateUserContact(ctx, uid, "Maria", "Souza", "", models.StatusActive)
	require.NoError(t, err)

	user, err := storage.GetUserByEmail(ctx, "maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Souza", user.LastName)
	assert.Equal(t, models.StatusActive, user.Status)
	assert.Equal(t, "11987654321", user.Phone, "empty phone must not erase the stored one")

	err = storage.UpdateUserContact(ctx, uid, "Maria", "Souza", "21900000000", models.StatusActive)
	require.NoError(t, err)
	user, err = storage.GetUserByEmail(ctx, "maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, "21900000000", user.Phone)
}

func TestUsers_ListSyncCandidatesFiltersAndPaginates(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	factory.CreateUser(t, "s1@example.com", models.RoleStudent)
	factory.CreateUser(t, "admin@example.com", models.RoleAdmin)
	factory.CreateUser(t, "s2@example.com", models.RoleStudent)
	factory.CreateUser(t, "corrector@example.com", models.RoleCorrector)
	factory.CreateUser(t, "legacy@example.com", "aluno")

	page1, err := storage.ListSyncCandidates(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "s1@example.com", page1[0].Email)
	assert.Equal(t, "s2@example.com", page1[1].Email)

	page2, err := storage.ListSyncCandidates(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "legacy@example.com", page2[0].Email, "unknown roles are candidates too")
}

func TestUsers_NormalizeRoleLeavesStaffAlone(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	legacyUID := factory.CreateUser(t, "legacy@example.com", "aluno")
	adminUID := factory.CreateUser(t, "admin@example.com", models.RoleAdmin)

	require.NoError(t, storage.NormalizeUserRole(ctx, legacyUID))
	require.NoError(t, storage.NormalizeUserRole(ctx, adminUID))

	legacy, err := storage.GetUserByEmail(ctx, "legacy@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, legacy.Role)

	admin, err := storage.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

func TestProducts_GetByCode(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	id := factory.CreateProduct(t, 9, "redacao", 2592000000)

	product, err := storage.GetProductByCode(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, id, product.ID)
	assert.Equal(t, "redacao", product.Course)
	assert.Equal(t, 2592000000*time.Millisecond, product.ExpirationTime)

	_, err = storage.GetProductByCode(ctx, 404)
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}

func TestSubscriptions_CreateFindAndDuplicate(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "maria@example.com", models.RoleStudent)
	productID := factory.CreateProduct(t, 9, "redacao", 2592000000)

	write := models.SubscriptionWrite{
		Code:             "501",
		UserUID:          uid,
		ProductID:        productID,
		Course:           "redacao",
		Expiration:       time.Now().Add(30 * 24 * time.Hour),
		RegistrationDate: time.Now(),
		IsActive:         true,
	}

	id, err := storage.CreateSubscription(ctx, write)
	require.NoError(t, err)
	require.NotZero(t, id)

	found, err := storage.FindSubscriptionByCode(ctx, "501")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	require.NotNil(t, found.Code)
	assert.Equal(t, "501", *found.Code)

	// Уникальное ограничение в базе разрешает гонку вставок.
	_, err = storage.CreateSubscription(ctx, write)
	assert.ErrorIs(t, err, models.ErrDuplicateCode)

	_, err = storage.FindSubscriptionByCode(ctx, "999")
	assert.ErrorIs(t, err, models.ErrSubscriptionNotFound)
}

func TestSubscriptions_ManualEntriesWithoutCodeCoexist(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	uid := factory.CreateUser(t, "maria@example.com", models.RoleStudent)
	productID := factory.CreateProduct(t, 9, "redacao", 2592000000)

	now := time.Now()
	// NULL-коды не конфликтуют между собой.
	first := factory.CreateSubscription(t, "", uid, productID, now.Add(time.Hour), now, true)
	second := factory.CreateSubscription(t, "", uid, productID, now.Add(time.Hour), now, true)
	assert.NotEqual(t, first, second)
}

func TestSubscriptions_UpdateByID(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "maria@example.com", models.RoleStudent)
	productID := factory.CreateProduct(t, 9, "redacao", 2592000000)

	registered := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	id := factory.CreateSubscription(t, "501", uid, productID,
		time.Now().Add(time.Hour), registered, true)

	newExpiration := time.Now().Add(60 * 24 * time.Hour).Truncate(time.Second)
	affected, err := storage.UpdateSubscription(ctx, id, models.SubscriptionWrite{
		Code:             "501",
		UserUID:          uid,
		ProductID:        productID,
		Course:           "redacao",
		Expiration:       newExpiration,
		RegistrationDate: registered,
		IsActive:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	found, err := storage.FindSubscriptionByCode(ctx, "501")
	require.NoError(t, err)
	assert.WithinDuration(t, newExpiration, found.Expiration, time.Second)
	assert.WithinDuration(t, registered, found.RegistrationDate, time.Second)
}

func TestSubscriptions_DeactivateByCodeIsIdempotent(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "maria@example.com", models.RoleStudent)
	productID := factory.CreateProduct(t, 9, "redacao", 2592000000)
	factory.CreateSubscription(t, "501", uid, productID,
		time.Now().Add(time.Hour), time.Now(), true)

	changed, err := storage.DeactivateSubscriptionByCode(ctx, "501")
	require.NoError(t, err)
	require.NotNil(t, changed)
	assert.False(t, changed.IsActive)

	// Повторная отмена и неизвестный код — не ошибка.
	again, err := storage.DeactivateSubscriptionByCode(ctx, "501")
	require.NoError(t, err)
	assert.Nil(t, again)

	unknown, err := storage.DeactivateSubscriptionByCode(ctx, "999")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestSubscriptions_ListForReport(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "maria@example.com", models.RoleStudent)
	productID := factory.CreateProduct(t, 9, "redacao", 2592000000)

	now := time.Now()
	factory.CreateSubscription(t, "501", uid, productID, now.Add(time.Hour), now, true)
	factory.CreateSubscription(t, "502", uid, productID, now.Add(time.Hour), now, false)
	factory.CreateSubscription(t, "", uid, productID, now.Add(time.Hour), now, true)

	subs, err := storage.ListSubscriptionsForReport(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Nil(t, subs[2].Code, "manual entries carry no external code")
}
