package repository

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его UID
func (f *TestDataFactory) CreateUser(t *testing.T, email, role string) string {
	t.Helper()
	uid := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO users (uid, email, first_name, last_name, password_hash, role, status)
		VALUES ($1, $2, 'Test', 'User', 'hash', $3, $4)`,
		uid, email, role, models.StatusActive)
	require.NoError(t, err)
	return uid
}

// CreateProduct создает тестовый продукт и возвращает его локальный ID
func (f *TestDataFactory) CreateProduct(t *testing.T, code int, course string, expirationMs int64) int {
	t.Helper()
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO products (code, course, expiration_time_ms)
		VALUES ($1, $2, $3) RETURNING id`,
		code, course, expirationMs).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateSubscription создает тестовую подписку и возвращает её ID.
// Пустой code вставляется как NULL (ручная запись администратора).
func (f *TestDataFactory) CreateSubscription(t *testing.T, code, userUID string, productID int,
	expiration, registrationDate time.Time, isActive bool) int {
	t.Helper()
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(code, user_uid, product_id, course, expiration, registration_date, is_active)
		VALUES (NULLIF($1, ''), $2, $3, 'redacao', $4, $5, $6) RETURNING id`,
		code, userUID, productID, expiration, registrationDate, isActive).Scan(&id)
	require.NoError(t, err)
	return id
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort(nat.Port("5432/tcp")).WithStartupTimeout(3*time.Minute),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			err = storage.DB.Ping()
			if err == nil {
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	// Создаем таблицы
	_, err = storage.DB.Exec(`
        CREATE EXTENSION IF NOT EXISTS "pgcrypto";

        CREATE TABLE users (
            id BIGSERIAL,
            uid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            email TEXT NOT NULL UNIQUE,
            first_name TEXT NOT NULL DEFAULT '',
            last_name TEXT NOT NULL DEFAULT '',
            phone TEXT,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'student',
            status TEXT NOT NULL DEFAULT 'pending',
            last_modified TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE products (
            id SERIAL PRIMARY KEY,
            code INTEGER NOT NULL UNIQUE,
            course TEXT NOT NULL,
            expiration_time_ms BIGINT NOT NULL
        );

        CREATE TABLE subscriptions (
            id SERIAL PRIMARY KEY,
            code TEXT UNIQUE,
            user_uid UUID NOT NULL REFERENCES users (uid),
            product_id INTEGER NOT NULL REFERENCES products (id),
            course TEXT NOT NULL,
            expiration TIMESTAMPTZ NOT NULL,
            registration_date TIMESTAMPTZ NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT TRUE
        );

        CREATE INDEX idx_users_role ON users (role);
        CREATE INDEX idx_subscriptions_user_uid ON subscriptions (user_uid);
    `)
	require.NoError(t, err, "failed to create tables")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		if postgresContainer != nil {
			_ = postgresContainer.Terminate(ctx)
		}
	}

	return storage, cleanup
}
