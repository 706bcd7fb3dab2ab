package report

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListSubscriptionsForReport(ctx context.Context) ([]*models.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func sub(registered, expiration time.Time, active bool) *models.Subscription {
	return &models.Subscription{
		RegistrationDate: registered,
		Expiration:       expiration,
		IsActive:         active,
	}
}

func TestMonthlyActive_CountsPerCalendarMonth(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListSubscriptionsForReport", mock.Anything).Return([]*models.Subscription{
		// Живет с января по март включительно.
		sub(date(2024, time.January, 10), date(2024, time.March, 20), true),
		// Появляется только в феврале.
		sub(date(2024, time.February, 5), date(2024, time.April, 1), true),
		// Неактивная, не должна считаться нигде.
		sub(date(2024, time.January, 1), date(2024, time.December, 31), false),
		// Истекла до начала окна.
		sub(date(2023, time.June, 1), date(2023, time.December, 1), true),
	}, nil).Once()

	svc := New(repo, nil, newNoopLogger())
	window := models.ReportWindow{
		Start: date(2024, time.January, 1),
		End:   date(2024, time.March, 31),
	}

	counts, err := svc.MonthlyActive(context.Background(), window)

	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, models.MonthCount{Key: "1-2024", Value: 1}, counts[0])
	assert.Equal(t, models.MonthCount{Key: "2-2024", Value: 2}, counts[1])
	assert.Equal(t, models.MonthCount{Key: "3-2024", Value: 2}, counts[2])
}

func TestMonthlyActive_LoadsWorkingSetOnce(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListSubscriptionsForReport", mock.Anything).
		Return([]*models.Subscription{}, nil).Once()

	svc := New(repo, nil, newNoopLogger())
	window := models.ReportWindow{
		Start: date(2023, time.January, 1),
		End:   date(2024, time.December, 31),
	}

	counts, err := svc.MonthlyActive(context.Background(), window)

	require.NoError(t, err)
	assert.Len(t, counts, 24, "one point per month regardless of query count")
	repo.AssertNumberOfCalls(t, "ListSubscriptionsForReport", 1)
}

func TestMonthlyActive_ServesFromCache(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)

	cached := []models.MonthCount{{Key: "1-2024", Value: 7}}
	cache.On("Get", "report:monthly:2024-01:2024-01", mock.Anything).
		Run(func(args mock.Arguments) {
			ptr := args.Get(1).(*[]models.MonthCount)
			*ptr = cached
		}).Return(true, nil).Once()

	svc := New(repo, cache, newNoopLogger())
	window := models.ReportWindow{
		Start: date(2024, time.January, 1),
		End:   date(2024, time.January, 31),
	}

	counts, err := svc.MonthlyActive(context.Background(), window)

	require.NoError(t, err)
	assert.Equal(t, cached, counts)
	repo.AssertNotCalled(t, "ListSubscriptionsForReport", mock.Anything)
	cache.AssertExpectations(t)
}

func TestMonthlyActive_PopulatesCacheOnMiss(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)

	repo.On("ListSubscriptionsForReport", mock.Anything).
		Return([]*models.Subscription{}, nil).Once()
	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil).Once()
	cache.On("Set", "report:monthly:2024-01:2024-02", mock.Anything, time.Hour).
		Return(nil).Once()

	svc := New(repo, cache, newNoopLogger())
	window := models.ReportWindow{
		Start: date(2024, time.January, 1),
		End:   date(2024, time.February, 15),
	}

	_, err := svc.MonthlyActive(context.Background(), window)

	require.NoError(t, err)
	cache.AssertExpectations(t)
}
