package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) MonthlyActive(ctx context.Context, window models.ReportWindow) ([]models.MonthCount, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MonthCount), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestReport_DefaultWindow(t *testing.T) {
	service := new(ServiceMock)
	service.On("MonthlyActive", mock.Anything, models.ReportWindow{}).
		Return([]models.MonthCount{{Key: "1-2024", Value: 3}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/subscriptions/monthly", nil)
	rr := httptest.NewRecorder()
	New(newNoopLogger(), service).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"1-2024"`)
	service.AssertExpectations(t)
}

func TestReport_ExplicitWindow(t *testing.T) {
	service := new(ServiceMock)
	service.On("MonthlyActive", mock.Anything, mock.MatchedBy(func(w models.ReportWindow) bool {
		return w.Start.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)) &&
			w.End.After(time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC))
	})).Return([]models.MonthCount{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/reports/subscriptions/monthly?start=2024-01&end=2024-03", nil)
	rr := httptest.NewRecorder()
	New(newNoopLogger(), service).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	service.AssertExpectations(t)
}

func TestReport_InvalidWindowRejected(t *testing.T) {
	service := new(ServiceMock)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/reports/subscriptions/monthly?start=banana&end=2024-03", nil)
	rr := httptest.NewRecorder()
	New(newNoopLogger(), service).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	service.AssertNotCalled(t, "MonthlyActive", mock.Anything, mock.Anything)
}

func TestParseWindow(t *testing.T) {
	window, err := parseWindow("2024-01", "2024-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), window.Start)
	assert.True(t, window.End.Before(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, window.End.After(time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC)))

	_, err = parseWindow("2024-01", "")
	assert.Error(t, err, "partial window is invalid")
}
