package fitbit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(5 * time.Second).WithBaseURL(srv.URL)
}

func TestFetchDay(t *testing.T) {
	var calls int32
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/1/user/-/activities/date/2025-03-10.json":
			w.Write([]byte(`{"summary":{"steps":8421,"caloriesOut":2210.6,"restingHeartRate":61}}`))
		case "/1.2/user/-/sleep/date/2025-03-10.json":
			w.Write([]byte(`{"summary":{"totalMinutesAsleep":420,"stages":{"deep":90,"light":240,"rem":90,"wake":30}}}`))
		case "/1/user/-/activities/heart/date/2025-03-10/1d/1min.json":
			w.Write([]byte(`{"activities-heart":[{"value":{"restingHeartRate":58}}],"activities-heart-intraday":{"dataset":[{"time":"08:00:00","value":60},{"time":"08:01:00","value":63},{"time":"08:02:00","value":64}]}}`))
		case "/1/user/-/body/log/weight/date/2025-03-10.json":
			w.Write([]byte(`{"weight":[{"weight":72.4,"date":"2025-03-10","time":"07:00:00"},{"weight":72.15,"date":"2025-03-10","time":"21:00:00"}]}`))
		case "/1/user/-/foods/log/water/date/2025-03-10.json":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	values, err := client.FetchDay(context.Background(), "access-token", testDay, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))

	require.NotNil(t, values.Steps)
	assert.Equal(t, 8421, *values.Steps)
	assert.Equal(t, 2211, *values.Calories)
	assert.Equal(t, 62, *values.RestingHeartRate, "intraday average wins over the resting value")
	assert.InDelta(t, 7.0, *values.SleepHours, 0.001)
	assert.InDelta(t, 1.5, *values.SleepDeepHours, 0.001)
	assert.InDelta(t, 4.0, *values.SleepLightHours, 0.001)
	assert.InDelta(t, 0.5, *values.SleepAwakeHours, 0.001)
	assert.InDelta(t, 72.15, *values.WeightKG, 0.001)
	assert.Nil(t, values.WaterML, "404 means no water data")
}

func TestFetchDaySkipsDeniedEndpoints(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/sleep/") {
			t.Errorf("denied endpoint requested")
		}
		w.WriteHeader(http.StatusNotFound)
	})

	values, err := client.FetchDay(context.Background(), "access-token", testDay, []string{DataTypeSleep})
	require.NoError(t, err)
	assert.True(t, values.IsEmpty())
}

func TestFetchDayRateLimited(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/heart/") {
			w.Header().Set("Retry-After", "1800")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchDay(context.Background(), "access-token", testDay, nil)
	rl, ok := domain.IsRateLimited(err)
	require.True(t, ok, "expected rate limit error, got %v", err)
	require.NotNil(t, rl.RetryAfterSeconds)
	assert.Equal(t, 1800, *rl.RetryAfterSeconds)
}

func TestFetchDayInsufficientScope(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/body/log/weight/") {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"errors":[{"errorType":"insufficient_scope","message":"This application does not have permission to access weight data."}],"success":false}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchDay(context.Background(), "access-token", testDay, nil)
	var blocked *domain.PermissionBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, DataTypeWeight, blocked.DataType)
}

func TestFetchDayProviderError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/activities/date/") {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":[{"errorType":"expired_token","message":"Access token expired"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchDay(context.Background(), "access-token", testDay, nil)
	var apiErr *domain.ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "expired_token")
}
