package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/model"
	"github.com/ridwanfathin/assistant-health-sync/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "5b0c6f0e-9d53-4a47-8f3e-1f2a3b4c5d6e"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSyncService struct {
	result   *domain.SyncResult
	err      error
	userID   string
	provider domain.Provider
	opts     service.SyncOptions
}

func (f *fakeSyncService) Sync(_ context.Context, userID string, p domain.Provider, opts service.SyncOptions) (*domain.SyncResult, error) {
	f.userID = userID
	f.provider = p
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.Provider = p
	return &res, nil
}

type fakeOAuthService struct {
	startErr error
	returnTo string
	params   service.CallbackParams
}

func (f *fakeOAuthService) Start(_ context.Context, userID, providerName, returnTo string) (*service.OAuthStart, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	p, err := domain.ParseProvider(providerName)
	if err != nil {
		return nil, err
	}
	f.returnTo = returnTo
	return &service.OAuthStart{Provider: p, AuthorizeURL: "https://provider.test/authorize?state=abc&user=" + userID}, nil
}

func (f *fakeOAuthService) Callback(_ context.Context, params service.CallbackParams) *service.CallbackResult {
	f.params = params
	if params.Error != "" {
		return &service.CallbackResult{RedirectURL: "https://app.test/?health_oauth=error&reason=" + params.Error}
	}
	return &service.CallbackResult{RedirectURL: "https://app.test/?health_oauth=success", Connected: true}
}

type fakeIntegrationService struct {
	integrations []domain.Integration
	err          error
}

func (f *fakeIntegrationService) ListIntegrations(_ context.Context, _ string) ([]domain.Integration, error) {
	return f.integrations, f.err
}

// fakeAuth stands in for the session middleware
func fakeAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(contextUserID, userID)
		}
		c.Next()
	}
}

func newRouter(userID string, syncSvc service.SyncService, oauthSvc service.OAuthService, integrationSvc service.IntegrationService) *gin.Engine {
	router := gin.New()
	auth := fakeAuth(userID)
	NewSyncHandler(syncSvc).RegisterRoutes(router, auth)
	NewOAuthHandler(oauthSvc).RegisterRoutes(router, auth)
	NewIntegrationHandler(integrationSvc).RegisterRoutes(router, auth)
	return router
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSyncFitbit_EmptyBody(t *testing.T) {
	retry := 120
	syncSvc := &fakeSyncService{result: &domain.SyncResult{
		ImportedEntries:   3,
		DaysRequested:     7,
		ProcessedDays:     3,
		RateLimited:       true,
		RetryAfterSeconds: &retry,
	}}
	router := newRouter(testUserID, syncSvc, &fakeOAuthService{}, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodPost, "/functions/v1/health-fitbit-sync", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 3, body["imported_entries"])
	assert.EqualValues(t, 7, body["days_requested"])
	assert.EqualValues(t, 3, body["processed_days"])
	assert.Equal(t, true, body["rate_limited"])
	assert.EqualValues(t, 120, body["retry_after_seconds"])
	assert.NotContains(t, body, "blocked_data_types")

	assert.Equal(t, testUserID, syncSvc.userID)
	assert.Equal(t, domain.ProviderFitbit, syncSvc.provider)
	assert.Nil(t, syncSvc.opts.Days)
	assert.False(t, syncSvc.opts.Auto)
}

func TestSyncGoogleFit_PassesOptionsAndReportsBlockedTypes(t *testing.T) {
	syncSvc := &fakeSyncService{result: &domain.SyncResult{
		ImportedEntries:  2,
		DaysRequested:    2,
		ProcessedDays:    2,
		BlockedDataTypes: []string{"com.google.blood_glucose"},
	}}
	router := newRouter(testUserID, syncSvc, &fakeOAuthService{}, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodPost, "/functions/v1/health-google-fit-sync", []byte(`{"days":2,"auto":true}`))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []interface{}{"com.google.blood_glucose"}, body["blocked_data_types"])
	assert.Nil(t, body["retry_after_seconds"])
	require.NotNil(t, syncSvc.opts.Days)
	assert.Equal(t, 2, *syncSvc.opts.Days)
	assert.True(t, syncSvc.opts.Auto)
	assert.Equal(t, domain.ProviderGoogleFit, syncSvc.provider)
}

func TestSyncGoogleFit_AlwaysIncludesBlockedList(t *testing.T) {
	syncSvc := &fakeSyncService{result: &domain.SyncResult{}}
	router := newRouter(testUserID, syncSvc, &fakeOAuthService{}, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodPost, "/functions/v1/health-google-fit-sync", []byte(`{}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["blocked_data_types"])
}

func TestSync_SkippedAutoSync(t *testing.T) {
	next := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)
	syncSvc := &fakeSyncService{result: &domain.SyncResult{Skipped: true, NextAllowedAt: &next}}
	router := newRouter(testUserID, syncSvc, &fakeOAuthService{}, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodPost, "/functions/v1/health-fitbit-sync", []byte(`{"auto":true}`))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["skipped"])
	assert.Equal(t, "2026-05-02T18:00:00Z", body["next_allowed_at"])
}

func TestSync_InvalidBody(t *testing.T) {
	router := newRouter(testUserID, &fakeSyncService{result: &domain.SyncResult{}}, &fakeOAuthService{}, &fakeIntegrationService{})

	for _, payload := range []string{`{"days":"many"}`, `not json`} {
		rec := doRequest(router, http.MethodPost, "/functions/v1/health-fitbit-sync", []byte(payload))
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Equal(t, ErrInvalidInput, decode(t, rec)["error"], payload)
	}
}

func TestSync_OutOfRangeDaysReachService(t *testing.T) {
	syncSvc := &fakeSyncService{result: &domain.SyncResult{}}
	router := newRouter(testUserID, syncSvc, &fakeOAuthService{}, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodPost, "/functions/v1/health-fitbit-sync", []byte(`{"days":-3}`))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, syncSvc.opts.Days)
	assert.Equal(t, -3, *syncSvc.opts.Days)
}

func TestSync_MissingSession(t *testing.T) {
	router := newRouter("", &fakeSyncService{result: &domain.SyncResult{}}, &fakeOAuthService{}, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodPost, "/functions/v1/health-fitbit-sync", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ErrMissingSession, decode(t, rec)["error"])
}

func TestSync_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantDetails string
	}{
		{"unauthorized", fmt.Errorf("validate: %w", domain.ErrUnauthorized), http.StatusUnauthorized, ""},
		{"token not found", fmt.Errorf("load: %w", domain.ErrTokenNotFound), http.StatusBadRequest, ""},
		{"reauthorization", domain.ErrReauthorizationRequired, http.StatusBadRequest, ""},
		{"unsupported provider", domain.ErrUnsupportedProvider, http.StatusBadRequest, ""},
		{"in progress", domain.ErrSyncInProgress, http.StatusConflict, ""},
		{"missing credentials", &domain.ConfigurationError{Setting: "missing_fitbit_env"}, http.StatusInternalServerError, "missing_fitbit_env"},
		{"provider api", fmt.Errorf("day 2026-05-01: %w", &domain.ProviderAPIError{
			Provider: domain.ProviderFitbit, Endpoint: "sleep", StatusCode: 502, Body: "bad gateway",
		}), http.StatusInternalServerError, "fitbit api sleep returned status 502: bad gateway"},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(testUserID, &fakeSyncService{err: tt.err}, &fakeOAuthService{}, &fakeIntegrationService{})

			rec := doRequest(router, http.MethodPost, "/functions/v1/health-fitbit-sync", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.NotEmpty(t, body["error"])
			if tt.wantDetails != "" {
				assert.Equal(t, tt.wantDetails, body["details"])
			}
		})
	}
}

func TestOAuthStart(t *testing.T) {
	oauthSvc := &fakeOAuthService{}
	router := newRouter(testUserID, &fakeSyncService{}, oauthSvc, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodPost, "/functions/v1/health-oauth-start",
		[]byte(`{"provider":"google_fit","return_to":"https://app.test/settings"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var body model.OAuthStartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "google_fit", body.Provider)
	assert.Contains(t, body.AuthorizeURL, "user="+testUserID)
	assert.Equal(t, "https://app.test/settings", oauthSvc.returnTo)
}

func TestOAuthStart_BadRequests(t *testing.T) {
	router := newRouter(testUserID, &fakeSyncService{}, &fakeOAuthService{}, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodPost, "/functions/v1/health-oauth-start", []byte(`{"provider":"garmin"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/functions/v1/health-oauth-start", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthStart_MissingCredentials(t *testing.T) {
	oauthSvc := &fakeOAuthService{startErr: &domain.ConfigurationError{Setting: "missing_fitbit_env"}}
	router := newRouter(testUserID, &fakeSyncService{}, oauthSvc, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodPost, "/functions/v1/health-oauth-start", []byte(`{"provider":"fitbit"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "missing_fitbit_env", decode(t, rec)["details"])
}

func TestOAuthCallback_RedirectsWithoutSession(t *testing.T) {
	oauthSvc := &fakeOAuthService{}
	router := newRouter("", &fakeSyncService{}, oauthSvc, &fakeIntegrationService{})

	rec := doRequest(router, http.MethodGet, "/functions/v1/health-oauth-callback?state=s1&code=c1", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.test/?health_oauth=success", rec.Header().Get("Location"))
	assert.Equal(t, service.CallbackParams{State: "s1", Code: "c1"}, oauthSvc.params)

	rec = doRequest(router, http.MethodGet, "/functions/v1/health-oauth-callback?state=s1&error=access_denied", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "health_oauth=error")
}

func TestListIntegrations(t *testing.T) {
	lastSync := time.Date(2026, 5, 1, 6, 30, 0, 0, time.UTC)
	integrationSvc := &fakeIntegrationService{integrations: []domain.Integration{
		{Provider: domain.ProviderFitbit, Status: domain.StatusNotConnected},
		{
			Provider:        domain.ProviderGoogleFit,
			Status:          domain.StatusConnected,
			LastSyncAt:      &lastSync,
			DeniedDataTypes: []string{"com.google.blood_pressure"},
			Metadata:        map[string]interface{}{"last_rate_limited": true},
		},
	}}
	router := newRouter(testUserID, &fakeSyncService{}, &fakeOAuthService{}, integrationSvc)

	rec := doRequest(router, http.MethodGet, "/functions/v1/health-integrations", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body model.IntegrationsListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "not_connected", body.Data[0].Status)
	assert.Empty(t, body.Data[0].DeniedDataTypes)
	assert.Equal(t, "connected", body.Data[1].Status)
	assert.Equal(t, []string{"com.google.blood_pressure"}, body.Data[1].DeniedDataTypes)
	assert.Equal(t, true, body.Data[1].Metadata["last_rate_limited"])
	require.NotNil(t, body.Data[1].LastSyncAt)
	assert.True(t, lastSync.Equal(*body.Data[1].LastSyncAt))
}

func TestListIntegrations_Error(t *testing.T) {
	router := newRouter(testUserID, &fakeSyncService{}, &fakeOAuthService{}, &fakeIntegrationService{err: fmt.Errorf("db down")})

	rec := doRequest(router, http.MethodGet, "/functions/v1/health-integrations", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
