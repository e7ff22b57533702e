package provider

import (
	"net/url"
	"testing"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/config"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  *int
	}{
		{name: "seconds", value: "120", want: domain.Ptr(120)},
		{name: "padded", value: " 5 ", want: domain.Ptr(5)},
		{name: "negative clamps to zero", value: "-3", want: domain.Ptr(0)},
		{name: "http date", value: "Mon, 10 Mar 2025 12:01:30 GMT", want: domain.Ptr(90)},
		{name: "past http date", value: "Mon, 10 Mar 2025 11:00:00 GMT", want: domain.Ptr(0)},
		{name: "empty", value: "", want: nil},
		{name: "garbage", value: "soon", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRetryAfter(tt.value, now))
		})
	}
}

func TestMaxSyncDays(t *testing.T) {
	assert.Equal(t, 90, MaxSyncDays(domain.ProviderFitbit))
	assert.Equal(t, 120, MaxSyncDays(domain.ProviderGoogleFit))
}

func TestRegistryMissingCredentials(t *testing.T) {
	r := NewRegistry(&config.Config{FitbitClientID: "id"})

	_, err := r.OAuthConfig(domain.ProviderFitbit)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Setting, "FITBIT_CLIENT_SECRET")
	assert.Equal(t, "missing_fitbit_env", MissingEnvReason(domain.ProviderFitbit))

	_, err = r.OAuthConfig(domain.ProviderGoogleFit)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "missing_google_fit_env", MissingEnvReason(domain.ProviderGoogleFit))

	_, err = r.OAuthConfig("strava")
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestAuthCodeURL(t *testing.T) {
	r := NewRegistry(&config.Config{
		FitbitClientID:        "fitbit-id",
		FitbitClientSecret:    "fitbit-secret",
		FitbitRedirectURL:     "https://api.example.com/functions/v1/health-oauth-callback",
		GoogleFitClientID:     "google-id",
		GoogleFitClientSecret: "google-secret",
		GoogleFitRedirectURL:  "https://api.example.com/functions/v1/health-oauth-callback",
	})

	raw, err := r.AuthCodeURL(domain.ProviderFitbit, "state-123")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.fitbit.com", u.Host)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "fitbit-id", u.Query().Get("client_id"))
	assert.Contains(t, u.Query().Get("scope"), "sleep")

	raw, err = r.AuthCodeURL(domain.ProviderGoogleFit, "state-456")
	require.NoError(t, err)
	u, err = url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "offline", u.Query().Get("access_type"))
	assert.Equal(t, "consent", u.Query().Get("prompt"))
	assert.Contains(t, u.Query().Get("scope"), "fitness.sleep.read")
}

func TestScopeList(t *testing.T) {
	assert.Equal(t, []string{"activity", "sleep", "weight"}, ScopeList("activity sleep,weight"))
	assert.Nil(t, ScopeList(nil))
	assert.Nil(t, ScopeList(""))
}
