// Package provider holds what the Fitbit and Google Fit integrations share:
// OAuth client configuration, sync limits and the data source contract.
package provider

import (
	"context"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

const (
	// FitbitMaxSyncDays caps an explicit days request for Fitbit
	FitbitMaxSyncDays = 90

	// GoogleFitMaxSyncDays caps an explicit days request for Google Fit
	GoogleFitMaxSyncDays = 120
)

// DataSource fetches one calendar day of measurements from a provider and
// returns them normalized. denied lists data types to leave out of the request.
type DataSource interface {
	Provider() domain.Provider
	FetchDay(ctx context.Context, accessToken string, day time.Time, denied []string) (domain.MetricValues, error)
}

// MaxSyncDays returns the largest window a caller may request for p
func MaxSyncDays(p domain.Provider) int {
	switch p {
	case domain.ProviderGoogleFit:
		return GoogleFitMaxSyncDays
	default:
		return FitbitMaxSyncDays
	}
}

// MissingEnvReason is the callback reason reported when p has no credentials
func MissingEnvReason(p domain.Provider) string {
	switch p {
	case domain.ProviderGoogleFit:
		return "missing_google_fit_env"
	default:
		return "missing_fitbit_env"
	}
}
