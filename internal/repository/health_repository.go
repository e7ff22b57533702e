package repository

import (
	"context"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

// TokenRepository stores one OAuth token set per (user, provider)
type TokenRepository interface {
	// GetToken returns domain.ErrTokenNotFound when the user never connected the provider
	GetToken(ctx context.Context, userID string, provider domain.Provider) (*domain.OAuthToken, error)
	SaveToken(ctx context.Context, token *domain.OAuthToken) error
}

// IntegrationRepository tracks connection status and sync diagnostics
type IntegrationRepository interface {
	GetIntegration(ctx context.Context, userID string, provider domain.Provider) (*domain.Integration, error)
	ListIntegrations(ctx context.Context, userID string) ([]domain.Integration, error)

	// Handshake transitions
	MarkPending(ctx context.Context, userID string, provider domain.Provider) error
	MarkConnected(ctx context.Context, userID string, provider domain.Provider, scope []string, connectedAt time.Time) error
	MarkError(ctx context.Context, userID string, provider domain.Provider, reason string) error

	// Sync bookkeeping
	RecordSyncOutcome(ctx context.Context, userID string, provider domain.Provider, outcome domain.SyncOutcome) error
	UpdateDeniedDataTypes(ctx context.Context, userID string, provider domain.Provider, denied []string) error

	// ClaimAutoSync records an automatic sync attempt unless one happened within cooldown.
	// When the claim fails it returns the time the next attempt becomes allowed.
	ClaimAutoSync(ctx context.Context, userID string, provider domain.Provider, now time.Time, cooldown time.Duration) (bool, *time.Time, error)
}

// OAuthStateRepository persists single-use handshake states
type OAuthStateRepository interface {
	CreateState(ctx context.Context, state *domain.OAuthState) error
	// GetState returns domain.ErrOAuthStateNotFound for unknown states
	GetState(ctx context.Context, state string) (*domain.OAuthState, error)
	// MarkStateUsed returns domain.ErrOAuthStateUsed when another callback consumed the state first
	MarkStateUsed(ctx context.Context, state string, usedAt time.Time) error
	DeleteExpiredStates(ctx context.Context, before time.Time) (int64, error)
}

// MetricRepository writes and reads canonical daily health entries
type MetricRepository interface {
	// UpsertEntries writes entries keyed on (user_id, recorded_for, source) in one transaction
	UpsertEntries(ctx context.Context, entries []domain.HealthMetricEntry) (int, error)
	ListEntries(ctx context.Context, userID, source string, from, to time.Time) ([]domain.HealthMetricEntry, error)
}
