package domain

import (
	"time"
)

// IntegrationStatus is the connection state of a provider integration
type IntegrationStatus string

const (
	StatusNotConnected IntegrationStatus = "not_connected"
	StatusPending      IntegrationStatus = "pending"
	StatusConnected    IntegrationStatus = "connected"
	StatusError        IntegrationStatus = "error"
	StatusRevoked      IntegrationStatus = "revoked"
)

const (
	// TokenExpiryBuffer is the clock-skew allowance applied before a token's expiry
	TokenExpiryBuffer = 60 * time.Second

	// OAuthStateTTL bounds how long a handshake may take
	OAuthStateTTL = 15 * time.Minute
)

// OAuthToken is the per-user, per-provider token set
type OAuthToken struct {
	UserID       string                 `json:"userId"`
	Provider     Provider               `json:"provider"`
	AccessToken  string                 `json:"-"`
	RefreshToken *string                `json:"-"`
	ExpiresAt    *time.Time             `json:"expiresAt,omitempty"`
	Scope        []string               `json:"scope,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// NeedsRefresh reports whether the access token expires within TokenExpiryBuffer of now.
// A token without an expiry never needs a refresh.
func (t *OAuthToken) NeedsRefresh(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return t.ExpiresAt.Sub(now) <= TokenExpiryBuffer
}

// HasRefreshToken reports whether the token can be renewed without user interaction
func (t *OAuthToken) HasRefreshToken() bool {
	return t.RefreshToken != nil && *t.RefreshToken != ""
}

// Integration tracks the connection state of one provider for one user
type Integration struct {
	UserID                string                 `json:"userId"`
	Provider              Provider               `json:"provider"`
	Status                IntegrationStatus      `json:"status"`
	ConnectedAt           *time.Time             `json:"connectedAt,omitempty"`
	LastSyncAt            *time.Time             `json:"lastSyncAt,omitempty"`
	AccessScope           []string               `json:"accessScope,omitempty"`
	Metadata              map[string]interface{} `json:"metadata,omitempty"`
	DeniedDataTypes       []string               `json:"deniedDataTypes,omitempty"`
	LastAutoSyncAttemptAt *time.Time             `json:"lastAutoSyncAttemptAt,omitempty"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
}

// OAuthState is a single-use handshake record binding a random state value
// to the user, provider and return URL that started the flow
type OAuthState struct {
	State     string     `json:"state"`
	UserID    string     `json:"userId"`
	Provider  Provider   `json:"provider"`
	ReturnTo  string     `json:"returnTo"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Expired reports whether the handshake window has passed
func (s *OAuthState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Used reports whether a callback already consumed the state
func (s *OAuthState) Used() bool {
	return s.UsedAt != nil
}

// SyncOutcome is what the state tracker persists after a sync run
type SyncOutcome struct {
	ImportedEntries   int
	ProcessedDays     int
	DaysRequested     int
	RateLimited       bool
	RetryAfterSeconds *int
	BlockedDataTypes  []string
	DeniedDataTypes   []string
	FinishedAt        time.Time
}

// Metadata renders the diagnostic counters stored on the integration row
func (o SyncOutcome) Metadata() map[string]interface{} {
	meta := map[string]interface{}{
		"last_imported_entries": o.ImportedEntries,
		"last_processed_days":   o.ProcessedDays,
		"last_days_requested":   o.DaysRequested,
		"last_rate_limited":     o.RateLimited,
		"last_sync_finished_at": o.FinishedAt.UTC().Format(time.RFC3339),
		// Always present so a merge overwrites the previous run's values
		"last_retry_after_seconds": nil,
		"last_blocked_data_types":  []string{},
	}
	if o.RetryAfterSeconds != nil {
		meta["last_retry_after_seconds"] = *o.RetryAfterSeconds
	}
	if len(o.BlockedDataTypes) > 0 {
		meta["last_blocked_data_types"] = o.BlockedDataTypes
	}
	return meta
}

// SyncResult is returned to the caller of a sync
type SyncResult struct {
	Provider          Provider
	ImportedEntries   int
	DaysRequested     int
	ProcessedDays     int
	RateLimited       bool
	RetryAfterSeconds *int
	BlockedDataTypes  []string

	// Skipped is set when an automatic sync was requested inside the cooldown window
	Skipped       bool
	NextAllowedAt *time.Time
}
