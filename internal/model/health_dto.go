package model

import (
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SyncRequest is the optional body of a sync call. Days outside the
// provider window are clamped by the sync service, not rejected.
type SyncRequest struct {
	Days *int `json:"days,omitempty"`
	Auto bool `json:"auto,omitempty"`
}

// SyncResponse reports what one sync run imported
type SyncResponse struct {
	OK                bool       `json:"ok"`
	ImportedEntries   int        `json:"imported_entries"`
	DaysRequested     int        `json:"days_requested"`
	ProcessedDays     int        `json:"processed_days"`
	RateLimited       bool       `json:"rate_limited"`
	RetryAfterSeconds *int       `json:"retry_after_seconds"`
	Skipped           bool       `json:"skipped,omitempty"`
	NextAllowedAt     *time.Time `json:"next_allowed_at,omitempty"`
}

// GoogleFitSyncResponse adds the data types Google refused during the run
type GoogleFitSyncResponse struct {
	SyncResponse
	BlockedDataTypes []string `json:"blocked_data_types"`
}

// OAuthStartRequest begins a provider handshake
type OAuthStartRequest struct {
	Provider string `json:"provider" binding:"required"`
	ReturnTo string `json:"return_to,omitempty"`
}

// OAuthStartResponse carries the provider consent page the app opens
type OAuthStartResponse struct {
	Provider     string `json:"provider"`
	AuthorizeURL string `json:"authorize_url"`
}

// IntegrationResponse is the diagnostic view of one provider integration
type IntegrationResponse struct {
	Provider        string                 `json:"provider"`
	Status          string                 `json:"status"`
	ConnectedAt     *time.Time             `json:"connected_at"`
	LastSyncAt      *time.Time             `json:"last_sync_at"`
	AccessScope     []string               `json:"access_scope"`
	DeniedDataTypes []string               `json:"denied_data_types"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// IntegrationsListResponse lists every provider, connected or not
type IntegrationsListResponse struct {
	Data []IntegrationResponse `json:"data"`
}

// HealthResponse is returned by the liveness probe
type HealthResponse struct {
	Status string `json:"status"`
}

// NewSyncResponse converts a service result into the wire shape
func NewSyncResponse(result *domain.SyncResult) SyncResponse {
	return SyncResponse{
		OK:                true,
		ImportedEntries:   result.ImportedEntries,
		DaysRequested:     result.DaysRequested,
		ProcessedDays:     result.ProcessedDays,
		RateLimited:       result.RateLimited,
		RetryAfterSeconds: result.RetryAfterSeconds,
		Skipped:           result.Skipped,
		NextAllowedAt:     result.NextAllowedAt,
	}
}

// NewGoogleFitSyncResponse converts a Google Fit result
func NewGoogleFitSyncResponse(result *domain.SyncResult) GoogleFitSyncResponse {
	blocked := result.BlockedDataTypes
	if blocked == nil {
		blocked = []string{}
	}
	return GoogleFitSyncResponse{
		SyncResponse:     NewSyncResponse(result),
		BlockedDataTypes: blocked,
	}
}

// NewIntegrationResponse converts an integration row
func NewIntegrationResponse(integration domain.Integration) IntegrationResponse {
	resp := IntegrationResponse{
		Provider:        string(integration.Provider),
		Status:          string(integration.Status),
		ConnectedAt:     integration.ConnectedAt,
		LastSyncAt:      integration.LastSyncAt,
		AccessScope:     integration.AccessScope,
		DeniedDataTypes: integration.DeniedDataTypes,
		Metadata:        integration.Metadata,
	}
	if resp.AccessScope == nil {
		resp.AccessScope = []string{}
	}
	if resp.DeniedDataTypes == nil {
		resp.DeniedDataTypes = []string{}
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]interface{}{}
	}
	return resp
}
