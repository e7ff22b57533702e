package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrUnsupportedProvider     = errors.New("unsupported provider")
	ErrTokenNotFound           = errors.New("no stored token for this provider, connect the integration first")
	ErrReauthorizationRequired = errors.New("stored token expired and cannot be refreshed, reconnect the integration")
	ErrSyncInProgress          = errors.New("a sync for this provider is already in progress")
	ErrIntegrationNotFound     = errors.New("integration not found")
	ErrOAuthStateNotFound      = errors.New("oauth state not found")
	ErrOAuthStateUsed          = errors.New("oauth state already used")
)

// RateLimitedError signals an HTTP 429 from a provider. The sync loop stops on it.
type RateLimitedError struct {
	Provider          Provider
	RetryAfterSeconds *int
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfterSeconds != nil {
		return fmt.Sprintf("%s rate limit reached, retry after %ds", e.Provider, *e.RetryAfterSeconds)
	}
	return fmt.Sprintf("%s rate limit reached", e.Provider)
}

// PermissionBlockedError signals that the account lacks access to one data type.
// The data type is excluded for the rest of the run and the sync continues.
type PermissionBlockedError struct {
	Provider Provider
	DataType string
	Message  string
}

func (e *PermissionBlockedError) Error() string {
	return fmt.Sprintf("%s denied access to %s: %s", e.Provider, e.DataType, e.Message)
}

// ProviderAPIError is any other non-2xx provider response. It aborts the sync.
type ProviderAPIError struct {
	Provider   Provider
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *ProviderAPIError) Error() string {
	return fmt.Sprintf("%s api %s returned status %d: %s", e.Provider, e.Endpoint, e.StatusCode, e.Body)
}

// ConfigurationError reports a required setting missing from the environment
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Setting)
}

// IsRateLimited unwraps err into a RateLimitedError
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
