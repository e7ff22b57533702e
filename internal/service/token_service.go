package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/logger"
	"github.com/ridwanfathin/assistant-health-sync/internal/repository"
	"golang.org/x/oauth2"
)

// OAuthConfigProvider resolves the OAuth client of a provider
type OAuthConfigProvider interface {
	OAuthConfig(p domain.Provider) (*oauth2.Config, error)
}

// TokenService loads stored tokens and refreshes them before use
type TokenService interface {
	// GetFreshToken loads the stored token and refreshes it when it is about to expire
	GetFreshToken(ctx context.Context, userID string, provider domain.Provider) (*domain.OAuthToken, error)
	// EnsureFreshToken refreshes token when it expires within the clock-skew buffer
	EnsureFreshToken(ctx context.Context, token *domain.OAuthToken) (*domain.OAuthToken, error)
}

type tokenService struct {
	tokens     repository.TokenRepository
	oauth      OAuthConfigProvider
	httpClient *http.Client
	logger     logger.Logger
	now        func() time.Time
}

// NewTokenService creates a token service
func NewTokenService(tokens repository.TokenRepository, oauth OAuthConfigProvider, httpClient *http.Client, log logger.Logger) TokenService {
	return &tokenService{
		tokens:     tokens,
		oauth:      oauth,
		httpClient: httpClient,
		logger:     log,
		now:        time.Now,
	}
}

func (s *tokenService) GetFreshToken(ctx context.Context, userID string, provider domain.Provider) (*domain.OAuthToken, error) {
	token, err := s.tokens.GetToken(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	return s.EnsureFreshToken(ctx, token)
}

func (s *tokenService) EnsureFreshToken(ctx context.Context, token *domain.OAuthToken) (*domain.OAuthToken, error) {
	now := s.now()
	if !token.NeedsRefresh(now) {
		return token, nil
	}
	if !token.HasRefreshToken() {
		return nil, domain.ErrReauthorizationRequired
	}

	cfg, err := s.oauth.OAuthConfig(token.Provider)
	if err != nil {
		return nil, err
	}

	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	// An empty access token forces the source to hit the token endpoint
	refreshed, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: *token.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && isInvalidGrant(retrieveErr) {
			s.logger.Warn().
				Str("user_id", token.UserID).
				Str("provider", token.Provider.String()).
				Msg("refresh token rejected, reauthorization required")
			return nil, domain.ErrReauthorizationRequired
		}
		return nil, fmt.Errorf("failed to refresh %s token: %w", token.Provider, err)
	}

	updated := mergeToken(token, refreshed, now)
	if err := s.tokens.SaveToken(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to store refreshed token: %w", err)
	}

	s.logger.Info().
		Str("user_id", token.UserID).
		Str("provider", token.Provider.String()).
		Msg("refreshed provider token")

	return updated, nil
}

// mergeToken applies a token endpoint response to the stored record,
// keeping the old refresh token and scope when the provider omits them
func mergeToken(stored *domain.OAuthToken, t *oauth2.Token, now time.Time) *domain.OAuthToken {
	updated := *stored
	updated.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		rt := t.RefreshToken
		updated.RefreshToken = &rt
	}
	if t.Expiry.IsZero() {
		updated.ExpiresAt = nil
	} else {
		exp := t.Expiry
		updated.ExpiresAt = &exp
	}
	if scope := scopeFromToken(t); len(scope) > 0 {
		updated.Scope = scope
	}

	meta := make(map[string]interface{}, len(stored.Metadata)+2)
	for k, v := range stored.Metadata {
		meta[k] = v
	}
	meta["token_type"] = t.Type()
	meta["refreshed_at"] = now.UTC().Format(time.RFC3339)
	if uid, ok := t.Extra("user_id").(string); ok && uid != "" {
		meta["provider_user_id"] = uid
	}
	updated.Metadata = meta
	updated.UpdatedAt = now
	return &updated
}

// isInvalidGrant recognizes a revoked or expired refresh token. Fitbit reports
// it inside an errors array instead of the standard error field.
func isInvalidGrant(err *oauth2.RetrieveError) bool {
	if err.ErrorCode == "invalid_grant" {
		return true
	}
	return err.ErrorCode == "" && strings.Contains(string(err.Body), `"invalid_grant"`)
}
