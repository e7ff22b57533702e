package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/logger"
	"github.com/ridwanfathin/assistant-health-sync/internal/metrics"
	"github.com/ridwanfathin/assistant-health-sync/internal/provider"
	"github.com/ridwanfathin/assistant-health-sync/internal/repository"
	"golang.org/x/oauth2"
)

// Callback failure reasons reported back to the app
const (
	ReasonMissingState           = "missing_state"
	ReasonInvalidState           = "invalid_state"
	ReasonStateAlreadyUsed       = "state_already_used"
	ReasonStateExpired           = "state_expired"
	ReasonProviderNotImplemented = "provider_not_implemented"
	ReasonTokenExchangeFailed    = "token_exchange_failed"
	ReasonTokenStoreFailed       = "token_store_failed"
)

// OAuthClientRegistry resolves OAuth clients and authorize URLs per provider
type OAuthClientRegistry interface {
	OAuthConfigProvider
	AuthCodeURL(p domain.Provider, state string) (string, error)
}

// OAuthStart is returned to the app to begin a handshake
type OAuthStart struct {
	Provider     domain.Provider `json:"provider"`
	AuthorizeURL string          `json:"authorize_url"`
}

// CallbackParams are the query parameters the provider redirects with
type CallbackParams struct {
	State string
	Code  string
	Error string
}

// CallbackResult tells the handler where to send the browser
type CallbackResult struct {
	RedirectURL string
	Provider    domain.Provider
	Connected   bool
	Reason      string
}

// OAuthService runs the provider authorization handshake
type OAuthService interface {
	Start(ctx context.Context, userID, providerName, returnTo string) (*OAuthStart, error)
	Callback(ctx context.Context, params CallbackParams) *CallbackResult
}

// OAuthServiceConfig holds the dependencies of the OAuth service
type OAuthServiceConfig struct {
	Registry     OAuthClientRegistry
	States       repository.OAuthStateRepository
	Tokens       repository.TokenRepository
	Integrations repository.IntegrationRepository
	Stats        *metrics.Metrics
	Logger       logger.Logger
	HTTPClient   *http.Client
	AppURL       string
	StateTTL     time.Duration
}

type oauthService struct {
	registry     OAuthClientRegistry
	states       repository.OAuthStateRepository
	tokens       repository.TokenRepository
	integrations repository.IntegrationRepository
	stats        *metrics.Metrics
	logger       logger.Logger
	httpClient   *http.Client
	appURL       *url.URL
	stateTTL     time.Duration
	now          func() time.Time
}

// NewOAuthService creates an OAuth handshake service
func NewOAuthService(cfg OAuthServiceConfig) (OAuthService, error) {
	appURL, err := url.Parse(cfg.AppURL)
	if err != nil || appURL.Scheme == "" || appURL.Host == "" {
		return nil, fmt.Errorf("invalid app url %q", cfg.AppURL)
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = domain.OAuthStateTTL
	}

	return &oauthService{
		registry:     cfg.Registry,
		states:       cfg.States,
		tokens:       cfg.Tokens,
		integrations: cfg.Integrations,
		stats:        cfg.Stats,
		logger:       cfg.Logger,
		httpClient:   cfg.HTTPClient,
		appURL:       appURL,
		stateTTL:     ttl,
		now:          time.Now,
	}, nil
}

func (s *oauthService) Start(ctx context.Context, userID, providerName, returnTo string) (*OAuthStart, error) {
	p, err := domain.ParseProvider(providerName)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.OAuthConfig(p); err != nil {
		return nil, err
	}

	state, err := generateRandomState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	authorizeURL, err := s.registry.AuthCodeURL(p, state)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &domain.OAuthState{
		State:     state,
		UserID:    userID,
		Provider:  p,
		ReturnTo:  s.sanitizeReturnTo(returnTo),
		ExpiresAt: now.Add(s.stateTTL),
		CreatedAt: now,
	}
	if err := s.states.CreateState(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store oauth state: %w", err)
	}

	if err := s.integrations.MarkPending(ctx, userID, p); err != nil {
		return nil, fmt.Errorf("failed to mark integration pending: %w", err)
	}

	if removed, err := s.states.DeleteExpiredStates(ctx, now.Add(-24*time.Hour)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to purge stale oauth states")
	} else if removed > 0 {
		s.logger.Debug().Int64("removed", removed).Msg("purged stale oauth states")
	}

	return &OAuthStart{Provider: p, AuthorizeURL: authorizeURL}, nil
}

func (s *oauthService) Callback(ctx context.Context, params CallbackParams) *CallbackResult {
	if params.State == "" {
		return s.fail(ctx, nil, ReasonMissingState, false)
	}

	st, err := s.states.GetState(ctx, params.State)
	if err != nil {
		if !errors.Is(err, domain.ErrOAuthStateNotFound) {
			s.logger.Error().Err(err).Msg("failed to load oauth state")
		}
		return s.fail(ctx, nil, ReasonInvalidState, false)
	}

	if st.Used() {
		return s.fail(ctx, st, ReasonStateAlreadyUsed, true)
	}
	if err := s.states.MarkStateUsed(ctx, st.State, s.now()); err != nil {
		if !errors.Is(err, domain.ErrOAuthStateUsed) {
			s.logger.Error().Err(err).Msg("failed to consume oauth state")
			return s.fail(ctx, st, ReasonInvalidState, true)
		}
		return s.fail(ctx, st, ReasonStateAlreadyUsed, true)
	}

	if st.Expired(s.now()) {
		return s.fail(ctx, st, ReasonStateExpired, true)
	}
	if params.Error != "" {
		return s.fail(ctx, st, params.Error, true)
	}
	if _, err := domain.ParseProvider(string(st.Provider)); err != nil {
		return s.fail(ctx, st, ReasonProviderNotImplemented, true)
	}

	cfg, err := s.registry.OAuthConfig(st.Provider)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			return s.fail(ctx, st, provider.MissingEnvReason(st.Provider), true)
		}
		return s.fail(ctx, st, ReasonProviderNotImplemented, true)
	}

	if params.Code == "" {
		return s.fail(ctx, st, ReasonTokenExchangeFailed, true)
	}

	exchangeCtx := ctx
	if s.httpClient != nil {
		exchangeCtx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	tok, err := cfg.Exchange(exchangeCtx, params.Code)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", st.Provider.String()).Msg("token exchange failed")
		return s.fail(ctx, st, ReasonTokenExchangeFailed, true)
	}

	now := s.now()
	record := tokenRecord(st.UserID, st.Provider, tok, now)
	if err := s.tokens.SaveToken(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("provider", st.Provider.String()).Msg("failed to store token")
		return s.fail(ctx, st, ReasonTokenStoreFailed, true)
	}
	if err := s.integrations.MarkConnected(ctx, st.UserID, st.Provider, record.Scope, now); err != nil {
		s.logger.Error().Err(err).Str("provider", st.Provider.String()).Msg("failed to mark integration connected")
		return s.fail(ctx, st, ReasonTokenStoreFailed, true)
	}

	s.stats.ObserveOAuthCallback(st.Provider.String(), "connected")
	s.logger.Info().Str("user_id", st.UserID).Str("provider", st.Provider.String()).Msg("integration connected")

	return &CallbackResult{
		RedirectURL: s.redirectURL(st.ReturnTo, st.Provider, ""),
		Provider:    st.Provider,
		Connected:   true,
	}
}

// fail builds the error redirect. markError records the reason on the
// integration once the state identified the user.
func (s *oauthService) fail(ctx context.Context, st *domain.OAuthState, reason string, markError bool) *CallbackResult {
	returnTo := ""
	var p domain.Provider
	if st != nil {
		returnTo = st.ReturnTo
		p = st.Provider
		if markError {
			if err := s.integrations.MarkError(ctx, st.UserID, st.Provider, reason); err != nil {
				s.logger.Error().Err(err).Str("reason", reason).Msg("failed to mark integration error")
			}
		}
	}

	s.stats.ObserveOAuthCallback(p.String(), reason)
	s.logger.Warn().Str("provider", p.String()).Str("reason", reason).Msg("oauth callback failed")

	return &CallbackResult{
		RedirectURL: s.redirectURL(returnTo, p, reason),
		Provider:    p,
		Reason:      reason,
	}
}

func (s *oauthService) redirectURL(returnTo string, p domain.Provider, reason string) string {
	target, err := url.Parse(s.sanitizeReturnTo(returnTo))
	if err != nil {
		target = s.appURL
	}
	q := target.Query()
	if reason == "" {
		q.Set("health_oauth", "success")
	} else {
		q.Set("health_oauth", "error")
		q.Set("reason", reason)
	}
	if p != "" {
		q.Set("provider", p.String())
	}
	u := *target
	u.RawQuery = q.Encode()
	return u.String()
}

// sanitizeReturnTo only accepts URLs on the app origin, relative paths included
func (s *oauthService) sanitizeReturnTo(raw string) string {
	if raw == "" {
		return s.appURL.String()
	}
	u, err := url.Parse(raw)
	if err != nil {
		return s.appURL.String()
	}
	resolved := s.appURL.ResolveReference(u)
	if resolved.Scheme != s.appURL.Scheme || resolved.Host != s.appURL.Host {
		return s.appURL.String()
	}
	return resolved.String()
}

func tokenRecord(userID string, p domain.Provider, tok *oauth2.Token, now time.Time) *domain.OAuthToken {
	record := &domain.OAuthToken{
		UserID:      userID,
		Provider:    p,
		AccessToken: tok.AccessToken,
		Scope:       scopeFromToken(tok),
		Metadata: map[string]interface{}{
			"token_type":   tok.Type(),
			"connected_at": now.UTC().Format(time.RFC3339),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if tok.RefreshToken != "" {
		rt := tok.RefreshToken
		record.RefreshToken = &rt
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		record.ExpiresAt = &exp
	}
	if uid, ok := tok.Extra("user_id").(string); ok && uid != "" {
		record.Metadata["provider_user_id"] = uid
	}
	return record
}

func scopeFromToken(tok *oauth2.Token) []string {
	return provider.ScopeList(tok.Extra("scope"))
}

// generateRandomState returns 32 random bytes, URL-safe encoded
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
