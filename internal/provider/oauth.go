package provider

import (
	"strings"

	"github.com/ridwanfathin/assistant-health-sync/internal/config"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/fitbit"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/fitness/v1"
)

// FitbitScopes are requested on every Fitbit authorization
var FitbitScopes = []string{"activity", "heartrate", "sleep", "weight", "nutrition", "profile"}

// GoogleFitScopes are requested on every Google Fit authorization
var GoogleFitScopes = []string{
	fitness.FitnessActivityReadScope,
	fitness.FitnessBodyReadScope,
	fitness.FitnessHeartRateReadScope,
	fitness.FitnessSleepReadScope,
	fitness.FitnessNutritionReadScope,
	fitness.FitnessBloodPressureReadScope,
	fitness.FitnessOxygenSaturationReadScope,
	fitness.FitnessBodyTemperatureReadScope,
	fitness.FitnessBloodGlucoseReadScope,
	fitness.FitnessReproductiveHealthReadScope,
}

// Registry builds OAuth client configurations from the service config
type Registry struct {
	configs map[domain.Provider]*oauth2.Config
}

// Option customizes a Registry
type Option func(*Registry)

// WithEndpoint overrides the OAuth endpoint of a provider, used against fake token servers
func WithEndpoint(p domain.Provider, endpoint oauth2.Endpoint) Option {
	return func(r *Registry) {
		if c, ok := r.configs[p]; ok {
			if endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
				endpoint.AuthStyle = c.Endpoint.AuthStyle
			}
			c.Endpoint = endpoint
		}
	}
}

// NewRegistry creates a registry holding only the providers whose credentials are set
func NewRegistry(cfg *config.Config, opts ...Option) *Registry {
	r := &Registry{configs: make(map[domain.Provider]*oauth2.Config)}

	if cfg.FitbitConfigured() {
		endpoint := fitbit.Endpoint
		// Fitbit wants client credentials as HTTP Basic auth
		endpoint.AuthStyle = oauth2.AuthStyleInHeader
		r.configs[domain.ProviderFitbit] = &oauth2.Config{
			ClientID:     cfg.FitbitClientID,
			ClientSecret: cfg.FitbitClientSecret,
			RedirectURL:  cfg.FitbitRedirectURL,
			Scopes:       FitbitScopes,
			Endpoint:     endpoint,
		}
	}

	if cfg.GoogleFitConfigured() {
		endpoint := google.Endpoint
		endpoint.AuthStyle = oauth2.AuthStyleInParams
		r.configs[domain.ProviderGoogleFit] = &oauth2.Config{
			ClientID:     cfg.GoogleFitClientID,
			ClientSecret: cfg.GoogleFitClientSecret,
			RedirectURL:  cfg.GoogleFitRedirectURL,
			Scopes:       GoogleFitScopes,
			Endpoint:     endpoint,
		}
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OAuthConfig returns the client configuration for p or a ConfigurationError
// when its credentials are missing
func (r *Registry) OAuthConfig(p domain.Provider) (*oauth2.Config, error) {
	if _, err := domain.ParseProvider(string(p)); err != nil {
		return nil, err
	}
	c, ok := r.configs[p]
	if !ok {
		return nil, &domain.ConfigurationError{Setting: credentialSettings(p)}
	}
	return c, nil
}

// AuthCodeURL builds the provider authorize URL for state
func (r *Registry) AuthCodeURL(p domain.Provider, state string) (string, error) {
	c, err := r.OAuthConfig(p)
	if err != nil {
		return "", err
	}

	switch p {
	case domain.ProviderGoogleFit:
		// Without a forced consent prompt Google omits the refresh token on reconnect
		return c.AuthCodeURL(state,
			oauth2.AccessTypeOffline,
			oauth2.ApprovalForce,
			oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		), nil
	default:
		return c.AuthCodeURL(state), nil
	}
}

func credentialSettings(p domain.Provider) string {
	switch p {
	case domain.ProviderGoogleFit:
		return "GOOGLE_FIT_CLIENT_ID, GOOGLE_FIT_CLIENT_SECRET"
	default:
		return "FITBIT_CLIENT_ID, FITBIT_CLIENT_SECRET"
	}
}

// ScopeList splits the scope string of a token response
func ScopeList(raw interface{}) []string {
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil
	}
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
}
