package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port         int           `env:"PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	LogFormat    string        `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	// Database and session verification
	DatabaseURL       string `env:"POSTGRES_DB_URL"`
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET"`

	// AppURL is where OAuth callbacks redirect when no return URL was given
	AppURL string `env:"APP_URL" envDefault:"http://localhost:5173"`

	// Provider credentials
	FitbitClientID        string `env:"FITBIT_CLIENT_ID"`
	FitbitClientSecret    string `env:"FITBIT_CLIENT_SECRET"`
	FitbitRedirectURL     string `env:"FITBIT_REDIRECT_URL"`
	GoogleFitClientID     string `env:"GOOGLE_FIT_CLIENT_ID"`
	GoogleFitClientSecret string `env:"GOOGLE_FIT_CLIENT_SECRET"`
	GoogleFitRedirectURL  string `env:"GOOGLE_FIT_REDIRECT_URL"`

	// Sync behaviour
	ProviderHTTPTimeout time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"30s"`
	InterDayDelay       time.Duration `env:"SYNC_INTER_DAY_DELAY" envDefault:"200ms"`
	SyncTimezone        string        `env:"SYNC_TIMEZONE" envDefault:"UTC"`
	AutoSyncCooldown    time.Duration `env:"AUTO_SYNC_COOLDOWN" envDefault:"6h"`
	OAuthStateTTL       time.Duration `env:"OAUTH_STATE_TTL" envDefault:"15m"`

	// Sync lock backend: "postgres" or "redis"
	SyncLockBackend string        `env:"SYNC_LOCK_BACKEND" envDefault:"postgres"`
	SyncLockTTL     time.Duration `env:"SYNC_LOCK_TTL" envDefault:"5m"`
	RedisURL        string        `env:"REDIS_URL"`
}

// LoadConfig loads the application configuration from environment variables
func LoadConfig() (*Config, error) {
	// Get the executable directory
	execPath, err := os.Executable()
	if err != nil {
		log.Printf("Warning: Could not determine executable path: %v", err)
	}

	// Determine project root directory
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(execPath)))
	envPath := filepath.Join(projectRoot, ".env")

	// Load .env file if it exists
	if err := godotenv.Load(envPath); err != nil {
		// Try loading from current directory as fallback
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading .env file. Using environment variables.")
		} else {
			log.Println("Loaded environment variables from current directory .env file")
		}
	} else {
		log.Printf("Loaded environment variables from %s", envPath)
	}

	return Parse()
}

// Parse reads configuration from the process environment without touching .env files
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.SyncLockBackend != "postgres" && cfg.SyncLockBackend != "redis" {
		return nil, fmt.Errorf("invalid SYNC_LOCK_BACKEND %q: expected postgres or redis", cfg.SyncLockBackend)
	}
	if _, err := url.Parse(cfg.AppURL); err != nil {
		return nil, fmt.Errorf("invalid APP_URL: %w", err)
	}

	// Validate critical configuration
	validateConfig(cfg)

	return cfg, nil
}

// Location resolves SyncTimezone, which decides where "today" ends for a sync
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SyncTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_TIMEZONE %q: %w", c.SyncTimezone, err)
	}
	return loc, nil
}

// FitbitConfigured reports whether Fitbit OAuth credentials are present
func (c *Config) FitbitConfigured() bool {
	return c.FitbitClientID != "" && c.FitbitClientSecret != ""
}

// GoogleFitConfigured reports whether Google Fit OAuth credentials are present
func (c *Config) GoogleFitConfigured() bool {
	return c.GoogleFitClientID != "" && c.GoogleFitClientSecret != ""
}

// validateConfig checks if critical configuration values are set and logs warnings if they're missing
func validateConfig(config *Config) {
	if config.DatabaseURL == "" {
		log.Println("Warning: No POSTGRES_DB_URL provided. The server will not start.")
	}

	if config.SupabaseJWTSecret == "" {
		log.Println("Warning: No SUPABASE_JWT_SECRET provided. Every authenticated request will be rejected.")
	}

	if !config.FitbitConfigured() {
		log.Println("Warning: Fitbit credentials missing. Fitbit connect and sync will fail.")
	}

	if !config.GoogleFitConfigured() {
		log.Println("Warning: Google Fit credentials missing. Google Fit connect and sync will fail.")
	}

	if config.SyncLockBackend == "redis" && config.RedisURL == "" {
		log.Println("Warning: SYNC_LOCK_BACKEND=redis without REDIS_URL. Falling back to localhost:6379.")
	}
}
