package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/config"
	"github.com/ridwanfathin/assistant-health-sync/internal/database"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/fitbit"
	"github.com/ridwanfathin/assistant-health-sync/internal/googlefit"
	"github.com/ridwanfathin/assistant-health-sync/internal/handler"
	"github.com/ridwanfathin/assistant-health-sync/internal/logger"
	"github.com/ridwanfathin/assistant-health-sync/internal/metrics"
	"github.com/ridwanfathin/assistant-health-sync/internal/middleware"
	"github.com/ridwanfathin/assistant-health-sync/internal/provider"
	"github.com/ridwanfathin/assistant-health-sync/internal/repository"
	"github.com/ridwanfathin/assistant-health-sync/internal/server"
	"github.com/ridwanfathin/assistant-health-sync/internal/service"
	"github.com/ridwanfathin/assistant-health-sync/internal/synclock"
	"github.com/urfave/cli/v2"

	_ "github.com/ridwanfathin/assistant-health-sync/docs"
)

// dbConnectWait bounds the startup wait for Postgres
const dbConnectWait = 30 * time.Second

// app holds the wired dependencies shared by every command
type app struct {
	cfg     *config.Config
	log     logger.Logger
	stats   *metrics.Metrics
	db      *database.PostgresDB
	closers []func()

	authService        service.AuthService
	syncService        service.SyncService
	oauthService       service.OAuthService
	integrationService service.IntegrationService
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) loadConfig() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg
	a.log = logger.New(cfg.LogFormat, cfg.LogLevel)
	a.stats = metrics.New()
	return nil
}

func (a *app) loadDatabase(ctx context.Context) error {
	a.log.Info().Msg("connecting to database")
	db, err := database.NewPostgresDB(ctx, a.cfg.DatabaseURL, dbConnectWait)
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	return nil
}

func (a *app) loadLocker(ctx context.Context) (synclock.Locker, error) {
	if a.cfg.SyncLockBackend != "redis" {
		return synclock.NewPostgresLocker(a.db.GetPool(), a.cfg.SyncLockTTL), nil
	}

	redisURL := a.cfg.RedisURL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	client, err := synclock.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return synclock.NewRedisLocker(client, a.cfg.SyncLockTTL), nil
}

func (a *app) loadServices(ctx context.Context) error {
	pool := a.db.GetPool()
	tokens := repository.NewPostgresTokenRepository(pool)
	integrations := repository.NewPostgresIntegrationRepository(pool)
	states := repository.NewPostgresOAuthStateRepository(pool)
	entries := repository.NewPostgresMetricRepository(pool)

	locker, err := a.loadLocker(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize sync lock: %w", err)
	}

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}

	registry := provider.NewRegistry(a.cfg)
	httpClient := &http.Client{Timeout: a.cfg.ProviderHTTPTimeout}

	tokenService := service.NewTokenService(tokens, registry, httpClient, a.log)

	a.authService = service.NewAuthService(a.cfg.SupabaseJWTSecret)
	a.integrationService = service.NewIntegrationService(integrations)
	a.syncService = service.NewSyncService(service.SyncServiceConfig{
		Sources: []provider.DataSource{
			fitbit.NewClient(a.cfg.ProviderHTTPTimeout),
			googlefit.NewClient(a.cfg.ProviderHTTPTimeout),
		},
		OAuth:         registry,
		Tokens:        tokenService,
		Integrations:  integrations,
		Metrics:       entries,
		Locker:        locker,
		Stats:         a.stats,
		Logger:        a.log,
		Location:      loc,
		InterDayDelay: a.cfg.InterDayDelay,
		AutoCooldown:  a.cfg.AutoSyncCooldown,
	})

	a.oauthService, err = service.NewOAuthService(service.OAuthServiceConfig{
		Registry:     registry,
		States:       states,
		Tokens:       tokens,
		Integrations: integrations,
		Stats:        a.stats,
		Logger:       a.log,
		HTTPClient:   httpClient,
		AppURL:       a.cfg.AppURL,
		StateTTL:     a.cfg.OAuthStateTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create oauth service: %w", err)
	}
	return nil
}

func (a *app) bootstrap(ctx context.Context) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	if err := a.loadDatabase(ctx); err != nil {
		return err
	}
	return a.loadServices(ctx)
}

func runServe(cctx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.close()
	if err := a.bootstrap(ctx); err != nil {
		return err
	}

	srv := server.NewServer(a.cfg, a.log, a.stats)
	srv.RegisterHandlers(
		middleware.AuthMiddleware(a.authService),
		handler.NewSyncHandler(a.syncService),
		handler.NewOAuthHandler(a.oauthService),
		handler.NewIntegrationHandler(a.integrationService),
	)

	return srv.Start(ctx)
}

func runSync(cctx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := domain.ParseProvider(cctx.String("provider"))
	if err != nil {
		return err
	}

	a := &app{}
	defer a.close()
	if err := a.bootstrap(ctx); err != nil {
		return err
	}

	opts := service.SyncOptions{}
	if cctx.IsSet("days") {
		days := cctx.Int("days")
		opts.Days = &days
	}

	result, err := a.syncService.Sync(ctx, cctx.String("user"), p, opts)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	a.log.Info().
		Str("provider", p.String()).
		Int("imported_entries", result.ImportedEntries).
		Int("processed_days", result.ProcessedDays).
		Int("days_requested", result.DaysRequested).
		Bool("rate_limited", result.RateLimited).
		Strs("blocked_data_types", result.BlockedDataTypes).
		Msg("sync finished")
	return nil
}

func runMigrate(cctx *cli.Context) error {
	a := &app{}
	defer a.close()
	if err := a.loadConfig(); err != nil {
		return err
	}
	if err := a.loadDatabase(cctx.Context); err != nil {
		return err
	}

	applied, err := database.Migrate(cctx.Context, a.db.GetPool())
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	a.log.Info().Strs("applied", applied).Msg("migrations complete")
	return nil
}
