package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/logger"
	"github.com/ridwanfathin/assistant-health-sync/internal/metrics"
	"github.com/ridwanfathin/assistant-health-sync/internal/provider"
	"github.com/ridwanfathin/assistant-health-sync/internal/repository"
	"github.com/ridwanfathin/assistant-health-sync/internal/synclock"
	"go.uber.org/multierr"
)

// SyncOptions are the caller supplied knobs of one sync run
type SyncOptions struct {
	// Days overrides the default window when set
	Days *int

	// Auto marks a sync triggered by the app rather than the user; it is
	// subject to the server-side cooldown
	Auto bool
}

// SyncService imports provider data into the canonical metric table
type SyncService interface {
	Sync(ctx context.Context, userID string, provider domain.Provider, opts SyncOptions) (*domain.SyncResult, error)
}

// SyncServiceConfig holds the dependencies of the sync service
type SyncServiceConfig struct {
	Sources       []provider.DataSource
	OAuth         OAuthConfigProvider
	Tokens        TokenService
	Integrations  repository.IntegrationRepository
	Metrics       repository.MetricRepository
	Locker        synclock.Locker
	Stats         *metrics.Metrics
	Logger        logger.Logger
	Location      *time.Location
	InterDayDelay time.Duration
	AutoCooldown  time.Duration
}

type syncService struct {
	sources       map[domain.Provider]provider.DataSource
	oauth         OAuthConfigProvider
	tokens        TokenService
	integrations  repository.IntegrationRepository
	entries       repository.MetricRepository
	locker        synclock.Locker
	stats         *metrics.Metrics
	logger        logger.Logger
	location      *time.Location
	interDayDelay time.Duration
	autoCooldown  time.Duration
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewSyncService creates a sync service
func NewSyncService(cfg SyncServiceConfig) SyncService {
	sources := make(map[domain.Provider]provider.DataSource, len(cfg.Sources))
	for _, src := range cfg.Sources {
		sources[src.Provider()] = src
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &syncService{
		sources:       sources,
		oauth:         cfg.OAuth,
		tokens:        cfg.Tokens,
		integrations:  cfg.Integrations,
		entries:       cfg.Metrics,
		locker:        cfg.Locker,
		stats:         cfg.Stats,
		logger:        cfg.Logger,
		location:      loc,
		interDayDelay: cfg.InterDayDelay,
		autoCooldown:  cfg.AutoCooldown,
		now:           time.Now,
		sleep:         sleepWithContext,
	}
}

func (s *syncService) Sync(ctx context.Context, userID string, p domain.Provider, opts SyncOptions) (*domain.SyncResult, error) {
	started := s.now()
	source, ok := s.sources[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, p)
	}
	if _, err := s.oauth.OAuthConfig(p); err != nil {
		return nil, err
	}

	log := logger.With(s.logger, logger.Fields{"user_id": userID, "provider": p.String()})

	lease, err := s.locker.Acquire(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Release with a fresh context so a cancelled request still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			log.Error().Err(err).Msg("failed to release sync lock")
		}
	}()

	// The cooldown is only stamped once this run holds the lock
	if opts.Auto {
		claimed, nextAllowed, err := s.integrations.ClaimAutoSync(ctx, userID, p, started, s.autoCooldown)
		if err != nil {
			return nil, fmt.Errorf("failed to claim automatic sync: %w", err)
		}
		if !claimed {
			log.Debug().Msg("automatic sync skipped inside cooldown")
			s.stats.ObserveSync(p.String(), "skipped", 0, false, 0)
			return &domain.SyncResult{Provider: p, Skipped: true, NextAllowedAt: nextAllowed}, nil
		}
	}

	token, err := s.tokens.GetFreshToken(ctx, userID, p)
	if err != nil {
		return nil, err
	}

	integration, err := s.integrations.GetIntegration(ctx, userID, p)
	if err != nil && !errors.Is(err, domain.ErrIntegrationNotFound) {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	var lastSyncAt *time.Time
	var denied []string
	if integration != nil {
		lastSyncAt = integration.LastSyncAt
		denied = append(denied, integration.DeniedDataTypes...)
	}
	initiallyDenied := len(denied)

	days := ResolveSyncDays(opts.Days, lastSyncAt, provider.MaxSyncDays(p))
	dates := BuildDateRange(started.In(s.location), days)

	result := &domain.SyncResult{Provider: p, DaysRequested: days}
	var batch []domain.HealthMetricEntry
	var blocked []string
	var fatal error

	log.Info().Int("days", days).Strs("denied_data_types", denied).Msg("starting sync")

	for i := 0; i < len(dates); {
		day := dates[i]
		if err := lease.Extend(ctx); err != nil {
			if errors.Is(err, domain.ErrSyncInProgress) {
				fatal = fmt.Errorf("sync lock lost before %s: %w", day.Format("2006-01-02"), err)
				break
			}
			log.Warn().Err(err).Msg("failed to extend sync lock")
		}
		values, err := source.FetchDay(ctx, token.AccessToken, day, denied)
		if err != nil {
			var blockedErr *domain.PermissionBlockedError
			if rl, ok := domain.IsRateLimited(err); ok {
				result.RateLimited = true
				result.RetryAfterSeconds = rl.RetryAfterSeconds
				log.Warn().Str("day", day.Format("2006-01-02")).Msg("provider rate limit reached, stopping")
				break
			}
			if errors.As(err, &blockedErr) && !containsString(denied, blockedErr.DataType) {
				denied = append(denied, blockedErr.DataType)
				blocked = append(blocked, blockedErr.DataType)
				s.stats.ObserveBlockedDataType(p.String(), blockedErr.DataType)
				log.Warn().Str("data_type", blockedErr.DataType).Str("reason", blockedErr.Message).Msg("data type denied, excluding it")
				continue
			}
			fatal = fmt.Errorf("failed to fetch %s: %w", day.Format("2006-01-02"), err)
			break
		}

		result.ProcessedDays++
		if !values.IsEmpty() {
			batch = append(batch, domain.NewSyncedEntry(userID, p, day, values, s.now()))
		}

		i++
		if i < len(dates) && s.interDayDelay > 0 {
			if err := s.sleep(ctx, s.interDayDelay); err != nil {
				fatal = err
				break
			}
		}
	}

	if len(batch) > 0 {
		flushCtx := ctx
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			flushCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
		}
		imported, err := s.entries.UpsertEntries(flushCtx, batch)
		if err != nil {
			err = fmt.Errorf("failed to store metric entries: %w", err)
			s.stats.ObserveSync(p.String(), "failed", 0, result.RateLimited, s.now().Sub(started))
			return nil, multierr.Combine(fatal, err)
		}
		result.ImportedEntries = imported
	}

	if fatal != nil {
		log.Error().Err(fatal).Int("imported", result.ImportedEntries).Msg("sync aborted")
		if len(denied) > initiallyDenied {
			if err := s.integrations.UpdateDeniedDataTypes(ctx, userID, p, denied); err != nil {
				fatal = multierr.Append(fatal, fmt.Errorf("failed to store denied data types: %w", err))
			}
		}
		s.stats.ObserveSync(p.String(), "failed", result.ImportedEntries, result.RateLimited, s.now().Sub(started))
		return nil, fatal
	}

	result.BlockedDataTypes = denied
	outcome := domain.SyncOutcome{
		ImportedEntries:   result.ImportedEntries,
		ProcessedDays:     result.ProcessedDays,
		DaysRequested:     result.DaysRequested,
		RateLimited:       result.RateLimited,
		RetryAfterSeconds: result.RetryAfterSeconds,
		BlockedDataTypes:  blocked,
		DeniedDataTypes:   denied,
		FinishedAt:        s.now(),
	}
	if err := s.integrations.RecordSyncOutcome(ctx, userID, p, outcome); err != nil {
		return nil, fmt.Errorf("failed to record sync outcome: %w", err)
	}

	s.stats.ObserveSync(p.String(), "ok", result.ImportedEntries, result.RateLimited, s.now().Sub(started))
	log.Info().
		Int("imported", result.ImportedEntries).
		Int("processed_days", result.ProcessedDays).
		Bool("rate_limited", result.RateLimited).
		Msg("sync finished")

	return result, nil
}

// sleepWithContext waits for d or until ctx is done
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
