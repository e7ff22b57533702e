package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

const integrationColumns = `
	user_id, provider, status, connected_at, last_sync_at, access_scope, metadata,
	denied_data_types, last_auto_sync_attempt_at, created_at, updated_at
`

// PostgresIntegrationRepository implements IntegrationRepository using PostgreSQL
type PostgresIntegrationRepository struct {
	db *pgxpool.Pool
}

// NewPostgresIntegrationRepository creates a new PostgreSQL integration repository
func NewPostgresIntegrationRepository(db *pgxpool.Pool) *PostgresIntegrationRepository {
	return &PostgresIntegrationRepository{db: db}
}

func scanIntegration(row pgx.Row) (*domain.Integration, error) {
	integration := &domain.Integration{}
	var provider, status string
	var metadataJSON []byte
	err := row.Scan(
		&integration.UserID,
		&provider,
		&status,
		&integration.ConnectedAt,
		&integration.LastSyncAt,
		&integration.AccessScope,
		&metadataJSON,
		&integration.DeniedDataTypes,
		&integration.LastAutoSyncAttemptAt,
		&integration.CreatedAt,
		&integration.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	integration.Provider = domain.Provider(provider)
	integration.Status = domain.IntegrationStatus(status)

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &integration.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode integration metadata: %w", err)
		}
	}
	return integration, nil
}

// GetIntegration retrieves the integration row for a user and provider
func (r *PostgresIntegrationRepository) GetIntegration(ctx context.Context, userID string, provider domain.Provider) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM health_integrations WHERE user_id = $1 AND provider = $2`

	integration, err := scanIntegration(r.db.QueryRow(ctx, query, userID, string(provider)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIntegrationNotFound
		}
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	return integration, nil
}

// ListIntegrations returns every integration of a user ordered by provider
func (r *PostgresIntegrationRepository) ListIntegrations(ctx context.Context, userID string) ([]domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM health_integrations WHERE user_id = $1 ORDER BY provider`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query integrations: %w", err)
	}
	defer rows.Close()

	integrations := []domain.Integration{}
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		integrations = append(integrations, *integration)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating integrations: %w", err)
	}

	return integrations, nil
}

// MarkPending creates or resets the integration to pending when a handshake starts
func (r *PostgresIntegrationRepository) MarkPending(ctx context.Context, userID string, provider domain.Provider) error {
	query := `
		INSERT INTO health_integrations (user_id, provider, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (user_id, provider) DO UPDATE SET
			status = 'pending',
			updated_at = now()
	`
	if _, err := r.db.Exec(ctx, query, userID, string(provider)); err != nil {
		return &RepositoryError{Op: "mark_pending", Err: err}
	}
	return nil
}

// MarkConnected records a successful handshake and forgets previously denied data types
func (r *PostgresIntegrationRepository) MarkConnected(ctx context.Context, userID string, provider domain.Provider, scope []string, connectedAt time.Time) error {
	query := `
		INSERT INTO health_integrations (user_id, provider, status, connected_at, access_scope, denied_data_types)
		VALUES ($1, $2, 'connected', $3, $4, '{}')
		ON CONFLICT (user_id, provider) DO UPDATE SET
			status = 'connected',
			connected_at = EXCLUDED.connected_at,
			access_scope = EXCLUDED.access_scope,
			denied_data_types = '{}',
			metadata = health_integrations.metadata - 'last_error',
			updated_at = now()
	`
	if _, err := r.db.Exec(ctx, query, userID, string(provider), connectedAt, nonNil(scope)); err != nil {
		return &RepositoryError{Op: "mark_connected", Err: err}
	}
	return nil
}

// MarkError records a failed handshake with its reason code
func (r *PostgresIntegrationRepository) MarkError(ctx context.Context, userID string, provider domain.Provider, reason string) error {
	metadataJSON, err := json.Marshal(map[string]interface{}{"last_error": reason})
	if err != nil {
		return fmt.Errorf("failed to encode integration metadata: %w", err)
	}

	query := `
		INSERT INTO health_integrations (user_id, provider, status, metadata)
		VALUES ($1, $2, 'error', $3::jsonb)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			status = 'error',
			metadata = health_integrations.metadata || EXCLUDED.metadata,
			updated_at = now()
	`
	if _, err := r.db.Exec(ctx, query, userID, string(provider), string(metadataJSON)); err != nil {
		return &RepositoryError{Op: "mark_error", Err: err}
	}
	return nil
}

// RecordSyncOutcome marks the integration connected and stores the diagnostic counters of a run
func (r *PostgresIntegrationRepository) RecordSyncOutcome(ctx context.Context, userID string, provider domain.Provider, outcome domain.SyncOutcome) error {
	metadataJSON, err := json.Marshal(outcome.Metadata())
	if err != nil {
		return fmt.Errorf("failed to encode sync outcome: %w", err)
	}

	query := `
		INSERT INTO health_integrations (user_id, provider, status, last_sync_at, metadata, denied_data_types)
		VALUES ($1, $2, 'connected', $3, $4::jsonb, $5)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			status = 'connected',
			last_sync_at = EXCLUDED.last_sync_at,
			metadata = health_integrations.metadata || EXCLUDED.metadata,
			denied_data_types = EXCLUDED.denied_data_types,
			updated_at = now()
	`
	_, err = r.db.Exec(ctx, query, userID, string(provider), outcome.FinishedAt, string(metadataJSON), nonNil(outcome.DeniedDataTypes))
	if err != nil {
		return &RepositoryError{Op: "record_sync_outcome", Err: err}
	}
	return nil
}

// UpdateDeniedDataTypes replaces the set of data types the provider refuses for this user
func (r *PostgresIntegrationRepository) UpdateDeniedDataTypes(ctx context.Context, userID string, provider domain.Provider, denied []string) error {
	query := `
		UPDATE health_integrations
		SET denied_data_types = $3, updated_at = now()
		WHERE user_id = $1 AND provider = $2
	`
	if _, err := r.db.Exec(ctx, query, userID, string(provider), nonNil(denied)); err != nil {
		return &RepositoryError{Op: "update_denied_data_types", Err: err}
	}
	return nil
}

// ClaimAutoSync atomically stamps last_auto_sync_attempt_at when the cooldown has passed
func (r *PostgresIntegrationRepository) ClaimAutoSync(ctx context.Context, userID string, provider domain.Provider, now time.Time, cooldown time.Duration) (bool, *time.Time, error) {
	query := `
		UPDATE health_integrations
		SET last_auto_sync_attempt_at = $3, updated_at = now()
		WHERE user_id = $1 AND provider = $2
			AND (last_auto_sync_attempt_at IS NULL OR last_auto_sync_attempt_at <= $4)
	`
	tag, err := r.db.Exec(ctx, query, userID, string(provider), now, now.Add(-cooldown))
	if err != nil {
		return false, nil, &RepositoryError{Op: "claim_auto_sync", Err: err}
	}
	if tag.RowsAffected() == 1 {
		return true, nil, nil
	}

	var lastAttempt *time.Time
	err = r.db.QueryRow(ctx, `
		SELECT last_auto_sync_attempt_at FROM health_integrations WHERE user_id = $1 AND provider = $2
	`, userID, string(provider)).Scan(&lastAttempt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Nothing to throttle; the sync itself reports the missing connection
			return true, nil, nil
		}
		return false, nil, &RepositoryError{Op: "claim_auto_sync", Err: err}
	}
	if lastAttempt == nil {
		return true, nil, nil
	}

	next := lastAttempt.Add(cooldown)
	return false, &next, nil
}
