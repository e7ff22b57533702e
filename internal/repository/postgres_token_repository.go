package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

// PostgresTokenRepository implements TokenRepository using PostgreSQL
type PostgresTokenRepository struct {
	db *pgxpool.Pool
}

// NewPostgresTokenRepository creates a new PostgreSQL token repository
func NewPostgresTokenRepository(db *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{db: db}
}

// GetToken retrieves the token set for a user and provider
func (r *PostgresTokenRepository) GetToken(ctx context.Context, userID string, provider domain.Provider) (*domain.OAuthToken, error) {
	query := `
		SELECT user_id, provider, access_token, refresh_token, expires_at, scope, metadata, created_at, updated_at
		FROM health_integration_tokens
		WHERE user_id = $1 AND provider = $2
	`

	token := &domain.OAuthToken{}
	var providerName string
	var metadataJSON []byte
	err := r.db.QueryRow(ctx, query, userID, string(provider)).Scan(
		&token.UserID,
		&providerName,
		&token.AccessToken,
		&token.RefreshToken,
		&token.ExpiresAt,
		&token.Scope,
		&metadataJSON,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	token.Provider = domain.Provider(providerName)

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &token.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode token metadata: %w", err)
		}
	}

	return token, nil
}

// SaveToken inserts or replaces the token set for token.UserID and token.Provider
func (r *PostgresTokenRepository) SaveToken(ctx context.Context, token *domain.OAuthToken) error {
	metadata := token.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode token metadata: %w", err)
	}

	query := `
		INSERT INTO health_integration_tokens (user_id, provider, access_token, refresh_token, expires_at, scope, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, health_integration_tokens.refresh_token),
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope,
			metadata = EXCLUDED.metadata,
			updated_at = now()
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(
		ctx,
		query,
		token.UserID,
		string(token.Provider),
		token.AccessToken,
		token.RefreshToken,
		token.ExpiresAt,
		nonNil(token.Scope),
		string(metadataJSON),
	).Scan(&token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		return &RepositoryError{Op: "save_token", Err: err}
	}

	return nil
}
