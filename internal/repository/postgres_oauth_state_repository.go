package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

// PostgresOAuthStateRepository implements OAuthStateRepository using PostgreSQL
type PostgresOAuthStateRepository struct {
	db *pgxpool.Pool
}

// NewPostgresOAuthStateRepository creates a new PostgreSQL OAuth state repository
func NewPostgresOAuthStateRepository(db *pgxpool.Pool) *PostgresOAuthStateRepository {
	return &PostgresOAuthStateRepository{db: db}
}

// CreateState stores a freshly issued handshake state
func (r *PostgresOAuthStateRepository) CreateState(ctx context.Context, state *domain.OAuthState) error {
	query := `
		INSERT INTO health_oauth_states (state, user_id, provider, return_to, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(
		ctx,
		query,
		state.State,
		state.UserID,
		string(state.Provider),
		state.ReturnTo,
		state.ExpiresAt,
	).Scan(&state.CreatedAt)
	if err != nil {
		return &RepositoryError{Op: "create_oauth_state", Err: err}
	}
	return nil
}

// GetState looks up a handshake state by its random value
func (r *PostgresOAuthStateRepository) GetState(ctx context.Context, state string) (*domain.OAuthState, error) {
	query := `
		SELECT state, user_id, provider, return_to, expires_at, used_at, created_at
		FROM health_oauth_states
		WHERE state = $1
	`

	record := &domain.OAuthState{}
	var provider string
	err := r.db.QueryRow(ctx, query, state).Scan(
		&record.State,
		&record.UserID,
		&provider,
		&record.ReturnTo,
		&record.ExpiresAt,
		&record.UsedAt,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOAuthStateNotFound
		}
		return nil, fmt.Errorf("failed to get oauth state: %w", err)
	}
	record.Provider = domain.Provider(provider)

	return record, nil
}

// MarkStateUsed consumes the state. Only the first caller succeeds.
func (r *PostgresOAuthStateRepository) MarkStateUsed(ctx context.Context, state string, usedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE health_oauth_states SET used_at = $2
		WHERE state = $1 AND used_at IS NULL
	`, state, usedAt)
	if err != nil {
		return &RepositoryError{Op: "mark_oauth_state_used", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOAuthStateUsed
	}
	return nil
}

// DeleteExpiredStates removes states that expired before the given time
func (r *PostgresOAuthStateRepository) DeleteExpiredStates(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM health_oauth_states WHERE expires_at < $1`, before)
	if err != nil {
		return 0, &RepositoryError{Op: "delete_expired_oauth_states", Err: err}
	}
	return tag.RowsAffected(), nil
}
