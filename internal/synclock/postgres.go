package synclock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

// PostgresLocker stores leases as rows in health_sync_locks with an expiry,
// so a crashed holder blocks other syncs for at most ttl
type PostgresLocker struct {
	db  *pgxpool.Pool
	ttl time.Duration
	now func() time.Time
}

// NewPostgresLocker creates a locker backed by the health_sync_locks table
func NewPostgresLocker(db *pgxpool.Pool, ttl time.Duration) *PostgresLocker {
	return &PostgresLocker{db: db, ttl: ttl, now: time.Now}
}

// Acquire takes the lock unless a live lease exists
func (l *PostgresLocker) Acquire(ctx context.Context, userID string, provider domain.Provider) (*Lease, error) {
	owner := uuid.NewString()
	now := l.now()

	query := `
		INSERT INTO health_sync_locks (user_id, provider, owner, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			owner = EXCLUDED.owner,
			expires_at = EXCLUDED.expires_at,
			acquired_at = now()
		WHERE health_sync_locks.expires_at <= $5
		RETURNING owner
	`

	var got string
	err := l.db.QueryRow(ctx, query, userID, string(provider), owner, now.Add(l.ttl), now).Scan(&got)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSyncInProgress
		}
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}

	return &Lease{
		UserID:   userID,
		Provider: provider,
		Owner:    owner,
		release: func(ctx context.Context) error {
			_, err := l.db.Exec(ctx, `
				DELETE FROM health_sync_locks
				WHERE user_id = $1 AND provider = $2 AND owner = $3
			`, userID, string(provider), owner)
			if err != nil {
				return fmt.Errorf("failed to release sync lock: %w", err)
			}
			return nil
		},
		extend: func(ctx context.Context) error {
			tag, err := l.db.Exec(ctx, `
				UPDATE health_sync_locks SET expires_at = $4
				WHERE user_id = $1 AND provider = $2 AND owner = $3
			`, userID, string(provider), owner, l.now().Add(l.ttl))
			if err != nil {
				return fmt.Errorf("failed to extend sync lock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrSyncInProgress
			}
			return nil
		},
	}, nil
}
