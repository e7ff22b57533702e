// Package synclock guarantees at most one running sync per (user, provider).
package synclock

import (
	"context"
	"fmt"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

// Locker hands out short-lived exclusive leases.
// Acquire fails with domain.ErrSyncInProgress while another lease is live.
type Locker interface {
	Acquire(ctx context.Context, userID string, provider domain.Provider) (*Lease, error)
}

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	UserID   string
	Provider domain.Provider
	Owner    string

	release func(ctx context.Context) error
	extend  func(ctx context.Context) error
}

// NewLease wraps release and extend functions, for Locker implementations outside this package
func NewLease(userID string, provider domain.Provider, owner string, release, extend func(ctx context.Context) error) *Lease {
	return &Lease{UserID: userID, Provider: provider, Owner: owner, release: release, extend: extend}
}

// Extend pushes the expiry a full ttl past now. It fails with
// domain.ErrSyncInProgress once the lease expired and another holder took it.
func (l *Lease) Extend(ctx context.Context) error {
	if l == nil || l.release == nil || l.extend == nil {
		return nil
	}
	return l.extend(ctx)
}

// Release gives the lock back. A lease that already expired and was taken over is left alone.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.release == nil {
		return nil
	}
	release := l.release
	l.release = nil
	l.extend = nil
	return release(ctx)
}

func lockKey(userID string, provider domain.Provider) string {
	return fmt.Sprintf("health-sync-lock:%s:%s", userID, provider)
}
