//go:build integration

package synclock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ridwanfathin/assistant-health-sync/internal/database"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testUserID = "7f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f"

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("health_sync_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = database.Migrate(ctx, pool)
	require.NoError(t, err)
	return pool
}

func startRedis(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func exerciseLocker(t *testing.T, locker Locker) {
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, testUserID, domain.ProviderFitbit)
	require.NoError(t, err)
	require.NoError(t, lease.Extend(ctx))

	_, err = locker.Acquire(ctx, testUserID, domain.ProviderFitbit)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	other, err := locker.Acquire(ctx, testUserID, domain.ProviderGoogleFit)
	require.NoError(t, err, "locks are per provider")
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx))
	assert.NoError(t, lease.Extend(ctx), "a released lease has nothing to extend")

	again, err := locker.Acquire(ctx, testUserID, domain.ProviderFitbit)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestPostgresLocker(t *testing.T) {
	exerciseLocker(t, NewPostgresLocker(startPostgres(t), time.Minute))
}

func TestPostgresLockerTakesOverExpiredLease(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	stale := NewPostgresLocker(pool, time.Minute)
	stale.now = func() time.Time { return time.Now().Add(-time.Hour) }
	lost, err := stale.Acquire(ctx, testUserID, domain.ProviderFitbit)
	require.NoError(t, err)

	fresh := NewPostgresLocker(pool, time.Minute)
	lease, err := fresh.Acquire(ctx, testUserID, domain.ProviderFitbit)
	require.NoError(t, err)

	assert.ErrorIs(t, lost.Extend(ctx), domain.ErrSyncInProgress)
	require.NoError(t, lost.Release(ctx))

	_, err = fresh.Acquire(ctx, testUserID, domain.ProviderFitbit)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress, "releasing a lost lease leaves the new holder alone")
	require.NoError(t, lease.Release(ctx))
}

func TestPostgresLockerExtendKeepsLeaseAlive(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	clock := time.Now()
	locker := NewPostgresLocker(pool, time.Minute)
	locker.now = func() time.Time { return clock }

	lease, err := locker.Acquire(ctx, testUserID, domain.ProviderFitbit)
	require.NoError(t, err)

	// Past the original expiry, but inside the extended one
	clock = clock.Add(50 * time.Second)
	require.NoError(t, lease.Extend(ctx))
	clock = clock.Add(50 * time.Second)

	_, err = locker.Acquire(ctx, testUserID, domain.ProviderFitbit)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	require.NoError(t, lease.Release(ctx))
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, startRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	exerciseLocker(t, NewRedisLocker(client, time.Minute))
}

func TestRedisLockerExtend(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, startRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, time.Minute)
	lease, err := locker.Acquire(ctx, testUserID, domain.ProviderGoogleFit)
	require.NoError(t, err)

	key := lockKey(testUserID, domain.ProviderGoogleFit)
	require.NoError(t, client.PExpire(ctx, key, time.Second).Err())
	require.NoError(t, lease.Extend(ctx))

	ttl, err := client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, client.Del(ctx, key).Err())
	assert.ErrorIs(t, lease.Extend(ctx), domain.ErrSyncInProgress)
	require.NoError(t, lease.Release(ctx))
}
