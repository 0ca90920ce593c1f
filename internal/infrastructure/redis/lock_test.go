package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leaseStore implements the commands the lock scripts use against an
// in-memory key space. Any other Cmdable method panics on the nil embed.
type leaseStore struct {
	redis.Cmdable

	mu      sync.Mutex
	values  map[string]string
	extends int
}

func newLeaseStore() *leaseStore {
	return &leaseStore{values: make(map[string]string)}
}

func (s *leaseStore) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	s.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (s *leaseStore) EvalSha(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[keys[0]] != args[0] {
		return redis.NewCmdResult(int64(0), nil)
	}
	switch sha {
	case extendLockScript.Hash():
		s.extends++
	case releaseLockScript.Hash():
		delete(s.values, keys[0])
	}
	return redis.NewCmdResult(int64(1), nil)
}

func (s *leaseStore) steal(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = "another-owner"
}

func (s *leaseStore) extendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extends
}

func (s *leaseStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

const orderStatusKey = "lock:summit:job:order_statuses"

func TestJobLocker_SecondRunIsRefused(t *testing.T) {
	store := newLeaseStore()
	locker := NewJobLocker(store, time.Minute)
	ctx := context.Background()

	release, err := locker.TryLock(ctx, "order_statuses")
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, "order_statuses")
	assert.ErrorIs(t, err, domainErrors.ErrJobAlreadyRunning)

	require.NoError(t, release(ctx))
	assert.False(t, store.has(orderStatusKey))

	release, err = locker.TryLock(ctx, "order_statuses")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestJobLocker_RenewsLeaseUntilReleased(t *testing.T) {
	store := newLeaseStore()
	locker := NewJobLocker(store, 30*time.Millisecond)
	ctx := context.Background()

	release, err := locker.TryLock(ctx, "order_statuses")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return store.extendCount() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, release(ctx))
	after := store.extendCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, store.extendCount())
	assert.False(t, store.has(orderStatusKey))
}

func TestJobLocker_ReportsLostLease(t *testing.T) {
	store := newLeaseStore()
	locker := NewJobLocker(store, 30*time.Millisecond)
	ctx := context.Background()

	release, err := locker.TryLock(ctx, "order_statuses")
	require.NoError(t, err)

	store.steal(orderStatusKey)
	time.Sleep(50 * time.Millisecond)

	err = release(ctx)
	assert.ErrorIs(t, err, domainErrors.ErrLockNotHeld)
	assert.True(t, store.has(orderStatusKey), "another owner's lease must stay")
}
