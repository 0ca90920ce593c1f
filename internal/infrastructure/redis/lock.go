package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// Only the owner token may release the lock.
	releaseLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	extendLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// DistributedLock is a single-owner lease on a Redis key.
type DistributedLock struct {
	client   redis.Cmdable
	key      string
	token    string
	ttl      time.Duration
	acquired bool
}

func NewDistributedLock(client redis.Cmdable, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    "lock:" + key,
		token:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire sets the key if absent. It returns false when another owner holds it.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	l.acquired = ok
	return ok, nil
}

// Extend pushes the expiry forward while the lock is still ours.
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	if !l.acquired {
		return domainErrors.ErrLockNotHeld
	}
	res, err := extendLockScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", l.key, err)
	}
	if res == 0 {
		l.acquired = false
		return domainErrors.ErrLockNotHeld
	}
	return nil
}

// Release deletes the key if we still own it. Releasing an unheld lock is a no-op.
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}
	res, err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	l.acquired = false
	if res == 0 {
		return domainErrors.ErrLockNotHeld
	}
	return nil
}

// JobLocker hands out per-job leases so that a sync job never runs twice at once
// across API and worker processes. A held lease is renewed every third of its
// TTL until it is released, so a job may outlive the TTL.
type JobLocker struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewJobLocker(client redis.Cmdable, ttl time.Duration) *JobLocker {
	return &JobLocker{client: client, ttl: ttl}
}

// TryLock acquires the lease for job. It fails with ErrJobAlreadyRunning when
// another run holds it. The returned func stops the renewal and releases the
// lease; it reports ErrLockNotHeld if the lease was lost while held.
func (j *JobLocker) TryLock(ctx context.Context, job string) (func(context.Context) error, error) {
	lock := NewDistributedLock(j.client, "summit:job:"+job, j.ttl)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrLockAcquisitionFailed, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", job, domainErrors.ErrJobAlreadyRunning)
	}

	renewCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	var lost error
	go func() {
		defer close(done)
		lost = j.renew(renewCtx, lock)
	}()

	return func(releaseCtx context.Context) error {
		stop()
		<-done
		if lost != nil {
			return fmt.Errorf("%s lease: %w", job, lost)
		}
		return lock.Release(releaseCtx)
	}, nil
}

// renew extends lock until ctx is cancelled. It returns the error that ended
// the lease early, or nil.
func (j *JobLocker) renew(ctx context.Context, lock *DistributedLock) error {
	interval := j.ttl / 3
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		// A lost lease ends renewal. Other errors are retried on the next tick.
		if err := lock.Extend(ctx, j.ttl); errors.Is(err, domainErrors.ErrLockNotHeld) {
			return err
		}
	}
}
