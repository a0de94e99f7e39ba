package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const lockKeyPrefix = "parcella:scheduler:"

// jobLocker is satisfied by *ratelimit.Locker.
type jobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// withLock runs fn only when this replica wins the job lock. It reports false when
// another replica holds it.
func (s *Scheduler) withLock(ctx context.Context, job string, fn func(ctx context.Context) error) (bool, error) {
	if s.locker == nil {
		return true, fn(ctx)
	}

	key := lockKeyPrefix + job
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer func() {
		// released on a fresh context so a cancelled run still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, key, token); err != nil {
			s.logger(ctx).Warn("scheduler.lock.release_failed", zap.String("job", job), zap.Error(err))
		}
	}()

	return true, fn(ctx)
}
