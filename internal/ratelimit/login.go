package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/parcella/internal/config"
	"go.uber.org/zap"
)

var ErrTooManyAttempts = errors.New("too_many_attempts")

// LoginLimiter throttles login attempts per email and client address. Without
// redis it lets everything through.
type LoginLimiter struct {
	bucket *Bucket
	limit  Limit
	log    *zap.Logger
}

func NewLoginLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) (*LoginLimiter, error) {
	log = log.Named("ratelimit.login")
	if client == nil {
		return &LoginLimiter{log: log}, nil
	}

	limit := Limit{Rate: cfg.RateLimit.LoginRate, Burst: cfg.RateLimit.LoginBurst}
	if !limit.valid() {
		return nil, ErrLimitInvalid
	}
	return &LoginLimiter{bucket: NewBucket(client), limit: limit, log: log}, nil
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow returns ErrTooManyAttempts and the wait time when the pair is over
// budget. Redis failures let the attempt through.
func (l *LoginLimiter) Allow(ctx context.Context, email, clientIP string) (time.Duration, error) {
	if !l.Enabled() {
		return 0, nil
	}

	d, err := l.bucket.Take(ctx, loginKey(email, clientIP), l.limit)
	if err != nil {
		l.log.Warn("login rate limit check failed", zap.Error(err))
		return 0, nil
	}
	if !d.Allowed {
		return d.RetryAfter, ErrTooManyAttempts
	}
	return 0, nil
}

// loginKey keeps addresses out of redis: the email is stored hashed.
func loginKey(email, clientIP string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "auth:login:" + hex.EncodeToString(sum[:8]) + ":" + strings.TrimSpace(clientIP)
}
