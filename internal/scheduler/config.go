package scheduler

import (
	"time"

	"github.com/smallbiznis/parcella/internal/config"
)

// Config controls the scheduler loop.
type Config struct {
	RunInterval time.Duration
	LockTTL     time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		LockTTL:     5 * time.Minute,
		JobTimeout:  time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second,
		LockTTL:     time.Duration(cfg.Scheduler.LockTTLSeconds) * time.Second,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	// a sweep must never outlive its lock
	if c.JobTimeout > c.LockTTL {
		c.JobTimeout = c.LockTTL
	}
	return c
}
