// Package errorreport forwards panics and internal errors to Sentry when a DSN is
// configured. Without a DSN every call is a no-op.
package errorreport

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool
}

type Reporter struct {
	enabled bool
	log     *zap.Logger
}

func New(lc fx.Lifecycle, cfg Config, log *zap.Logger) (*Reporter, error) {
	log = log.Named("errorreport")
	if cfg.DSN == "" {
		log.Info("sentry dsn empty, error reporting disabled")
		return &Reporter{log: log}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		Debug:       cfg.Debug,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			// requests may carry patient data
			event.User = sentry.User{}
			event.Request = nil
			return event
		},
	})
	if err != nil {
		return nil, err
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				sentry.Flush(2 * time.Second)
				return nil
			},
		})
	}
	return &Reporter{enabled: true, log: log}, nil
}

func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// CaptureError reports err with low-cardinality tags.
func (r *Reporter) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// GinRecovery recovers panics, reports them and answers 500 in the API error shape.
func (r *Reporter) GinRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			route := c.FullPath()
			if r != nil && r.log != nil {
				r.log.Error("panic recovered",
					zap.String("route", route),
					zap.Any("panic", recovered),
					zap.Stack("stack"),
				)
			}
			if r.Enabled() {
				hub := sentry.CurrentHub().Clone()
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("route", route)
					scope.SetTag("method", c.Request.Method)
					scope.SetLevel(sentry.LevelFatal)
					hub.RecoverWithContext(c.Request.Context(), recovered)
				})
				hub.Flush(2 * time.Second)
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"type":    "internal_error",
					"message": "internal error",
				},
			})
		}()
		c.Next()
	}
}
