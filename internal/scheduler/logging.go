package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	obscontext "github.com/smallbiznis/parcella/internal/observability/context"
	obslogger "github.com/smallbiznis/parcella/internal/observability/logger"
	"go.uber.org/zap"
)

// sweepRun accumulates what one job execution saw, for the closing log line.
type sweepRun struct {
	job       string
	runID     string
	startedAt time.Time

	overdue        int
	listed         int
	owners         map[snowflake.ID]struct{}
	maxDaysOverdue int
	failed         bool
}

type sweepRunKey struct{}

func (r *sweepRun) record(ownerID snowflake.ID, daysOverdue int) {
	if r == nil {
		return
	}
	r.listed++
	r.owners[ownerID] = struct{}{}
	if daysOverdue > r.maxDaysOverdue {
		r.maxDaysOverdue = daysOverdue
	}
}

func (r *sweepRun) total(n int) {
	if r != nil {
		r.overdue = n
	}
}

func (r *sweepRun) fail() {
	if r != nil {
		r.failed = true
	}
}

// startRun attaches a run to ctx unless one is already there, in which case the
// caller is nested and must not log start/finish again.
func (s *Scheduler) startRun(ctx context.Context, job string) (context.Context, *sweepRun, bool) {
	if existing, ok := ctx.Value(sweepRunKey{}).(*sweepRun); ok {
		return ctx, existing, false
	}
	run := &sweepRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
		owners:    map[snowflake.ID]struct{}{},
	}
	ctx = context.WithValue(ctx, sweepRunKey{}, run)
	ctx = obscontext.WithActor(ctx, "system", "scheduler")

	s.logger(ctx).Info("scheduler.job.start", zap.String("job", job), zap.String("run_id", run.runID))
	return ctx, run, true
}

func (s *Scheduler) finishRun(ctx context.Context, run *sweepRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Duration("duration", s.clock.Now().Sub(run.startedAt)),
		zap.Int("overdue_invoices", run.overdue),
		zap.Int("overdue_listed", run.listed),
		zap.Int("owners", len(run.owners)),
		zap.Int("max_days_overdue", run.maxDaysOverdue),
	}
	if run.failed {
		s.logger(ctx).Warn("scheduler.job.failed", fields...)
		return
	}
	s.logger(ctx).Info("scheduler.job.finish", fields...)
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
