package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/clock"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/parcella/internal/observability/metrics"
	"github.com/smallbiznis/parcella/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobOverdueSweep = "overdue_sweep"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	InvoiceSvc invoicedomain.Service
	Clock      clock.Clock            `optional:"true"`
	Locker     *ratelimit.Locker      `optional:"true"`
	Prometheus *obsmetrics.Prometheus `optional:"true"`
	Config     Config                 `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	locker     jobLocker
	prom       *obsmetrics.Prometheus

	lastOverdue int
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.InvoiceSvc == nil {
		return nil, ErrInvalidConfig
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	s := &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      clk,
		invoiceSvc: p.InvoiceSvc,
		prom:       p.Prometheus,
	}
	if p.Locker != nil {
		s.locker = p.Locker
	}
	return s, nil
}

// RunOnce executes every job a single time.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, JobOverdueSweep, s.OverdueSweepJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ran, err := s.withLock(ctx, name, fn)
	elapsed := s.clock.Now().Sub(start).Seconds()
	switch {
	case err != nil:
		s.prom.ObserveSweep(obsmetrics.SweepOutcomeError, elapsed, 0)
	case !ran:
		s.prom.ObserveSweep(obsmetrics.SweepOutcomeSkipped, elapsed, 0)
		s.logger(ctx).Debug("scheduler.job.skipped", zap.String("job", name), zap.String("reason", "lock_held"))
		return nil
	default:
		s.prom.ObserveSweep(obsmetrics.SweepOutcomeOK, elapsed, s.lastOverdue)
		return nil
	}

	// deadlines are soft: the next tick picks the work up again
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out", zap.String("job", name), zap.Duration("timeout", s.cfg.JobTimeout))
		return nil
	}
	return err
}

// OverdueSweepJob counts issued invoices whose due date has passed and logs each one.
func (s *Scheduler) OverdueSweepJob(ctx context.Context) error {
	ctx, run, started := s.startRun(ctx, JobOverdueSweep)
	if started {
		defer s.finishRun(ctx, run)
	}

	now := s.clock.Now()
	summary, err := s.invoiceSvc.ListOverdue(ctx, now)
	if err != nil {
		run.fail()
		s.logger(ctx).Error("scheduler.overdue.list_failed", zap.Error(err))
		return err
	}

	run.total(summary.Count)
	if summary.Truncated() {
		s.logger(ctx).Warn("scheduler.overdue.truncated",
			zap.Int("overdue_invoices", summary.Count),
			zap.Int("listed", len(summary.Invoices)),
		)
	}

	today := invoicedomain.DateOnly(now)
	for _, inv := range summary.Invoices {
		days := int(today.Sub(invoicedomain.DateOnly(inv.DueDate)).Hours() / 24)
		run.record(inv.OwnerID, days)
		s.logger(ctx).Info("invoice.overdue",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("invoice_number", inv.Number),
			zap.String("owner_id", inv.OwnerID.String()),
			zap.Int("days_overdue", days),
		)
	}
	s.lastOverdue = summary.Count
	return nil
}

// LastOverdueCount returns the result of the most recent successful sweep.
func (s *Scheduler) LastOverdueCount() int {
	return s.lastOverdue
}
