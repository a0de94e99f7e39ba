package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/observability/metrics"
	"github.com/smallbiznis/parcella/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("plan.service"),
		repo:    p.Repo,
		clock:   clk,
		metrics: p.Metrics,
	}
}

func (s *Service) Current(ctx context.Context) (domain.Plan, error) {
	userID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Plan{}, domain.ErrInvalidUser
	}

	sub, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return domain.Plan{}, err
	}

	plan := domain.Plan{Tier: domain.TierFree}
	if sub != nil {
		plan.Tier = sub.Tier
		changedAt := sub.ChangedAt
		plan.ChangedAt = &changedAt
	}
	plan.Limits = domain.LimitsFor(plan.Tier)

	usage, err := s.usage(ctx, userID)
	if err != nil {
		return domain.Plan{}, err
	}
	plan.Usage = usage
	return plan, nil
}

func (s *Service) ChangeTier(ctx context.Context, raw string) (domain.Plan, error) {
	userID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Plan{}, domain.ErrInvalidUser
	}

	tier := domain.Tier(strings.ToLower(strings.TrimSpace(raw)))
	if !tier.Valid() {
		return domain.Plan{}, domain.ErrInvalidTier
	}

	now := s.clock.Now()
	if err := s.repo.Upsert(ctx, s.db, &domain.Subscription{
		UserID:    userID,
		Tier:      tier,
		ChangedAt: now,
		CreatedAt: now,
	}); err != nil {
		return domain.Plan{}, err
	}

	s.log.Info("plan tier changed", zap.String("user_id", userID.String()), zap.String("tier", string(tier)))
	return s.Current(ctx)
}

func (s *Service) CheckPatientQuota(ctx context.Context) error {
	userID, tier, err := s.tierFor(ctx, s.db)
	if err != nil {
		return err
	}
	limit := domain.LimitsFor(tier).MaxPatients
	if limit == 0 {
		return nil
	}

	count, err := s.repo.CountActivePatients(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if count >= int64(limit) {
		return s.limitReached(ctx, tier, domain.ResourcePatients, limit)
	}
	return nil
}

func (s *Service) CheckInvoiceQuota(ctx context.Context, tx *gorm.DB) error {
	if tx == nil {
		tx = s.db
	}
	userID, tier, err := s.tierFor(ctx, tx)
	if err != nil {
		return err
	}
	limit := domain.LimitsFor(tier).MaxInvoicesPerMonth
	if limit == 0 {
		return nil
	}

	from, to := monthBounds(s.clock.Now())
	count, err := s.repo.CountInvoicesIssued(ctx, tx, userID, from, to)
	if err != nil {
		return err
	}
	if count >= int64(limit) {
		return s.limitReached(ctx, tier, domain.ResourceInvoices, limit)
	}
	return nil
}

func (s *Service) tierFor(ctx context.Context, db *gorm.DB) (snowflake.ID, domain.Tier, error) {
	userID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return 0, "", domain.ErrInvalidUser
	}
	sub, err := s.repo.FindByUser(ctx, db, userID)
	if err != nil {
		return 0, "", err
	}
	if sub == nil {
		return userID, domain.TierFree, nil
	}
	return userID, sub.Tier, nil
}

func (s *Service) usage(ctx context.Context, userID snowflake.ID) (domain.Usage, error) {
	patients, err := s.repo.CountActivePatients(ctx, s.db, userID)
	if err != nil {
		return domain.Usage{}, err
	}
	from, to := monthBounds(s.clock.Now())
	invoices, err := s.repo.CountInvoicesIssued(ctx, s.db, userID, from, to)
	if err != nil {
		return domain.Usage{}, err
	}
	return domain.Usage{Patients: patients, InvoicesThisMonth: invoices}, nil
}

func (s *Service) limitReached(ctx context.Context, tier domain.Tier, resource string, limit int) error {
	s.metrics.RecordPlanLimitReached(ctx, string(tier), resource)
	return &domain.LimitError{Tier: tier, Resource: resource, Limit: limit}
}

func monthBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
