package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/config"
	"github.com/smallbiznis/parcella/internal/fiscal"
	"github.com/smallbiznis/parcella/internal/observability/metrics"
	"github.com/smallbiznis/parcella/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxPrefixLength = 16
	maxDueDays      = 365
)

var maxEnpapPercent = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Defaults *config.FiscalDefaultsHolder
	Clock    clock.Clock      `optional:"true"`
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	defaults *config.FiscalDefaultsHolder
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("profile.service"),
		repo:     p.Repo,
		defaults: p.Defaults,
		clock:    clk,
		metrics:  p.Metrics,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Profile, error) {
	principal, ok := authcontext.FromContext(ctx)
	if !ok {
		return domain.Profile{}, domain.ErrInvalidUser
	}

	stored, err := s.repo.FindByUser(ctx, s.db, principal.UserID)
	if err != nil {
		return domain.Profile{}, err
	}
	if stored != nil {
		return *stored, nil
	}
	return s.fromDefaults(principal), nil
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertProfileRequest) (domain.Profile, error) {
	principal, ok := authcontext.FromContext(ctx)
	if !ok {
		return domain.Profile{}, domain.ErrInvalidUser
	}

	current, err := s.Get(ctx)
	if err != nil {
		return domain.Profile{}, err
	}

	profile, err := s.apply(current, req)
	if err != nil {
		return domain.Profile{}, err
	}

	now := s.clock.Now()
	if !current.Stored {
		profile.CreatedAt = now
	}
	profile.UserID = principal.UserID
	profile.UpdatedAt = now

	if err := s.repo.Save(ctx, s.db, &profile); err != nil {
		return domain.Profile{}, err
	}
	profile.Stored = true

	s.log.Info("profile saved",
		zap.String("user_id", principal.UserID.String()),
		zap.String("regime", profile.RegimeFiscale),
	)
	return profile, nil
}

func (s *Service) FiscalPreview(ctx context.Context, amount decimal.Decimal) (fiscal.Result, error) {
	profile, err := s.Get(ctx)
	if err != nil {
		return fiscal.Result{}, err
	}

	result, err := fiscal.ComputeFiscalBreakdown(fiscal.Input{
		Regime:         fiscal.Regime(profile.RegimeFiscale),
		Amount:         amount,
		EnpapPercent:   profile.PercentualeEnpap,
		EnpapToPatient: profile.EnpapAPaziente,
	})
	if err != nil {
		s.metrics.RecordFiscalRejected(ctx, fiscal.RejectReason(err))
		return fiscal.Result{}, err
	}
	return result, nil
}

func (s *Service) apply(profile domain.Profile, req domain.UpsertProfileRequest) (domain.Profile, error) {
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return domain.Profile{}, domain.ErrInvalidDisplayName
	}
	profile.DisplayName = displayName

	profile.CodiceFiscale = ""
	if raw := strings.TrimSpace(req.CodiceFiscale); raw != "" {
		cf, err := fiscal.NormalizeCodiceFiscale(raw)
		if err != nil {
			return domain.Profile{}, domain.ErrInvalidCodiceFiscale
		}
		profile.CodiceFiscale = cf
	}

	profile.PartitaIVA = ""
	if raw := strings.TrimSpace(req.PartitaIVA); raw != "" {
		piva, err := fiscal.NormalizePartitaIVA(raw)
		if err != nil {
			return domain.Profile{}, domain.ErrInvalidPartitaIVA
		}
		profile.PartitaIVA = piva
	}

	regime, err := fiscal.ParseRegime(req.RegimeFiscale)
	if err != nil {
		return domain.Profile{}, err
	}
	profile.RegimeFiscale = string(regime)

	pct, err := decimal.NewFromString(strings.TrimSpace(req.PercentualeEnpap))
	if err != nil || pct.IsNegative() || pct.GreaterThan(maxEnpapPercent) || !fiscal.IsCents(pct) {
		return domain.Profile{}, domain.ErrInvalidPercentage
	}
	profile.PercentualeEnpap = pct
	profile.EnpapAPaziente = req.EnpapAPaziente

	prefix := strings.TrimSpace(req.InvoicePrefix)
	if len(prefix) > maxPrefixLength || strings.ContainsAny(prefix, " /\\") {
		return domain.Profile{}, domain.ErrInvalidPrefix
	}
	profile.InvoicePrefix = prefix

	if req.DueDays != nil {
		if *req.DueDays < 0 || *req.DueDays > maxDueDays {
			return domain.Profile{}, domain.ErrInvalidDueDays
		}
		profile.DueDays = *req.DueDays
	}

	profile.Address = strings.TrimSpace(req.Address)
	profile.City = strings.TrimSpace(req.City)
	profile.PostalCode = strings.TrimSpace(req.PostalCode)
	profile.Province = strings.ToUpper(strings.TrimSpace(req.Province))
	profile.IBAN = strings.ToUpper(strings.Join(strings.Fields(req.IBAN), ""))
	profile.Email = strings.TrimSpace(req.Email)
	profile.Phone = strings.TrimSpace(req.Phone)
	return profile, nil
}

func (s *Service) fromDefaults(principal authcontext.Principal) domain.Profile {
	defaults := config.DefaultFiscalDefaults()
	if s.defaults != nil {
		defaults = s.defaults.Get()
	}

	return domain.Profile{
		UserID:           principal.UserID,
		DisplayName:      displayNameFromEmail(principal.Email),
		Email:            principal.Email,
		RegimeFiscale:    defaults.Regime,
		PercentualeEnpap: defaults.EnpapPercentDecimal(),
		EnpapAPaziente:   defaults.EnpapToPatient,
		InvoicePrefix:    defaults.InvoicePrefix,
		DueDays:          defaults.DueDays,
	}
}

func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}
