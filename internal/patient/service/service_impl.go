package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/fiscal"
	"github.com/smallbiznis/parcella/internal/patient/domain"
	plandomain "github.com/smallbiznis/parcella/internal/plan/domain"
	"github.com/smallbiznis/parcella/pkg/db/option"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	PlanSvc plandomain.Service
	Clock   clock.Clock `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	planSvc plandomain.Service
	clock   clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("patient.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		planSvc: p.PlanSvc,
		clock:   clk,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePatientRequest) (domain.Patient, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Patient{}, domain.ErrInvalidOwner
	}

	patient := domain.Patient{OwnerID: ownerID}
	if err := applyFields(&patient, req); err != nil {
		return domain.Patient{}, err
	}
	if err := s.ensureUniqueCodiceFiscale(ctx, ownerID, 0, patient.CodiceFiscale); err != nil {
		return domain.Patient{}, err
	}

	if err := s.planSvc.CheckPatientQuota(ctx); err != nil {
		return domain.Patient{}, err
	}

	now := s.clock.Now()
	patient.ID = s.genID.Generate()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	if err := s.repo.Insert(ctx, s.db, &patient); err != nil {
		return domain.Patient{}, err
	}

	s.log.Info("patient created", zap.String("patient_id", patient.ID.String()))
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Patient, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Patient{}, domain.ErrInvalidOwner
	}
	patientID, err := parseID(id)
	if err != nil {
		return domain.Patient{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, patientID)
	if err != nil {
		return domain.Patient{}, err
	}
	if item == nil {
		return domain.Patient{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPatientRequest) (domain.ListPatientResponse, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.ListPatientResponse{}, domain.ErrInvalidOwner
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, ownerID, domain.ListPatientFilter{
		Query:           strings.TrimSpace(req.Query),
		IncludeArchived: req.IncludeArchived,
	}, page)
	if err != nil {
		return domain.ListPatientResponse{}, err
	}

	items, pageInfo, err := pagination.BuildCursorPageInfo(items, page.Limit(), func(p *domain.Patient) pagination.Cursor {
		return option.TimeCursor(p.ID, p.CreatedAt)
	})
	if err != nil {
		return domain.ListPatientResponse{}, err
	}

	patients := make([]domain.Patient, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		patients = append(patients, *item)
	}
	return domain.ListPatientResponse{PageInfo: pageInfo, Patients: patients}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdatePatientRequest) (domain.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return domain.Patient{}, err
	}
	if patient.Archived() {
		return domain.Patient{}, domain.ErrArchived
	}

	if err := applyFields(&patient, req); err != nil {
		return domain.Patient{}, err
	}
	if err := s.ensureUniqueCodiceFiscale(ctx, patient.OwnerID, patient.ID, patient.CodiceFiscale); err != nil {
		return domain.Patient{}, err
	}

	patient.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &patient); err != nil {
		return domain.Patient{}, err
	}
	return patient, nil
}

// Archive hides a patient from listings and frees a plan slot. Invoices keep
// referencing the patient.
func (s *Service) Archive(ctx context.Context, id string) (domain.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return domain.Patient{}, err
	}
	if patient.Archived() {
		return patient, nil
	}

	now := s.clock.Now()
	patient.ArchivedAt = &now
	patient.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, &patient); err != nil {
		return domain.Patient{}, err
	}

	s.log.Info("patient archived", zap.String("patient_id", patient.ID.String()))
	return patient, nil
}

func (s *Service) ensureUniqueCodiceFiscale(ctx context.Context, ownerID, selfID snowflake.ID, cf string) error {
	if cf == "" {
		return nil
	}
	existing, err := s.repo.FindByCodiceFiscale(ctx, s.db, ownerID, cf)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return domain.ErrDuplicatePatient
	}
	return nil
}

func applyFields(patient *domain.Patient, req domain.CreatePatientRequest) error {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return domain.ErrInvalidName
	}

	cf := ""
	if raw := strings.TrimSpace(req.CodiceFiscale); raw != "" {
		normalized, err := fiscal.NormalizeCodiceFiscale(raw)
		if err != nil {
			return domain.ErrInvalidCodiceFiscale
		}
		cf = normalized
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return domain.ErrInvalidEmail
		}
		email = strings.ToLower(addr.Address)
	}

	patient.FirstName = firstName
	patient.LastName = lastName
	patient.CodiceFiscale = cf
	patient.Email = email
	patient.Phone = strings.TrimSpace(req.Phone)
	patient.Address = strings.TrimSpace(req.Address)
	patient.City = strings.TrimSpace(req.City)
	patient.PostalCode = strings.TrimSpace(req.PostalCode)
	patient.Notes = strings.TrimSpace(req.Notes)
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
