package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/internal/authcontext"
	catalogdomain "github.com/smallbiznis/parcella/internal/catalog/domain"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/fiscal"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/parcella/internal/invoice/format"
	"github.com/smallbiznis/parcella/internal/observability/metrics"
	patientdomain "github.com/smallbiznis/parcella/internal/patient/domain"
	plandomain "github.com/smallbiznis/parcella/internal/plan/domain"
	profiledomain "github.com/smallbiznis/parcella/internal/profile/domain"
	"github.com/smallbiznis/parcella/internal/providers/email"
	"github.com/smallbiznis/parcella/internal/providers/pdf"
	"github.com/smallbiznis/parcella/pkg/db/option"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// overdueScanLimit caps how many overdue invoices one sweep lists.
var overdueScanLimit = 500

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       invoicedomain.Repository
	ProfileSvc profiledomain.Service
	PatientSvc patientdomain.Service
	CatalogSvc catalogdomain.Service
	PlanSvc    plandomain.Service
	PDF        pdf.Provider
	Mailer     email.Provider   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	repo       invoicedomain.Repository
	profileSvc profiledomain.Service
	patientSvc patientdomain.Service
	catalogSvc catalogdomain.Service
	planSvc    plandomain.Service
	pdf        pdf.Provider
	mailer     email.Provider
	metrics    *metrics.Metrics
	clock      clock.Clock
}

func New(p Params) invoicedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		repo:       p.Repo,
		profileSvc: p.ProfileSvc,
		patientSvc: p.PatientSvc,
		catalogSvc: p.CatalogSvc,
		planSvc:    p.PlanSvc,
		pdf:        p.PDF,
		mailer:     p.Mailer,
		metrics:    p.Metrics,
		clock:      clk,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidOwner
	}

	today := invoicedomain.DateOnly(s.clock.Now())
	issueDate := today
	if req.IssueDate != nil {
		issueDate = invoicedomain.DateOnly(*req.IssueDate)
		if issueDate.After(today) {
			return invoicedomain.Invoice{}, invoicedomain.ErrInvalidIssueDate
		}
	}

	patient, err := s.loadPatient(ctx, req.PatientID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	amount, description, catalogItemID, err := s.resolveService(ctx, req)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	profile, err := s.profileSvc.Get(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	breakdown, err := fiscal.ComputeFiscalBreakdown(fiscal.Input{
		Regime:         fiscal.Regime(profile.RegimeFiscale),
		Amount:         amount,
		EnpapPercent:   profile.PercentualeEnpap,
		EnpapToPatient: profile.EnpapAPaziente,
	})
	if err != nil {
		s.metrics.RecordFiscalRejected(ctx, fiscal.RejectReason(err))
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now()
	invoice := invoicedomain.Invoice{
		ID:                   s.genID.Generate(),
		OwnerID:              ownerID,
		Year:                 issueDate.Year(),
		PatientID:            patient.ID,
		CatalogItemID:        catalogItemID,
		Description:          description,
		Status:               invoicedomain.InvoiceStatusIssued,
		IssueDate:            issueDate,
		DueDate:              issueDate.AddDate(0, 0, profile.DueDays),
		PatientName:          patient.FullName(),
		PatientCodiceFiscale: patient.CodiceFiscale,
		PatientAddress:       joinNonEmpty(", ", patient.Address, patient.PostalCode, patient.City),
		PatientEmail:         patient.Email,
		Issuer:               datatypes.NewJSONType(issuerFromProfile(profile)),
		Regime:               profile.RegimeFiscale,
		EnpapPercent:         profile.PercentualeEnpap,
		EnpapToPatient:       profile.EnpapAPaziente,
		Imponibile:           breakdown.Imponibile,
		Enpap:                breakdown.Enpap,
		Bollo:                breakdown.Bollo,
		Totale:               breakdown.Totale,
		FraseLegale:          breakdown.FraseLegale,
		NotaEnpap:            breakdown.NotaEnpap,
		NotaBollo:            breakdown.NotaBollo,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the sequence upsert locks the owner's counter row until commit, so
		// concurrent creates for the same owner count one after the other
		seq, err := s.repo.NextSequence(ctx, tx, ownerID, invoice.Year)
		if err != nil {
			return err
		}
		if err := s.planSvc.CheckInvoiceQuota(ctx, tx); err != nil {
			return err
		}
		number, err := invoiceformat.FormatInvoiceNumber(
			invoiceformat.DefaultInvoiceNumberTemplate,
			profile.InvoicePrefix,
			issueDate,
			seq,
		)
		if err != nil {
			return err
		}
		invoice.Sequence = seq
		invoice.Number = number
		return s.repo.Insert(ctx, tx, &invoice)
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	totale, _ := invoice.Totale.Float64()
	s.metrics.RecordInvoiceCreated(ctx, invoice.Regime, breakdown.HasStampDuty(), totale)
	s.log.Info("invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.Number),
		zap.String("regime", invoice.Regime),
		zap.Bool("stamp_duty", breakdown.HasStampDuty()),
	)
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidOwner
	}

	filter := invoicedomain.ListInvoiceFilter{}
	if raw := strings.TrimSpace(req.PatientID); raw != "" {
		patientID, err := parseID(raw)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPatient
		}
		filter.PatientID = &patientID
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := invoicedomain.InvoiceStatus(strings.ToLower(raw))
		if !status.Valid() {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
		}
		filter.Status = &status
	}
	if req.Year > 0 {
		year := req.Year
		filter.Year = &year
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, ownerID, filter, page)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	items, pageInfo, err := pagination.BuildCursorPageInfo(items, page.Limit(), func(inv *invoicedomain.Invoice) pagination.Cursor {
		return option.TimeCursor(inv.ID, inv.CreatedAt)
	})
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidOwner
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceID
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}

	return *item, nil
}

func (s *Service) MarkPaid(ctx context.Context, id string, paidAt *time.Time) (invoicedomain.Invoice, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice.Status != invoicedomain.InvoiceStatusIssued {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTransition
	}

	now := s.clock.Now()
	paid := now
	if paidAt != nil {
		paid = paidAt.UTC()
		if paid.After(now) || invoicedomain.DateOnly(paid).Before(invoice.IssueDate) {
			return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTransition
		}
	}

	invoice.Status = invoicedomain.InvoiceStatusPaid
	invoice.PaidAt = &paid
	invoice.UpdatedAt = now
	if err := s.repo.UpdateStatus(ctx, s.db, &invoice); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice paid", zap.String("invoice_number", invoice.Number))
	return invoice, nil
}

// Cancel voids an issued invoice. Its number stays consumed so the yearly
// sequence has no gaps to explain.
func (s *Service) Cancel(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice.Status != invoicedomain.InvoiceStatusIssued {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTransition
	}

	now := s.clock.Now()
	invoice.Status = invoicedomain.InvoiceStatusCancelled
	invoice.CancelledAt = &now
	invoice.UpdatedAt = now
	if err := s.repo.UpdateStatus(ctx, s.db, &invoice); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice cancelled", zap.String("invoice_number", invoice.Number))
	return invoice, nil
}

func (s *Service) ListDue(ctx context.Context, from, to time.Time) ([]invoicedomain.Invoice, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidOwner
	}

	items, err := s.repo.ListDue(ctx, s.db, ownerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

// ListOverdue counts every overdue invoice and lists the overdueScanLimit oldest.
func (s *Service) ListOverdue(ctx context.Context, asOf time.Time) (invoicedomain.OverdueSummary, error) {
	day := invoicedomain.DateOnly(asOf)
	count, err := s.repo.CountOverdue(ctx, s.db, day)
	if err != nil {
		return invoicedomain.OverdueSummary{}, err
	}
	if count == 0 {
		return invoicedomain.OverdueSummary{}, nil
	}

	items, err := s.repo.ListOverdue(ctx, s.db, day, overdueScanLimit)
	if err != nil {
		return invoicedomain.OverdueSummary{}, err
	}
	return invoicedomain.OverdueSummary{Count: int(count), Invoices: deref(items)}, nil
}

func (s *Service) loadPatient(ctx context.Context, rawID string) (patientdomain.Patient, error) {
	if strings.TrimSpace(rawID) == "" {
		return patientdomain.Patient{}, invoicedomain.ErrInvalidPatient
	}
	patient, err := s.patientSvc.Get(ctx, rawID)
	if err != nil {
		if errors.Is(err, patientdomain.ErrInvalidID) || errors.Is(err, patientdomain.ErrNotFound) {
			return patientdomain.Patient{}, invoicedomain.ErrInvalidPatient
		}
		return patientdomain.Patient{}, err
	}
	if patient.Archived() {
		return patientdomain.Patient{}, invoicedomain.ErrPatientArchived
	}
	return patient, nil
}

// resolveService picks the amount and description from the catalog item, the
// request overriding either one.
func (s *Service) resolveService(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (decimal.Decimal, string, *snowflake.ID, error) {
	var (
		amount      decimal.Decimal
		hasAmount   bool
		description = strings.TrimSpace(req.Description)
		itemID      *snowflake.ID
	)

	if raw := strings.TrimSpace(req.CatalogItemID); raw != "" {
		item, err := s.catalogSvc.Get(ctx, raw)
		if err != nil {
			if errors.Is(err, catalogdomain.ErrInvalidID) || errors.Is(err, catalogdomain.ErrNotFound) {
				return decimal.Zero, "", nil, invoicedomain.ErrInvalidCatalogItem
			}
			return decimal.Zero, "", nil, err
		}
		if !item.Active {
			return decimal.Zero, "", nil, catalogdomain.ErrInactive
		}
		id := item.ID
		itemID = &id
		amount = item.Price
		hasAmount = true
		if description == "" {
			description = item.Name
		}
	}

	if raw := strings.TrimSpace(req.Amount); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, "", nil, invoicedomain.ErrInvalidAmount
		}
		amount = parsed
		hasAmount = true
	}

	if !hasAmount {
		return decimal.Zero, "", nil, invoicedomain.ErrInvalidAmount
	}
	// negative amounts are left to the calculator, which reports them by field
	if !amount.IsNegative() && !fiscal.ValidAmount(amount) {
		return decimal.Zero, "", nil, invoicedomain.ErrInvalidAmount
	}
	if description == "" {
		return decimal.Zero, "", nil, invoicedomain.ErrMissingDescription
	}
	return amount, description, itemID, nil
}

func issuerFromProfile(p profiledomain.Profile) invoicedomain.Issuer {
	return invoicedomain.Issuer{
		Name:          p.DisplayName,
		CodiceFiscale: p.CodiceFiscale,
		PartitaIVA:    p.PartitaIVA,
		Address:       joinNonEmpty(", ", p.Address, joinNonEmpty(" ", p.PostalCode, p.City, provinceSuffix(p.Province))),
		Email:         p.Email,
		Phone:         p.Phone,
		IBAN:          p.IBAN,
	}
}

func provinceSuffix(province string) string {
	if province == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", province)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, sep)
}

func deref(items []*invoicedomain.Invoice) []invoicedomain.Invoice {
	out := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invoicedomain.ErrInvalidInvoiceID
	}
	return id, nil
}

func documentFilename(kind string, invoice invoicedomain.Invoice) string {
	return slug.Make(fmt.Sprintf("%s %s %s", kind, invoice.Number, invoice.PatientName)) + ".pdf"
}
