package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/internal/authcontext"
	catalogdomain "github.com/smallbiznis/parcella/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/parcella/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/parcella/internal/catalog/service"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/fiscal"
	"github.com/smallbiznis/parcella/internal/invoice/domain"
	"github.com/smallbiznis/parcella/internal/invoice/repository"
	patientdomain "github.com/smallbiznis/parcella/internal/patient/domain"
	patientrepository "github.com/smallbiznis/parcella/internal/patient/repository"
	patientservice "github.com/smallbiznis/parcella/internal/patient/service"
	plandomain "github.com/smallbiznis/parcella/internal/plan/domain"
	planrepository "github.com/smallbiznis/parcella/internal/plan/repository"
	planservice "github.com/smallbiznis/parcella/internal/plan/service"
	profiledomain "github.com/smallbiznis/parcella/internal/profile/domain"
	profilemocks "github.com/smallbiznis/parcella/internal/profile/domain/mocks"
	"github.com/smallbiznis/parcella/internal/providers/email"
	"github.com/smallbiznis/parcella/internal/providers/pdf"
	"github.com/smallbiznis/parcella/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingMailer struct {
	sent     []email.Message
	template string
}

func (m *recordingMailer) Send(ctx context.Context, msg email.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) SendTemplate(ctx context.Context, msg email.Message, templateName string, data any) error {
	m.template = templateName
	return m.Send(ctx, msg)
}

// quotaRecorder remembers the handle each invoice quota check ran on.
type quotaRecorder struct {
	plandomain.Service
	handles []*gorm.DB
}

func (q *quotaRecorder) CheckInvoiceQuota(ctx context.Context, tx *gorm.DB) error {
	q.handles = append(q.handles, tx)
	return q.Service.CheckInvoiceQuota(ctx, tx)
}

type fixture struct {
	svc     domain.Service
	clock   *clock.FakeClock
	ctx     context.Context
	profile *profiledomain.Profile
	mailer  *recordingMailer
	patient patientdomain.Patient
	item    catalogdomain.Item
	patSvc  patientdomain.Service
	plan    *quotaRecorder
	conn    *gorm.DB
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&patientdomain.Patient{},
		&catalogdomain.Item{},
		&plandomain.Subscription{},
		&domain.Invoice{},
		&domain.InvoiceSequence{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	planSvc := planservice.New(planservice.Params{DB: conn, Log: log, Repo: planrepository.Provide(), Clock: clk})
	patSvc := patientservice.New(patientservice.Params{
		DB: conn, Log: log, GenID: node, Repo: patientrepository.Provide(), PlanSvc: planSvc, Clock: clk,
	})
	catSvc := catalogservice.New(catalogservice.Params{
		DB: conn, Log: log, GenID: node, Repo: catalogrepository.Provide(), Clock: clk,
	})

	profile := &profiledomain.Profile{
		UserID:           701,
		DisplayName:      "Dott.ssa Laura Bianchi",
		CodiceFiscale:    "BNCLRA80A41H501D",
		Address:          "Via Roma 1",
		City:             "Roma",
		PostalCode:       "00100",
		Province:         "RM",
		IBAN:             "IT60X0542811101000000123456",
		RegimeFiscale:    string(fiscal.RegimeForfettario),
		PercentualeEnpap: decimal.NewFromInt(2),
		EnpapAPaziente:   true,
		DueDays:          30,
	}
	ctrl := gomock.NewController(t)
	profileSvc := profilemocks.NewMockService(ctrl)
	profileSvc.EXPECT().Get(gomock.Any()).DoAndReturn(func(context.Context) (profiledomain.Profile, error) {
		return *profile, nil
	}).AnyTimes()

	mailer := &recordingMailer{}
	plan := &quotaRecorder{Service: planSvc}
	svc := New(Params{
		DB:         conn,
		Log:        log,
		GenID:      node,
		Repo:       repository.Provide(),
		ProfileSvc: profileSvc,
		PatientSvc: patSvc,
		CatalogSvc: catSvc,
		PlanSvc:    plan,
		PDF:        pdf.New(),
		Mailer:     mailer,
		Clock:      clk,
	})

	ctx := authcontext.WithPrincipal(context.Background(), authcontext.Principal{UserID: 701, Role: authcontext.RoleProfessional})

	patient, err := patSvc.Create(ctx, patientdomain.CreatePatientRequest{
		FirstName: "Mario",
		LastName:  "Rossi",
		Email:     "mario.rossi@example.it",
		City:      "Roma",
	})
	require.NoError(t, err)
	item, err := catSvc.Create(ctx, catalogdomain.CreateItemRequest{
		Name:            "Colloquio psicologico",
		Price:           "70",
		DurationMinutes: 50,
	})
	require.NoError(t, err)

	return &fixture{
		svc:     svc,
		clock:   clk,
		ctx:     ctx,
		profile: profile,
		mailer:  mailer,
		patient: patient,
		item:    item,
		patSvc:  patSvc,
		plan:    plan,
		conn:    conn,
	}
}

func TestCreateBelowStampThreshold(t *testing.T) {
	f := setup(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		PatientID:     f.patient.ID.String(),
		CatalogItemID: f.item.ID.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-0001", inv.Number)
	assert.Equal(t, "Colloquio psicologico", inv.Description)
	assert.Equal(t, domain.InvoiceStatusIssued, inv.Status)
	assert.True(t, inv.Imponibile.Equal(decimal.NewFromInt(70)))
	assert.True(t, inv.Enpap.Equal(decimal.RequireFromString("1.40")))
	assert.True(t, inv.Bollo.IsZero())
	assert.True(t, inv.Totale.Equal(decimal.RequireFromString("71.40")))
	assert.Nil(t, inv.NotaBollo)
	assert.Contains(t, inv.FraseLegale, "forfettario")
	assert.Equal(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.Equal(t, "Mario Rossi", inv.PatientName)
	assert.Equal(t, "Dott.ssa Laura Bianchi", inv.Issuer.Data().Name)
}

func TestCreateAboveStampThreshold(t *testing.T) {
	f := setup(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		PatientID:     f.patient.ID.String(),
		CatalogItemID: f.item.ID.String(),
		Amount:        "100",
	})
	require.NoError(t, err)

	assert.True(t, inv.Enpap.Equal(decimal.NewFromInt(2)))
	assert.True(t, inv.Bollo.Equal(decimal.NewFromInt(2)))
	assert.True(t, inv.Totale.Equal(decimal.NewFromInt(104)))
	require.NotNil(t, inv.NotaBollo)

	stored, err := f.svc.GetByID(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.Totale.Equal(decimal.NewFromInt(104)))
	require.NotNil(t, stored.NotaBollo)
	assert.Equal(t, *inv.NotaBollo, *stored.NotaBollo)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{PatientID: f.patient.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(f.ctx, domain.CreateInvoiceRequest{PatientID: f.patient.ID.String(), Amount: "abc", Description: "Seduta"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(f.ctx, domain.CreateInvoiceRequest{PatientID: f.patient.ID.String(), Amount: "80"})
	assert.ErrorIs(t, err, domain.ErrMissingDescription)

	_, err = f.svc.Create(f.ctx, domain.CreateInvoiceRequest{PatientID: "12345", Amount: "80", Description: "Seduta"})
	assert.ErrorIs(t, err, domain.ErrInvalidPatient)

	_, err = f.svc.Create(f.ctx, domain.CreateInvoiceRequest{PatientID: f.patient.ID.String(), Amount: "-5", Description: "Seduta"})
	assert.ErrorIs(t, err, fiscal.ErrInvalidAmount)

	future := f.clock.Now().AddDate(0, 0, 2)
	_, err = f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		PatientID: f.patient.ID.String(), Amount: "80", Description: "Seduta", IssueDate: &future,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidIssueDate)

	_, err = f.svc.Create(context.Background(), domain.CreateInvoiceRequest{PatientID: f.patient.ID.String(), Amount: "80", Description: "Seduta"})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestCreateRejectsAmountsInvoicesCannotCarry(t *testing.T) {
	f := setup(t)
	f.profile.EnpapAPaziente = false

	for _, amount := range []string{"77.4700001", "0.005", "1e15", "10000000"} {
		_, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
			PatientID: f.patient.ID.String(), Amount: amount, Description: "Seduta",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, amount)
	}

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		PatientID: f.patient.ID.String(), Amount: "77.470", Description: "Seduta",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-0001", inv.Number)
	assert.True(t, inv.Bollo.IsZero())
	assert.Nil(t, inv.NotaBollo)
}

func TestInvoiceQuotaIsCheckedInsideTheInsertTransaction(t *testing.T) {
	f := setup(t)
	req := domain.CreateInvoiceRequest{PatientID: f.patient.ID.String(), Amount: "60", Description: "Seduta"}

	for i := 0; i < plandomain.LimitsFor(plandomain.TierFree).MaxInvoicesPerMonth; i++ {
		_, err := f.svc.Create(f.ctx, req)
		require.NoError(t, err)
	}
	_, err := f.svc.Create(f.ctx, req)
	require.ErrorIs(t, err, plandomain.ErrPlanLimitReached)

	require.NotEmpty(t, f.plan.handles)
	for _, handle := range f.plan.handles {
		require.NotNil(t, handle)
		assert.NotSame(t, f.conn, handle)
	}

	// the refused create rolled back its sequence number
	_, err = f.plan.ChangeTier(f.ctx, string(plandomain.TierPro))
	require.NoError(t, err)
	inv, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "2026-0011", inv.Number)
}

func TestCreateRejectsInvalidRegime(t *testing.T) {
	f := setup(t)
	f.profile.RegimeFiscale = "RF99"

	_, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		PatientID: f.patient.ID.String(), Amount: "80", Description: "Seduta",
	})
	assert.ErrorIs(t, err, fiscal.ErrInvalidRegime)

	// nothing was numbered
	f.profile.RegimeFiscale = string(fiscal.RegimeOrdinario)
	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		PatientID: f.patient.ID.String(), Amount: "80", Description: "Seduta",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-0001", inv.Number)
	assert.Contains(t, inv.FraseLegale, "art. 10")
}

func TestCreateRejectsArchivedPatient(t *testing.T) {
	f := setup(t)
	_, err := f.patSvc.Archive(f.ctx, f.patient.ID.String())
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		PatientID: f.patient.ID.String(), Amount: "80", Description: "Seduta",
	})
	assert.ErrorIs(t, err, domain.ErrPatientArchived)
}

func TestNumberingIsSequentialPerYear(t *testing.T) {
	f := setup(t)
	f.profile.InvoicePrefix = "PSI-"

	req := domain.CreateInvoiceRequest{PatientID: f.patient.ID.String(), Amount: "60", Description: "Seduta"}
	first, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)
	second, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "PSI-2026-0001", first.Number)
	assert.Equal(t, "PSI-2026-0002", second.Number)

	f.clock.Set(time.Date(2027, 1, 2, 10, 0, 0, 0, time.UTC))
	third, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "PSI-2027-0001", third.Number)
	assert.Equal(t, 2027, third.Year)
}

func TestStatusTransitions(t *testing.T) {
	f := setup(t)
	req := domain.CreateInvoiceRequest{PatientID: f.patient.ID.String(), Amount: "90", Description: "Seduta"}

	inv, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)

	_, err = f.svc.RenderReceipt(f.ctx, inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotPaid)

	paid, err := f.svc.MarkPaid(f.ctx, inv.ID.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = f.svc.Cancel(f.ctx, inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.MarkPaid(f.ctx, inv.ID.String(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	receipt, err := f.svc.RenderReceipt(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(receipt.Content, []byte("%PDF")))
	assert.Equal(t, "quietanza-2026-0001-mario-rossi.pdf", receipt.Filename)

	other, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)
	cancelled, err := f.svc.Cancel(f.ctx, other.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusCancelled, cancelled.Status)
	_, err = f.svc.MarkPaid(f.ctx, other.ID.String(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	list, err := f.svc.List(f.ctx, domain.ListInvoiceRequest{Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, list.Invoices, 1)
	assert.Equal(t, other.ID, list.Invoices[0].ID)

	_, err = f.svc.List(f.ctx, domain.ListInvoiceRequest{Status: "draft"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestRenderAndSend(t *testing.T) {
	f := setup(t)

	inv, err := f.svc.Create(f.ctx, domain.CreateInvoiceRequest{
		PatientID: f.patient.ID.String(), Amount: "100", Description: "Seduta individuale",
	})
	require.NoError(t, err)

	doc, err := f.svc.Render(f.ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "fattura-2026-0001-mario-rossi.pdf", doc.Filename)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF")))

	require.NoError(t, f.svc.Send(f.ctx, inv.ID.String()))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "invoice_sent", f.mailer.template)
	assert.Equal(t, []string{"mario.rossi@example.it"}, f.mailer.sent[0].To)
	require.Len(t, f.mailer.sent[0].Attachments, 1)
	assert.Equal(t, doc.Filename, f.mailer.sent[0].Attachments[0].Filename)
}

func TestListDueAndOverdue(t *testing.T) {
	f := setup(t)
	req := domain.CreateInvoiceRequest{PatientID: f.patient.ID.String(), Amount: "60", Description: "Seduta"}

	inv, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)

	due, err := f.svc.ListDue(f.ctx, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, inv.ID, due[0].ID)

	// a range starting later on the due day still includes it
	due, err = f.svc.ListDue(f.ctx, time.Date(2026, 4, 9, 15, 0, 0, 0, time.UTC), time.Date(2026, 4, 9, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)

	due, err = f.svc.ListDue(f.ctx, time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, due)

	summary, err := f.svc.ListOverdue(context.Background(), time.Date(2026, 4, 9, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)

	summary, err = f.svc.ListOverdue(context.Background(), time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.True(t, summary.Invoices[0].Overdue(time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)))
}

func TestListOverdueCountsBeyondTheListingCap(t *testing.T) {
	f := setup(t)
	previous := overdueScanLimit
	overdueScanLimit = 2
	t.Cleanup(func() { overdueScanLimit = previous })

	req := domain.CreateInvoiceRequest{PatientID: f.patient.ID.String(), Amount: "60", Description: "Seduta"}
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(f.ctx, req)
		require.NoError(t, err)
	}

	summary, err := f.svc.ListOverdue(context.Background(), time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Len(t, summary.Invoices, 2)
	assert.True(t, summary.Truncated())
}
