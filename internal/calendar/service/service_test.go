package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/calendar/domain"
	"github.com/smallbiznis/parcella/internal/calendar/repository"
	"github.com/smallbiznis/parcella/internal/clock"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
	patientdomain "github.com/smallbiznis/parcella/internal/patient/domain"
	patientrepository "github.com/smallbiznis/parcella/internal/patient/repository"
	patientservice "github.com/smallbiznis/parcella/internal/patient/service"
	plandomain "github.com/smallbiznis/parcella/internal/plan/domain"
	planrepository "github.com/smallbiznis/parcella/internal/plan/repository"
	planservice "github.com/smallbiznis/parcella/internal/plan/service"
	"github.com/smallbiznis/parcella/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// dueInvoices serves ListDue from a fixed slice, matching due days that overlap
// the range; other methods are not used.
type dueInvoices struct {
	invoicedomain.Service
	items []invoicedomain.Invoice
	calls int
}

func (d *dueInvoices) ListDue(ctx context.Context, from, to time.Time) ([]invoicedomain.Invoice, error) {
	d.calls++
	out := make([]invoicedomain.Invoice, 0, len(d.items))
	for _, inv := range d.items {
		if inv.DueDate.AddDate(0, 0, 1).After(from) && inv.DueDate.Before(to) {
			out = append(out, inv)
		}
	}
	return out, nil
}

type fixture struct {
	svc      domain.Service
	ctx      context.Context
	invoices *dueInvoices
	patient  patientdomain.Patient
}

func setup(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Event{}, &patientdomain.Patient{}, &plandomain.Subscription{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	planSvc := planservice.New(planservice.Params{DB: conn, Log: log, Repo: planrepository.Provide(), Clock: clk})
	patSvc := patientservice.New(patientservice.Params{
		DB: conn, Log: log, GenID: node, Repo: patientrepository.Provide(), PlanSvc: planSvc, Clock: clk,
	})

	invoices := &dueInvoices{}
	svc := New(Params{
		DB:         conn,
		Log:        log,
		GenID:      node,
		Repo:       repository.Provide(),
		PatientSvc: patSvc,
		InvoiceSvc: invoices,
		Clock:      clk,
	})

	ctx := authcontext.WithPrincipal(context.Background(), authcontext.Principal{UserID: 42, Role: authcontext.RoleProfessional})
	patient, err := patSvc.Create(ctx, patientdomain.CreatePatientRequest{FirstName: "Giulia", LastName: "Verdi"})
	require.NoError(t, err)

	return &fixture{svc: svc, ctx: ctx, invoices: invoices, patient: patient}
}

func at(day, hour int) time.Time {
	return time.Date(2026, 5, day, hour, 0, 0, 0, time.UTC)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)

	cases := []struct {
		name string
		req  domain.CreateEventRequest
		err  error
	}{
		{"missing title", domain.CreateEventRequest{StartsAt: at(5, 9), EndsAt: at(5, 10)}, domain.ErrInvalidTitle},
		{"bad kind", domain.CreateEventRequest{Title: "x", Kind: "invoice_due", StartsAt: at(5, 9), EndsAt: at(5, 10)}, domain.ErrInvalidKind},
		{"ends before start", domain.CreateEventRequest{Title: "x", StartsAt: at(5, 10), EndsAt: at(5, 9)}, domain.ErrInvalidTimes},
		{"empty appointment", domain.CreateEventRequest{Title: "x", StartsAt: at(5, 10), EndsAt: at(5, 10)}, domain.ErrInvalidTimes},
		{"unknown patient", domain.CreateEventRequest{Title: "x", PatientID: "77", StartsAt: at(5, 9), EndsAt: at(5, 10)}, domain.ErrInvalidPatient},
		{"metadata not an object", domain.CreateEventRequest{Title: "x", StartsAt: at(5, 9), EndsAt: at(5, 10), Metadata: json.RawMessage(`[1,2]`)}, domain.ErrInvalidMetadata},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	f := setup(t)

	event, err := f.svc.Create(f.ctx, domain.CreateEventRequest{
		Title:     "Seduta",
		PatientID: f.patient.ID.String(),
		StartsAt:  at(5, 9),
		EndsAt:    at(5, 10),
		Metadata:  json.RawMessage(`{"room":"A"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindAppointment, event.Kind)
	require.NotNil(t, event.PatientID)

	got, err := f.svc.Get(f.ctx, event.ID.String())
	require.NoError(t, err)
	assert.JSONEq(t, `{"room":"A"}`, string(got.Metadata))

	updated, err := f.svc.Update(f.ctx, event.ID.String(), domain.UpdateEventRequest{
		Title: "Promemoria", Kind: "reminder", StartsAt: at(6, 8),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindReminder, updated.Kind)
	assert.Equal(t, updated.StartsAt, updated.EndsAt)
	assert.Nil(t, updated.PatientID)

	require.NoError(t, f.svc.Delete(f.ctx, event.ID.String()))
	assert.ErrorIs(t, f.svc.Delete(f.ctx, event.ID.String()), domain.ErrNotFound)
	_, err = f.svc.Get(f.ctx, event.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAgendaMergesAndSorts(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Create(f.ctx, domain.CreateEventRequest{Title: "Seduta B", StartsAt: at(6, 9), EndsAt: at(6, 10)})
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, domain.CreateEventRequest{Title: "Seduta A", StartsAt: at(6, 9), EndsAt: at(6, 10)})
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, domain.CreateEventRequest{Title: "Chiamare commercialista", Kind: "reminder", StartsAt: at(5, 0)})
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, domain.CreateEventRequest{Title: "Fuori range", StartsAt: at(20, 9), EndsAt: at(20, 10)})
	require.NoError(t, err)

	f.invoices.items = []invoicedomain.Invoice{
		{ID: 900, Number: "2026-0003", PatientName: "Giulia Verdi", PatientID: f.patient.ID, DueDate: at(5, 0), Totale: decimal.RequireFromString("104")},
		{ID: 901, Number: "2026-0004", PatientName: "Giulia Verdi", PatientID: f.patient.ID, DueDate: at(30, 0), Totale: decimal.RequireFromString("50")},
	}

	entries, err := f.svc.Agenda(f.ctx, domain.AgendaRequest{From: at(5, 0), To: at(7, 0)})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, "Chiamare commercialista", entries[0].Title)
	assert.Equal(t, domain.EventKindInvoiceDue, entries[1].Kind)
	assert.Equal(t, "Scadenza fattura 2026-0003 - Giulia Verdi", entries[1].Title)
	assert.Equal(t, "104.00", entries[1].Amount)
	assert.Equal(t, "Seduta A", entries[2].Title)
	assert.Equal(t, "Seduta B", entries[3].Title)

	onlyDue, err := f.svc.Agenda(f.ctx, domain.AgendaRequest{From: at(5, 0), To: at(7, 0), Kinds: []string{"invoice_due"}})
	require.NoError(t, err)
	require.Len(t, onlyDue, 1)

	calls := f.invoices.calls
	onlyAppointments, err := f.svc.Agenda(f.ctx, domain.AgendaRequest{From: at(5, 0), To: at(7, 0), Kinds: []string{"appointment"}})
	require.NoError(t, err)
	assert.Len(t, onlyAppointments, 2)
	assert.Equal(t, calls, f.invoices.calls)
}

func TestAgendaRangeValidation(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Agenda(f.ctx, domain.AgendaRequest{From: at(5, 0), To: at(5, 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = f.svc.Agenda(f.ctx, domain.AgendaRequest{From: at(5, 0), To: at(5, 0).AddDate(1, 1, 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = f.svc.Agenda(f.ctx, domain.AgendaRequest{From: at(5, 0), To: at(6, 0), Kinds: []string{"party"}})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	_, err = f.svc.Agenda(f.ctx, domain.AgendaRequest{From: at(1, 0), To: at(1, 0).Add(domain.MaxAgendaRange)})
	assert.NoError(t, err)
}
