package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/calendar/domain"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/fiscal"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
	patientdomain "github.com/smallbiznis/parcella/internal/patient/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	PatientSvc patientdomain.Service
	InvoiceSvc invoicedomain.Service
	Clock      clock.Clock `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	patientSvc patientdomain.Service
	invoiceSvc invoicedomain.Service
	clock      clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("calendar.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		patientSvc: p.PatientSvc,
		invoiceSvc: p.InvoiceSvc,
		clock:      clk,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateEventRequest) (domain.Event, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Event{}, domain.ErrInvalidOwner
	}

	now := s.clock.Now()
	event := domain.Event{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(ctx, &event, req); err != nil {
		return domain.Event{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Event, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Event{}, domain.ErrInvalidOwner
	}
	eventID, err := parseID(id)
	if err != nil {
		return domain.Event{}, err
	}

	event, err := s.repo.FindByID(ctx, s.db, ownerID, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if event == nil {
		return domain.Event{}, domain.ErrNotFound
	}
	return *event, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateEventRequest) (domain.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if err := s.apply(ctx, &event, req); err != nil {
		return domain.Event{}, err
	}
	event.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, &event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOwner
	}
	eventID, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, ownerID, eventID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

// Agenda merges stored events with the due dates of unpaid invoices.
func (s *Service) Agenda(ctx context.Context, req domain.AgendaRequest) ([]domain.AgendaEntry, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOwner
	}

	from, to := req.From.UTC(), req.To.UTC()
	if !to.After(from) || to.Sub(from) > domain.MaxAgendaRange {
		return nil, domain.ErrInvalidRange
	}

	kinds, err := parseKinds(req.Kinds)
	if err != nil {
		return nil, err
	}
	wanted := func(k domain.EventKind) bool {
		if len(kinds) == 0 {
			return true
		}
		_, ok := kinds[k]
		return ok
	}

	entries := make([]domain.AgendaEntry, 0)

	events, err := s.repo.ListOverlapping(ctx, s.db, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	for _, event := range events {
		if event == nil || !wanted(event.Kind) {
			continue
		}
		entries = append(entries, domain.AgendaEntry{
			ID:        event.ID.String(),
			Kind:      event.Kind,
			Title:     event.Title,
			Start:     event.StartsAt,
			End:       event.EndsAt,
			PatientID: event.PatientID,
			Notes:     event.Notes,
		})
	}

	if wanted(domain.EventKindInvoiceDue) {
		invoices, err := s.invoiceSvc.ListDue(ctx, from, to)
		if err != nil {
			return nil, err
		}
		for _, inv := range invoices {
			invoiceID := inv.ID
			patientID := inv.PatientID
			entries = append(entries, domain.AgendaEntry{
				ID:        "invoice-" + inv.ID.String(),
				Kind:      domain.EventKindInvoiceDue,
				Title:     fmt.Sprintf("Scadenza fattura %s - %s", inv.Number, inv.PatientName),
				Start:     inv.DueDate,
				End:       inv.DueDate.AddDate(0, 0, 1),
				PatientID: &patientID,
				InvoiceID: &invoiceID,
				Amount:    fiscal.Format2(inv.Totale),
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Start.Equal(entries[j].Start) {
			return entries[i].Start.Before(entries[j].Start)
		}
		return entries[i].Title < entries[j].Title
	})
	return entries, nil
}

func (s *Service) apply(ctx context.Context, event *domain.Event, req domain.CreateEventRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > 200 {
		return domain.ErrInvalidTitle
	}

	kind := domain.EventKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = domain.EventKindAppointment
	}
	if !kind.Storable() {
		return domain.ErrInvalidKind
	}

	if req.StartsAt.IsZero() {
		return domain.ErrInvalidTimes
	}
	startsAt := req.StartsAt.UTC()
	endsAt := req.EndsAt.UTC()
	if req.EndsAt.IsZero() {
		endsAt = startsAt
	}
	if endsAt.Before(startsAt) {
		return domain.ErrInvalidTimes
	}
	if kind == domain.EventKindAppointment && !endsAt.After(startsAt) {
		return domain.ErrInvalidTimes
	}

	var patientID *snowflake.ID
	if raw := strings.TrimSpace(req.PatientID); raw != "" {
		patient, err := s.patientSvc.Get(ctx, raw)
		if err != nil {
			if errors.Is(err, patientdomain.ErrInvalidID) || errors.Is(err, patientdomain.ErrNotFound) {
				return domain.ErrInvalidPatient
			}
			return err
		}
		id := patient.ID
		patientID = &id
	}

	var metadata datatypes.JSON
	if raw := strings.TrimSpace(string(req.Metadata)); raw != "" && raw != "null" {
		var object map[string]any
		if err := json.Unmarshal([]byte(raw), &object); err != nil {
			return domain.ErrInvalidMetadata
		}
		metadata = datatypes.JSON(raw)
	}

	event.Title = title
	event.Kind = kind
	event.StartsAt = startsAt
	event.EndsAt = endsAt
	event.PatientID = patientID
	event.Notes = strings.TrimSpace(req.Notes)
	event.Metadata = metadata
	return nil
}

func parseKinds(raw []string) (map[domain.EventKind]struct{}, error) {
	kinds := make(map[domain.EventKind]struct{})
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			kind := domain.EventKind(part)
			if !kind.Valid() {
				return nil, domain.ErrInvalidKind
			}
			kinds[kind] = struct{}{}
		}
	}
	return kinds, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
