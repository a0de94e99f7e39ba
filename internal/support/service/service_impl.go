package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/observability/metrics"
	"github.com/smallbiznis/parcella/internal/support/domain"
	"github.com/smallbiznis/parcella/pkg/db/option"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxSubjectLen = 200
	maxBodyLen    = 10000
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
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
		log:     p.Log.Named("support.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   clk,
		metrics: p.Metrics,
	}
}

func (s *Service) Open(ctx context.Context, req domain.OpenTicketRequest) (domain.Ticket, error) {
	principal, ok := authcontext.FromContext(ctx)
	if !ok {
		return domain.Ticket{}, domain.ErrInvalidOwner
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" || utf8.RuneCountInString(subject) > maxSubjectLen {
		return domain.Ticket{}, domain.ErrInvalidSubject
	}
	body, err := normalizeBody(req.Body)
	if err != nil {
		return domain.Ticket{}, err
	}

	now := s.clock.Now()
	ticket := domain.Ticket{
		ID:        s.genID.Generate(),
		Ref:       ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		OwnerID:   principal.UserID,
		Subject:   subject,
		Status:    domain.TicketStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	msg := domain.TicketMessage{
		ID:        s.genID.Generate(),
		TicketID:  ticket.ID,
		AuthorID:  principal.UserID,
		Body:      body,
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertTicket(ctx, tx, &ticket); err != nil {
			return err
		}
		return s.repo.InsertMessage(ctx, tx, &msg)
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	s.metrics.RecordTicketOpened(ctx)
	s.log.Info("support ticket opened", zap.String("ref", ticket.Ref))

	ticket.Messages = []domain.TicketMessage{msg}
	return ticket, nil
}

func (s *Service) ListMine(ctx context.Context, req domain.ListTicketRequest) (domain.ListTicketResponse, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.ListTicketResponse{}, domain.ErrInvalidOwner
	}
	return s.list(ctx, &ownerID, req)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Ticket, error) {
	ticket, _, err := s.loadVisible(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}

	messages, err := s.repo.ListMessages(ctx, s.db, ticket.ID)
	if err != nil {
		return domain.Ticket{}, err
	}
	ticket.Messages = messages
	return ticket, nil
}

func (s *Service) Reply(ctx context.Context, id, body string) (domain.Ticket, error) {
	ticket, principal, err := s.loadVisible(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket.OwnerID != principal.UserID {
		return domain.Ticket{}, domain.ErrNotFound
	}
	return s.appendMessage(ctx, ticket, principal, body, false)
}

func (s *Service) Close(ctx context.Context, id string) (domain.Ticket, error) {
	ticket, principal, err := s.loadVisible(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket.OwnerID != principal.UserID {
		return domain.Ticket{}, domain.ErrNotFound
	}
	if ticket.Status == domain.TicketStatusClosed {
		return ticket, nil
	}
	return s.transition(ctx, ticket, domain.TicketStatusClosed)
}

func (s *Service) ListAll(ctx context.Context, req domain.ListTicketRequest) (domain.ListTicketResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.ListTicketResponse{}, err
	}
	return s.list(ctx, nil, req)
}

func (s *Service) AdminReply(ctx context.Context, id, body string) (domain.Ticket, error) {
	principal, err := requireAdmin(ctx)
	if err != nil {
		return domain.Ticket{}, err
	}
	ticket, err := s.find(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	return s.appendMessage(ctx, ticket, principal, body, true)
}

func (s *Service) SetStatus(ctx context.Context, id, status string) (domain.Ticket, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Ticket{}, err
	}
	next := domain.TicketStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return domain.Ticket{}, domain.ErrInvalidStatus
	}
	ticket, err := s.find(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket.Status == next {
		return ticket, nil
	}
	return s.transition(ctx, ticket, next)
}

// Stats summarizes the whole installation for the admin console.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Stats{}, err
	}

	now := s.clock.Now()
	stats := domain.Stats{Year: now.Year()}

	var err error
	if stats.Users, err = s.repo.CountTable(ctx, s.db, "users"); err != nil {
		return domain.Stats{}, err
	}
	if stats.Patients, err = s.repo.CountTable(ctx, s.db, "patients"); err != nil {
		return domain.Stats{}, err
	}
	if stats.Invoices, err = s.repo.CountTable(ctx, s.db, "invoices"); err != nil {
		return domain.Stats{}, err
	}
	if stats.OpenTickets, err = s.repo.CountTicketsByStatus(ctx, s.db, domain.TicketStatusOpen); err != nil {
		return domain.Stats{}, err
	}

	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	amounts, err := s.repo.ListInvoiceAmounts(ctx, s.db, from, from.AddDate(1, 0, 0))
	if err != nil {
		return domain.Stats{}, err
	}
	stats.MonthlyTotal = monthlyTotals(amounts)
	return stats, nil
}

func (s *Service) list(ctx context.Context, ownerID *snowflake.ID, req domain.ListTicketRequest) (domain.ListTicketResponse, error) {
	filter := domain.ListTicketFilter{OwnerID: ownerID}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := domain.TicketStatus(strings.ToLower(raw))
		if !status.Valid() {
			return domain.ListTicketResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = &status
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.ListTickets(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListTicketResponse{}, err
	}

	items, pageInfo, err := pagination.BuildCursorPageInfo(items, page.Limit(), func(t *domain.Ticket) pagination.Cursor {
		return option.TimeCursor(t.ID, t.UpdatedAt)
	})
	if err != nil {
		return domain.ListTicketResponse{}, err
	}

	tickets := make([]domain.Ticket, 0, len(items))
	for _, item := range items {
		if item != nil {
			tickets = append(tickets, *item)
		}
	}
	return domain.ListTicketResponse{PageInfo: pageInfo, Tickets: tickets}, nil
}

func (s *Service) appendMessage(ctx context.Context, ticket domain.Ticket, author authcontext.Principal, rawBody string, fromAdmin bool) (domain.Ticket, error) {
	if ticket.Status == domain.TicketStatusClosed {
		return domain.Ticket{}, domain.ErrTicketClosed
	}
	body, err := normalizeBody(rawBody)
	if err != nil {
		return domain.Ticket{}, err
	}

	now := s.clock.Now()
	msg := domain.TicketMessage{
		ID:        s.genID.Generate(),
		TicketID:  ticket.ID,
		AuthorID:  author.UserID,
		FromAdmin: fromAdmin,
		Body:      body,
		CreatedAt: now,
	}
	ticket.Status = domain.TicketStatusOpen
	if fromAdmin {
		ticket.Status = domain.TicketStatusAnswered
	}
	ticket.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertMessage(ctx, tx, &msg); err != nil {
			return err
		}
		return s.repo.UpdateTicketStatus(ctx, tx, &ticket)
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	messages, err := s.repo.ListMessages(ctx, s.db, ticket.ID)
	if err != nil {
		return domain.Ticket{}, err
	}
	ticket.Messages = messages
	return ticket, nil
}

func (s *Service) transition(ctx context.Context, ticket domain.Ticket, next domain.TicketStatus) (domain.Ticket, error) {
	now := s.clock.Now()
	ticket.Status = next
	ticket.UpdatedAt = now
	ticket.ClosedAt = nil
	if next == domain.TicketStatusClosed {
		ticket.ClosedAt = &now
	}
	if err := s.repo.UpdateTicketStatus(ctx, s.db, &ticket); err != nil {
		return domain.Ticket{}, err
	}
	s.log.Info("support ticket status changed", zap.String("ref", ticket.Ref), zap.String("status", string(next)))
	return ticket, nil
}

// loadVisible returns the ticket when the caller owns it or is an admin.
func (s *Service) loadVisible(ctx context.Context, id string) (domain.Ticket, authcontext.Principal, error) {
	principal, ok := authcontext.FromContext(ctx)
	if !ok {
		return domain.Ticket{}, authcontext.Principal{}, domain.ErrInvalidOwner
	}
	ticket, err := s.find(ctx, id)
	if err != nil {
		return domain.Ticket{}, authcontext.Principal{}, err
	}
	if ticket.OwnerID != principal.UserID && !principal.IsAdmin() {
		return domain.Ticket{}, authcontext.Principal{}, domain.ErrNotFound
	}
	return ticket, principal, nil
}

func (s *Service) find(ctx context.Context, id string) (domain.Ticket, error) {
	ticketID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || ticketID == 0 {
		return domain.Ticket{}, domain.ErrInvalidID
	}
	ticket, err := s.repo.FindTicket(ctx, s.db, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket == nil {
		return domain.Ticket{}, domain.ErrNotFound
	}
	return *ticket, nil
}

func requireAdmin(ctx context.Context) (authcontext.Principal, error) {
	principal, ok := authcontext.FromContext(ctx)
	if !ok {
		return authcontext.Principal{}, domain.ErrInvalidOwner
	}
	if !principal.IsAdmin() {
		return authcontext.Principal{}, domain.ErrAdminOnly
	}
	return principal, nil
}

func normalizeBody(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if body == "" || utf8.RuneCountInString(body) > maxBodyLen {
		return "", domain.ErrInvalidBody
	}
	return body, nil
}

func monthlyTotals(amounts []domain.InvoiceAmount) []domain.MonthTotal {
	totals := make([]domain.MonthTotal, 12)
	for i := range totals {
		totals[i] = domain.MonthTotal{Month: i + 1, Totale: decimal.Zero}
	}
	for _, amount := range amounts {
		idx := int(amount.IssueDate.UTC().Month()) - 1
		totals[idx].Invoices++
		totals[idx].Totale = totals[idx].Totale.Add(amount.Totale)
	}
	return totals
}
